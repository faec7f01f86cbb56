// Package mine keeps the set of mines managed from the admin area.
package mine

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/couchcryptid/blast-vibration-service/internal/domain"
)

var (
	// ErrNotFound is returned when no mine has the requested ID.
	ErrNotFound = fmt.Errorf("mine %w", domain.ErrNotFound)
	// ErrDuplicate is returned when another mine already uses the name.
	ErrDuplicate = errors.New("mine name already exists")
)

// Registry is an in-memory, concurrency-safe mine catalogue.
type Registry struct {
	mu     sync.RWMutex
	mines  map[int]domain.Mine
	nextID int
}

// NewRegistry creates a registry holding seed. IDs in seed are kept; new
// mines get IDs above the largest seeded one.
func NewRegistry(seed []domain.Mine) *Registry {
	r := &Registry{mines: make(map[int]domain.Mine, len(seed)), nextID: 1}
	for _, m := range seed {
		r.mines[m.ID] = m
		if m.ID >= r.nextID {
			r.nextID = m.ID + 1
		}
	}
	return r
}

// List returns all mines ordered by ID.
func (r *Registry) List() []domain.Mine {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Mine, 0, len(r.mines))
	for _, m := range r.mines {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns the mine with the given ID.
func (r *Registry) Get(id int) (domain.Mine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.mines[id]
	if !ok {
		return domain.Mine{}, fmt.Errorf("mine %d: %w", id, ErrNotFound)
	}
	return m, nil
}

// Create adds a mine and assigns it a new ID. Any ID on m is ignored.
func (r *Registry) Create(m domain.Mine) (domain.Mine, error) {
	if err := validate(m); err != nil {
		return domain.Mine{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.nameTaken(m.Name, 0) {
		return domain.Mine{}, fmt.Errorf("mine %q: %w", m.Name, ErrDuplicate)
	}
	m.ID = r.nextID
	r.nextID++
	r.mines[m.ID] = m
	return m, nil
}

// Update replaces the mine with the given ID.
func (r *Registry) Update(id int, m domain.Mine) (domain.Mine, error) {
	if err := validate(m); err != nil {
		return domain.Mine{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.mines[id]; !ok {
		return domain.Mine{}, fmt.Errorf("mine %d: %w", id, ErrNotFound)
	}
	if r.nameTaken(m.Name, id) {
		return domain.Mine{}, fmt.Errorf("mine %q: %w", m.Name, ErrDuplicate)
	}
	m.ID = id
	r.mines[id] = m
	return m, nil
}

// Delete removes the mine with the given ID.
func (r *Registry) Delete(id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.mines[id]; !ok {
		return fmt.Errorf("mine %d: %w", id, ErrNotFound)
	}
	delete(r.mines, id)
	return nil
}

// nameTaken reports whether a mine other than except uses name. Callers hold mu.
func (r *Registry) nameTaken(name string, except int) bool {
	for id, m := range r.mines {
		if id != except && strings.EqualFold(m.Name, name) {
			return true
		}
	}
	return false
}

func validate(m domain.Mine) error {
	if strings.TrimSpace(m.Name) == "" {
		return &domain.InvalidInputError{Field: "name", Reason: "Missing required field: name"}
	}
	return nil
}
