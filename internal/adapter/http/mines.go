package http

import (
	"net/http"
	"strconv"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/blast-vibration-service/internal/domain"
)

func mineID(r *http.Request) (int, error) {
	raw := r.PathValue("id")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, &domain.InvalidInputError{Field: "mine id", Value: raw, Reason: "must be a positive integer"}
	}
	return id, nil
}

func (a *API) handleListMines(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, a.mines.List())
}

func (a *API) handleGetMine(w http.ResponseWriter, r *http.Request) {
	id, err := mineID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	m, err := a.mines.Get(id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, m)
}

func (a *API) handleCreateMine(w http.ResponseWriter, r *http.Request) {
	var m domain.Mine
	if err := decodeJSON(w, r, &m); err != nil {
		a.writeError(w, r, err)
		return
	}
	created, err := a.mines.Create(m)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.logger.Info("mine created", "id", created.ID, "name", created.Name)
	sharedobs.WriteJSON(w, http.StatusCreated, created)
}

func (a *API) handleUpdateMine(w http.ResponseWriter, r *http.Request) {
	id, err := mineID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var m domain.Mine
	if err := decodeJSON(w, r, &m); err != nil {
		a.writeError(w, r, err)
		return
	}
	updated, err := a.mines.Update(id, m)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, updated)
}

func (a *API) handleDeleteMine(w http.ResponseWriter, r *http.Request) {
	id, err := mineID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.mines.Delete(id); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
