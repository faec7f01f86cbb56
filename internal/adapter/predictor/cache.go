package predictor

import (
	"context"
	"fmt"
	"sync"

	"github.com/couchcryptid/blast-vibration-service/internal/domain"
	"github.com/couchcryptid/blast-vibration-service/internal/observability"
)

// CachedPredictor wraps a RemotePredictor with an in-memory LRU cache. The
// model only reads distance and charge weight, so those form the key.
type CachedPredictor struct {
	inner   domain.RemotePredictor
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedPredictor creates a cache decorator around a predictor.
func NewCachedPredictor(inner domain.RemotePredictor, maxEntries int, metrics *observability.Metrics) *CachedPredictor {
	return &CachedPredictor{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedPredictor) Predict(ctx context.Context, params domain.BlastParameters) (domain.RemotePrediction, error) {
	key := fmt.Sprintf("%g|%g", params.Distance, params.MaxChargeWeight)
	if result, ok := c.cache.get(key); ok {
		c.metrics.PredictorCache.WithLabelValues("hit").Inc()
		return result, nil
	}
	c.metrics.PredictorCache.WithLabelValues("miss").Inc()

	result, err := c.inner.Predict(ctx, params)
	if err != nil {
		return result, err
	}
	c.cache.put(key, result)
	return result, nil
}

// lruCache is a simple thread-safe LRU cache for remote predictions.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value domain.RemotePrediction
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (domain.RemotePrediction, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.RemotePrediction{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value domain.RemotePrediction) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.pushFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictOldest()
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.unlink(e)
	c.pushFront(e)
}

func (c *lruCache) pushFront(e *entry) {
	e.prev = nil
	e.next = c.head
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictOldest() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.unlink(c.tail)
}
