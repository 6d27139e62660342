package cache

import (
	"sync"
	"time"
)

// Cache is an in-process TTL map. Expired entries are dropped on read.
type Cache[V any] struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]entry[V]
}

type entry[V any] struct {
	val     V
	expires time.Time
}

func New[V any](ttl time.Duration) *Cache[V] {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &Cache[V]{ttl: ttl, now: time.Now, entries: map[string]entry[V]{}}
}

func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && c.now().Before(e.expires) {
		return e.val, true
	}
	if ok {
		c.Delete(key)
	}

	var zero V
	return zero, false
}

func (c *Cache[V]) Set(key string, val V) {
	c.mu.Lock()
	c.entries[key] = entry[V]{val: val, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// Load returns the cached value for key or calls fill and caches its result.
// hit reports whether fill was skipped. Errors are not cached.
func (c *Cache[V]) Load(key string, fill func() (V, error)) (v V, hit bool, err error) {
	if v, ok := c.Get(key); ok {
		return v, true, nil
	}

	v, err = fill()
	if err != nil {
		return v, false, err
	}
	c.Set(key, v)
	return v, false, nil
}

func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

func (c *Cache[V]) Clear() {
	c.mu.Lock()
	c.entries = map[string]entry[V]{}
	c.mu.Unlock()
}
