// Package cache provides a small mutex-guarded TTL cache used to memoize
// whole scoring batches. Expiry is lazy: entries are checked on read, never
// swept in the background.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	at      time.Time
	payload V
}

// TTL is a concurrency-safe map with per-cache time-to-live. A zero TTL means
// entries never expire.
type TTL[V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]entry[V]
}

// NewTTL creates a cache whose entries expire ttl after insertion.
func NewTTL[V any](ttl time.Duration) *TTL[V] {
	return &TTL[V]{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry[V]),
	}
}

// SetClock overrides the time source. Intended for tests.
func (c *TTL[V]) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Get returns the cached value for key if present and unexpired. Expired
// entries are evicted on the spot.
func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.ttl > 0 && c.now().Sub(e.at) >= c.ttl {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return e.payload, true
}

// Set stores a value under key, stamping it with the current time.
func (c *TTL[V]) Set(key string, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{at: c.now(), payload: v}
}

// Len returns the number of stored entries, including any not yet evicted.
func (c *TTL[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
