package application

import (
	"sync"
	"time"
)

type cacheEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// QueryCache maps a key to a value that expires a fixed TTL after it was
// stored. There is no size bound; expired entries are dropped on lookup.
type QueryCache[K comparable, V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[K]cacheEntry[V]
}

// NewQueryCache creates a cache with the given TTL. A non-positive TTL
// disables caching. now may be nil, in which case time.Now is used.
func NewQueryCache[K comparable, V any](ttl time.Duration, now func() time.Time) *QueryCache[K, V] {
	if now == nil {
		now = time.Now
	}
	return &QueryCache[K, V]{
		ttl:     ttl,
		now:     now,
		entries: make(map[K]cacheEntry[V]),
	}
}

// Get returns the value stored for key if it has not expired.
func (c *QueryCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	entry, ok := c.entries[key]
	if !ok {
		return zero, false
	}

	if !c.now().Before(entry.expiresAt) {
		delete(c.entries, key)
		return zero, false
	}

	return entry.value, true
}

// Put stores value under key, replacing any previous entry.
func (c *QueryCache[K, V]) Put(key K, value V) {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry[V]{value: value, expiresAt: c.now().Add(c.ttl)}
}

// Purge drops every entry.
func (c *QueryCache[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.entries)
}

// Len returns the number of stored entries, including expired ones not yet
// looked up.
func (c *QueryCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}
