package app

import (
	"sync"
	"time"

	"crypto-portfolio/observability"
)

// Cache names used in metrics
const (
	cachePrices  = "prices"
	cacheHistory = "history"
	cacheDetails = "details"
	cacheCoins   = "coins"
)

type cacheEntry[V any] struct {
	value    V
	storedAt time.Time
}

// TTLCache is a keyed cache whose entries expire after a fixed TTL.
// Expired entries stay readable through GetStale until overwritten.
type TTLCache[V any] struct {
	mu      sync.RWMutex
	name    string
	ttl     time.Duration
	entries map[string]cacheEntry[V]
	now     func() time.Time
}

// NewTTLCache creates a cache reporting metrics under name. A TTL of 0
// disables freshness, so every Get misses.
func NewTTLCache[V any](name string, ttl time.Duration) *TTLCache[V] {
	return &TTLCache[V]{
		name:    name,
		ttl:     ttl,
		entries: make(map[string]cacheEntry[V]),
		now:     time.Now,
	}
}

// Get returns the entry for key if it is still fresh
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	fresh := ok && c.now().Sub(e.storedAt) < c.ttl
	c.mu.RUnlock()

	metrics := observability.GetMetrics()
	if !fresh {
		metrics.RecordCacheMiss(c.name)
		var zero V
		return zero, false
	}
	metrics.RecordCacheHit(c.name)
	return e.value, true
}

// GetStale returns the entry for key regardless of age
func (c *TTLCache[V]) GetStale(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e.value, ok
}

// Set stores value under key. The latest write wins.
func (c *TTLCache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry[V]{value: value, storedAt: c.now()}
}

// Invalidate drops key
func (c *TTLCache[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Purge drops every entry stored at least maxAge ago and returns how many
// were dropped
func (c *TTLCache[V]) Purge(maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.entries {
		if c.now().Sub(e.storedAt) >= maxAge {
			delete(c.entries, k)
			n++
		}
	}
	return n
}
