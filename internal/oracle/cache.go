package oracle

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ttlCache is a time-bounded cache with request coalescing: concurrent
// lookups for the same key share one in-flight fill instead of issuing
// duplicates. Eviction is time-based only; the working set (a handful of
// pairs and mints per session) needs no capacity bound.
type ttlCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	group   singleflight.Group
	now     func() time.Time
}

type cacheEntry struct {
	value     interface{}
	expiresAt time.Time
}

func newTTLCache() *ttlCache {
	return &ttlCache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// getOrFill returns the cached value for key, or runs fill once (shared
// across concurrent callers) and caches a successful result for ttl.
// Failures are not cached: the next caller retries.
func (c *ttlCache) getOrFill(key string, ttl time.Duration, fill func() (interface{}, error)) (interface{}, error) {
	if v, ok := c.get(key); ok {
		return v, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// A concurrent filler may have won the race before we entered.
		if v, ok := c.get(key); ok {
			return v, nil
		}
		v, err := fill()
		if err != nil {
			return nil, err
		}
		c.put(key, v, ttl)
		return v, nil
	})
	return v, err
}

func (c *ttlCache) get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	if !ok || c.now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.value, true
}

func (c *ttlCache) put(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: value, expiresAt: c.now().Add(ttl)}
}
