package rategate

import (
	"sync"
	"time"
)

type cacheEntry struct {
	expiresAt time.Time
	value     []byte
}

// responseCache is a keyed TTL cache with lazy eviction. Entries are only
// ever written by the single flight that produced them.
type responseCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

func newResponseCache(now func() time.Time) *responseCache {
	return &responseCache{
		entries: make(map[string]cacheEntry),
		now:     now,
	}
}

func (c *responseCache) get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.value, true
}

func (c *responseCache) set(key string, value []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{
		expiresAt: c.now().Add(ttl),
		value:     value,
	}
}
