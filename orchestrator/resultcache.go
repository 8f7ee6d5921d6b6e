package orchestrator

import (
	"sync"
	"time"

	"github.com/eventscout-hub/event-discovery/model"
)

type resultEntry struct {
	expiresAt time.Time
	events    []model.ExtractedEvent
}

// resultCache holds recent discovery results keyed by the request signature.
// A hit is the dominant fast path for repeated requests.
type resultCache struct {
	mu      sync.Mutex
	entries map[string]resultEntry
	ttl     time.Duration
	now     func() time.Time
}

func newResultCache(ttl time.Duration) *resultCache {
	return &resultCache{
		entries: make(map[string]resultEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *resultCache) get(key string) ([]model.ExtractedEvent, bool) {
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
	return entry.events, true
}

func (c *resultCache) set(key string, events []model.ExtractedEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = resultEntry{
		expiresAt: c.now().Add(c.ttl),
		events:    events,
	}
}
