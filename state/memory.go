package state

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eventscout-hub/event-discovery/model"
)

type suggestionEntry struct {
	urls      []string
	createdAt time.Time
}

// MemoryStore is an in-process Store used in tests and single-node dev mode.
// It applies the same canonical-key conflict semantics as the Postgres
// backend.
type MemoryStore struct {
	mu          sync.RWMutex
	events      map[string]model.ExtractedEvent // canonical key -> event
	rotation    map[string]int
	suggestions map[string]suggestionEntry
	now         func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events:      make(map[string]model.ExtractedEvent),
		rotation:    make(map[string]int),
		suggestions: make(map[string]suggestionEntry),
		now:         time.Now,
	}
}

// UpsertEvents inserts events, ignoring canonical-key conflicts.
func (s *MemoryStore) UpsertEvents(_ context.Context, events []model.ExtractedEvent) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := 0
	for _, ev := range events {
		key := ev.CanonicalKey()
		if _, exists := s.events[key]; exists {
			continue
		}
		if ev.ID == "" {
			ev.ID = uuid.NewString()
		}
		s.events[key] = ev
		inserted++
	}
	return inserted, nil
}

// ListEvents returns all stored events, date ascending.
func (s *MemoryStore) ListEvents(_ context.Context) ([]model.ExtractedEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]model.ExtractedEvent, 0, len(s.events))
	for _, ev := range s.events {
		events = append(events, ev)
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].Date != events[j].Date {
			return events[i].Date < events[j].Date
		}
		return events[i].Title < events[j].Title
	})
	return events, nil
}

// ClearEvents removes all stored events.
func (s *MemoryStore) ClearEvents(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[string]model.ExtractedEvent)
	return nil
}

// RotationOffset returns the stored offset, zero when absent.
func (s *MemoryStore) RotationOffset(_ context.Context, key string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rotation[key], nil
}

// SetRotationOffset stores the offset.
func (s *MemoryStore) SetRotationOffset(_ context.Context, key string, offset int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rotation[key] = offset
	return nil
}

// SiteSuggestions returns cached suggestions younger than maxAge.
func (s *MemoryStore) SiteSuggestions(_ context.Context, city string, maxAge time.Duration) ([]string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.suggestions[city]
	if !ok || s.now().Sub(entry.createdAt) > maxAge {
		return nil, false, nil
	}
	return entry.urls, true, nil
}

// SaveSiteSuggestions caches suggestions for the city.
func (s *MemoryStore) SaveSiteSuggestions(_ context.Context, city string, urls []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suggestions[city] = suggestionEntry{urls: urls, createdAt: s.now()}
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }
