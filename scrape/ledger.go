package scrape

import (
	"sync"
	"time"
)

type visitRecord struct {
	visitedAt   time.Time
	foundEvents bool
}

// VisitedLedger remembers recently fetched event-page URLs so repeated
// discovery runs do not pay for the same page twice. It is purely advisory:
// a miss never affects correctness, only efficiency.
type VisitedLedger struct {
	mu        sync.Mutex
	entries   map[string]visitRecord
	retention time.Duration
	now       func() time.Time
}

// NewVisitedLedger creates a ledger that forgets URLs after retention.
func NewVisitedLedger(retention time.Duration) *VisitedLedger {
	return &VisitedLedger{
		entries:   make(map[string]visitRecord),
		retention: retention,
		now:       time.Now,
	}
}

// ShouldSkip reports whether url was fetched within the retention window.
// Expired entries are evicted lazily on read.
func (l *VisitedLedger) ShouldSkip(url string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.entries[url]
	if !ok {
		return false
	}
	if l.now().Sub(rec.visitedAt) > l.retention {
		delete(l.entries, url)
		return false
	}
	return true
}

// Record notes a fetch attempt. Success, structured hit and failure are all
// recorded, since refetching a dead page wastes budget regardless of outcome.
func (l *VisitedLedger) Record(url string, foundEvents bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[url] = visitRecord{visitedAt: l.now(), foundEvents: foundEvents}
}

// Len returns the number of live entries, for observability.
func (l *VisitedLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
