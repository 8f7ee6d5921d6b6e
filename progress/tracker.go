// Package progress holds the single shared, continuously overwritten state
// record describing pipeline stage and running counts, readable by pollers.
package progress

import (
	"sync"

	"github.com/eventscout-hub/event-discovery/model"
)

// Step is the pipeline stage, advanced monotonically within a run.
type Step string

const (
	StepIdle     Step = "idle"
	StepStart    Step = "start"
	StepSearch   Step = "search"
	StepListings Step = "listings"
	StepEvents   Step = "events"
	StepDone     Step = "done"
)

// Counts are the running totals a polling caller can display.
type Counts struct {
	BraveSites      int `json:"braveSites"`
	EventLinks      int `json:"eventLinks"`
	CandidatePages  int `json:"candidatePages"`
	ExtractedEvents int `json:"extractedEvents"`
}

// Snapshot is a point-in-time copy of the tracker state.
type Snapshot struct {
	Step   Step                   `json:"step"`
	Sites  []model.ScrapingStatus `json:"sites"`
	Counts Counts                 `json:"counts"`
}

// Tracker is the process-wide progress record. Each new run resets it; all
// stages overwrite it as they advance.
type Tracker struct {
	mu     sync.RWMutex
	step   Step
	sites  []model.ScrapingStatus
	counts Counts
}

// NewTracker starts in the idle state.
func NewTracker() *Tracker {
	return &Tracker{step: StepIdle}
}

// Reset clears the record at the start of a run.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.step = StepStart
	t.sites = nil
	t.counts = Counts{}
}

// SetStep advances the pipeline stage.
func (t *Tracker) SetStep(step Step) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.step = step
}

// AddSite records the scraping outcome for one candidate site.
func (t *Tracker) AddSite(status model.ScrapingStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sites = append(t.sites, status)
}

// Update applies a delta to the running counts.
func (t *Tracker) Update(delta Counts) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts.BraveSites += delta.BraveSites
	t.counts.EventLinks += delta.EventLinks
	t.counts.CandidatePages += delta.CandidatePages
	t.counts.ExtractedEvents += delta.ExtractedEvents
}

// Snapshot returns a copy safe for concurrent readers.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	sites := make([]model.ScrapingStatus, len(t.sites))
	copy(sites, t.sites)
	return Snapshot{Step: t.step, Sites: sites, Counts: t.counts}
}
