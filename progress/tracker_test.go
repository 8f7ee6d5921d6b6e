package progress

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eventscout-hub/event-discovery/model"
)

func TestTrackerLifecycle(t *testing.T) {
	tracker := NewTracker()
	assert.Equal(t, StepIdle, tracker.Snapshot().Step)

	tracker.Reset()
	assert.Equal(t, StepStart, tracker.Snapshot().Step)

	tracker.SetStep(StepSearch)
	tracker.AddSite(model.ScrapingStatus{URL: "https://a.example.com", Status: model.StatusSuccess})
	tracker.Update(Counts{BraveSites: 3, EventLinks: 12})

	snap := tracker.Snapshot()
	assert.Equal(t, StepSearch, snap.Step)
	assert.Len(t, snap.Sites, 1)
	assert.Equal(t, 3, snap.Counts.BraveSites)
	assert.Equal(t, 12, snap.Counts.EventLinks)

	tracker.Reset()
	snap = tracker.Snapshot()
	assert.Empty(t, snap.Sites)
	assert.Zero(t, snap.Counts.BraveSites)
}

func TestTrackerConcurrentAccess(t *testing.T) {
	tracker := NewTracker()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Update(Counts{ExtractedEvents: 1})
			_ = tracker.Snapshot()
		}()
	}
	wg.Wait()
	assert.Equal(t, 16, tracker.Snapshot().Counts.ExtractedEvents)
}
