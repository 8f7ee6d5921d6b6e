package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventscout-hub/event-discovery/common"
	"github.com/eventscout-hub/event-discovery/model"
)

func sfEvent(title, date string) model.ExtractedEvent {
	return model.ExtractedEvent{
		Title:        title,
		Date:         date,
		Location:     "San Francisco",
		ExternalLink: "https://sf.example.com/" + title,
		Interests:    []string{"Music"},
		Source:       model.SourceStructured,
	}
}

func sfRequest() model.DiscoveryRequest {
	return model.DiscoveryRequest{City: "San Francisco", Interests: []string{"Music"}}
}

// TestConsolidateSkipsRankingWhenLarge verifies the local path: above the
// threshold the completion API is never called, and the result is deduped,
// date-sorted and capped.
func TestConsolidateSkipsRankingWhenLarge(t *testing.T) {
	client := &fakeLLM{err: common.ErrServerError} // would fail if called
	c := NewConsolidator(newGate(), client)

	var events []model.ExtractedEvent
	for i := 0; i < 110; i++ {
		events = append(events, sfEvent(fmt.Sprintf("Event %03d", i), fmt.Sprintf("2026-10-%02d", (i%28)+1)))
	}
	// Duplicate of the first event under a different storage identity.
	dup := events[0]
	dup.ID = "other-id"
	events = append(events, dup)

	out := c.Consolidate(context.Background(), events, sfRequest())
	assert.Zero(t, client.calls)
	assert.Len(t, out, 100)
	for i := 1; i < len(out); i++ {
		assert.LessOrEqual(t, out[i-1].Date, out[i].Date)
	}
}

func TestConsolidateSkipRankingFlag(t *testing.T) {
	client := &fakeLLM{}
	c := NewConsolidator(newGate(), client)

	req := sfRequest()
	req.SkipRanking = true
	out := c.Consolidate(context.Background(), []model.ExtractedEvent{sfEvent("Jazz Night", "2026-09-10")}, req)
	assert.Zero(t, client.calls)
	assert.Len(t, out, 1)
}

func TestConsolidateSkipsRankingNearDeadline(t *testing.T) {
	client := &fakeLLM{}
	c := NewConsolidator(newGate(), client)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	out := c.Consolidate(ctx, []model.ExtractedEvent{sfEvent("Jazz Night", "2026-09-10")}, sfRequest())
	assert.Zero(t, client.calls)
	assert.Len(t, out, 1)
}

func TestConsolidateRankingPath(t *testing.T) {
	raw, err := json.Marshal(map[string]interface{}{
		"ranking": []map[string]interface{}{
			{"index": 1, "keep": true, "category": "Music"},
			{"index": 0, "keep": false, "category": "Community"},
		},
	})
	require.NoError(t, err)

	client := &fakeLLM{output: raw}
	c := NewConsolidator(newGate(), client)

	events := []model.ExtractedEvent{
		sfEvent("Dropped Event", "2026-09-10"),
		sfEvent("Kept Event", "2026-09-11"),
	}
	out := c.Consolidate(context.Background(), events, sfRequest())
	assert.Equal(t, 1, client.calls)
	require.Len(t, out, 1)
	assert.Equal(t, "Kept Event", out[0].Title)
}

func TestConsolidateRankingFailureFallsBack(t *testing.T) {
	client := &fakeLLM{err: common.ErrServerError}
	c := NewConsolidator(newGate(), client)

	out := c.Consolidate(context.Background(), []model.ExtractedEvent{
		sfEvent("B Event", "2026-09-11"),
		sfEvent("A Event", "2026-09-10"),
	}, sfRequest())
	require.Len(t, out, 2)
	assert.Equal(t, "A Event", out[0].Title)
}

// TestConsolidateDropsComedyUnlessRequested covers the sensitive-category
// rule.
func TestConsolidateDropsComedyUnlessRequested(t *testing.T) {
	comedy := sfEvent("Improv Showcase", "2026-09-10")
	comedy.Interests = []string{"Comedy"}
	music := sfEvent("Jazz Night", "2026-09-11")

	c := NewConsolidator(newGate(), &fakeLLM{err: common.ErrServerError})

	out := c.Consolidate(context.Background(), []model.ExtractedEvent{comedy, music}, sfRequest())
	require.Len(t, out, 1)
	assert.Equal(t, "Jazz Night", out[0].Title)

	req := sfRequest()
	req.Interests = []string{"Music", "Comedy"}
	out = c.Consolidate(context.Background(), []model.ExtractedEvent{comedy, music}, req)
	assert.Len(t, out, 2)
}

func TestConsolidateFiltersWrongCity(t *testing.T) {
	la := sfEvent("LA Event", "2026-09-10")
	la.Location = "Los Angeles"

	c := NewConsolidator(newGate(), &fakeLLM{err: common.ErrServerError})
	out := c.Consolidate(context.Background(), []model.ExtractedEvent{la, sfEvent("SF Event", "2026-09-11")}, sfRequest())
	require.Len(t, out, 1)
	assert.Equal(t, "SF Event", out[0].Title)
}
