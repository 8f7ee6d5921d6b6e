package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventscout-hub/event-discovery/model"
)

func testEvent(title, date, location string) model.ExtractedEvent {
	return model.ExtractedEvent{
		Title:        title,
		Date:         date,
		Location:     location,
		ExternalLink: "https://example.com/" + title,
		Interests:    []string{"Music"},
	}
}

// TestMemoryUpsertIdempotent verifies inserting the same event (by canonical
// key) twice results in exactly one stored row, even with differing storage
// identifiers.
func TestMemoryUpsertIdempotent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	ev := testEvent("Jazz Night", "2026-09-10", "San Francisco")
	ev.ID = "first-id"
	n, err := store.UpsertEvents(ctx, []model.ExtractedEvent{ev})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	dup := testEvent("JAZZ NIGHT", "2026-09-10", "san francisco")
	dup.ID = "second-id"
	n, err = store.UpsertEvents(ctx, []model.ExtractedEvent{dup})
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	events, err := store.ListEvents(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestMemoryListSortedByDate(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.UpsertEvents(ctx, []model.ExtractedEvent{
		testEvent("Later", "2026-10-01", "Oakland"),
		testEvent("Sooner", "2026-09-01", "Oakland"),
	})
	require.NoError(t, err)

	events, err := store.ListEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Sooner", events[0].Title)
}

func TestMemoryClearEvents(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.UpsertEvents(ctx, []model.ExtractedEvent{testEvent("A", "2026-09-01", "Oakland")})
	require.NoError(t, err)
	require.NoError(t, store.ClearEvents(ctx))

	events, err := store.ListEvents(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestMemoryRotationOffset(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	offset, err := store.RotationOffset(ctx, "sf|music,yoga")
	require.NoError(t, err)
	assert.Zero(t, offset)

	require.NoError(t, store.SetRotationOffset(ctx, "sf|music,yoga", 2))
	offset, err = store.RotationOffset(ctx, "sf|music,yoga")
	require.NoError(t, err)
	assert.Equal(t, 2, offset)
}

func TestMemorySiteSuggestionsTTL(t *testing.T) {
	store := NewMemoryStore()
	current := time.Now()
	store.now = func() time.Time { return current }
	ctx := context.Background()

	require.NoError(t, store.SaveSiteSuggestions(ctx, "San Francisco", []string{"https://sf.example.com"}))

	urls, ok, err := store.SiteSuggestions(ctx, "San Francisco", 72*time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"https://sf.example.com"}, urls)

	current = current.Add(73 * time.Hour)
	_, ok, err = store.SiteSuggestions(ctx, "San Francisco", 72*time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFactorySelectsProvider(t *testing.T) {
	factory := NewStoreFactory()

	store, err := factory.Create(Config{Provider: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	_, err = factory.Create(Config{Provider: "postgres"})
	assert.Error(t, err) // DSN required

	_, err = factory.Create(Config{Provider: "bogus"})
	assert.Error(t, err)
}
