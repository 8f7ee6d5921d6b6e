package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestCanonicalKeyCaseInsensitive verifies the key is a pure, case-insensitive
// function of (title, date, location).
func TestCanonicalKeyCaseInsensitive(t *testing.T) {
	a := CanonicalKey("Sunset Yoga", "2026-09-02", "San Francisco")
	b := CanonicalKey("SUNSET YOGA", "2026-09-02", "san francisco")
	assert.Equal(t, a, b)
}

func TestCanonicalKeyTruncatesTimestamp(t *testing.T) {
	a := CanonicalKey("Gallery Night", "2026-09-02T19:00:00-07:00", "Oakland")
	b := CanonicalKey("Gallery Night", "2026-09-02", "Oakland")
	assert.Equal(t, a, b)
}

func TestCanonicalKeyChangesWithAnyField(t *testing.T) {
	base := CanonicalKey("Gallery Night", "2026-09-02", "Oakland")
	assert.NotEqual(t, base, CanonicalKey("Gallery Day", "2026-09-02", "Oakland"))
	assert.NotEqual(t, base, CanonicalKey("Gallery Night", "2026-09-03", "Oakland"))
	assert.NotEqual(t, base, CanonicalKey("Gallery Night", "2026-09-02", "Berkeley"))
}

func TestDedupByCanonicalKey(t *testing.T) {
	events := []ExtractedEvent{
		{Title: "Jazz Night", Date: "2026-09-05", Location: "San Francisco"},
		{Title: "JAZZ NIGHT", Date: "2026-09-05", Location: "San Francisco"},
		{Title: "Jazz Night", Date: "2026-09-06", Location: "San Francisco"},
	}

	out := DedupByCanonicalKey(events)
	assert.Len(t, out, 2)
	assert.Equal(t, "Jazz Night", out[0].Title)
}

func TestValidInterest(t *testing.T) {
	assert.True(t, ValidInterest("Yoga"))
	assert.False(t, ValidInterest("Skydiving"))
}
