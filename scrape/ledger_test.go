package scrape

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLedgerRecordAndSkip(t *testing.T) {
	ledger := NewVisitedLedger(24 * time.Hour)

	assert.False(t, ledger.ShouldSkip("https://a.example.com/events/1"))
	ledger.Record("https://a.example.com/events/1", true)
	assert.True(t, ledger.ShouldSkip("https://a.example.com/events/1"))
}

// TestLedgerEviction verifies entries older than the retention window are
// excluded and lazily removed.
func TestLedgerEviction(t *testing.T) {
	ledger := NewVisitedLedger(24 * time.Hour)
	current := time.Now()
	ledger.now = func() time.Time { return current }

	ledger.Record("https://a.example.com/events/1", false)
	assert.True(t, ledger.ShouldSkip("https://a.example.com/events/1"))
	assert.Equal(t, 1, ledger.Len())

	current = current.Add(25 * time.Hour)
	assert.False(t, ledger.ShouldSkip("https://a.example.com/events/1"))
	assert.Equal(t, 0, ledger.Len())
}

func TestLedgerFailedFetchStillRecorded(t *testing.T) {
	ledger := NewVisitedLedger(time.Hour)
	ledger.Record("https://dead.example.com/events/404", false)
	assert.True(t, ledger.ShouldSkip("https://dead.example.com/events/404"))
}
