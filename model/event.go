// Package model defines the data types shared across the discovery pipeline.
package model

import "strings"

// EventSource records which stage of the fallback chain produced an event,
// so confidence can be inspected downstream.
type EventSource string

const (
	// SourceStructured means the event came from embedded schema.org markup.
	SourceStructured EventSource = "structured"
	// SourceValidated means the event was confirmed by the batch classifier.
	SourceValidated EventSource = "validated"
	// SourceRawFallback means the classifier was unavailable and the raw
	// candidate page was emitted as a low-confidence event.
	SourceRawFallback EventSource = "raw_fallback"
)

// TimeTBD is the sentinel used when a page supplies a date but no usable
// start time.
const TimeTBD = "See event page for time"

// ExtractedEvent is a single real-world event pulled out of a candidate page.
// Title, Date and ExternalLink are never empty once an event is accepted into
// the pipeline output.
type ExtractedEvent struct {
	ID           string      `json:"id,omitempty" db:"id"`
	Title        string      `json:"title" db:"title"`
	Description  string      `json:"description" db:"description"`
	Date         string      `json:"date" db:"event_date"` // calendar date, YYYY-MM-DD
	Time         string      `json:"time" db:"event_time"`
	Location     string      `json:"location" db:"location"`
	ExternalLink string      `json:"externalLink" db:"external_link"`
	ImageURL     string      `json:"imageUrl,omitempty" db:"image_url"`
	Interests    []string    `json:"interests"`
	Vibes        []string    `json:"vibes"`
	Source       EventSource `json:"source,omitempty" db:"source"`
}

// CanonicalKey returns the dedup identity of the event. Storage identifiers
// are regenerated every time the same real-world event is rediscovered, so
// identity is the normalized (title, date, location) triple instead.
func (e ExtractedEvent) CanonicalKey() string {
	return CanonicalKey(e.Title, e.Date, e.Location)
}

// CanonicalKey derives the case-normalized composite key for an event. The
// date is truncated to its calendar-date portion so a page serving a full
// timestamp and one serving a bare date collapse to the same identity.
func CanonicalKey(title, date, location string) string {
	if len(date) > 10 {
		date = date[:10]
	}
	return strings.ToLower(strings.TrimSpace(title)) + "|" +
		strings.TrimSpace(date) + "|" +
		strings.ToLower(strings.TrimSpace(location))
}

// DedupByCanonicalKey returns events with duplicate canonical keys removed,
// keeping the first occurrence.
func DedupByCanonicalKey(events []ExtractedEvent) []ExtractedEvent {
	seen := make(map[string]struct{}, len(events))
	out := make([]ExtractedEvent, 0, len(events))
	for _, ev := range events {
		key := ev.CanonicalKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, ev)
	}
	return out
}
