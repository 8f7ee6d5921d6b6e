// Package state provides durable storage for discovered events, interest
// rotation offsets and the per-city website-suggestion cache, behind an
// interface with pluggable backends.
package state

import (
	"context"
	"time"

	"github.com/eventscout-hub/event-discovery/model"
)

// Store defines the persistence operations the pipeline needs, regardless of
// the underlying implementation.
type Store interface {
	// UpsertEvents inserts events keyed by canonical identity, ignoring
	// conflicts, and returns the number of rows actually inserted.
	UpsertEvents(ctx context.Context, events []model.ExtractedEvent) (int, error)

	// ListEvents returns all stored events, date ascending.
	ListEvents(ctx context.Context) ([]model.ExtractedEvent, error)

	// ClearEvents removes all stored events (administrative reset).
	ClearEvents(ctx context.Context) error

	// RotationOffset returns the persisted round-robin offset for a
	// (city, interest-signature) key; zero when absent.
	RotationOffset(ctx context.Context, key string) (int, error)

	// SetRotationOffset persists the offset for the key.
	SetRotationOffset(ctx context.Context, key string, offset int) error

	// SiteSuggestions returns the cached suggested site URLs for a city if
	// they are younger than maxAge.
	SiteSuggestions(ctx context.Context, city string, maxAge time.Duration) ([]string, bool, error)

	// SaveSiteSuggestions caches suggested site URLs for a city.
	SaveSiteSuggestions(ctx context.Context, city string, urls []string) error

	// Close releases the backend.
	Close() error
}

// StoreFactory creates the appropriate store implementation.
type StoreFactory interface {
	Create(config Config) (Store, error)
}

// Config contains common configuration for all store implementations.
type Config struct {
	// Provider selects the backend: "postgres" or "memory".
	Provider string

	Postgres *PostgresConfig
}

// PostgresConfig contains Postgres-specific configuration.
type PostgresConfig struct {
	// DSN is a lib/pq connection string or URL.
	DSN string
}
