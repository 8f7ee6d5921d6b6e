// Package common holds shared configuration and helpers for the discovery
// service.
package common

import "time"

// DiscoveryConfig is the process-wide configuration for the discovery
// service. Request-level overrides are clamped against the Max* fields.
type DiscoveryConfig struct {
	ListenAddr string

	// Storage
	StorageProvider string // "postgres" or "memory"
	DatabaseURL     string

	// External credentials
	BraveAPIKey     string
	AnthropicAPIKey string
	CompletionModel string

	// Per-run limits (defaults; requests may lower, never raise)
	MaxSites        int           // sites scraped synchronously
	MaxLinks        int           // event links fetched per run
	MaxValidate     int           // candidate pages per classification batch
	InterestsLimit  int           // interests queried per run
	ResultsPerQuery int           // search results requested per query
	RunBudget       time.Duration // overall synchronous time budget
	PageWorkers     int           // bounded pool width for page fetches

	// Pacing and caching
	MinCallInterval  time.Duration // minimum spacing between completion calls
	Cooldown         time.Duration // cooldown window after a rate-limit error
	ResultCacheTTL   time.Duration
	SuggestionTTL    time.Duration
	VisitedRetention time.Duration

	// FallbackRaw controls whether candidates are emitted as low-confidence
	// events when the classifier is unavailable, or dropped.
	FallbackRaw bool
}

// DefaultConfig returns a configuration with the reference defaults.
func DefaultConfig() DiscoveryConfig {
	return DiscoveryConfig{
		ListenAddr:       ":8080",
		StorageProvider:  "memory",
		CompletionModel:  "claude-sonnet-4-20250514",
		MaxSites:         6,
		MaxLinks:         40,
		MaxValidate:      30,
		InterestsLimit:   3,
		ResultsPerQuery:  5,
		RunBudget:        55 * time.Second,
		PageWorkers:      4,
		MinCallInterval:  2 * time.Second,
		Cooldown:         5 * time.Minute,
		ResultCacheTTL:   10 * time.Minute,
		SuggestionTTL:    72 * time.Hour,
		VisitedRetention: 24 * time.Hour,
		FallbackRaw:      true,
	}
}

// ClampInt bounds v to [min, max], substituting fallback when v is zero or
// negative.
func ClampInt(v, min, max, fallback int) int {
	if v <= 0 {
		return fallback
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
