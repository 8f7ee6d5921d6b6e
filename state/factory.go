package state

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// DefaultStoreFactory creates store implementations based on configuration.
type DefaultStoreFactory struct{}

// NewStoreFactory creates a new factory instance.
func NewStoreFactory() StoreFactory {
	return &DefaultStoreFactory{}
}

// Create returns a store implementation based on the given configuration.
func (f *DefaultStoreFactory) Create(config Config) (Store, error) {
	switch config.Provider {
	case "postgres":
		if config.Postgres == nil || config.Postgres.DSN == "" {
			return nil, fmt.Errorf("postgres provider requires a DSN")
		}
		log.Info().Msg("Creating Postgres store")
		return NewPostgresStore(config.Postgres.DSN)
	case "memory", "":
		log.Info().Msg("Creating in-memory store")
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", config.Provider)
	}
}
