package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"

	"github.com/eventscout-hub/event-discovery/model"
)

const (
	maxOpenConns    = 25
	maxIdleConns    = 5
	connMaxLifetime = 5 * time.Minute
	pingTimeout     = 5 * time.Second
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id UUID PRIMARY KEY,
		canonical_key TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		event_date TEXT NOT NULL,
		event_time TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		external_link TEXT NOT NULL,
		image_url TEXT NOT NULL DEFAULT '',
		interests JSONB NOT NULL DEFAULT '[]',
		vibes JSONB NOT NULL DEFAULT '[]',
		source TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS events_canonical_key_idx ON events (canonical_key)`,
	`CREATE TABLE IF NOT EXISTS rotation_state (
		signature TEXT PRIMARY KEY,
		offset_value INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS site_suggestions (
		city TEXT PRIMARY KEY,
		urls JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

const insertEventQuery = `
	INSERT INTO events (id, canonical_key, title, description, event_date, event_time,
		location, external_link, image_url, interests, vibes, source)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (canonical_key) DO NOTHING`

// PostgresStore is the durable Store backed by PostgreSQL. The unique index
// on canonical_key is the concurrency-safety mechanism for persistence:
// concurrent inserts of the same event are resolved by the database.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore connects, verifies the connection and applies the schema.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.migrate(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// UpsertEvents inserts events with ignore-on-conflict semantics and returns
// how many rows were actually inserted.
func (s *PostgresStore) UpsertEvents(ctx context.Context, events []model.ExtractedEvent) (int, error) {
	inserted := 0
	for _, ev := range events {
		id := ev.ID
		if id == "" {
			id = uuid.NewString()
		}
		interests, err := json.Marshal(ev.Interests)
		if err != nil {
			return inserted, err
		}
		vibes, err := json.Marshal(ev.Vibes)
		if err != nil {
			return inserted, err
		}

		res, err := s.db.ExecContext(ctx, insertEventQuery,
			id, ev.CanonicalKey(), ev.Title, ev.Description, ev.Date, ev.Time,
			ev.Location, ev.ExternalLink, ev.ImageURL, interests, vibes, string(ev.Source))
		if err != nil {
			return inserted, fmt.Errorf("failed to insert event %q: %w", ev.Title, err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			inserted++
		}
	}
	log.Debug().Int("events", len(events)).Int("inserted", inserted).Msg("Upserted events")
	return inserted, nil
}

type eventRow struct {
	ID           string `db:"id"`
	Title        string `db:"title"`
	Description  string `db:"description"`
	EventDate    string `db:"event_date"`
	EventTime    string `db:"event_time"`
	Location     string `db:"location"`
	ExternalLink string `db:"external_link"`
	ImageURL     string `db:"image_url"`
	Interests    []byte `db:"interests"`
	Vibes        []byte `db:"vibes"`
	Source       string `db:"source"`
}

// ListEvents returns all stored events, date ascending.
func (s *PostgresStore) ListEvents(ctx context.Context) ([]model.ExtractedEvent, error) {
	var rows []eventRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, title, description, event_date, event_time, location,
			external_link, image_url, interests, vibes, source
		FROM events ORDER BY event_date ASC, title ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	events := make([]model.ExtractedEvent, 0, len(rows))
	for _, row := range rows {
		ev := model.ExtractedEvent{
			ID:           row.ID,
			Title:        row.Title,
			Description:  row.Description,
			Date:         row.EventDate,
			Time:         row.EventTime,
			Location:     row.Location,
			ExternalLink: row.ExternalLink,
			ImageURL:     row.ImageURL,
			Source:       model.EventSource(row.Source),
		}
		_ = json.Unmarshal(row.Interests, &ev.Interests)
		_ = json.Unmarshal(row.Vibes, &ev.Vibes)
		events = append(events, ev)
	}
	return events, nil
}

// ClearEvents removes all stored events.
func (s *PostgresStore) ClearEvents(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM events`); err != nil {
		return fmt.Errorf("failed to clear events: %w", err)
	}
	return nil
}

// RotationOffset returns the persisted offset for the signature, zero when
// absent.
func (s *PostgresStore) RotationOffset(ctx context.Context, key string) (int, error) {
	var offset int
	err := s.db.GetContext(ctx, &offset,
		`SELECT offset_value FROM rotation_state WHERE signature = $1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read rotation offset: %w", err)
	}
	return offset, nil
}

// SetRotationOffset upserts the offset for the signature.
func (s *PostgresStore) SetRotationOffset(ctx context.Context, key string, offset int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rotation_state (signature, offset_value) VALUES ($1, $2)
		ON CONFLICT (signature) DO UPDATE SET offset_value = EXCLUDED.offset_value`,
		key, offset)
	if err != nil {
		return fmt.Errorf("failed to save rotation offset: %w", err)
	}
	return nil
}

// SiteSuggestions returns cached suggestions for the city if younger than
// maxAge.
func (s *PostgresStore) SiteSuggestions(ctx context.Context, city string, maxAge time.Duration) ([]string, bool, error) {
	var row struct {
		URLs      []byte    `db:"urls"`
		CreatedAt time.Time `db:"created_at"`
	}
	err := s.db.GetContext(ctx, &row,
		`SELECT urls, created_at FROM site_suggestions WHERE city = $1`, city)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read site suggestions: %w", err)
	}
	if time.Since(row.CreatedAt) > maxAge {
		return nil, false, nil
	}

	var urls []string
	if err := json.Unmarshal(row.URLs, &urls); err != nil {
		return nil, false, nil
	}
	return urls, true, nil
}

// SaveSiteSuggestions caches suggested sites for the city, replacing any
// previous entry.
func (s *PostgresStore) SaveSiteSuggestions(ctx context.Context, city string, urls []string) error {
	encoded, err := json.Marshal(urls)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO site_suggestions (city, urls, created_at) VALUES ($1, $2, now())
		ON CONFLICT (city) DO UPDATE SET urls = EXCLUDED.urls, created_at = EXCLUDED.created_at`,
		city, encoded)
	if err != nil {
		return fmt.Errorf("failed to save site suggestions: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
