// Package sqlite persists events in an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/quake-alert-service/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	location    TEXT NOT NULL,
	country     TEXT NOT NULL,
	magnitude   REAL,
	occurred_at INTEGER NOT NULL,
	ingested_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_occurred_at ON events(occurred_at);
`

// Store is the durable collection of events keyed by feed id. It owns the
// retention window's data; the engine decides when to prune.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates or opens the database at path and applies the schema.
// An error here is fatal to the process: the service has no meaningful
// function without persistence.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, _ = db.Exec("PRAGMA busy_timeout = 5000")
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// ExistingIDs returns which of the candidate ids are already present.
// Sized for one feed page, so a single IN query is sufficient.
func (s *Store) ExistingIDs(ctx context.Context, ids []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{}, len(ids))
	if len(ids) == 0 {
		return existing, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, "SELECT id FROM events WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, fmt.Errorf("query existing ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan existing id: %w", err)
		}
		existing[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate existing ids: %w", err)
	}
	return existing, nil
}

// InsertNew persists events whose id is not already present and reports how
// many rows were actually inserted. Existing rows are never overwritten, so
// a retried fetch that redelivers a batch is a no-op.
func (s *Store) InsertNew(ctx context.Context, events []domain.Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	inserted := 0
	for _, e := range events {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO events(id, kind, location, country, magnitude, occurred_at, ingested_at)
			 VALUES(?,?,?,?,?,?,?)
			 ON CONFLICT(id) DO NOTHING`,
			e.ID, e.Kind, e.Location, e.Country, nullFloat(e.Magnitude),
			e.OccurredAt.UnixMilli(), e.IngestedAt.UnixMilli(),
		)
		if err != nil {
			return 0, fmt.Errorf("insert event %s: %w", e.ID, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert: %w", err)
	}
	return inserted, nil
}

// PruneOlderThan deletes all events that occurred before cutoff and reports
// how many were removed.
func (s *Store) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE occurred_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	return res.RowsAffected()
}

// Recent returns events that occurred at or after since, newest first.
func (s *Store) Recent(ctx context.Context, since time.Time) ([]domain.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, location, country, magnitude, occurred_at, ingested_at
		 FROM events WHERE occurred_at >= ? ORDER BY occurred_at DESC`,
		since.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("query recent events: %w", err)
	}
	defer rows.Close()

	// Non-nil so the API serializes an empty list rather than null.
	events := make([]domain.Event, 0)
	for rows.Next() {
		var (
			e          domain.Event
			mag        sql.NullFloat64
			occurredAt int64
			ingestedAt int64
		)
		if err := rows.Scan(&e.ID, &e.Kind, &e.Location, &e.Country, &mag, &occurredAt, &ingestedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if mag.Valid {
			v := mag.Float64
			e.Magnitude = &v
		}
		e.OccurredAt = time.UnixMilli(occurredAt).UTC()
		e.IngestedAt = time.UnixMilli(ingestedAt).UTC()
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent events: %w", err)
	}
	return events, nil
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
