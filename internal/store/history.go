package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const defaultRecentLimit = 20

// runsSchema is applied on every open; the single-table ledger does not
// warrant versioned migrations.
const runsSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	profile TEXT NOT NULL,
	playlist_id TEXT NOT NULL,
	artists INTEGER NOT NULL,
	fresh INTEGER NOT NULL,
	listened INTEGER NOT NULL,
	playlist_size INTEGER NOT NULL,
	added INTEGER NOT NULL,
	removed INTEGER NOT NULL,
	started_at TIMESTAMP NOT NULL,
	duration_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_profile_started ON runs (profile, started_at);
`

// RunRecord is one completed reconciliation run as persisted to the
// ledger.
type RunRecord struct {
	ID           string    `db:"id" json:"id"`
	Profile      string    `db:"profile" json:"profile"`
	PlaylistID   string    `db:"playlist_id" json:"playlist_id"`
	Artists      int       `db:"artists" json:"artists"`
	Fresh        int       `db:"fresh" json:"fresh"`
	Listened     int       `db:"listened" json:"listened"`
	PlaylistSize int       `db:"playlist_size" json:"playlist_size"`
	Added        int       `db:"added" json:"added"`
	Removed      int       `db:"removed" json:"removed"`
	StartedAt    time.Time `db:"started_at" json:"started_at"`
	DurationMS   int64     `db:"duration_ms" json:"duration_ms"`
}

// Duration returns the run's wall time.
func (r RunRecord) Duration() time.Duration {
	return time.Duration(r.DurationMS) * time.Millisecond
}

// History is the SQLite-backed run ledger.
type History struct {
	db *sqlx.DB
}

// OpenHistory opens (creating if needed) the ledger database at path
// and ensures the schema exists. Pool limits default to a single
// connection, which is all a sequential batch run needs.
func OpenHistory(path string, maxOpenConns, maxIdleConns int) (*History, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	if maxOpenConns <= 0 {
		maxOpenConns = 1
	}
	if maxIdleConns <= 0 {
		maxIdleConns = 1
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping history database: %w", err)
	}

	if _, err := db.Exec(runsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}

	return &History{db: db}, nil
}

// Close releases the underlying database handle.
func (h *History) Close() error {
	return h.db.Close()
}

// Record appends a run to the ledger.
func (h *History) Record(ctx context.Context, rec RunRecord) error {
	query := `
		INSERT INTO runs (id, profile, playlist_id, artists, fresh, listened, playlist_size, added, removed, started_at, duration_ms)
		VALUES (:id, :profile, :playlist_id, :artists, :fresh, :listened, :playlist_size, :added, :removed, :started_at, :duration_ms)
	`

	if _, err := h.db.NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// Recent returns the newest runs first, optionally filtered to one
// profile. A non-positive limit falls back to 20.
func (h *History) Recent(ctx context.Context, profile string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}

	var (
		records []RunRecord
		err     error
	)
	if profile != "" {
		query := `SELECT * FROM runs WHERE profile = ? ORDER BY started_at DESC, id LIMIT ?`
		err = h.db.SelectContext(ctx, &records, query, profile, limit)
	} else {
		query := `SELECT * FROM runs ORDER BY started_at DESC, id LIMIT ?`
		err = h.db.SelectContext(ctx, &records, query, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}

	return records, nil
}
