// Package sqlite provides SQLite-based persistent storage for upload history.
// Uses WAL mode for concurrent reads and crash-safe writes.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)
)

// DB wraps a SQLite connection with WAL mode and migrations.
type DB struct {
	db *sql.DB
}

// Open creates or opens the SQLite database at dir/state.db.
// Enables WAL mode, foreign keys, and 5-second busy timeout.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dir, "state.db")
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// Connection pool settings for SQLite
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

// Close cleanly shuts down the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping() error {
	return d.db.Ping()
}

// PingContext is Ping for health checks that carry a deadline.
func (d *DB) PingContext(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations.
func (d *DB) migrate() error {
	migrations := []string{
		// One row per upload task, updated on every state change.
		`CREATE TABLE IF NOT EXISTS uploads (
			id          TEXT PRIMARY KEY,
			batch_id    TEXT NOT NULL,
			name        TEXT NOT NULL,
			destination TEXT NOT NULL DEFAULT '',
			size        INTEGER NOT NULL,
			state       TEXT NOT NULL,
			progress    REAL NOT NULL DEFAULT 0,
			error       TEXT,
			reference   TEXT,
			final_size  INTEGER NOT NULL DEFAULT 0,
			created_at  INTEGER NOT NULL,
			started_at  INTEGER,
			finished_at INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_uploads_batch ON uploads(batch_id)`,
		`CREATE INDEX IF NOT EXISTS idx_uploads_state ON uploads(state)`,
		`CREATE INDEX IF NOT EXISTS idx_uploads_created ON uploads(created_at)`,

		// Batch summaries, written once when a batch completes.
		`CREATE TABLE IF NOT EXISTS batches (
			id           TEXT PRIMARY KEY,
			succeeded    INTEGER NOT NULL,
			failed       INTEGER NOT NULL,
			cancelled    INTEGER NOT NULL,
			rejected     INTEGER NOT NULL,
			bytes        INTEGER NOT NULL,
			completed_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_batches_completed ON batches(completed_at)`,

		// Files refused before queueing.
		`CREATE TABLE IF NOT EXISTS rejections (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			batch_id   TEXT NOT NULL,
			name       TEXT NOT NULL,
			size       INTEGER NOT NULL,
			reason     TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rejections_batch ON rejections(batch_id)`,

		// Objects currently in storage, one row per reference. An upload to
		// an existing key replaces its row.
		`CREATE TABLE IF NOT EXISTS objects (
			reference  TEXT PRIMARY KEY,
			size       INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		// Fill objects from upload history written before it existed. The
		// newest successful upload of each reference wins.
		`INSERT OR IGNORE INTO objects (reference, size, updated_at)
			SELECT reference, final_size, MAX(COALESCE(finished_at, created_at))
			FROM uploads
			WHERE state = 'SUCCEEDED' AND reference IS NOT NULL AND reference != ''
			GROUP BY reference`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func nullableUnix(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func fromNullableUnix(n sql.NullInt64) time.Time {
	if !n.Valid {
		return time.Time{}
	}
	return time.UnixMilli(n.Int64)
}

func nullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
