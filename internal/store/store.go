// Package store implements the device-local durable store backing the
// Stride client: cached copies of remote records plus the outbox of
// deferred mutations. Both live in one SQLite database so sign-out can
// purge them in a single transaction.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// ErrNotFound is returned when a record does not exist. Absence is an
// expected condition on cache reads; match it with errors.Is.
var ErrNotFound = errors.New("record not found")

// Store wraps the SQLite connection with record and outbox operations.
// A single Store instance is shared by every repository; the connection
// pool serializes row operations underneath.
type Store struct {
	conn *sql.DB
	path string
}

// Open opens (creating if necessary) the store database at path and
// applies pragmas, pool limits, and any pending schema migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{conn: conn, path: path}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// Close checkpoints the WAL so the main file is current on disk, then
// closes the connection.
func (s *Store) Close() error {
	_, _ = s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.conn.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrations are applied in order; PRAGMA user_version records the last
// applied index so existing databases pick up new entries on open.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS records (
		entity    TEXT NOT NULL,
		id        TEXT NOT NULL,
		payload   BLOB NOT NULL,
		sort_key  INTEGER NOT NULL,
		cached_at TEXT NOT NULL,
		PRIMARY KEY (entity, id)
	);

	CREATE INDEX IF NOT EXISTS idx_records_entity_sort
		ON records(entity, sort_key DESC);

	CREATE TABLE IF NOT EXISTS outbox (
		seq         INTEGER PRIMARY KEY AUTOINCREMENT,
		id          TEXT NOT NULL UNIQUE,
		endpoint    TEXT NOT NULL,
		payload     BLOB NOT NULL,
		retry_count INTEGER NOT NULL DEFAULT 0,
		created_at  TEXT NOT NULL
	);`,
}

func (s *Store) migrate() error {
	var version int
	if err := s.conn.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version >= len(migrations) {
		return nil
	}

	for i := version; i < len(migrations); i++ {
		tx, err := s.conn.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", i+1, err)
		}
		if _, err := tx.Exec(migrations[i]); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to apply migration %d: %w", i+1, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", i+1, err)
		}
	}
	return nil
}

// timeToString formats a timestamp for storage.
func timeToString(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// stringToTime parses a stored timestamp, returning the zero time for
// unparseable values.
func stringToTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
