package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Record is one cached row: the serialized payload of a remote aggregate
// plus cache bookkeeping. SortKey carries whichever domain timestamp the
// entity orders by; list projections return newest first.
type Record struct {
	Entity   string
	ID       string
	Payload  []byte
	SortKey  time.Time
	CachedAt time.Time
}

// UpsertRecord inserts or replaces the cached copy of a record.
// Last write wins; at most one row exists per (entity, id).
func (s *Store) UpsertRecord(rec Record) error {
	return s.UpsertRecordContext(context.Background(), rec)
}

// UpsertRecordContext is UpsertRecord with a caller-supplied context.
func (s *Store) UpsertRecordContext(ctx context.Context, rec Record) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO records (entity, id, payload, sort_key, cached_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(entity, id) DO UPDATE SET
			payload = excluded.payload,
			sort_key = excluded.sort_key,
			cached_at = excluded.cached_at`,
		rec.Entity, rec.ID, rec.Payload, rec.SortKey.UnixNano(), timeToString(rec.CachedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert %s record: %w", rec.Entity, err)
	}
	return nil
}

// GetRecord returns the cached record or ErrNotFound.
func (s *Store) GetRecord(entity, id string) (Record, error) {
	return s.GetRecordContext(context.Background(), entity, id)
}

// GetRecordContext is GetRecord with a caller-supplied context.
func (s *Store) GetRecordContext(ctx context.Context, entity, id string) (Record, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT entity, id, payload, sort_key, cached_at
		FROM records
		WHERE entity = ? AND id = ?`, entity, id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to get %s record: %w", entity, err)
	}
	return rec, nil
}

// ListRecords returns an entity's cached records ordered by sort key
// descending. A limit of zero or less means no limit; an empty result
// is not an error.
func (s *Store) ListRecords(entity string, limit int) ([]Record, error) {
	return s.ListRecordsContext(context.Background(), entity, limit)
}

// ListRecordsContext is ListRecords with a caller-supplied context.
func (s *Store) ListRecordsContext(ctx context.Context, entity string, limit int) ([]Record, error) {
	query := `
		SELECT entity, id, payload, sort_key, cached_at
		FROM records
		WHERE entity = ?
		ORDER BY sort_key DESC, id ASC`
	args := []any{entity}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s records: %w", entity, err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// DeleteAll purges every cached record and outbox entry in one
// transaction. Used exactly once, at sign-out; concurrent readers see
// either the full state or the empty state, never a partial purge.
func (s *Store) DeleteAll() error {
	return s.DeleteAllContext(context.Background())
}

// DeleteAllContext is DeleteAll with a caller-supplied context.
func (s *Store) DeleteAllContext(ctx context.Context) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin purge: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM outbox"); err != nil {
		return fmt.Errorf("failed to purge outbox: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM records"); err != nil {
		return fmt.Errorf("failed to purge records: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit purge: %w", err)
	}
	return nil
}

// Counts summarizes store contents for the status surface.
type Counts struct {
	Records    map[string]int
	Outbox     int
	ByEndpoint map[string]int
	MaxRetries int
}

// CountsContext reports per-entity record counts and outbox depth.
func (s *Store) CountsContext(ctx context.Context) (Counts, error) {
	counts := Counts{
		Records:    make(map[string]int),
		ByEndpoint: make(map[string]int),
	}

	rows, err := s.conn.QueryContext(ctx,
		"SELECT entity, COUNT(*) FROM records GROUP BY entity")
	if err != nil {
		return Counts{}, fmt.Errorf("failed to count records: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var entity string
		var n int
		if err := rows.Scan(&entity, &n); err != nil {
			return Counts{}, fmt.Errorf("failed to scan record count: %w", err)
		}
		counts.Records[entity] = n
	}
	if err := rows.Err(); err != nil {
		return Counts{}, fmt.Errorf("failed to count records: %w", err)
	}

	erows, err := s.conn.QueryContext(ctx,
		"SELECT endpoint, COUNT(*) FROM outbox GROUP BY endpoint")
	if err != nil {
		return Counts{}, fmt.Errorf("failed to count outbox: %w", err)
	}
	defer erows.Close()
	for erows.Next() {
		var endpoint string
		var n int
		if err := erows.Scan(&endpoint, &n); err != nil {
			return Counts{}, fmt.Errorf("failed to scan outbox count: %w", err)
		}
		counts.ByEndpoint[endpoint] = n
		counts.Outbox += n
	}
	if err := erows.Err(); err != nil {
		return Counts{}, fmt.Errorf("failed to count outbox: %w", err)
	}

	err = s.conn.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(retry_count), 0) FROM outbox").Scan(&counts.MaxRetries)
	if err != nil {
		return Counts{}, fmt.Errorf("failed to read max retries: %w", err)
	}
	return counts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var sortKey int64
	var cachedAt string
	if err := row.Scan(&rec.Entity, &rec.ID, &rec.Payload, &sortKey, &cachedAt); err != nil {
		return Record{}, err
	}
	rec.SortKey = time.Unix(0, sortKey).UTC()
	rec.CachedAt = stringToTime(cachedAt)
	return rec, nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	return records, nil
}
