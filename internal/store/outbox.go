package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// OutboxEntry is one durable deferred mutation. Seq is assigned by the
// database on insert and fixes FIFO replay order; Payload is opaque to
// everything but the transport that eventually sends it.
type OutboxEntry struct {
	Seq        int64
	ID         string
	Endpoint   string
	Payload    []byte
	RetryCount int
	CreatedAt  time.Time
}

// InsertOutbox appends an entry to the outbox.
func (s *Store) InsertOutbox(entry OutboxEntry) error {
	return s.InsertOutboxContext(context.Background(), entry)
}

// InsertOutboxContext is InsertOutbox with a caller-supplied context.
func (s *Store) InsertOutboxContext(ctx context.Context, entry OutboxEntry) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO outbox (id, endpoint, payload, retry_count, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		entry.ID, entry.Endpoint, entry.Payload, entry.RetryCount, timeToString(entry.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert outbox entry: %w", err)
	}
	return nil
}

// ListOutbox returns all pending entries oldest first.
func (s *Store) ListOutbox() ([]OutboxEntry, error) {
	return s.ListOutboxContext(context.Background())
}

// ListOutboxContext is ListOutbox with a caller-supplied context.
func (s *Store) ListOutboxContext(ctx context.Context) ([]OutboxEntry, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT seq, id, endpoint, payload, retry_count, created_at
		FROM outbox
		ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list outbox: %w", err)
	}
	defer rows.Close()

	return scanOutboxEntries(rows)
}

// DeleteOutbox removes an entry by id. Deleting an id that is already
// gone is a no-op, not an error.
func (s *Store) DeleteOutbox(id string) error {
	return s.DeleteOutboxContext(context.Background(), id)
}

// DeleteOutboxContext is DeleteOutbox with a caller-supplied context.
func (s *Store) DeleteOutboxContext(ctx context.Context, id string) error {
	if _, err := s.conn.ExecContext(ctx, "DELETE FROM outbox WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete outbox entry: %w", err)
	}
	return nil
}

// IncrementOutboxRetry adds one to an entry's retry count.
func (s *Store) IncrementOutboxRetry(id string) error {
	return s.IncrementOutboxRetryContext(context.Background(), id)
}

// IncrementOutboxRetryContext is IncrementOutboxRetry with a
// caller-supplied context.
func (s *Store) IncrementOutboxRetryContext(ctx context.Context, id string) error {
	_, err := s.conn.ExecContext(ctx,
		"UPDATE outbox SET retry_count = retry_count + 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to increment retry count: %w", err)
	}
	return nil
}

func scanOutboxEntries(rows *sql.Rows) ([]OutboxEntry, error) {
	entries := []OutboxEntry{}
	for rows.Next() {
		var entry OutboxEntry
		var createdAt string
		if err := rows.Scan(&entry.Seq, &entry.ID, &entry.Endpoint, &entry.Payload,
			&entry.RetryCount, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox entry: %w", err)
		}
		entry.CreatedAt = stringToTime(createdAt)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate outbox: %w", err)
	}
	return entries, nil
}
