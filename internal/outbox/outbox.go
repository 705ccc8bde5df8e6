// Package outbox implements the write-behind queue of deferred
// mutations. Entries are appended by repositories when a send fails,
// replayed in FIFO order by the sync coordinator, and removed only once
// the server acknowledges them. Payloads stay opaque: the queue stores
// bytes and an endpoint tag, nothing more.
package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stridehealth/stride/internal/store"
)

// Entry is re-exported so callers outside the storage layer do not need
// to import it.
type Entry = store.OutboxEntry

// Queue fronts the outbox table. Safe for concurrent use; the store
// serializes row operations underneath.
type Queue struct {
	store *store.Store
}

// New returns a queue over the given store.
func New(s *store.Store) *Queue {
	return &Queue{store: s}
}

// Enqueue appends a mutation with a fresh id, a zero retry count, and
// the current timestamp. It fails only if local storage does.
func (q *Queue) Enqueue(ctx context.Context, endpoint string, payload []byte) (Entry, error) {
	entry := Entry{
		ID:        uuid.NewString(),
		Endpoint:  endpoint,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
	if err := q.store.InsertOutboxContext(ctx, entry); err != nil {
		return Entry{}, fmt.Errorf("failed to enqueue %s mutation: %w", endpoint, err)
	}
	return entry, nil
}

// Pending returns every queued entry oldest first.
func (q *Queue) Pending(ctx context.Context) ([]Entry, error) {
	return q.store.ListOutboxContext(ctx)
}

// Remove deletes an entry after its replay was acknowledged. Removing
// an id that is already gone is a no-op.
func (q *Queue) Remove(ctx context.Context, id string) error {
	return q.store.DeleteOutboxContext(ctx, id)
}

// BumpRetry records one more failed replay attempt. There is no ceiling
// and no dead-lettering; entries persist until they succeed or the user
// signs out.
func (q *Queue) BumpRetry(ctx context.Context, id string) error {
	return q.store.IncrementOutboxRetryContext(ctx, id)
}
