package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "stride.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testRecord(entity, id string, sortKey time.Time) Record {
	return Record{
		Entity:   entity,
		ID:       id,
		Payload:  []byte(`{"id":"` + id + `"}`),
		SortKey:  sortKey,
		CachedAt: time.Now().UTC(),
	}
}

func TestOpen_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data", "stride.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, path, s.Path())
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stride.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.UpsertRecord(testRecord("log", "a", time.Now())))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	rec, err := s.GetRecord("log", "a")
	require.NoError(t, err)
	assert.Equal(t, "a", rec.ID)
}

func TestUpsertRecord_Overwrites(t *testing.T) {
	s := testStore(t)

	rec := testRecord("log", "a", time.Now())
	require.NoError(t, s.UpsertRecord(rec))

	rec.Payload = []byte(`{"id":"a","note":"updated"}`)
	require.NoError(t, s.UpsertRecord(rec))

	got, err := s.GetRecord("log", "a")
	require.NoError(t, err)
	assert.Equal(t, rec.Payload, got.Payload)

	records, err := s.ListRecords("log", 0)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestGetRecord_NotFound(t *testing.T) {
	s := testStore(t)

	_, err := s.GetRecord("log", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListRecords_NewestFirstWithLimit(t *testing.T) {
	s := testStore(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.UpsertRecord(testRecord("log", "oldest", base)))
	require.NoError(t, s.UpsertRecord(testRecord("log", "middle", base.Add(time.Hour))))
	require.NoError(t, s.UpsertRecord(testRecord("log", "newest", base.Add(2*time.Hour))))

	records, err := s.ListRecords("log", 0)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "newest", records[0].ID)
	assert.Equal(t, "middle", records[1].ID)
	assert.Equal(t, "oldest", records[2].ID)

	limited, err := s.ListRecords("log", 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "newest", limited[0].ID)
}

func TestListRecords_EmptyIsNotError(t *testing.T) {
	s := testStore(t)

	records, err := s.ListRecords("log", 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestListRecords_SeparatesEntities(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.UpsertRecord(testRecord("log", "a", time.Now())))
	require.NoError(t, s.UpsertRecord(testRecord("visualization", "b", time.Now())))

	records, err := s.ListRecords("log", 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "a", records[0].ID)
}

func TestDeleteAll_PurgesRecordsAndOutbox(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.UpsertRecord(testRecord("log", "a", time.Now())))
	require.NoError(t, s.InsertOutbox(OutboxEntry{
		ID: "e1", Endpoint: "logs", Payload: []byte(`{}`), CreatedAt: time.Now(),
	}))

	require.NoError(t, s.DeleteAll())

	records, err := s.ListRecords("log", 0)
	require.NoError(t, err)
	assert.Empty(t, records)

	entries, err := s.ListOutbox()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestListOutbox_InsertionOrder(t *testing.T) {
	s := testStore(t)

	for _, id := range []string{"first", "second", "third"} {
		require.NoError(t, s.InsertOutbox(OutboxEntry{
			ID: id, Endpoint: "logs", Payload: []byte(`{}`), CreatedAt: time.Now(),
		}))
	}

	entries, err := s.ListOutbox()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "first", entries[0].ID)
	assert.Equal(t, "second", entries[1].ID)
	assert.Equal(t, "third", entries[2].ID)
	assert.Less(t, entries[0].Seq, entries[1].Seq)
	assert.Less(t, entries[1].Seq, entries[2].Seq)
}

func TestDeleteOutbox_Idempotent(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.InsertOutbox(OutboxEntry{
		ID: "e1", Endpoint: "logs", Payload: []byte(`{}`), CreatedAt: time.Now(),
	}))

	require.NoError(t, s.DeleteOutbox("e1"))
	require.NoError(t, s.DeleteOutbox("e1"))

	entries, err := s.ListOutbox()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestIncrementOutboxRetry_Accumulates(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.InsertOutbox(OutboxEntry{
		ID: "e1", Endpoint: "logs", Payload: []byte(`{}`), CreatedAt: time.Now(),
	}))

	require.NoError(t, s.IncrementOutboxRetry("e1"))
	require.NoError(t, s.IncrementOutboxRetry("e1"))

	entries, err := s.ListOutbox()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 2, entries[0].RetryCount)
}

func TestCountsContext_Summarizes(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertRecord(testRecord("log", "a", time.Now())))
	require.NoError(t, s.UpsertRecord(testRecord("log", "b", time.Now())))
	require.NoError(t, s.UpsertRecord(testRecord("profile", "me", time.Now())))
	require.NoError(t, s.InsertOutbox(OutboxEntry{
		ID: "e1", Endpoint: "logs", Payload: []byte(`{}`), CreatedAt: time.Now(),
	}))
	require.NoError(t, s.InsertOutbox(OutboxEntry{
		ID: "e2", Endpoint: "samples", Payload: []byte(`{}`), CreatedAt: time.Now(),
	}))
	require.NoError(t, s.IncrementOutboxRetry("e2"))

	counts, err := s.CountsContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts.Records["log"])
	assert.Equal(t, 1, counts.Records["profile"])
	assert.Equal(t, 2, counts.Outbox)
	assert.Equal(t, 1, counts.ByEndpoint["logs"])
	assert.Equal(t, 1, counts.ByEndpoint["samples"])
	assert.Equal(t, 1, counts.MaxRetries)
}

type testEvent struct {
	ID   string    `json:"id"`
	Name string    `json:"name"`
	At   time.Time `json:"at"`
}

func TestCollection_PutGetList(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	events := NewCollection(s, "event", func(e testEvent) time.Time { return e.At })

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	older := testEvent{ID: "a", Name: "walk", At: base}
	newer := testEvent{ID: "b", Name: "run", At: base.Add(time.Hour)}
	require.NoError(t, events.Put(ctx, older.ID, older, time.Now()))
	require.NoError(t, events.Put(ctx, newer.ID, newer, time.Now()))

	item, err := events.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "walk", item.Value.Name)
	assert.Equal(t, base, item.Value.At)

	items, err := events.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "b", items[0].ID)
	assert.Equal(t, "a", items[1].ID)

	_, err = events.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
