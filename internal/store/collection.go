package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Item pairs a decoded value with its cache bookkeeping.
type Item[T any] struct {
	ID       string
	Value    T
	CachedAt time.Time
}

// Collection provides typed access to one entity's records, marshaling
// values through the JSON payload column. The sort-key function picks
// the domain timestamp that list projections order by.
type Collection[T any] struct {
	store   *Store
	entity  string
	sortKey func(T) time.Time
}

// NewCollection binds an entity name and sort-key extractor to a store.
func NewCollection[T any](s *Store, entity string, sortKey func(T) time.Time) *Collection[T] {
	return &Collection[T]{store: s, entity: entity, sortKey: sortKey}
}

// Entity returns the collection's entity name.
func (c *Collection[T]) Entity() string {
	return c.entity
}

// Put upserts one value under id.
func (c *Collection[T]) Put(ctx context.Context, id string, value T, cachedAt time.Time) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s record: %w", c.entity, err)
	}
	return c.store.UpsertRecordContext(ctx, Record{
		Entity:   c.entity,
		ID:       id,
		Payload:  payload,
		SortKey:  c.sortKey(value),
		CachedAt: cachedAt,
	})
}

// Get returns the value under id, or ErrNotFound.
func (c *Collection[T]) Get(ctx context.Context, id string) (Item[T], error) {
	rec, err := c.store.GetRecordContext(ctx, c.entity, id)
	if err != nil {
		return Item[T]{}, err
	}
	return decodeItem[T](rec)
}

// List returns cached values newest first. A limit of zero or less
// means no limit.
func (c *Collection[T]) List(ctx context.Context, limit int) ([]Item[T], error) {
	records, err := c.store.ListRecordsContext(ctx, c.entity, limit)
	if err != nil {
		return nil, err
	}
	items := make([]Item[T], 0, len(records))
	for _, rec := range records {
		item, err := decodeItem[T](rec)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func decodeItem[T any](rec Record) (Item[T], error) {
	var value T
	if err := json.Unmarshal(rec.Payload, &value); err != nil {
		return Item[T]{}, fmt.Errorf("failed to decode %s record %s: %w", rec.Entity, rec.ID, err)
	}
	return Item[T]{ID: rec.ID, Value: value, CachedAt: rec.CachedAt}, nil
}
