package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stridehealth/stride/internal/api"
	"github.com/stridehealth/stride/internal/model"
	"github.com/stridehealth/stride/internal/outbox"
	"github.com/stridehealth/stride/internal/store"
)

// Logs mediates user log entries between the backend and the cache.
type Logs struct {
	entries   *store.Collection[model.LogEntry]
	queue     *outbox.Queue
	transport api.Transport
	log       zerolog.Logger
}

// NewLogs returns the log-entry repository.
func NewLogs(s *store.Store, q *outbox.Queue, transport api.Transport, log zerolog.Logger) *Logs {
	return &Logs{
		entries: store.NewCollection(s, model.EntityLog,
			func(e model.LogEntry) time.Time { return e.CreatedAt }),
		queue:     q,
		transport: transport,
		log:       log.With().Str("component", "repo.logs").Logger(),
	}
}

// List returns log entries newest first. The server is asked first and
// its answer cache-filled; on transport failure the cached entries are
// served instead. The call only fails when local storage does.
func (l *Logs) List(ctx context.Context, limit int) ([]model.LogEntry, error) {
	if err := l.Refresh(ctx); err != nil {
		if !recoverable(err) {
			return nil, err
		}
		l.log.Warn().Err(err).Msg("log fetch failed, serving cache")
	}
	return l.cached(ctx, limit)
}

// Create records a new log entry. The entry id and timestamp are
// generated here and travel in the payload, so a queued replay creates
// exactly the entry the optimistic local copy describes. On transport
// failure the entry is cached provisionally, the payload queued, and
// ErrQueuedForSync returned alongside the entry.
func (l *Logs) Create(ctx context.Context, req model.CreateLogRequest) (model.LogEntry, error) {
	if err := req.Validate(); err != nil {
		return model.LogEntry{}, err
	}

	req.ID = uuid.NewString()
	req.CreatedAt = time.Now().UTC()
	entry := model.LogEntry{
		ID:        req.ID,
		Type:      req.Type,
		Fields:    req.Fields,
		Note:      req.Note,
		CreatedAt: req.CreatedAt,
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return model.LogEntry{}, fmt.Errorf("failed to encode log request: %w", err)
	}

	sendErr := l.transport.SendMutation(ctx, api.EndpointLogs, payload)

	if err := l.entries.Put(ctx, entry.ID, entry, time.Now().UTC()); err != nil {
		return model.LogEntry{}, err
	}
	if sendErr == nil {
		return entry, nil
	}

	if _, err := l.queue.Enqueue(ctx, api.EndpointLogs, payload); err != nil {
		return model.LogEntry{}, err
	}
	l.log.Info().Str("id", entry.ID).Str("type", entry.Type).Msg("log entry queued for sync")
	return entry, fmt.Errorf("log entry %s: %w", entry.ID, ErrQueuedForSync)
}

// Refresh fetches the server's log entries and cache-fills them.
// Undecodable documents are skipped, not fatal.
func (l *Logs) Refresh(ctx context.Context) error {
	docs, err := l.transport.FetchCollection(ctx, api.EndpointLogs)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, doc := range docs {
		var entry model.LogEntry
		if err := json.Unmarshal(doc, &entry); err != nil {
			l.log.Warn().Err(err).Msg("skipping undecodable log entry")
			continue
		}
		if err := l.entries.Put(ctx, entry.ID, entry, now); err != nil {
			return err
		}
	}
	return nil
}

// Name implements syncer.Refresher.
func (l *Logs) Name() string {
	return "logs"
}

func (l *Logs) cached(ctx context.Context, limit int) ([]model.LogEntry, error) {
	items, err := l.entries.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	entries := make([]model.LogEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, item.Value)
	}
	return entries, nil
}
