// Package syncer implements the background sync coordinator: a
// single-flight drain of the outbox followed by a best-effort refresh
// of cached collections. Redundant wake-ups from overlapping triggers
// are expected and discarded cheaply.
package syncer

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/stridehealth/stride/internal/outbox"
	"github.com/stridehealth/stride/internal/store"
)

// Refresher re-fetches one aggregate's passive data during a sync pass.
// Refresh errors are logged and never fail the pass.
type Refresher interface {
	Name() string
	Refresh(ctx context.Context) error
}

// Result summarizes one coordinator invocation.
type Result struct {
	Skipped   bool
	Replayed  int
	Failed    int
	Refreshed int
}

// Coordinator owns the drain guard: at most one drain runs at a time
// process-wide, no matter how many triggers fire. The same guard
// serializes sign-out purges against in-flight drains.
type Coordinator struct {
	queue      *outbox.Queue
	store      *store.Store
	transport  sender
	refreshers []Refresher
	log        zerolog.Logger

	mu sync.Mutex
}

// sender is the slice of the transport the drain needs.
type sender interface {
	SendMutation(ctx context.Context, endpoint string, payload []byte) error
}

// New builds a coordinator. Refreshers run concurrently after each
// drain pass; pass nil to drain only.
func New(q *outbox.Queue, s *store.Store, transport sender, refreshers []Refresher, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		queue:      q,
		store:      s,
		transport:  transport,
		refreshers: refreshers,
		log:        log.With().Str("component", "syncer").Logger(),
	}
}

// Sync drains pending mutations in FIFO order, then refreshes passive
// data. A contended call (drain already running) returns immediately
// with Result{Skipped: true} and no error. A transport failure on one
// entry bumps its retry count and moves on; only storage failures and
// context expiry abort the pass. Partial progress is durable either
// way, since every remove and bump commits individually.
func (c *Coordinator) Sync(ctx context.Context) (Result, error) {
	if !c.mu.TryLock() {
		c.log.Debug().Msg("sync already running, skipping")
		return Result{Skipped: true}, nil
	}
	defer c.mu.Unlock()

	var result Result
	pending, err := c.queue.Pending(ctx)
	if err != nil {
		return result, err
	}
	c.log.Debug().Int("pending", len(pending)).Msg("drain started")

	for _, entry := range pending {
		if err := c.transport.SendMutation(ctx, entry.Endpoint, entry.Payload); err != nil {
			if ctx.Err() != nil {
				// Budget exhausted mid-loop; what got replayed stays
				// replayed.
				return result, ctx.Err()
			}
			result.Failed++
			c.log.Warn().Err(err).
				Str("id", entry.ID).
				Str("endpoint", entry.Endpoint).
				Int("retries", entry.RetryCount+1).
				Msg("replay failed")
			if err := c.queue.BumpRetry(ctx, entry.ID); err != nil {
				return result, err
			}
			continue
		}
		if err := c.queue.Remove(ctx, entry.ID); err != nil {
			return result, err
		}
		result.Replayed++
	}

	result.Refreshed = c.refresh(ctx)
	c.log.Info().
		Int("replayed", result.Replayed).
		Int("failed", result.Failed).
		Int("refreshed", result.Refreshed).
		Msg("sync finished")
	return result, nil
}

// Purge is the sign-out boundary: it waits out any in-flight drain,
// then deletes every cached record and outbox entry in one transaction.
// No drain can interleave with the purge.
func (c *Coordinator) Purge(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.DeleteAllContext(ctx); err != nil {
		return err
	}
	c.log.Info().Msg("local state purged")
	return nil
}

func (c *Coordinator) refresh(ctx context.Context) int {
	if len(c.refreshers) == 0 || ctx.Err() != nil {
		return 0
	}

	var refreshed atomic.Int64
	var g errgroup.Group
	for _, r := range c.refreshers {
		g.Go(func() error {
			if err := r.Refresh(ctx); err != nil {
				c.log.Warn().Err(err).Str("refresher", r.Name()).Msg("refresh failed")
				return nil
			}
			refreshed.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	return int(refreshed.Load())
}
