package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/stridehealth/stride/internal/api"
	"github.com/stridehealth/stride/internal/model"
	"github.com/stridehealth/stride/internal/outbox"
)

// Samples is the passive-ingestion path for health measurements. Every
// batch goes straight to the outbox: samples are never rendered from
// cache, so there is no optimistic local echo and no transport attempt
// here. The producer de-duplicates before handoff.
type Samples struct {
	queue *outbox.Queue
	log   zerolog.Logger
}

// NewSamples returns the sample repository.
func NewSamples(q *outbox.Queue, log zerolog.Logger) *Samples {
	return &Samples{
		queue: q,
		log:   log.With().Str("component", "repo.samples").Logger(),
	}
}

// EnqueueBatch validates one batch and queues it for upload.
func (s *Samples) EnqueueBatch(ctx context.Context, batch model.SampleBatch) error {
	if err := batch.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("failed to encode sample batch: %w", err)
	}
	if _, err := s.queue.Enqueue(ctx, api.EndpointSamples, payload); err != nil {
		return err
	}
	s.log.Debug().Int("samples", len(batch.Samples)).Msg("sample batch queued")
	return nil
}
