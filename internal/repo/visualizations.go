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

// Visualizations mediates AI-generated chart metadata. Charts are
// produced server-side; the device only requests them and caches the
// results.
type Visualizations struct {
	charts    *store.Collection[model.Visualization]
	queue     *outbox.Queue
	transport api.Transport
	log       zerolog.Logger
}

// NewVisualizations returns the visualization repository.
func NewVisualizations(s *store.Store, q *outbox.Queue, transport api.Transport, log zerolog.Logger) *Visualizations {
	return &Visualizations{
		charts: store.NewCollection(s, model.EntityVisualization,
			func(v model.Visualization) time.Time { return v.CreatedAt }),
		queue:     q,
		transport: transport,
		log:       log.With().Str("component", "repo.viz").Logger(),
	}
}

// List returns visualizations newest first, remote first with cache
// fallback.
func (v *Visualizations) List(ctx context.Context, limit int) ([]model.Visualization, error) {
	if err := v.Refresh(ctx); err != nil {
		if !recoverable(err) {
			return nil, err
		}
		v.log.Warn().Err(err).Msg("visualization fetch failed, serving cache")
	}
	items, err := v.charts.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	charts := make([]model.Visualization, 0, len(items))
	for _, item := range items {
		charts = append(charts, item.Value)
	}
	return charts, nil
}

// Request asks the backend to generate a new chart from a prompt. A
// placeholder with kind "pending" is cached under the request id; the
// next refresh overwrites it with the generated chart. On transport
// failure the request is queued and ErrQueuedForSync returned.
func (v *Visualizations) Request(ctx context.Context, prompt string) (model.Visualization, error) {
	req := model.GenerateVisualizationRequest{ID: uuid.NewString(), Prompt: prompt}
	if err := req.Validate(); err != nil {
		return model.Visualization{}, err
	}

	placeholder := model.Visualization{
		ID:        req.ID,
		Kind:      "pending",
		Title:     prompt,
		CreatedAt: time.Now().UTC(),
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return model.Visualization{}, fmt.Errorf("failed to encode visualization request: %w", err)
	}

	sendErr := v.transport.SendMutation(ctx, api.EndpointVisualizations, payload)

	if err := v.charts.Put(ctx, placeholder.ID, placeholder, time.Now().UTC()); err != nil {
		return model.Visualization{}, err
	}
	if sendErr == nil {
		return placeholder, nil
	}

	if _, err := v.queue.Enqueue(ctx, api.EndpointVisualizations, payload); err != nil {
		return model.Visualization{}, err
	}
	v.log.Info().Str("id", req.ID).Msg("visualization request queued for sync")
	return placeholder, fmt.Errorf("visualization request %s: %w", req.ID, ErrQueuedForSync)
}

// Refresh fetches the server's visualizations and cache-fills them.
func (v *Visualizations) Refresh(ctx context.Context) error {
	docs, err := v.transport.FetchCollection(ctx, api.EndpointVisualizations)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, doc := range docs {
		var chart model.Visualization
		if err := json.Unmarshal(doc, &chart); err != nil {
			v.log.Warn().Err(err).Msg("skipping undecodable visualization")
			continue
		}
		if err := v.charts.Put(ctx, chart.ID, chart, now); err != nil {
			return err
		}
	}
	return nil
}

// Name implements syncer.Refresher.
func (v *Visualizations) Name() string {
	return "visualizations"
}
