package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stridehealth/stride/internal/api"
	"github.com/stridehealth/stride/internal/model"
	"github.com/stridehealth/stride/internal/outbox"
	"github.com/stridehealth/stride/internal/store"
)

// Users mediates the profile aggregate and its stat snapshots.
type Users struct {
	profiles  *store.Collection[model.Profile]
	stats     *store.Collection[model.StatSnapshot]
	queue     *outbox.Queue
	transport api.Transport
	log       zerolog.Logger
}

// NewUsers returns the user repository.
func NewUsers(s *store.Store, q *outbox.Queue, transport api.Transport, log zerolog.Logger) *Users {
	return &Users{
		profiles: store.NewCollection(s, model.EntityProfile,
			func(p model.Profile) time.Time { return p.UpdatedAt }),
		stats: store.NewCollection(s, model.EntityStatSnapshot,
			func(st model.StatSnapshot) time.Time { return st.PeriodStart }),
		queue:     q,
		transport: transport,
		log:       log.With().Str("component", "repo.users").Logger(),
	}
}

// Fetch returns the profile, remote first with cache fallback. With no
// server answer and nothing cached it returns store.ErrNotFound.
func (u *Users) Fetch(ctx context.Context) (model.Profile, error) {
	profile, err := u.refreshProfile(ctx)
	if err == nil {
		return profile, nil
	}
	if !recoverable(err) {
		return model.Profile{}, err
	}
	u.log.Warn().Err(err).Msg("profile fetch failed, serving cache")
	return u.cachedProfile(ctx)
}

// Update edits the profile. The edit is applied to the cached copy (or
// a fresh provisional profile when nothing is cached yet) so it shows
// up in reads immediately; on transport failure the request is queued
// and ErrQueuedForSync returned alongside the result.
func (u *Users) Update(ctx context.Context, req model.UpdateProfileRequest) (model.Profile, error) {
	if err := req.Validate(); err != nil {
		return model.Profile{}, err
	}

	profile, err := u.cachedProfile(ctx)
	if errors.Is(err, store.ErrNotFound) {
		profile = model.Profile{ID: uuid.NewString()}
	} else if err != nil {
		return model.Profile{}, err
	}
	profile.DisplayName = req.DisplayName
	profile.DailyStepGoal = req.DailyStepGoal
	profile.DailyActiveGoal = req.DailyActiveGoal
	profile.Units = req.Units
	profile.UpdatedAt = time.Now().UTC()

	payload, err := json.Marshal(req)
	if err != nil {
		return model.Profile{}, fmt.Errorf("failed to encode profile request: %w", err)
	}

	sendErr := u.transport.SendMutation(ctx, api.EndpointProfile, payload)

	if err := u.profiles.Put(ctx, profile.ID, profile, time.Now().UTC()); err != nil {
		return model.Profile{}, err
	}
	if sendErr == nil {
		return profile, nil
	}

	if _, err := u.queue.Enqueue(ctx, api.EndpointProfile, payload); err != nil {
		return model.Profile{}, err
	}
	u.log.Info().Msg("profile update queued for sync")
	return profile, fmt.Errorf("profile update: %w", ErrQueuedForSync)
}

// FetchStats returns stat snapshots newest period first, remote first
// with cache fallback.
func (u *Users) FetchStats(ctx context.Context, limit int) ([]model.StatSnapshot, error) {
	if err := u.refreshStats(ctx); err != nil {
		if !recoverable(err) {
			return nil, err
		}
		u.log.Warn().Err(err).Msg("stats fetch failed, serving cache")
	}
	items, err := u.stats.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	snapshots := make([]model.StatSnapshot, 0, len(items))
	for _, item := range items {
		snapshots = append(snapshots, item.Value)
	}
	return snapshots, nil
}

// Refresh re-fetches the profile and stat snapshots for the background
// sync pass. A missing profile is not an error here.
func (u *Users) Refresh(ctx context.Context) error {
	if _, err := u.refreshProfile(ctx); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return u.refreshStats(ctx)
}

// Name implements syncer.Refresher.
func (u *Users) Name() string {
	return "user"
}

func (u *Users) refreshProfile(ctx context.Context) (model.Profile, error) {
	docs, err := u.transport.FetchCollection(ctx, api.EndpointProfile)
	if err != nil {
		return model.Profile{}, err
	}
	if len(docs) == 0 {
		return model.Profile{}, store.ErrNotFound
	}

	var profile model.Profile
	if err := json.Unmarshal(docs[0], &profile); err != nil {
		return model.Profile{}, &api.TransportError{
			Endpoint: api.EndpointProfile,
			Err:      fmt.Errorf("failed to decode profile: %w", err),
		}
	}
	if err := u.profiles.Put(ctx, profile.ID, profile, time.Now().UTC()); err != nil {
		return model.Profile{}, err
	}
	return profile, nil
}

func (u *Users) refreshStats(ctx context.Context) error {
	docs, err := u.transport.FetchCollection(ctx, api.EndpointStats)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, doc := range docs {
		var snapshot model.StatSnapshot
		if err := json.Unmarshal(doc, &snapshot); err != nil {
			u.log.Warn().Err(err).Msg("skipping undecodable stat snapshot")
			continue
		}
		if err := u.stats.Put(ctx, snapshot.ID, snapshot, now); err != nil {
			return err
		}
	}
	return nil
}

func (u *Users) cachedProfile(ctx context.Context) (model.Profile, error) {
	items, err := u.profiles.List(ctx, 1)
	if err != nil {
		return model.Profile{}, err
	}
	if len(items) == 0 {
		return model.Profile{}, store.ErrNotFound
	}
	return items[0].Value, nil
}
