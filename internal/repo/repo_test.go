package repo

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stridehealth/stride/internal/api"
	"github.com/stridehealth/stride/internal/model"
	"github.com/stridehealth/stride/internal/outbox"
	"github.com/stridehealth/stride/internal/store"
)

// fakeTransport scripts responses per endpoint and records every send.
type fakeTransport struct {
	mu        sync.Mutex
	sends     []string
	sendErr   error
	fetchDocs map[string][]json.RawMessage
	fetchErr  error
}

func (f *fakeTransport) SendMutation(ctx context.Context, endpoint string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, endpoint)
	return f.sendErr
}

func (f *fakeTransport) FetchCollection(ctx context.Context, endpoint string) ([]json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.fetchDocs[endpoint], nil
}

func transportDown() *api.TransportError {
	return &api.TransportError{Endpoint: "test", Err: errors.New("connection refused")}
}

func testRepos(t *testing.T) (*Repos, *fakeTransport, *outbox.Queue, *store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "stride.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ft := &fakeTransport{fetchDocs: map[string][]json.RawMessage{}}
	q := outbox.New(s)
	return New(s, q, ft, zerolog.Nop()), ft, q, s
}

func rawDocs(t *testing.T, vals ...any) []json.RawMessage {
	t.Helper()
	docs := make([]json.RawMessage, 0, len(vals))
	for _, v := range vals {
		b, err := json.Marshal(v)
		require.NoError(t, err)
		docs = append(docs, b)
	}
	return docs
}

func TestLogs_List_CacheFillInvariant(t *testing.T) {
	repos, ft, _, s := testRepos(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	ft.fetchDocs[api.EndpointLogs] = rawDocs(t,
		model.LogEntry{ID: "l1", Type: model.LogWorkout, CreatedAt: base},
		model.LogEntry{ID: "l2", Type: model.LogMeal, CreatedAt: base.Add(time.Hour)},
	)

	entries, err := repos.Logs.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "l2", entries[0].ID)
	assert.Equal(t, "l1", entries[1].ID)

	// Every returned item must be in the store immediately afterward.
	for _, entry := range entries {
		_, err := s.GetRecord(model.EntityLog, entry.ID)
		assert.NoError(t, err, "entry %s not cached", entry.ID)
	}
}

func TestLogs_List_ServesCacheWhenTransportFails(t *testing.T) {
	repos, ft, _, _ := testRepos(t)
	ctx := context.Background()

	ft.fetchDocs[api.EndpointLogs] = rawDocs(t,
		model.LogEntry{ID: "l1", Type: model.LogSleep, CreatedAt: time.Now().UTC()},
	)
	_, err := repos.Logs.List(ctx, 0)
	require.NoError(t, err)

	ft.fetchErr = transportDown()

	entries, err := repos.Logs.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "l1", entries[0].ID)
}

func TestLogs_List_EmptyCacheOnFailureIsEmptyResult(t *testing.T) {
	repos, ft, _, _ := testRepos(t)
	ft.fetchErr = transportDown()

	entries, err := repos.Logs.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLogs_Create_Online(t *testing.T) {
	repos, ft, q, _ := testRepos(t)
	ctx := context.Background()

	entry, err := repos.Logs.Create(ctx, model.CreateLogRequest{
		Type:   model.LogWorkout,
		Fields: map[string]any{"distance_km": 5.2},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, []string{api.EndpointLogs}, ft.sends)

	pending, err := q.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	ft.fetchErr = transportDown()
	entries, err := repos.Logs.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, entry.ID, entries[0].ID)
}

func TestLogs_Create_OfflineQueuesAndCachesProvisional(t *testing.T) {
	repos, ft, q, _ := testRepos(t)
	ctx := context.Background()
	ft.sendErr = transportDown()
	ft.fetchErr = transportDown()

	entry, err := repos.Logs.Create(ctx, model.CreateLogRequest{
		Type:   model.LogWorkout,
		Fields: map[string]any{"distance_km": 3.1},
	})
	require.ErrorIs(t, err, ErrQueuedForSync)
	assert.NotEmpty(t, entry.ID)

	// The provisional record shows up in reads right away.
	entries, lerr := repos.Logs.List(ctx, 0)
	require.NoError(t, lerr)
	require.Len(t, entries, 1)
	assert.Equal(t, entry.ID, entries[0].ID)

	// Exactly one queued mutation, carrying the same id.
	pending, perr := q.Pending(ctx)
	require.NoError(t, perr)
	require.Len(t, pending, 1)
	assert.Equal(t, api.EndpointLogs, pending[0].Endpoint)
	assert.Equal(t, 0, pending[0].RetryCount)

	var queued model.CreateLogRequest
	require.NoError(t, json.Unmarshal(pending[0].Payload, &queued))
	assert.Equal(t, entry.ID, queued.ID)
	assert.True(t, queued.CreatedAt.Equal(entry.CreatedAt))
}

func TestLogs_Create_InvalidRequestHasNoSideEffects(t *testing.T) {
	repos, ft, q, _ := testRepos(t)
	ctx := context.Background()

	_, err := repos.Logs.Create(ctx, model.CreateLogRequest{Type: "juggling"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrQueuedForSync)
	assert.Empty(t, ft.sends)

	pending, err := q.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestUsers_Fetch_CacheFillAndFallback(t *testing.T) {
	repos, ft, _, _ := testRepos(t)
	ctx := context.Background()

	ft.fetchDocs[api.EndpointProfile] = rawDocs(t, model.Profile{
		ID: "u1", DisplayName: "Jo", Units: "metric", UpdatedAt: time.Now().UTC(),
	})

	profile, err := repos.Users.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", profile.ID)

	ft.fetchErr = transportDown()

	profile, err = repos.Users.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Jo", profile.DisplayName)
}

func TestUsers_Fetch_NothingAnywhere(t *testing.T) {
	repos, ft, _, _ := testRepos(t)
	ft.fetchErr = transportDown()

	_, err := repos.Users.Fetch(context.Background())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUsers_Update_OfflineSynthesizesProvisionalProfile(t *testing.T) {
	repos, ft, q, _ := testRepos(t)
	ctx := context.Background()
	ft.sendErr = transportDown()
	ft.fetchErr = transportDown()

	profile, err := repos.Users.Update(ctx, model.UpdateProfileRequest{
		DisplayName: "Jo", DailyStepGoal: 9000, Units: "metric",
	})
	require.ErrorIs(t, err, ErrQueuedForSync)
	assert.NotEmpty(t, profile.ID)

	pending, perr := q.Pending(ctx)
	require.NoError(t, perr)
	require.Len(t, pending, 1)
	assert.Equal(t, api.EndpointProfile, pending[0].Endpoint)

	cached, ferr := repos.Users.Fetch(ctx)
	require.NoError(t, ferr)
	assert.Equal(t, "Jo", cached.DisplayName)
	assert.Equal(t, 9000, cached.DailyStepGoal)
}

func TestUsers_Update_KeepsCachedIdentity(t *testing.T) {
	repos, ft, _, _ := testRepos(t)
	ctx := context.Background()

	ft.fetchDocs[api.EndpointProfile] = rawDocs(t, model.Profile{
		ID: "u1", DisplayName: "Jo", Units: "metric", UpdatedAt: time.Now().UTC(),
	})
	_, err := repos.Users.Fetch(ctx)
	require.NoError(t, err)

	ft.sendErr = transportDown()

	profile, err := repos.Users.Update(ctx, model.UpdateProfileRequest{
		DisplayName: "Joanna", DailyStepGoal: 12000, Units: "metric",
	})
	require.ErrorIs(t, err, ErrQueuedForSync)
	assert.Equal(t, "u1", profile.ID)
	assert.Equal(t, "Joanna", profile.DisplayName)
}

func TestUsers_FetchStats_Fallback(t *testing.T) {
	repos, ft, _, _ := testRepos(t)
	ctx := context.Background()

	week := time.Date(2026, 2, 23, 0, 0, 0, 0, time.UTC)
	ft.fetchDocs[api.EndpointStats] = rawDocs(t, model.StatSnapshot{
		ID: "s1", PeriodStart: week, PeriodEnd: week.AddDate(0, 0, 7),
		Totals: map[string]float64{"steps": 52340},
	})

	snapshots, err := repos.Users.FetchStats(ctx, 0)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)

	ft.fetchErr = transportDown()

	snapshots, err = repos.Users.FetchStats(ctx, 0)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, float64(52340), snapshots[0].Totals["steps"])
}

func TestVisualizations_Request_OfflineCachesPlaceholder(t *testing.T) {
	repos, ft, q, _ := testRepos(t)
	ctx := context.Background()
	ft.sendErr = transportDown()
	ft.fetchErr = transportDown()

	chart, err := repos.Visualizations.Request(ctx, "weekly steps by day")
	require.ErrorIs(t, err, ErrQueuedForSync)
	assert.Equal(t, "pending", chart.Kind)

	charts, lerr := repos.Visualizations.List(ctx, 0)
	require.NoError(t, lerr)
	require.Len(t, charts, 1)
	assert.Equal(t, chart.ID, charts[0].ID)

	pending, perr := q.Pending(ctx)
	require.NoError(t, perr)
	require.Len(t, pending, 1)
	assert.Equal(t, api.EndpointVisualizations, pending[0].Endpoint)
}

func TestVisualizations_RefreshOverwritesPlaceholder(t *testing.T) {
	repos, ft, _, _ := testRepos(t)
	ctx := context.Background()

	ft.sendErr = transportDown()
	chart, err := repos.Visualizations.Request(ctx, "weekly steps by day")
	require.ErrorIs(t, err, ErrQueuedForSync)

	ft.sendErr = nil
	ft.fetchDocs[api.EndpointVisualizations] = rawDocs(t, model.Visualization{
		ID: chart.ID, Kind: "bar_chart", Title: "Weekly steps",
		CreatedAt: time.Now().UTC(),
	})

	charts, err := repos.Visualizations.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, charts, 1)
	assert.Equal(t, "bar_chart", charts[0].Kind)
}

func TestSamples_EnqueueBatch(t *testing.T) {
	repos, ft, q, _ := testRepos(t)
	ctx := context.Background()

	now := time.Now().UTC()
	batch := model.SampleBatch{Samples: []model.Sample{
		{Type: model.SampleSteps, Value: 812, Unit: "count", Start: now.Add(-time.Hour), End: now},
	}}
	require.NoError(t, repos.Samples.EnqueueBatch(ctx, batch))

	// No transport attempt on the passive path.
	assert.Empty(t, ft.sends)

	pending, err := q.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, api.EndpointSamples, pending[0].Endpoint)

	var queued model.SampleBatch
	require.NoError(t, json.Unmarshal(pending[0].Payload, &queued))
	require.Len(t, queued.Samples, 1)
	assert.Equal(t, model.SampleSteps, queued.Samples[0].Type)
}

func TestSamples_EnqueueBatch_RejectsEmpty(t *testing.T) {
	repos, _, q, _ := testRepos(t)
	ctx := context.Background()

	err := repos.Samples.EnqueueBatch(ctx, model.SampleBatch{})
	require.Error(t, err)

	pending, qerr := q.Pending(ctx)
	require.NoError(t, qerr)
	assert.Empty(t, pending)
}
