package main

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/stridehealth/stride/internal/api"
	"github.com/stridehealth/stride/internal/config"
	"github.com/stridehealth/stride/internal/logging"
	"github.com/stridehealth/stride/internal/outbox"
	"github.com/stridehealth/stride/internal/repo"
	"github.com/stridehealth/stride/internal/store"
	"github.com/stridehealth/stride/internal/syncer"
)

// app bundles the wired client core for a single command invocation.
type app struct {
	cfg    config.Config
	store  *store.Store
	queue  *outbox.Queue
	client *api.Client
	repos  *repo.Repos
	coord  *syncer.Coordinator
	log    zerolog.Logger
}

// openApp loads the configuration, builds a console logger at the
// configured level and wires the store, outbox, transport,
// repositories and sync coordinator together.
func openApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return openAppWith(cfg, logging.Console(cfg.Log.Level))
}

func openAppWith(cfg config.Config, log zerolog.Logger) (*app, error) {
	st, err := store.Open(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	queue := outbox.New(st)
	client := api.NewClient(api.ClientConfig{
		BaseURL: cfg.API.BaseURL,
		Token:   cfg.API.Token,
		Timeout: cfg.API.Timeout,
	}, nil, log)
	repos := repo.New(st, queue, client, log)
	coord := syncer.New(queue, st, client, []syncer.Refresher{
		repos.Users,
		repos.Logs,
		repos.Visualizations,
	}, log)

	return &app{
		cfg:    cfg,
		store:  st,
		queue:  queue,
		client: client,
		repos:  repos,
		coord:  coord,
		log:    log,
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close store")
	}
}
