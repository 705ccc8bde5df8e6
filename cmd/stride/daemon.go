package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stridehealth/stride/internal/config"
	"github.com/stridehealth/stride/internal/health"
	"github.com/stridehealth/stride/internal/logging"
	"github.com/stridehealth/stride/internal/trigger"
	"github.com/stridehealth/stride/internal/ui"
)

var daemonCmd = &cobra.Command{
	Use:     "daemon",
	GroupID: "sync",
	Short:   "Sync continuously in the foreground",
	Long: `Run the sync daemon in foreground mode.

The daemon keeps the local cache fresh and the outbox drained:
  1. Drains queued mutations and refreshes all collections on start
  2. Repeats on a jittered interval (sync.interval, default 15m)
  3. Listens for server push notifications when push.enabled is set
  4. Ingests health sample files dropped into the spool directory

Logs go to the rotated file under the data directory and to stderr.
Press Ctrl+C to stop.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		log := logging.Daemon(cfg.LogPath(), cfg.Log.Level)

		app, err := openAppWith(cfg, log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer app.Close()

		handler := func(ctx context.Context) error {
			result, err := app.coord.Sync(ctx)
			if err != nil {
				return err
			}
			if result.Skipped {
				log.Debug().Msg("sync already running, trigger skipped")
			}
			return nil
		}

		interval := trigger.NewInterval(handler, cfg.Sync.Interval, cfg.Sync.Budget, log)
		interval.Start()
		defer interval.Stop()

		if cfg.Push.Enabled {
			push := trigger.NewPush(cfg.Push.URL, cfg.API.Token, handler, cfg.Sync.Budget, log)
			push.Start()
			defer push.Stop()
		}

		watcher, err := health.NewWatcher(cfg.Spool.Dir, app.repos.Samples, log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error starting spool watcher: %v\n", err)
			os.Exit(1)
		}
		watcher.Start()
		defer watcher.Stop()

		// First sync right away; the interval timer only fires after a
		// full period.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Sync.Budget)
			defer cancel()
			if err := handler(ctx); err != nil {
				log.Warn().Err(err).Msg("startup sync failed")
			}
		}()

		fmt.Printf("%s Stride daemon running\n", ui.RenderAccent("🚀"))
		fmt.Printf("   Cache: %s\n", cfg.DBPath())
		fmt.Printf("   Spool: %s\n", cfg.Spool.Dir)
		fmt.Printf("   Interval: %s\n", cfg.Sync.Interval)
		if cfg.Push.Enabled {
			fmt.Printf("   Push: %s\n", cfg.Push.URL)
		}
		fmt.Printf("\nPress Ctrl+C to stop\n\n")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		sig := <-sigCh

		log.Info().Str("signal", sig.String()).Msg("shutting down")
		fmt.Printf("\n%s Shutting down\n", ui.RenderWarn("⚠"))
	},
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}
