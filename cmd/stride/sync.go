package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/stridehealth/stride/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "sync",
	Short:   "Drain the outbox and refresh all collections once",
	Long: `Run a single sync pass against the backend.

The pass does what the daemon does on every trigger:
  1. Replays queued mutations in the order they were written
  2. Keeps failed mutations queued for the next attempt
  3. Refreshes the cached profile, log entries and visualizations

The whole pass runs under the sync.budget time limit.`,
	Run: func(cmd *cobra.Command, args []string) {
		app, err := openApp()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer app.Close()

		ctx, cancel := context.WithTimeout(context.Background(), app.cfg.Sync.Budget)
		defer cancel()

		fmt.Printf("%s Syncing with %s...\n", ui.RenderAccent("🔄"), app.cfg.API.BaseURL)
		start := time.Now()

		result, err := app.coord.Sync(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error during sync: %v\n", err)
			os.Exit(1)
		}
		if result.Skipped {
			fmt.Printf("%s Another sync is already running\n", ui.RenderWarn("⚠"))
			return
		}

		elapsed := time.Since(start)
		fmt.Printf("%s Sync complete in %v\n", ui.RenderPass("✓"), elapsed.Round(time.Millisecond))
		fmt.Printf("   Replayed: %d\n", result.Replayed)
		if result.Failed > 0 {
			fmt.Printf("   %s %d mutation(s) still queued, will retry\n", ui.RenderWarn("⚠"), result.Failed)
		}
		fmt.Printf("   Refreshed: %d collection(s)\n", result.Refreshed)
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
