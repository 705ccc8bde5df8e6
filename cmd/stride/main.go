// Command stride is the device-local companion for the Stride health
// tracking service.
//
// Reads are served from a local SQLite cache that refreshes from the
// backend whenever it is reachable. Writes succeed even when the
// device is offline: they are queued in a durable outbox and replayed,
// oldest first, on the next sync.
package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/stridehealth/stride/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "stride",
	Short: "Offline-first client for the Stride health service",
	Long: `stride keeps your health data usable without a connection.

Every read comes from a local SQLite cache that is refreshed from the
backend whenever it answers. Every write lands in the cache right away
and is queued in a durable outbox if the backend is unreachable, then
replayed in order on the next sync.

Typical flow:
  1. 'stride login' to store your API token
  2. 'stride daemon' to sync continuously in the background
  3. 'stride logs', 'stride stats', 'stride charts' to browse data
  4. 'stride status' to check cache depth and pending writes`,
	Version:       version(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func version() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "devel"
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		fmt.Sprintf("Config file (default %s)", config.DefaultPath()))
	rootCmd.AddGroup(
		&cobra.Group{ID: "data", Title: "Data commands:"},
		&cobra.Group{ID: "sync", Title: "Sync commands:"},
		&cobra.Group{ID: "account", Title: "Account commands:"},
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
