package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/stridehealth/stride/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "data",
	Short:   "Show cache and outbox status",
	Long: `Display the state of the local cache and the mutation outbox.

Shows:
  - Cache file location and size
  - Cached record counts per collection
  - Pending mutations per endpoint
  - Highest retry count among queued mutations`,
	Run: func(cmd *cobra.Command, args []string) {
		app, err := openApp()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer app.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		counts, err := app.store.CountsContext(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading store: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("\n%s Stride Cache Status\n\n", ui.RenderAccent("📊"))
		fmt.Printf("Location: %s\n", app.store.Path())
		if info, err := os.Stat(app.store.Path()); err == nil {
			fmt.Printf("Size: %s\n", formatSize(info.Size()))
		}

		fmt.Printf("\nCached records:\n")
		if len(counts.Records) == 0 {
			fmt.Printf("   %s\n", ui.RenderDim("(empty, run 'stride sync')"))
		}
		for _, entity := range sortedKeys(counts.Records) {
			fmt.Printf("   %-15s %d\n", entity, counts.Records[entity])
		}

		fmt.Printf("\nOutbox:\n")
		if counts.Outbox == 0 {
			fmt.Printf("   %s Nothing pending\n", ui.RenderPass("✓"))
		} else {
			fmt.Printf("   %s %d mutation(s) waiting for sync\n", ui.RenderWarn("⚠"), counts.Outbox)
			for _, endpoint := range sortedKeys(counts.ByEndpoint) {
				fmt.Printf("   %-15s %d\n", endpoint, counts.ByEndpoint[endpoint])
			}
			if counts.MaxRetries > 0 {
				fmt.Printf("   Oldest failures retried %d time(s)\n", counts.MaxRetries)
			}
		}
		fmt.Println()
	},
}

func formatSize(size int64) string {
	switch {
	case size > 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(size)/(1024*1024))
	case size > 1024:
		return fmt.Sprintf("%.1f KB", float64(size)/1024)
	default:
		return fmt.Sprintf("%d bytes", size)
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
