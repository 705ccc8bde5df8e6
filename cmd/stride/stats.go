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

var statsCmd = &cobra.Command{
	Use:     "stats",
	GroupID: "data",
	Short:   "Show aggregated activity stats",
	Long: `List recent stat snapshots computed by the backend.

Each snapshot covers one period (a day or a week) and carries totals
like step count and active minutes. Snapshots come from the local
cache, refreshed from the backend when it is reachable.`,
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")

		app, err := openApp()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer app.Close()

		ctx, cancel := context.WithTimeout(context.Background(), app.cfg.API.Timeout+5*time.Second)
		defer cancel()

		snapshots, err := app.repos.Users.FetchStats(ctx, limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error fetching stats: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("\n%s Activity stats\n\n", ui.RenderAccent("📈"))
		if len(snapshots) == 0 {
			fmt.Printf("   %s\n", ui.RenderDim("(no snapshots cached, run 'stride sync')"))
		}
		for _, snap := range snapshots {
			fmt.Printf("   %s to %s\n",
				snap.PeriodStart.Local().Format("2006-01-02"),
				snap.PeriodEnd.Local().Format("2006-01-02"))

			keys := make([]string, 0, len(snap.Totals))
			for k := range snap.Totals {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Printf("      %-18s %g\n", k, snap.Totals[k])
			}
			fmt.Println()
		}
	},
}

func init() {
	statsCmd.Flags().IntP("limit", "n", 4, "Maximum number of snapshots to show")
	rootCmd.AddCommand(statsCmd)
}
