package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/stridehealth/stride/internal/repo"
	"github.com/stridehealth/stride/internal/ui"
)

var chartsCmd = &cobra.Command{
	Use:     "charts",
	GroupID: "data",
	Short:   "Browse and request generated visualizations",
	Long: `List visualizations generated by the backend.

Visualizations are chart definitions the backend renders from a
natural-language prompt. The list comes from the local cache,
refreshed when the backend is reachable. Requests made while offline
show up as pending until the next sync.`,
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

		charts, err := app.repos.Visualizations.List(ctx, limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing visualizations: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("\n%s Visualizations\n\n", ui.RenderAccent("📉"))
		if len(charts) == 0 {
			fmt.Printf("   %s\n", ui.RenderDim("(none, try 'stride charts request \"steps this month\"')"))
		}
		for _, chart := range charts {
			marker := ui.RenderPass("✓")
			if chart.Kind == "pending" {
				marker = ui.RenderWarn("…")
			}
			fmt.Printf("   %s %s  %-10s %s\n", marker,
				chart.CreatedAt.Local().Format("2006-01-02 15:04"), chart.Kind, chart.Title)
		}
		fmt.Println()
	},
}

var chartsRequestCmd = &cobra.Command{
	Use:   "request <prompt>",
	Short: "Ask the backend to generate a visualization",
	Long: `Request a new visualization from a natural-language prompt:

  stride charts request "weekly step totals for the last month"

When the backend is unreachable the request is queued and a pending
placeholder appears in the list until the next sync completes.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		prompt := strings.Join(args, " ")

		app, err := openApp()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer app.Close()

		ctx, cancel := context.WithTimeout(context.Background(), app.cfg.API.Timeout+5*time.Second)
		defer cancel()

		chart, err := app.repos.Visualizations.Request(ctx, prompt)
		switch {
		case errors.Is(err, repo.ErrQueuedForSync):
			fmt.Printf("%s Request queued, will send when the backend is reachable\n", ui.RenderWarn("⚠"))
		case err != nil:
			fmt.Fprintf(os.Stderr, "Error requesting visualization: %v\n", err)
			os.Exit(1)
		default:
			fmt.Printf("%s Requested\n", ui.RenderPass("✓"))
		}
		fmt.Printf("   %s  %s\n", chart.ID, chart.Title)
	},
}

func init() {
	chartsCmd.Flags().IntP("limit", "n", 10, "Maximum number of visualizations to show")
	chartsCmd.AddCommand(chartsRequestCmd)
	rootCmd.AddCommand(chartsCmd)
}
