package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/stridehealth/stride/internal/model"
	"github.com/stridehealth/stride/internal/repo"
	"github.com/stridehealth/stride/internal/ui"
)

var logsCmd = &cobra.Command{
	Use:     "logs",
	GroupID: "data",
	Short:   "Browse and add activity log entries",
	Long: `List recent activity log entries from the local cache.

The cache refreshes from the backend first when it is reachable;
otherwise whatever was cached last is shown. Use --since with a
natural phrase like "yesterday" or "last monday" to narrow the list.`,
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		sinceStr, _ := cmd.Flags().GetString("since")
		typeFilter, _ := cmd.Flags().GetString("type")

		var since time.Time
		if sinceStr != "" {
			cutoff, err := parseSince(sinceStr)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			since = cutoff
		}

		app, err := openApp()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer app.Close()

		ctx, cancel := context.WithTimeout(context.Background(), app.cfg.API.Timeout+5*time.Second)
		defer cancel()

		// Fetch without a limit when filtering, so the cutoff applies
		// before the cap rather than after.
		fetchLimit := limit
		if sinceStr != "" || typeFilter != "" {
			fetchLimit = 0
		}
		entries, err := app.repos.Logs.List(ctx, fetchLimit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing log entries: %v\n", err)
			os.Exit(1)
		}

		shown := 0
		fmt.Printf("\n%s Activity log\n\n", ui.RenderAccent("🏃"))
		for _, entry := range entries {
			if typeFilter != "" && entry.Type != typeFilter {
				continue
			}
			if !since.IsZero() && entry.CreatedAt.Before(since) {
				continue
			}
			printLogEntry(entry)
			shown++
			if limit > 0 && shown >= limit {
				break
			}
		}
		if shown == 0 {
			fmt.Printf("   %s\n", ui.RenderDim("(no entries)"))
		}
		fmt.Println()
	},
}

var logsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a new log entry",
	Long: `Record an activity log entry.

The entry is cached immediately and sent to the backend. When the
backend is unreachable it stays queued and syncs later:

  stride logs add --type workout -f distance_km=5.2 -f duration_min=42
  stride logs add --type water -f liters=0.5
  stride logs add --type note --note "felt great today"`,
	Run: func(cmd *cobra.Command, args []string) {
		logType, _ := cmd.Flags().GetString("type")
		note, _ := cmd.Flags().GetString("note")
		fieldArgs, _ := cmd.Flags().GetStringArray("field")

		fields, err := parseFields(fieldArgs)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		app, err := openApp()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer app.Close()

		ctx, cancel := context.WithTimeout(context.Background(), app.cfg.API.Timeout+5*time.Second)
		defer cancel()

		entry, err := app.repos.Logs.Create(ctx, model.CreateLogRequest{
			Type:   logType,
			Fields: fields,
			Note:   note,
		})
		switch {
		case errors.Is(err, repo.ErrQueuedForSync):
			fmt.Printf("%s Saved locally, will sync when the backend is reachable\n", ui.RenderWarn("⚠"))
		case err != nil:
			fmt.Fprintf(os.Stderr, "Error recording entry: %v\n", err)
			os.Exit(1)
		default:
			fmt.Printf("%s Recorded\n", ui.RenderPass("✓"))
		}
		printLogEntry(entry)
	},
}

func printLogEntry(entry model.LogEntry) {
	detail := formatFields(entry.Fields)
	if entry.Note != "" {
		if detail != "" {
			detail += "  "
		}
		detail += ui.RenderDim(entry.Note)
	}
	fmt.Printf("   %s  %-10s %s\n",
		entry.CreatedAt.Local().Format("2006-01-02 15:04"), entry.Type, detail)
}

func formatFields(fields map[string]any) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return strings.Join(parts, " ")
}

// parseFields turns repeated key=value flags into a payload map,
// keeping numeric values numeric.
func parseFields(args []string) (map[string]any, error) {
	if len(args) == 0 {
		return nil, nil
	}
	fields := make(map[string]any, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid field %q, expected key=value", arg)
		}
		if n, err := strconv.ParseFloat(value, 64); err == nil {
			fields[key] = n
		} else {
			fields[key] = value
		}
	}
	return fields, nil
}

// parseSince understands natural phrases like "yesterday", "last
// monday" or "3 days ago" as well as plain dates.
func parseSince(s string) (time.Time, error) {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	result, err := w.Parse(s, time.Now())
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse --since: %w", err)
	}
	if result == nil {
		return time.Time{}, fmt.Errorf("could not understand --since value %q", s)
	}
	return result.Time, nil
}

func init() {
	logsCmd.Flags().IntP("limit", "n", 20, "Maximum number of entries to show")
	logsCmd.Flags().String("since", "", "Only entries after this time (\"yesterday\", \"last monday\")")
	logsCmd.Flags().String("type", "", "Only entries of this type (workout, meal, sleep, water, note)")

	logsAddCmd.Flags().String("type", "", "Entry type: workout, meal, sleep, water or note")
	logsAddCmd.Flags().String("note", "", "Free-form note text")
	logsAddCmd.Flags().StringArrayP("field", "f", nil, "Entry field as key=value, repeatable")

	logsCmd.AddCommand(logsAddCmd)
	rootCmd.AddCommand(logsCmd)
}
