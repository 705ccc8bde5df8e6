package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/stridehealth/stride/internal/model"
	"github.com/stridehealth/stride/internal/repo"
	"github.com/stridehealth/stride/internal/store"
	"github.com/stridehealth/stride/internal/ui"
)

var profileCmd = &cobra.Command{
	Use:     "profile",
	GroupID: "data",
	Short:   "Show and edit your profile",
	Long: `Show the cached profile, refreshing from the backend first when it
is reachable.`,
	Run: func(cmd *cobra.Command, args []string) {
		app, err := openApp()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer app.Close()

		ctx, cancel := context.WithTimeout(context.Background(), app.cfg.API.Timeout+5*time.Second)
		defer cancel()

		profile, err := app.repos.Users.Fetch(ctx)
		if errors.Is(err, store.ErrNotFound) {
			fmt.Printf("%s No profile cached yet, run 'stride sync' while online\n", ui.RenderWarn("⚠"))
			return
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error fetching profile: %v\n", err)
			os.Exit(1)
		}
		printProfile(profile)
	},
}

var profileSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update profile settings",
	Long: `Update profile settings such as display name and daily goals.

Only the flags you pass change; everything else keeps its current
value. The change is cached immediately and queued for sync when the
backend is unreachable:

  stride profile set --step-goal 12000
  stride profile set --name "Jo Runner" --units metric`,
	Run: func(cmd *cobra.Command, args []string) {
		app, err := openApp()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer app.Close()

		ctx, cancel := context.WithTimeout(context.Background(), app.cfg.API.Timeout+5*time.Second)
		defer cancel()

		// Start from the current profile so unspecified flags keep
		// their values. A missing profile still allows a first write.
		req := model.UpdateProfileRequest{Units: "metric"}
		current, err := app.repos.Users.Fetch(ctx)
		switch {
		case err == nil:
			req.DisplayName = current.DisplayName
			req.DailyStepGoal = current.DailyStepGoal
			req.DailyActiveGoal = current.DailyActiveGoal
			req.Units = current.Units
		case !errors.Is(err, store.ErrNotFound):
			fmt.Fprintf(os.Stderr, "Error fetching profile: %v\n", err)
			os.Exit(1)
		}

		if cmd.Flags().Changed("name") {
			req.DisplayName, _ = cmd.Flags().GetString("name")
		}
		if cmd.Flags().Changed("step-goal") {
			req.DailyStepGoal, _ = cmd.Flags().GetInt("step-goal")
		}
		if cmd.Flags().Changed("active-goal") {
			req.DailyActiveGoal, _ = cmd.Flags().GetInt("active-goal")
		}
		if cmd.Flags().Changed("units") {
			req.Units, _ = cmd.Flags().GetString("units")
		}

		profile, err := app.repos.Users.Update(ctx, req)
		switch {
		case errors.Is(err, repo.ErrQueuedForSync):
			fmt.Printf("%s Saved locally, will sync when the backend is reachable\n", ui.RenderWarn("⚠"))
		case err != nil:
			fmt.Fprintf(os.Stderr, "Error updating profile: %v\n", err)
			os.Exit(1)
		default:
			fmt.Printf("%s Profile updated\n", ui.RenderPass("✓"))
		}
		printProfile(profile)
	},
}

func printProfile(profile model.Profile) {
	fmt.Printf("\n%s Profile\n\n", ui.RenderAccent("👤"))
	fmt.Printf("   Name:  %s\n", profile.DisplayName)
	if profile.Email != "" {
		fmt.Printf("   Email: %s\n", profile.Email)
	}
	fmt.Printf("   Units: %s\n", profile.Units)
	fmt.Printf("   Daily step goal:   %d\n", profile.DailyStepGoal)
	fmt.Printf("   Daily active goal: %d min\n", profile.DailyActiveGoal)
	fmt.Println()
}

func init() {
	profileSetCmd.Flags().String("name", "", "Display name")
	profileSetCmd.Flags().Int("step-goal", 0, "Daily step goal")
	profileSetCmd.Flags().Int("active-goal", 0, "Daily active minutes goal")
	profileSetCmd.Flags().String("units", "", "Unit system: metric or imperial")

	profileCmd.AddCommand(profileSetCmd)
	rootCmd.AddCommand(profileCmd)
}
