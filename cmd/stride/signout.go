package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/stridehealth/stride/internal/config"
	"github.com/stridehealth/stride/internal/ui"
)

var signoutCmd = &cobra.Command{
	Use:     "signout",
	GroupID: "account",
	Short:   "Sign out and wipe local data",
	Long: `Sign out of the backend and remove everything stored on this device.

This wipes the cached records AND the outbox, so queued mutations that
have not reached the backend yet are lost. A sync already in flight is
allowed to finish first. The stored API token is cleared as well.`,
	Run: func(cmd *cobra.Command, args []string) {
		yes, _ := cmd.Flags().GetBool("yes")

		app, err := openApp()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer app.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if !yes {
			description := "The local cache will be wiped."
			if counts, err := app.store.CountsContext(ctx); err == nil && counts.Outbox > 0 {
				description = fmt.Sprintf(
					"%d queued mutation(s) have not synced yet and will be lost.", counts.Outbox)
			}

			confirmed := false
			form := huh.NewForm(huh.NewGroup(
				huh.NewConfirm().
					Title("Sign out and wipe local data?").
					Description(description).
					Affirmative("Sign out").
					Negative("Cancel").
					Value(&confirmed),
			))
			if err := form.Run(); err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					fmt.Println("Aborted.")
					return
				}
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			if !confirmed {
				fmt.Println("Aborted.")
				return
			}
		}

		if err := app.coord.Purge(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error wiping local data: %v\n", err)
			os.Exit(1)
		}

		cfg := app.cfg
		cfg.API.Token = ""
		path := configPath
		if path == "" {
			path = config.DefaultPath()
		}
		if err := config.Save(cfg, path); err != nil {
			fmt.Fprintf(os.Stderr, "Error clearing token: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Signed out, local data wiped\n", ui.RenderPass("✓"))
	},
}

func init() {
	signoutCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(signoutCmd)
}
