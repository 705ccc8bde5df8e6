package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/stridehealth/stride/internal/api"
	"github.com/stridehealth/stride/internal/config"
	"github.com/stridehealth/stride/internal/logging"
	"github.com/stridehealth/stride/internal/ui"
)

var loginCmd = &cobra.Command{
	Use:     "login",
	GroupID: "account",
	Short:   "Store your API token",
	Long: `Store the API token used to authenticate with the backend.

The token is read from the terminal without echo and written to the
config file. When a token is piped on stdin it is read from there
instead, for scripted setups:

  echo "$STRIDE_TOKEN" | stride login`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		token, err := readToken()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading token: %v\n", err)
			os.Exit(1)
		}
		if token == "" {
			fmt.Fprintf(os.Stderr, "Error: empty token\n")
			os.Exit(1)
		}

		cfg.API.Token = token
		path := configPath
		if path == "" {
			path = config.DefaultPath()
		}
		if err := config.Save(cfg, path); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s Token saved to %s\n", ui.RenderPass("✓"), path)

		// Best-effort verification; an unreachable backend is not a
		// reason to reject the token.
		log := logging.Console(cfg.Log.Level)
		client := api.NewClient(api.ClientConfig{
			BaseURL: cfg.API.BaseURL,
			Token:   cfg.API.Token,
			Timeout: cfg.API.Timeout,
		}, nil, log)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.API.Timeout)
		defer cancel()
		if _, err := client.FetchCollection(ctx, api.EndpointProfile); err != nil {
			fmt.Printf("%s Could not verify against %s: %v\n", ui.RenderWarn("⚠"), cfg.API.BaseURL, err)
			return
		}
		fmt.Printf("%s Verified against %s\n", ui.RenderPass("✓"), cfg.API.BaseURL)
	},
}

func readToken() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, "API token: ")
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(raw)), nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func init() {
	rootCmd.AddCommand(loginCmd)
}
