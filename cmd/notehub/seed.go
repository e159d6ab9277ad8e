package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-notehub/internal/store/sqlstore"
)

var seedNotify string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the notes schema and insert the demo notes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}

		store, err := sqlstore.Open(cfg.Database, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		if err := store.CreateSchema(ctx); err != nil {
			return err
		}
		inserted, err := store.Seed(ctx, sqlstore.DefaultSeed(time.Now()))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d notes into %s\n", inserted, cfg.Database.Driver)

		if seedNotify == "" || inserted == 0 {
			return nil
		}
		scope, err := notifyServer(ctx, seedNotify)
		if err != nil {
			return fmt.Errorf("seed: notify %s: %w", seedNotify, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "invalidated %s on %s\n", scope, seedNotify)
		return nil
	},
}

// notifyServer asks a running server to drop its cached list pages so the
// new notes show up on the next render.
func notifyServer(ctx context.Context, serverURL string) (string, error) {
	u, err := url.Parse(strings.TrimRight(serverURL, "/") + "/api/cache/invalidate")
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}
	var body struct {
		Invalidated string `json:"invalidated"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	return body.Invalidated, nil
}

func init() {
	seedCmd.Flags().StringVar(&seedNotify, "notify", "", "base URL of a running server whose gateway cache should be invalidated")
	rootCmd.AddCommand(seedCmd)
}
