package main

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-notehub/client"
	"github.com/goliatone/go-notehub/gateway/httpgateway"
	"github.com/goliatone/go-notehub/note"
	"github.com/goliatone/go-notehub/query"
	"github.com/goliatone/go-notehub/session"
)

var (
	browseOpen    string
	browseReload  bool
	browseAPI     string
	browseTimeout time.Duration
)

var browseCmd = &cobra.Command{
	Use:   "browse <url>",
	Short: "Load a page headlessly and hydrate a client session from it",
	Example: `  notehub browse http://localhost:8080/notes/filter/work
  notehub browse http://localhost:8080/notes/filter/all --open 3f2a...`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), browseTimeout)
		defer cancel()

		apiBase := browseAPI
		if apiBase == "" {
			if apiBase, err = client.APIBase(args[0]); err != nil {
				return err
			}
		}
		api, err := httpgateway.New(httpgateway.Options{BaseURL: apiBase, Logger: logger})
		if err != nil {
			return err
		}

		var calls atomic.Int64
		counted := note.GatewayFuncs{
			NoteByID: func(ctx context.Context, id string) (note.Note, error) {
				calls.Add(1)
				return api.FetchNoteByID(ctx, id)
			},
			Notes: func(ctx context.Context, p note.ListParams) (note.NotesPage, error) {
				calls.Add(1)
				return api.FetchNotes(ctx, p)
			},
		}

		store := query.NewStore(
			query.WithStaleTime(cfg.Query.StaleTime),
			query.WithGCTime(cfg.Query.GCTime),
			query.WithRetry(cfg.Query.Retry, cfg.Query.RetryDelay),
			query.WithLogger(logger),
		)
		go store.Run(ctx, cfg.Query.CollectInterval)
		browser := client.NewBrowser(client.NewLoader(nil, logger), store, counted, session.WithLogger(logger))
		out := cmd.OutOrStdout()

		if _, err := browser.Visit(ctx, args[0]); err != nil {
			return err
		}
		page := browser.Page
		fmt.Fprintf(out, "%s (HTTP %d, %d hydrated entries)\n", page.Meta.Title, page.StatusCode, page.Snapshot.Len())

		sc, err := browser.Session.Wait(ctx)
		if err != nil {
			return err
		}
		sc.Render(out)

		if browseOpen != "" {
			browser.Session.Open(ctx, browseOpen)
			if sc, err = browser.Session.Wait(ctx); err != nil {
				return err
			}
			sc.Render(out)

			if sc, err = browser.Session.Close(ctx); err != nil {
				return err
			}
			sc.Render(out)
		}

		if browseReload {
			browser.Session.Reload(ctx)
			if sc, err = browser.Session.Wait(ctx); err != nil {
				return err
			}
			sc.Render(out)
		}

		fmt.Fprintf(out, "client gateway calls: %d\n", calls.Load())
		browser.Session.Dispose()
		return nil
	},
}

func init() {
	browseCmd.Flags().StringVar(&browseOpen, "open", "", "note id to open as a modal, then close")
	browseCmd.Flags().BoolVar(&browseReload, "reload", false, "reload the final screen before exiting")
	browseCmd.Flags().StringVar(&browseAPI, "api", "", "notes API root, defaults to <origin>/api")
	browseCmd.Flags().DurationVar(&browseTimeout, "timeout", 30*time.Second, "overall timeout")
	rootCmd.AddCommand(browseCmd)
}
