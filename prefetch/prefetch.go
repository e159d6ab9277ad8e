// Package prefetch runs the server side fetch for a page before rendering.
// Every call uses its own store, so nothing leaks between requests, and
// gateway failures never abort rendering: the query is simply left out of
// the snapshot and the client fetches it after hydration.
package prefetch

import (
	"context"
	"log/slog"
	"time"

	"github.com/goliatone/go-notehub/cache"
	"github.com/goliatone/go-notehub/hydration"
	"github.com/goliatone/go-notehub/note"
	"github.com/goliatone/go-notehub/notequery"
	"github.com/goliatone/go-notehub/query"
	"github.com/goliatone/go-notehub/route"
)

// Result is the outcome of one prefetch. Err is recorded for the caller
// (status codes, metadata) but Snapshot is always usable.
type Result struct {
	Key      cache.Key
	Snapshot *hydration.Snapshot
	Data     any
	Err      error
	Elapsed  time.Duration
}

// Note returns the prefetched note, if the fetch succeeded.
func (r Result) Note() (note.Note, bool) {
	n, ok := r.Data.(note.Note)
	return n, ok && r.Err == nil
}

// Page returns the prefetched list page, if the fetch succeeded.
func (r Result) Page() (note.NotesPage, bool) {
	p, ok := r.Data.(note.NotesPage)
	return p, ok && r.Err == nil
}

// Option configures a Prefetcher.
type Option func(*Prefetcher)

// WithLogger sets the logger used for swallowed fetch failures.
func WithLogger(l *slog.Logger) Option {
	return func(p *Prefetcher) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithStoreOptions passes options to every request scoped store.
func WithStoreOptions(opts ...query.Option) Option {
	return func(p *Prefetcher) {
		p.storeOpts = append(p.storeOpts, opts...)
	}
}

// Prefetcher fetches the data a route needs into a fresh store and
// dehydrates it.
type Prefetcher struct {
	gateway   note.Gateway
	logger    *slog.Logger
	storeOpts []query.Option
}

// New returns a Prefetcher backed by gw.
func New(gw note.Gateway, opts ...Option) *Prefetcher {
	p := &Prefetcher{gateway: gw, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Note prefetches a single note.
func (p *Prefetcher) Note(ctx context.Context, id string) Result {
	return p.run(ctx, notequery.Note(p.gateway, id))
}

// Notes prefetches a list page.
func (p *Prefetcher) Notes(ctx context.Context, params note.ListParams) Result {
	return p.run(ctx, notequery.List(p.gateway, params))
}

// Location prefetches whatever loc renders on a direct load.
func (p *Prefetcher) Location(ctx context.Context, loc route.Location) Result {
	if loc.Kind == route.KindNote {
		return p.Note(ctx, loc.NoteID)
	}
	return p.Notes(ctx, loc.Filter)
}

func (p *Prefetcher) run(ctx context.Context, q notequery.Query) Result {
	store := query.NewStore(append([]query.Option{query.WithLogger(p.logger)}, p.storeOpts...)...)

	start := time.Now()
	data, err := store.Fetch(ctx, q.Key, q.Fetch, query.Retry(0, 0))
	res := Result{
		Key:      q.Key,
		Data:     data,
		Err:      err,
		Elapsed:  time.Since(start),
		Snapshot: hydration.Dehydrate(store),
	}
	if err != nil {
		p.logger.WarnContext(ctx, "prefetch failed, client will fetch after hydration",
			"key", q.Key.String(),
			"not_found", note.IsNotFound(err),
			"error", err,
		)
	}
	return res
}
