// Package web serves the notes browser: server rendered pages with an
// embedded dehydrated snapshot, the JSON notes API, and the raw snapshot
// endpoint used by headless clients.
package web

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/yuin/goldmark"

	"github.com/goliatone/go-notehub/hydration"
	"github.com/goliatone/go-notehub/metadata"
	"github.com/goliatone/go-notehub/note"
	"github.com/goliatone/go-notehub/pkg/metrics"
	"github.com/goliatone/go-notehub/prefetch"
)

// CacheInvalidator drops shared upstream responses so the next page render
// reads fresh data.
type CacheInvalidator interface {
	InvalidateNote(ctx context.Context, id string) error
	InvalidateLists(ctx context.Context) error
	InvalidateTag(ctx context.Context, tag string) error
}

// HealthFunc reports whether a dependency is usable.
type HealthFunc func(ctx context.Context) error

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSite sets the site metadata defaults.
func WithSite(site metadata.Site) Option {
	return func(s *Server) { s.site = site }
}

// WithMetrics records request metrics and serves /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithPrefetcher replaces the default prefetcher.
func WithPrefetcher(p *prefetch.Prefetcher) Option {
	return func(s *Server) { s.prefetcher = p }
}

// WithRegistry sets the types used to encode and checksum snapshots.
func WithRegistry(r *hydration.Registry) Option {
	return func(s *Server) { s.registry = r }
}

// WithHealthCheck adds a check to /healthz.
func WithHealthCheck(name string, fn HealthFunc) Option {
	return func(s *Server) { s.health[name] = fn }
}

// WithCacheInvalidator serves POST /api/cache/invalidate over inv.
func WithCacheInvalidator(inv CacheInvalidator) Option {
	return func(s *Server) { s.invalidator = inv }
}

// Server is the HTTP surface.
type Server struct {
	gateway     note.Gateway
	prefetcher  *prefetch.Prefetcher
	site        metadata.Site
	registry    *hydration.Registry
	metrics     *metrics.Metrics
	logger      *slog.Logger
	markdown    goldmark.Markdown
	health      map[string]HealthFunc
	invalidator CacheInvalidator
	router      chi.Router
}

// New builds the server over gw. The API reads gw directly; pages go
// through a request scoped prefetch over the same gateway.
func New(gw note.Gateway, opts ...Option) *Server {
	s := &Server{
		gateway:  gw,
		site:     metadata.DefaultSite(),
		registry: hydration.DefaultRegistry(),
		logger:   slog.Default(),
		markdown: newMarkdown(),
		health:   map[string]HealthFunc{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.prefetcher == nil {
		s.prefetcher = prefetch.New(gw, prefetch.WithLogger(s.logger))
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.redirectToList)
	r.Get("/notes", s.redirectToList)
	r.Get("/notes/filter", s.redirectToList)
	r.Get("/notes/filter/{tag}", s.handlePage)
	r.Get("/notes/filter/{tag}/{id}", s.handlePage)
	r.Get("/notes/{id}", s.handlePage)

	r.Route("/api", func(r chi.Router) {
		r.Get("/notes", s.handleListNotes)
		r.Get("/notes/{id}", s.handleGetNote)
		r.Get("/snapshot", s.handleSnapshot)
		if s.invalidator != nil {
			r.Post("/cache/invalidate", s.handleInvalidate)
		}
	})

	r.Get("/healthz", s.handleHealthz)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.renderNotFound(w, r)
	})
	return r
}

func (s *Server) redirectToList(w http.ResponseWriter, r *http.Request) {
	target := "/notes/filter/all"
	if q := r.URL.RawQuery; q != "" {
		target += "?" + q
	}
	http.Redirect(w, r, target, http.StatusFound)
}
