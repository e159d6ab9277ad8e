package di

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/goliatone/go-notehub/cache"
	"github.com/goliatone/go-notehub/config"
	"github.com/goliatone/go-notehub/gateway/httpgateway"
	"github.com/goliatone/go-notehub/gatewaycache"
	"github.com/goliatone/go-notehub/hydration"
	"github.com/goliatone/go-notehub/internal/store/sqlstore"
	"github.com/goliatone/go-notehub/note"
	"github.com/goliatone/go-notehub/pkg/logging"
	"github.com/goliatone/go-notehub/pkg/metrics"
	"github.com/goliatone/go-notehub/prefetch"
	"github.com/goliatone/go-notehub/query"
	"github.com/goliatone/go-notehub/web"
)

// Container wires the application from a config.Config. It owns the
// singletons (logger, metrics, gateway, shared response cache) and builds
// the per use objects (query stores, prefetchers, servers) from them.
type Container struct {
	config       config.Config
	logger       *slog.Logger
	metrics      *metrics.Metrics
	registry     *hydration.Registry
	sqlStore     *sqlstore.Store
	baseGateway  note.Gateway
	cacheService cache.CacheService
	cached       *gatewaycache.CachedGateway
	gateway      note.Gateway
}

// Option adjusts container construction.
type Option func(*Container)

// WithLogger replaces the logger built from the config.
func WithLogger(l *slog.Logger) Option {
	return func(c *Container) { c.logger = l }
}

// WithGateway supplies the base gateway instead of building one from the
// gateway section of the config.
func WithGateway(gw note.Gateway) Option {
	return func(c *Container) { c.baseGateway = gw }
}

// NewContainer validates cfg and builds the singletons.
func NewContainer(ctx context.Context, cfg config.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Container{
		config:   cfg,
		metrics:  metrics.New(),
		registry: hydration.DefaultRegistry(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		logger, err := logging.New(cfg.Log, os.Stderr)
		if err != nil {
			return nil, err
		}
		c.logger = logger
	}

	if c.baseGateway == nil {
		gw, err := c.buildGateway(ctx)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.baseGateway = gw
	}
	c.gateway = c.baseGateway

	if cfg.Cache.Enabled {
		svc, err := cache.NewCacheService(cfg.Cache)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("di: gateway cache: %w", err)
		}
		c.cacheService = svc
		c.cached = gatewaycache.New(c.baseGateway, svc, c.logger)
		c.gateway = c.cached
	}

	c.logger.Debug("container ready",
		"gateway", cfg.Gateway.Source,
		"cache", cfg.Cache.Enabled,
	)
	return c, nil
}

// NewContainerWithDefaults serves the built in demo notes from memory.
func NewContainerWithDefaults(ctx context.Context) (*Container, error) {
	cfg := config.Default()
	cfg.Gateway.Source = config.SourceMemory
	return NewContainer(ctx, cfg)
}

var openStore = sqlstore.Open

func (c *Container) buildGateway(ctx context.Context) (note.Gateway, error) {
	switch c.config.Gateway.Source {
	case config.SourceHTTP:
		return httpgateway.New(httpgateway.Options{
			BaseURL: c.config.Gateway.BaseURL,
			Timeout: c.config.Gateway.Timeout,
			Logger:  c.logger,
		})

	case config.SourceMemory:
		store, err := openStore(sqlstore.Options{Driver: sqlstore.DriverSQLite, DSN: ":memory:"}, c.logger)
		if err != nil {
			return nil, err
		}
		c.sqlStore = store
		if err := store.CreateSchema(ctx); err != nil {
			return nil, err
		}
		if _, err := store.Seed(ctx, sqlstore.DefaultSeed(time.Now())); err != nil {
			return nil, err
		}
		return store, nil

	default:
		store, err := openStore(c.config.Database, c.logger)
		if err != nil {
			return nil, err
		}
		c.sqlStore = store
		return store, nil
	}
}

// Config returns the configuration the container was built from.
func (c *Container) Config() config.Config { return c.config }

// Logger returns the shared logger.
func (c *Container) Logger() *slog.Logger { return c.logger }

// Metrics returns the shared metrics registry.
func (c *Container) Metrics() *metrics.Metrics { return c.metrics }

// Gateway returns the gateway used by the server, cached when enabled.
func (c *Container) Gateway() note.Gateway { return c.gateway }

// CacheService returns the shared response cache, nil when disabled.
func (c *Container) CacheService() cache.CacheService { return c.cacheService }

// CachedGateway returns the caching decorator, nil when disabled.
func (c *Container) CachedGateway() *gatewaycache.CachedGateway { return c.cached }

// SQLStore returns the SQL store, nil when notes come over HTTP.
func (c *Container) SQLStore() *sqlstore.Store { return c.sqlStore }

// QueryOptions are the store options derived from the query section.
func (c *Container) QueryOptions() []query.Option {
	q := c.config.Query
	return []query.Option{
		query.WithStaleTime(q.StaleTime),
		query.WithGCTime(q.GCTime),
		query.WithRetry(q.Retry, q.RetryDelay),
		query.WithLogger(c.logger),
		query.WithObserver(c.metrics),
	}
}

// NewQueryStore returns a long lived client store.
func (c *Container) NewQueryStore() *query.Store {
	return query.NewStore(c.QueryOptions()...)
}

// Prefetcher returns a prefetcher over the server gateway. Its stores get
// the metrics observer but no retries.
func (c *Container) Prefetcher() *prefetch.Prefetcher {
	return prefetch.New(c.gateway,
		prefetch.WithLogger(c.logger),
		prefetch.WithStoreOptions(query.WithObserver(c.metrics)),
	)
}

// NewServer builds the HTTP server.
func (c *Container) NewServer() *web.Server {
	opts := []web.Option{
		web.WithLogger(c.logger),
		web.WithSite(c.config.Site),
		web.WithMetrics(c.metrics),
		web.WithRegistry(c.registry),
		web.WithPrefetcher(c.Prefetcher()),
	}
	if c.sqlStore != nil {
		opts = append(opts, web.WithHealthCheck("database", c.sqlStore.Ping))
	}
	if c.cached != nil {
		opts = append(opts, web.WithCacheInvalidator(c.cached))
	}
	return web.New(c.gateway, opts...)
}

// Close releases the database.
func (c *Container) Close() error {
	var errs []error
	if c.sqlStore != nil {
		errs = append(errs, c.sqlStore.Close())
	}
	return errors.Join(errs...)
}
