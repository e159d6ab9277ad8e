// Package config loads the notehub configuration from YAML, applies
// environment overrides and validates the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-notehub/cache"
	"github.com/goliatone/go-notehub/internal/store/sqlstore"
	"github.com/goliatone/go-notehub/metadata"
	"github.com/goliatone/go-notehub/pkg/logging"
)

const (
	SourceSQL    = "sql"
	SourceHTTP   = "http"
	SourceMemory = "memory"

	EnvPrefix = "NOTEHUB_"
)

// Config is the full application configuration.
type Config struct {
	Server   ServerConfig     `yaml:"server"`
	Gateway  GatewayConfig    `yaml:"gateway"`
	Database sqlstore.Options `yaml:"database"`
	Cache    cache.Config     `yaml:"cache"`
	Query    QueryConfig      `yaml:"query"`
	Site     metadata.Site    `yaml:"site"`
	Log      logging.Config   `yaml:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// GatewayConfig selects where note data comes from: the SQL database, an
// upstream notes API, or the built in sample set.
type GatewayConfig struct {
	Source  string        `yaml:"source"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// QueryConfig holds query store defaults.
type QueryConfig struct {
	StaleTime       time.Duration `yaml:"stale_time"`
	GCTime          time.Duration `yaml:"gc_time"`
	Retry           int           `yaml:"retry"`
	RetryDelay      time.Duration `yaml:"retry_delay"`
	CollectInterval time.Duration `yaml:"collect_interval"`
}

// Default returns a configuration that runs against a local SQLite file.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Gateway: GatewayConfig{
			Source:  SourceSQL,
			Timeout: 10 * time.Second,
		},
		Database: sqlstore.Options{
			Driver: sqlstore.DriverSQLite,
			DSN:    "file:notehub.db?cache=shared",
		},
		Cache: cache.DefaultConfig(),
		Query: QueryConfig{
			StaleTime:       time.Minute,
			GCTime:          5 * time.Minute,
			Retry:           1,
			RetryDelay:      200 * time.Millisecond,
			CollectInterval: time.Minute,
		},
		Site: metadata.DefaultSite(),
		Log:  logging.DefaultConfig(),
	}
}

// Load reads path over the defaults. An empty path skips the file. The
// environment is applied last.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from NOTEHUB_* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	str("ADDR", &c.Server.Addr)
	str("GATEWAY_SOURCE", &c.Gateway.Source)
	str("GATEWAY_URL", &c.Gateway.BaseURL)
	str("DB_DRIVER", &c.Database.Driver)
	str("DB_DSN", &c.Database.DSN)
	str("SITE_URL", &c.Site.URL)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	if v, ok := lookup(EnvPrefix + "CACHE_ENABLED"); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: %sCACHE_ENABLED: %w", EnvPrefix, err)
		}
		c.Cache.Enabled = enabled
	}
	return nil
}

// Validate checks every section.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Server),
		validation.Field(&c.Gateway),
		validation.Field(&c.Query),
		validation.Field(&c.Site, siteRule),
	)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Gateway.Source == SourceSQL {
		if err := validation.ValidateStruct(&c.Database,
			validation.Field(&c.Database.Driver, validation.Required, validation.In(sqlstore.DriverSQLite, sqlstore.DriverPostgres)),
			validation.Field(&c.Database.DSN, validation.Required),
		); err != nil {
			return fmt.Errorf("config: database: %w", err)
		}
	}
	if c.Cache.Enabled {
		if err := c.Cache.Validate(); err != nil {
			return fmt.Errorf("config: cache: %w", err)
		}
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func (s ServerConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Addr, validation.Required),
		validation.Field(&s.ReadTimeout, validation.Min(time.Duration(0))),
		validation.Field(&s.WriteTimeout, validation.Min(time.Duration(0))),
	)
}

func (g GatewayConfig) Validate() error {
	return validation.ValidateStruct(&g,
		validation.Field(&g.Source, validation.Required, validation.In(SourceSQL, SourceHTTP, SourceMemory)),
		validation.Field(&g.BaseURL, validation.When(g.Source == SourceHTTP, validation.Required)),
		validation.Field(&g.Timeout, validation.Min(time.Duration(0))),
	)
}

func (q QueryConfig) Validate() error {
	return validation.ValidateStruct(&q,
		validation.Field(&q.StaleTime, validation.Min(time.Duration(0))),
		validation.Field(&q.GCTime, validation.Min(time.Duration(0))),
		validation.Field(&q.Retry, validation.Min(0), validation.Max(10)),
	)
}

// ErrNoSite is returned when the site section lost its URL.
var ErrNoSite = errors.New("site url is required")

// siteRule validates metadata.Site, which lives outside this package.
var siteRule = validation.By(func(value any) error {
	site, _ := value.(metadata.Site)
	if site.URL == "" {
		return ErrNoSite
	}
	return nil
})
