package cache

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/go-notehub/internal/cacheinfra"
)

// Config is the `cache` section: the response cache shared by every request
// in front of the notes source. It never holds per request query state.
type Config struct {
	Enabled bool `yaml:"enabled"`
	// Capacity is the number of upstream responses kept across all shards.
	Capacity int `yaml:"capacity"`
	Shards   int `yaml:"shards"`
	// TTL is how long a note or list page is served before it is fetched again.
	TTL                time.Duration `yaml:"ttl"`
	EvictionPercentage int           `yaml:"eviction_percentage"`
	// Refresh refetches popular entries in the background before TTL. Nil
	// turns background refresh off.
	Refresh       *RefreshWindow `yaml:"refresh"`
	SweepInterval time.Duration  `yaml:"sweep_interval"`
}

// RefreshWindow bounds when a read triggers a background refresh. Entries
// older than SyncAfter are refreshed before the read returns.
type RefreshWindow struct {
	MinAge     time.Duration `yaml:"min_age"`
	MaxAge     time.Duration `yaml:"max_age"`
	SyncAfter  time.Duration `yaml:"sync_after"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// DefaultConfig enables the cache with a short TTL suited to note listings.
func DefaultConfig() Config {
	return Config{
		Enabled:            true,
		Capacity:           5000,
		Shards:             64,
		TTL:                30 * time.Second,
		EvictionPercentage: 10,
		Refresh: &RefreshWindow{
			MinAge:     10 * time.Second,
			MaxAge:     20 * time.Second,
			SyncAfter:  30 * time.Second,
			RetryDelay: 100 * time.Millisecond,
		},
	}
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Capacity, validation.Required, validation.Min(1)),
		validation.Field(&c.Shards, validation.Required, validation.Min(1)),
		validation.Field(&c.TTL, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.EvictionPercentage, validation.Required, validation.Min(1), validation.Max(100)),
		validation.Field(&c.Refresh),
		validation.Field(&c.SweepInterval, validation.Min(time.Duration(0))),
	)
}

func (w RefreshWindow) Validate() error {
	return validation.ValidateStruct(&w,
		validation.Field(&w.MinAge, validation.Min(time.Duration(0))),
		validation.Field(&w.MaxAge, validation.Min(w.MinAge).Error("must not be below min_age")),
		validation.Field(&w.SyncAfter, validation.Min(time.Duration(0))),
		validation.Field(&w.RetryDelay, validation.Min(time.Duration(0))),
	)
}

// NewCacheService builds the sturdyc backed service for cfg.
func NewCacheService(cfg Config) (CacheService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	svc, err := cacheinfra.NewSturdycService(cfg.sturdyc())
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// sturdyc maps the section onto the adapter settings. Missing record storage
// stays off: a NotFound must reach the caller on every read.
func (c Config) sturdyc() cacheinfra.Config {
	out := cacheinfra.Config{
		Capacity:           c.Capacity,
		NumShards:          c.Shards,
		TTL:                c.TTL,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.SweepInterval,
	}
	if w := c.Refresh; w != nil {
		out.EarlyRefresh = &cacheinfra.EarlyRefreshConfig{
			MinAsyncRefreshTime: w.MinAge,
			MaxAsyncRefreshTime: w.MaxAge,
			SyncRefreshTime:     w.SyncAfter,
			RetryBaseDelay:      w.RetryDelay,
		}
	}
	return out
}
