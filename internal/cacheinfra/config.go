package cacheinfra

import (
	"time"

	"github.com/viccon/sturdyc"
)

// Config holds the sturdyc settings for the gateway response cache.
type Config struct {
	// Capacity is the maximum number of upstream responses held. Must be > 0.
	Capacity int
	// NumShards splits the cache for concurrent access. Must be > 0.
	NumShards int
	// TTL bounds how long an upstream response is served without refetching.
	TTL time.Duration
	// EvictionPercentage is the share of entries dropped when Capacity is hit (1-100).
	EvictionPercentage int
	// EarlyRefresh refreshes hot entries in the background before they expire.
	// Nil disables it.
	EarlyRefresh *EarlyRefreshConfig
	// MissingRecordStorage remembers keys whose fetch reported sturdyc.ErrNotFound.
	MissingRecordStorage bool
	// EvictionInterval overrides sturdyc's expiry sweep period when > 0.
	EvictionInterval time.Duration
}

// EarlyRefreshConfig maps onto sturdyc.WithEarlyRefreshes.
type EarlyRefreshConfig struct {
	MinAsyncRefreshTime time.Duration
	MaxAsyncRefreshTime time.Duration
	SyncRefreshTime     time.Duration
	RetryBaseDelay      time.Duration
}

// DefaultConfig is tuned for note API responses: short TTL, no missing record
// storage since NotFound must reach the caller as an error every time.
func DefaultConfig() Config {
	return Config{
		Capacity:           5000,
		NumShards:          64,
		TTL:                30 * time.Second,
		EvictionPercentage: 10,
		EarlyRefresh: &EarlyRefreshConfig{
			MinAsyncRefreshTime: 10 * time.Second,
			MaxAsyncRefreshTime: 20 * time.Second,
			SyncRefreshTime:     30 * time.Second,
			RetryBaseDelay:      100 * time.Millisecond,
		},
		MissingRecordStorage: false,
		EvictionInterval:     0,
	}
}

// ToSturdycOptions converts the optional settings. Capacity, NumShards, TTL
// and EvictionPercentage go straight to sturdyc.New.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.EarlyRefresh != nil {
		options = append(options, sturdyc.WithEarlyRefreshes(
			c.EarlyRefresh.MinAsyncRefreshTime,
			c.EarlyRefresh.MaxAsyncRefreshTime,
			c.EarlyRefresh.SyncRefreshTime,
			c.EarlyRefresh.RetryBaseDelay,
		))
	}

	if c.MissingRecordStorage {
		options = append(options, sturdyc.WithMissingRecordStorage())
	}

	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}

	return options
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}
	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}
	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}
	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}
	if e := c.EarlyRefresh; e != nil {
		for field, d := range map[string]time.Duration{
			"EarlyRefresh.MinAsyncRefreshTime": e.MinAsyncRefreshTime,
			"EarlyRefresh.MaxAsyncRefreshTime": e.MaxAsyncRefreshTime,
			"EarlyRefresh.SyncRefreshTime":     e.SyncRefreshTime,
			"EarlyRefresh.RetryBaseDelay":      e.RetryBaseDelay,
		} {
			if d < 0 {
				return &ConfigError{Field: field, Message: "must be non-negative"}
			}
		}
		if e.MaxAsyncRefreshTime < e.MinAsyncRefreshTime {
			return &ConfigError{Field: "EarlyRefresh.MaxAsyncRefreshTime", Message: "must not be below MinAsyncRefreshTime"}
		}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}
