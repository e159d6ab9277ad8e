package cacheinfra

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		Capacity:           100,
		NumShards:          2,
		TTL:                time.Minute,
		EvictionPercentage: 10,
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Capacity != 5000 {
		t.Errorf("expected Capacity to be 5000, got %d", cfg.Capacity)
	}
	if cfg.TTL != 30*time.Second {
		t.Errorf("expected TTL to be 30s, got %v", cfg.TTL)
	}
	if cfg.MissingRecordStorage {
		t.Error("expected MissingRecordStorage to be disabled")
	}
	if cfg.EarlyRefresh == nil {
		t.Fatal("expected EarlyRefresh to be configured")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "zero capacity", mutate: func(c *Config) { c.Capacity = 0 }, wantField: "Capacity"},
		{name: "zero shards", mutate: func(c *Config) { c.NumShards = 0 }, wantField: "NumShards"},
		{name: "zero ttl", mutate: func(c *Config) { c.TTL = 0 }, wantField: "TTL"},
		{name: "eviction too low", mutate: func(c *Config) { c.EvictionPercentage = 0 }, wantField: "EvictionPercentage"},
		{name: "eviction too high", mutate: func(c *Config) { c.EvictionPercentage = 101 }, wantField: "EvictionPercentage"},
		{
			name: "negative refresh",
			mutate: func(c *Config) {
				c.EarlyRefresh = &EarlyRefreshConfig{MinAsyncRefreshTime: -time.Second}
			},
			wantField: "EarlyRefresh.MinAsyncRefreshTime",
		},
		{
			name: "inverted refresh window",
			mutate: func(c *Config) {
				c.EarlyRefresh = &EarlyRefreshConfig{MinAsyncRefreshTime: 2 * time.Second, MaxAsyncRefreshTime: time.Second}
			},
			wantField: "EarlyRefresh.MaxAsyncRefreshTime",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("expected field %q, got %q", tt.wantField, cfgErr.Field)
			}
		})
	}
}

func TestConfig_ToSturdycOptions(t *testing.T) {
	if got := len(DefaultConfig().ToSturdycOptions()); got != 1 {
		t.Errorf("expected 1 option for default config, got %d", got)
	}

	cfg := testConfig()
	if got := len(cfg.ToSturdycOptions()); got != 0 {
		t.Errorf("expected no options for minimal config, got %d", got)
	}

	cfg.MissingRecordStorage = true
	cfg.EvictionInterval = time.Second
	if got := len(cfg.ToSturdycOptions()); got != 2 {
		t.Errorf("expected 2 options, got %d", got)
	}
}

func TestConfigError_Error(t *testing.T) {
	err := &ConfigError{Field: "TestField", Message: "test message"}
	if err.Error() != "config error in field TestField: test message" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestNewSturdycService_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.TTL = 0
	service, err := NewSturdycService(cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if service != nil {
		t.Error("expected nil service on error")
	}
	if !strings.Contains(err.Error(), "TTL") {
		t.Errorf("expected TTL in error, got %v", err)
	}
}

func TestSturdycService_GetOrFetch(t *testing.T) {
	service, err := NewSturdycService(testConfig())
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	ctx := context.Background()

	t.Run("miss then hit", func(t *testing.T) {
		var calls int32
		fetchFn := func(ctx context.Context) (any, error) {
			atomic.AddInt32(&calls, 1)
			return "value", nil
		}

		for i := 0; i < 3; i++ {
			result, err := service.GetOrFetch(ctx, "hit-key", fetchFn)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != "value" {
				t.Fatalf("expected value, got %v", result)
			}
		}
		if calls != 1 {
			t.Errorf("expected 1 fetch, got %d", calls)
		}
	})

	t.Run("errors are not cached", func(t *testing.T) {
		var calls int32
		fetchErr := errors.New("fetch failed")
		fetchFn := func(ctx context.Context) (any, error) {
			atomic.AddInt32(&calls, 1)
			return nil, fetchErr
		}

		for i := 0; i < 2; i++ {
			if _, err := service.GetOrFetch(ctx, "error-key", fetchFn); !errors.Is(err, fetchErr) {
				t.Fatalf("expected fetch error, got %v", err)
			}
		}
		if calls != 2 {
			t.Errorf("expected 2 fetches, got %d", calls)
		}
	})

	t.Run("nil fetch function", func(t *testing.T) {
		_, err := service.GetOrFetch(ctx, "nil-key", nil)
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) || cfgErr.Field != "fetchFn" {
			t.Fatalf("expected fetchFn ConfigError, got %v", err)
		}
	})

	t.Run("concurrent callers share one fetch", func(t *testing.T) {
		var calls int32
		release := make(chan struct{})
		fetchFn := func(ctx context.Context) (any, error) {
			atomic.AddInt32(&calls, 1)
			<-release
			return 7, nil
		}

		var wg sync.WaitGroup
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = service.GetOrFetch(ctx, "shared-key", fetchFn)
			}()
		}
		time.Sleep(20 * time.Millisecond)
		close(release)
		wg.Wait()

		if calls != 1 {
			t.Errorf("expected 1 fetch, got %d", calls)
		}
	})
}

func TestSturdycService_Invalidation(t *testing.T) {
	service, err := NewSturdycService(testConfig())
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	ctx := context.Background()

	for _, key := range []string{"notes::1", "notes::2", "note::a"} {
		k := key
		if _, err := service.GetOrFetch(ctx, k, func(context.Context) (any, error) { return k, nil }); err != nil {
			t.Fatalf("seed %s: %v", k, err)
		}
	}
	if service.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", service.Len())
	}

	if err := service.DeleteByPrefix(ctx, "notes::"); err != nil {
		t.Fatalf("DeleteByPrefix: %v", err)
	}
	if service.Len() != 1 {
		t.Errorf("expected 1 entry after prefix delete, got %d", service.Len())
	}

	if err := service.InvalidateKeys(ctx, []string{"note::a"}); err != nil {
		t.Fatalf("InvalidateKeys: %v", err)
	}
	if service.Len() != 0 {
		t.Errorf("expected empty cache, got %d", service.Len())
	}
}
