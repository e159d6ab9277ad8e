package query

import (
	"io"
	"log/slog"
	"time"

	"github.com/goliatone/go-notehub/note"
)

const (
	DefaultStaleTime = 0
	DefaultGCTime    = 5 * time.Minute
)

// Option configures a Store.
type Option func(*Store)

// WithStaleTime sets the default freshness window.
func WithStaleTime(d time.Duration) Option {
	return func(s *Store) { s.defaults.StaleTime = d }
}

// WithGCTime sets how long an entry without subscribers is kept.
func WithGCTime(d time.Duration) Option {
	return func(s *Store) { s.gcTime = d }
}

// WithRetry sets the default retry count and delay for failed fetches.
func WithRetry(n int, delay time.Duration) Option {
	return func(s *Store) {
		s.defaults.Retry = n
		s.defaults.RetryDelay = delay
	}
}

// WithRefetchOnMount sets the default for ReadOptions.RefetchOnMount.
func WithRefetchOnMount(v bool) Option {
	return func(s *Store) { s.defaults.RefetchOnMount = v }
}

// WithLogger sets the store logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithObserver registers fetch and cache hooks.
func WithObserver(o Observer) Option {
	return func(s *Store) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// ReadOptions control a single read.
type ReadOptions struct {
	// Enabled false suppresses fetching. The entry stays pending.
	Enabled bool
	// RefetchOnMount refetches stale or failed entries when a reader mounts.
	RefetchOnMount bool
	// StaleTime is the freshness window for this read.
	StaleTime time.Duration
	// Retry is the number of extra attempts after a failure.
	Retry int
	// RetryDelay is the pause between attempts.
	RetryDelay time.Duration
	// ShouldRetry filters which errors are retried. Nil retries everything
	// except NotFound.
	ShouldRetry func(err error) bool
}

// ReadOption mutates ReadOptions.
type ReadOption func(*ReadOptions)

// Enabled toggles fetching for a read.
func Enabled(v bool) ReadOption {
	return func(o *ReadOptions) { o.Enabled = v }
}

// RefetchOnMount toggles refetching when a reader mounts.
func RefetchOnMount(v bool) ReadOption {
	return func(o *ReadOptions) { o.RefetchOnMount = v }
}

// StaleTime overrides the freshness window.
func StaleTime(d time.Duration) ReadOption {
	return func(o *ReadOptions) { o.StaleTime = d }
}

// Retry overrides the retry policy.
func Retry(n int, delay time.Duration) ReadOption {
	return func(o *ReadOptions) {
		o.Retry = n
		o.RetryDelay = delay
	}
}

func (o ReadOptions) shouldRetry(attempt int, err error) bool {
	if attempt > o.Retry {
		return false
	}
	if o.ShouldRetry != nil {
		return o.ShouldRetry(err)
	}
	return !note.IsNotFound(err)
}

func defaultReadOptions() ReadOptions {
	return ReadOptions{
		Enabled:        true,
		RefetchOnMount: true,
		StaleTime:      DefaultStaleTime,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
