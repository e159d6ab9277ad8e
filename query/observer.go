package query

import (
	"time"

	"github.com/goliatone/go-notehub/cache"
)

// Observer receives store events. Implementations must be safe for
// concurrent use and must not call back into the store.
type Observer interface {
	CacheHit(key cache.Key)
	FetchStarted(key cache.Key)
	FetchSettled(key cache.Key, err error, elapsed time.Duration, applied bool)
	Hydrated(key cache.Key, adopted bool)
	Evicted(key cache.Key)
}

// NopObserver ignores all events.
type NopObserver struct{}

func (NopObserver) CacheHit(cache.Key)                                {}
func (NopObserver) FetchStarted(cache.Key)                            {}
func (NopObserver) FetchSettled(cache.Key, error, time.Duration, bool) {}
func (NopObserver) Hydrated(cache.Key, bool)                          {}
func (NopObserver) Evicted(cache.Key)                                 {}
