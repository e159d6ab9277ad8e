package query

import (
	"time"

	"github.com/goliatone/go-notehub/cache"
)

// Status is the lifecycle state of a cache entry.
type Status int

const (
	StatusPending Status = iota
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Result is a point in time view of one entry.
type Result struct {
	Key        cache.Key
	Status     Status
	Data       any
	Err        error
	UpdatedAt  time.Time
	IsFetching bool
}

// IsLoading reports a pending entry.
func (r Result) IsLoading() bool { return r.Status == StatusPending }

// IsError reports an entry in error state.
func (r Result) IsError() bool { return r.Status == StatusError }

// DataAs asserts the result data to T. It reports false when the entry has
// no data or holds another type.
func DataAs[T any](r Result) (T, bool) {
	v, ok := r.Data.(T)
	return v, ok
}

// Record is a settled success entry as exported for dehydration.
type Record struct {
	Key       cache.Key
	Data      any
	UpdatedAt time.Time
}
