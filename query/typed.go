package query

import (
	"context"

	"github.com/goliatone/go-notehub/cache"
)

// Fn adapts a typed fetch function to FetchFunc.
func Fn[T any](fn func(ctx context.Context) (T, error)) FetchFunc {
	return func(ctx context.Context) (any, error) {
		return fn(ctx)
	}
}

// FetchAs is Fetch with a typed result.
func FetchAs[T any](ctx context.Context, s *Store, key cache.Key, fn func(ctx context.Context) (T, error), opts ...ReadOption) (T, error) {
	var zero T
	v, err := s.Fetch(ctx, key, Fn(fn), opts...)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, cache.ErrInvalidResultType
	}
	return typed, nil
}
