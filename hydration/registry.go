package hydration

import (
	"fmt"
	"sync"

	"github.com/goliatone/go-notehub/cache"
	"github.com/goliatone/go-notehub/note"
)

type decodeFunc func(unmarshal func(v any) error) (any, error)

// Registry maps key kinds to the Go type their data decodes into.
type Registry struct {
	mu    sync.RWMutex
	types map[cache.Kind]decodeFunc
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[cache.Kind]decodeFunc)}
}

// DefaultRegistry knows the note kinds.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	Register[note.Note](r, cache.KindNote)
	Register[note.NotesPage](r, cache.KindNotes)
	return r
}

// Register binds kind to T.
func Register[T any](r *Registry, kind cache.Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[kind] = func(unmarshal func(v any) error) (any, error) {
		var v T
		if err := unmarshal(&v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

func (r *Registry) decode(kind cache.Kind, unmarshal func(v any) error) (any, error) {
	if r == nil {
		r = DefaultRegistry()
	}
	r.mu.RLock()
	fn, ok := r.types[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("hydration: no type registered for kind %q", kind)
	}
	return fn(unmarshal)
}
