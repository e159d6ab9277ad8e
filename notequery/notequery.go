// Package notequery pairs each note query with its cache key. The server
// prefetch stage and the client session both build queries here, so the
// key a page was prefetched under is the key the client reads.
package notequery

import (
	"context"

	"github.com/goliatone/go-notehub/cache"
	"github.com/goliatone/go-notehub/note"
	"github.com/goliatone/go-notehub/query"
)

// Query is a cache key and the gateway call that fills it.
type Query struct {
	Key   cache.Key
	Fetch query.FetchFunc
}

// Note is the single note query.
func Note(gw note.Gateway, id string) Query {
	return Query{
		Key: cache.NoteKey(id),
		Fetch: query.Fn(func(ctx context.Context) (note.Note, error) {
			return gw.FetchNoteByID(ctx, id)
		}),
	}
}

// List is the list page query. Params are normalized once so the key and
// the gateway call agree.
func List(gw note.Gateway, params note.ListParams) Query {
	p := params.Normalize()
	return Query{
		Key: cache.NotesKey(p),
		Fetch: query.Fn(func(ctx context.Context) (note.NotesPage, error) {
			return gw.FetchNotes(ctx, p)
		}),
	}
}
