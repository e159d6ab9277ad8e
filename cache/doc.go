// Package cache derives cache keys for note queries and defines the
// read-through contract used by the gateway response cache.
//
// # Keys
//
// Every cached query is addressed by a Key: a kind plus a fixed ordered tuple
// of segments.
//
//	cache.NoteKey("42")                       // note::42
//	cache.NotesKey(note.ListParams{Page: 1})  // notes::1::12::::all
//
// NotesKey normalizes its input before building the tuple. A missing tag is
// written as "all", a missing search as "", a zero page as 1 and a zero page
// size as note.DefaultPerPage. Two requests that mean the same thing always
// produce byte-identical keys, which is what lets a server-prefetched entry be
// found again by the client store after hydration.
//
// Keys marshal to JSON as arrays (["notes","1","12","","all"]) so they can be
// embedded in a dehydrated snapshot and decoded without parsing strings.
//
// # Read-through caching
//
// CacheService is implemented by the sturdyc adapter in internal/cacheinfra.
// The generic helper keeps call sites typed:
//
//	page, err := cache.GetOrFetch(ctx, svc, key.String(), func(ctx context.Context) (note.NotesPage, error) {
//		return gw.FetchNotes(ctx, params)
//	})
//
// A cached value with an unexpected dynamic type yields ErrInvalidResultType.
package cache
