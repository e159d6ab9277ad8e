// Package query implements the client query store: a keyed cache of query
// results with per-key status, de-duplication of concurrent fetches, freshness
// windows, subscriptions and inactivity based eviction.
//
// A Store is a lifecycle scoped object. The server builds one per request for
// prefetching and throws it away; a client session builds one and keeps it.
// Stores never share state.
//
// Each fetch started for a key is tagged with a generation number. When a
// fetch settles, its result is applied only if no newer fetch for the same key
// was started in the meantime, so a slow stale response can never overwrite
// fresher data. Fetches are not cancelled when readers go away; their result
// is still stored.
package query
