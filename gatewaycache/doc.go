// Package gatewaycache decorates a note.Gateway with a shared read-through
// cache of upstream responses.
//
// The cache sits below the query stores: every per-request prefetch store
// still starts empty and isolated, but its gateway calls may be answered from
// recent upstream responses instead of a network round trip. Only successful
// responses are cached; NotFound and network errors reach the caller on every
// call.
//
//	svc, _ := cache.NewCacheService(cache.DefaultConfig())
//	gw := gatewaycache.New(base, svc, logger)
//
// Each cached key is registered with tags so writes made elsewhere can
// invalidate it:
//
//   - note:<id> for single note reads
//   - lists and tag:<slug> for list pages
//
// InvalidateNote drops a note and all list pages. InvalidateLists drops all
// list pages and InvalidateTag drops whatever was registered under a tag.
// The web server exposes them as POST /api/cache/invalidate.
package gatewaycache
