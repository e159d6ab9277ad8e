package gatewaycache

import (
	"context"
	"log/slog"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/goliatone/go-notehub/cache"
	"github.com/goliatone/go-notehub/note"
)

// Interface assertion to ensure CachedGateway implements note.Gateway
var _ note.Gateway = (*CachedGateway)(nil)

// Tag prefixes registered for every cached read.
const (
	TagNotePrefix = "note:"
	TagListPrefix = "tag:"
	TagLists      = "lists"
)

// CachedGateway decorates a note.Gateway with a shared read-through cache of
// upstream responses.
type CachedGateway struct {
	base     note.Gateway
	cache    cache.CacheService
	registry *xsync.MapOf[string, []string]
	logger   *slog.Logger
}

// New wraps base with cacheService.
func New(base note.Gateway, cacheService cache.CacheService, logger *slog.Logger) *CachedGateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedGateway{
		base:     base,
		cache:    cacheService,
		registry: xsync.NewMapOf[string, []string](),
		logger:   logger,
	}
}

// FetchNoteByID serves the note from cache or the base gateway.
func (g *CachedGateway) FetchNoteByID(ctx context.Context, id string) (note.Note, error) {
	key := cache.NoteKey(id).String()
	g.track(key, TagNotePrefix+id)
	return cache.GetOrFetch(ctx, g.cache, key, func(ctx context.Context) (note.Note, error) {
		return g.base.FetchNoteByID(ctx, id)
	})
}

// FetchNotes serves the list page from cache or the base gateway.
func (g *CachedGateway) FetchNotes(ctx context.Context, params note.ListParams) (note.NotesPage, error) {
	p := params.Normalize()
	key := cache.NotesKey(p).String()
	g.track(key, TagLists, TagListPrefix+p.Tag.Slug())
	return cache.GetOrFetch(ctx, g.cache, key, func(ctx context.Context) (note.NotesPage, error) {
		return g.base.FetchNotes(ctx, p)
	})
}

// InvalidateNote drops the cached note and every cached list, since any list
// may contain it.
func (g *CachedGateway) InvalidateNote(ctx context.Context, id string) error {
	if err := g.deleteKeys(ctx, []string{cache.NoteKey(id).String()}); err != nil {
		return err
	}
	return g.InvalidateLists(ctx)
}

// InvalidateLists drops every cached list page.
func (g *CachedGateway) InvalidateLists(ctx context.Context) error {
	return g.invalidateByPrefix(ctx, cache.Prefix(cache.KindNotes))
}

// InvalidateTag drops every cached response registered under tag.
func (g *CachedGateway) InvalidateTag(ctx context.Context, tag string) error {
	var keys []string
	g.registry.Range(func(key string, tags []string) bool {
		for _, t := range tags {
			if t == tag {
				keys = append(keys, key)
				break
			}
		}
		return true
	})
	return g.deleteKeys(ctx, keys)
}

// TrackedKeys returns the number of keys in the invalidation registry.
func (g *CachedGateway) TrackedKeys() int {
	return g.registry.Size()
}

func (g *CachedGateway) track(key string, tags ...string) {
	all := dedupeStrings(tags)
	g.registry.Compute(key, func(old []string, loaded bool) ([]string, bool) {
		if !loaded {
			return all, false
		}
		return dedupeStrings(append(old, all...)), false
	})
}

func (g *CachedGateway) invalidateByPrefix(ctx context.Context, prefix string) error {
	var keys []string
	g.registry.Range(func(key string, _ []string) bool {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return true
	})
	if err := g.cache.DeleteByPrefix(ctx, prefix); err != nil {
		return err
	}
	for _, key := range keys {
		g.registry.Delete(key)
	}
	return nil
}

func (g *CachedGateway) deleteKeys(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := g.cache.InvalidateKeys(ctx, keys); err != nil {
		g.logger.Warn("gateway cache invalidation failed", "keys", len(keys), "error", err)
		return err
	}
	for _, key := range keys {
		g.registry.Delete(key)
	}
	return nil
}
