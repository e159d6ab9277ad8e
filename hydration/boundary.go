package hydration

import (
	"log/slog"

	"github.com/goliatone/go-notehub/query"
)

// Boundary seeds a client store from a server snapshot on mount.
type Boundary struct {
	snapshot *Snapshot
	logger   *slog.Logger
}

// NewBoundary wraps snap. A nil snapshot mounts as a no-op.
func NewBoundary(snap *Snapshot, logger *slog.Logger) *Boundary {
	if logger == nil {
		logger = slog.Default()
	}
	return &Boundary{snapshot: snap, logger: logger}
}

// Mount merges the snapshot into store. For each entry the store keeps its
// own value when it already holds a success entry at least as new; otherwise
// it adopts the snapshot value. The merge runs once per snapshot; later calls
// return 0.
func (b *Boundary) Mount(store *query.Store) int {
	if b.snapshot == nil || !b.snapshot.claim() {
		return 0
	}
	adopted := 0
	for _, e := range b.snapshot.Entries {
		if store.Hydrate(e.Key, e.Data, e.UpdatedAt) {
			adopted++
		}
	}
	b.logger.Debug("hydrated query store", "entries", len(b.snapshot.Entries), "adopted", adopted)
	return adopted
}
