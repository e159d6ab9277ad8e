// Package hydration moves settled query results from a server side store to
// a client side store. Dehydrate captures a store's success entries into a
// Snapshot; a Boundary merges a Snapshot into another store exactly once.
package hydration

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/goliatone/go-notehub/cache"
	"github.com/goliatone/go-notehub/query"
)

// Entry is one dehydrated query.
type Entry struct {
	Key       cache.Key
	Data      any
	UpdatedAt time.Time
}

// Snapshot is an ordered set of dehydrated success entries. It can be
// consumed by at most one Boundary.
type Snapshot struct {
	Entries []Entry

	consumed atomic.Bool
}

// Dehydrate captures every success entry of store, ordered by key. Pending
// and failed entries are left out.
func Dehydrate(store *query.Store) *Snapshot {
	records := store.Records()
	snap := &Snapshot{Entries: make([]Entry, 0, len(records))}
	for _, r := range records {
		snap.Entries = append(snap.Entries, Entry{Key: r.Key, Data: r.Data, UpdatedAt: r.UpdatedAt})
	}
	return snap
}

// Len returns the number of entries.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Entries)
}

// Lookup finds the entry for key.
func (s *Snapshot) Lookup(key cache.Key) (Entry, bool) {
	if s == nil {
		return Entry{}, false
	}
	for _, e := range s.Entries {
		if e.Key.Equal(key) {
			return e, true
		}
	}
	return Entry{}, false
}

// claim marks the snapshot consumed and reports whether this caller won.
func (s *Snapshot) claim() bool {
	return s.consumed.CompareAndSwap(false, true)
}

// Consumed reports whether a boundary already merged this snapshot.
func (s *Snapshot) Consumed() bool {
	return s.consumed.Load()
}

// Checksum hashes the key and JSON data of every entry. Fetch timestamps are
// left out so equal data yields an equal checksum; it is used as an ETag.
func Checksum(s *Snapshot) (uint64, error) {
	d := xxhash.New()
	if s == nil {
		return d.Sum64(), nil
	}
	for _, e := range s.Entries {
		data, err := json.Marshal(e.Data)
		if err != nil {
			return 0, fmt.Errorf("hydration: checksum %s: %w", e.Key, err)
		}
		d.WriteString(e.Key.String())
		d.Write([]byte{0})
		d.Write(data)
		d.Write([]byte{0})
	}
	return d.Sum64(), nil
}

// ETag formats a checksum as a strong HTTP entity tag.
func ETag(sum uint64) string {
	return fmt.Sprintf("\"%016x\"", sum)
}
