package query

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/goliatone/go-notehub/cache"
)

// ErrNoFetcher is returned by Refetch when the entry was never read with a
// fetch function and none was supplied.
var ErrNoFetcher = errors.New("query: no fetch function for key")

// FetchFunc loads the value for one key.
type FetchFunc func(ctx context.Context) (any, error)

// Listener is called with the new state of an entry after it changes.
// Listeners run on the goroutine that settled the change.
type Listener func(Result)

// Store is a keyed query cache. It is safe for concurrent use.
type Store struct {
	entries  *xsync.MapOf[string, *entry]
	defaults ReadOptions
	gcTime   time.Duration
	now      func() time.Time
	logger   *slog.Logger
	observer Observer

	subSeq   uint64
	subSeqMu sync.Mutex
}

type entry struct {
	mu            sync.Mutex
	key           cache.Key
	status        Status
	data          any
	err           error
	updatedAt     time.Time
	hydrated      bool
	invalidated   bool
	gen           uint64
	call          *call
	fetch         FetchFunc
	opts          ReadOptions
	subs          map[uint64]Listener
	inactiveSince time.Time
	removed       bool
}

type call struct {
	gen     uint64
	done    chan struct{}
	data    any
	err     error
	started time.Time
}

// NewStore builds an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		entries:  xsync.NewMapOf[string, *entry](),
		defaults: defaultReadOptions(),
		gcTime:   DefaultGCTime,
		now:      time.Now,
		logger:   discardLogger(),
		observer: NopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// acquire returns the locked entry for key, creating it when absent.
func (s *Store) acquire(key cache.Key) *entry {
	id := key.String()
	for {
		e, _ := s.entries.LoadOrCompute(id, func() *entry {
			return &entry{key: key, inactiveSince: s.now()}
		})
		e.mu.Lock()
		if !e.removed {
			return e
		}
		e.mu.Unlock()
	}
}

func (s *Store) readOptions(opts []ReadOption) ReadOptions {
	o := s.defaults
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Read is the mount time read. It returns the current state of key and, when
// the entry is missing, stale or failed, starts a background fetch. Concurrent
// reads of a key with a fetch in flight attach to that fetch.
func (s *Store) Read(ctx context.Context, key cache.Key, fetch FetchFunc, opts ...ReadOption) Result {
	o := s.readOptions(opts)

	e := s.acquire(key)
	defer e.mu.Unlock()

	if fetch != nil {
		e.fetch = fetch
		e.opts = o
	}
	if !o.Enabled || fetch == nil {
		return e.resultLocked()
	}

	switch {
	case e.call != nil:
	case e.status == StatusSuccess:
		fresh := e.hydrated || (!e.invalidated && s.now().Sub(e.updatedAt) < o.StaleTime)
		e.hydrated = false
		if fresh || !o.RefetchOnMount {
			s.observer.CacheHit(key)
			break
		}
		s.startLocked(ctx, e, fetch, o)
	case e.status == StatusPending || o.RefetchOnMount:
		s.startLocked(ctx, e, fetch, o)
	}

	return e.resultLocked()
}

// Fetch returns the value for key, fetching it when there is no fresh success
// entry, and waits for the outcome. It shares an in-flight fetch if one exists.
func (s *Store) Fetch(ctx context.Context, key cache.Key, fetch FetchFunc, opts ...ReadOption) (any, error) {
	o := s.readOptions(opts)

	e := s.acquire(key)
	if fetch != nil {
		e.fetch = fetch
		e.opts = o
	}
	c := e.call
	if c == nil {
		if e.status == StatusSuccess && !e.invalidated && (e.hydrated || s.now().Sub(e.updatedAt) < o.StaleTime) {
			data := e.data
			e.mu.Unlock()
			s.observer.CacheHit(key)
			return data, nil
		}
		if fetch == nil {
			e.mu.Unlock()
			return nil, ErrNoFetcher
		}
		c = s.startLocked(ctx, e, fetch, o)
	}
	e.mu.Unlock()

	select {
	case <-c.done:
		return c.data, c.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Await blocks until the fetch currently in flight for key settles and
// returns the resulting state. Without a fetch in flight it returns at once.
func (s *Store) Await(ctx context.Context, key cache.Key) (Result, error) {
	for {
		e, ok := s.entries.Load(key.String())
		if !ok {
			return Result{Key: key, Status: StatusPending}, nil
		}
		e.mu.Lock()
		c := e.call
		if c == nil {
			r := e.resultLocked()
			e.mu.Unlock()
			return r, nil
		}
		e.mu.Unlock()

		select {
		case <-c.done:
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
}

// Refetch starts a new fetch for key even if one is in flight. The older
// fetch keeps running but its result is discarded. A nil fetch reuses the
// function from the last read.
func (s *Store) Refetch(ctx context.Context, key cache.Key, fetch FetchFunc) error {
	e := s.acquire(key)
	defer e.mu.Unlock()

	if fetch == nil {
		fetch = e.fetch
	}
	if fetch == nil {
		return ErrNoFetcher
	}
	o := e.opts
	if e.fetch == nil {
		o = s.defaults
	}
	e.fetch = fetch
	s.startLocked(ctx, e, fetch, o)
	return nil
}

// Peek returns the state of key without side effects.
func (s *Store) Peek(key cache.Key) Result {
	e, ok := s.entries.Load(key.String())
	if !ok {
		return Result{Key: key, Status: StatusPending}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resultLocked()
}

// Subscribe registers l for changes to key. The returned function removes it.
// An entry with no subscribers becomes eligible for eviction after the GC
// window.
func (s *Store) Subscribe(key cache.Key, l Listener) (unsubscribe func()) {
	s.subSeqMu.Lock()
	s.subSeq++
	id := s.subSeq
	s.subSeqMu.Unlock()

	e := s.acquire(key)
	if e.subs == nil {
		e.subs = make(map[uint64]Listener)
	}
	e.subs[id] = l
	e.inactiveSince = time.Time{}
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			delete(e.subs, id)
			if len(e.subs) == 0 {
				e.inactiveSince = s.now()
			}
		})
	}
}

// Hydrate adopts a server value for key unless the store already holds a
// success value at least as new. It reports whether the value was adopted.
func (s *Store) Hydrate(key cache.Key, data any, updatedAt time.Time) bool {
	e := s.acquire(key)
	if e.status == StatusSuccess && !e.updatedAt.Before(updatedAt) {
		e.mu.Unlock()
		s.observer.Hydrated(key, false)
		return false
	}
	e.applySuccessLocked(data, updatedAt)
	e.hydrated = true
	listeners, r := e.listenersLocked(), e.resultLocked()
	e.mu.Unlock()

	s.observer.Hydrated(key, true)
	notify(listeners, r)
	return true
}

// Invalidate marks key stale. Subscribed entries are refetched immediately.
func (s *Store) Invalidate(ctx context.Context, key cache.Key) {
	e, ok := s.entries.Load(key.String())
	if !ok {
		return
	}
	s.invalidate(ctx, e)
}

// InvalidatePrefix invalidates every key of the given kind.
func (s *Store) InvalidatePrefix(ctx context.Context, kind cache.Kind) int {
	prefix := cache.Prefix(kind)
	var matched []*entry
	s.entries.Range(func(id string, e *entry) bool {
		if strings.HasPrefix(id, prefix) {
			matched = append(matched, e)
		}
		return true
	})
	for _, e := range matched {
		s.invalidate(ctx, e)
	}
	return len(matched)
}

func (s *Store) invalidate(ctx context.Context, e *entry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return
	}
	e.invalidated = true
	e.hydrated = false
	if len(e.subs) > 0 && e.fetch != nil {
		s.startLocked(ctx, e, e.fetch, e.opts)
	}
}

// Records returns the settled success entries ordered by key.
func (s *Store) Records() []Record {
	var records []Record
	s.entries.Range(func(_ string, e *entry) bool {
		e.mu.Lock()
		if !e.removed && e.status == StatusSuccess {
			records = append(records, Record{Key: e.key, Data: e.data, UpdatedAt: e.updatedAt})
		}
		e.mu.Unlock()
		return true
	})
	sort.Slice(records, func(i, j int) bool {
		return records[i].Key.String() < records[j].Key.String()
	})
	return records
}

// Len returns the number of entries.
func (s *Store) Len() int {
	return s.entries.Size()
}

// Collect evicts entries that have had no subscribers and no fetch in flight
// for at least the GC window. It returns the number evicted.
func (s *Store) Collect() int {
	now := s.now()
	evicted := 0
	s.entries.Range(func(id string, e *entry) bool {
		e.mu.Lock()
		expired := !e.removed &&
			len(e.subs) == 0 &&
			e.call == nil &&
			!e.inactiveSince.IsZero() &&
			now.Sub(e.inactiveSince) >= s.gcTime
		if expired {
			e.removed = true
		}
		e.mu.Unlock()

		if expired {
			s.entries.Compute(id, func(cur *entry, loaded bool) (*entry, bool) {
				return cur, loaded && cur == e
			})
			s.observer.Evicted(e.key)
			evicted++
		}
		return true
	})
	if evicted > 0 {
		s.logger.Debug("query store collected entries", "evicted", evicted, "remaining", s.entries.Size())
	}
	return evicted
}

// Run collects expired entries every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = s.gcTime / 2
	}
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Collect()
		}
	}
}

func (s *Store) startLocked(ctx context.Context, e *entry, fetch FetchFunc, o ReadOptions) *call {
	e.gen++
	c := &call{gen: e.gen, done: make(chan struct{}), started: s.now()}
	e.call = c
	s.observer.FetchStarted(e.key)

	go s.run(context.WithoutCancel(ctx), e, c, fetch, o)
	return c
}

func (s *Store) run(ctx context.Context, e *entry, c *call, fetch FetchFunc, o ReadOptions) {
	data, err := fetchWithRetry(ctx, fetch, o)
	c.data, c.err = data, err

	e.mu.Lock()
	applied := c.gen == e.gen
	if applied {
		if err != nil {
			e.status = StatusError
			e.err = err
			e.data = nil
		} else {
			e.applySuccessLocked(data, s.now())
		}
	}
	if e.call == c {
		e.call = nil
	}
	var listeners []Listener
	var r Result
	if applied {
		listeners, r = e.listenersLocked(), e.resultLocked()
	}
	if len(e.subs) == 0 && e.inactiveSince.IsZero() {
		e.inactiveSince = s.now()
	}
	key := e.key
	e.mu.Unlock()

	close(c.done)
	s.observer.FetchSettled(key, err, s.now().Sub(c.started), applied)

	if !applied {
		s.logger.Debug("discarded stale query result", "key", key.String(), "generation", c.gen)
		return
	}
	if err != nil {
		s.logger.Debug("query fetch failed", "key", key.String(), "error", err)
	}
	notify(listeners, r)
}

func fetchWithRetry(ctx context.Context, fetch FetchFunc, o ReadOptions) (any, error) {
	for attempt := 1; ; attempt++ {
		data, err := fetch(ctx)
		if err == nil {
			return data, nil
		}
		if !o.shouldRetry(attempt, err) {
			return nil, err
		}
		if o.RetryDelay > 0 {
			select {
			case <-time.After(o.RetryDelay):
			case <-ctx.Done():
				return nil, err
			}
		}
	}
}

func (e *entry) applySuccessLocked(data any, at time.Time) {
	e.status = StatusSuccess
	e.data = data
	e.err = nil
	e.updatedAt = at
	e.hydrated = false
	e.invalidated = false
}

func (e *entry) resultLocked() Result {
	return Result{
		Key:        e.key,
		Status:     e.status,
		Data:       e.data,
		Err:        e.err,
		UpdatedAt:  e.updatedAt,
		IsFetching: e.call != nil,
	}
}

func (e *entry) listenersLocked() []Listener {
	if len(e.subs) == 0 {
		return nil
	}
	ids := make([]uint64, 0, len(e.subs))
	for id := range e.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]Listener, 0, len(ids))
	for _, id := range ids {
		out = append(out, e.subs[id])
	}
	return out
}

func notify(listeners []Listener, r Result) {
	for _, l := range listeners {
		l(r)
	}
}
