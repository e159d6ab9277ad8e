// Package session is the client side of the notes browser. A Session owns a
// long lived query store, hydrates it from a server snapshot, and keeps the
// list and note views subscribed to the keys the current route needs.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/goliatone/go-notehub/cache"
	"github.com/goliatone/go-notehub/hydration"
	"github.com/goliatone/go-notehub/note"
	"github.com/goliatone/go-notehub/notequery"
	"github.com/goliatone/go-notehub/query"
	"github.com/goliatone/go-notehub/route"
)

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// OnChange registers fn to run whenever a mounted query settles.
func OnChange(fn func(Screen)) Option {
	return func(s *Session) { s.onChange = fn }
}

// WithListReadOptions sets the read options used when the list mounts.
func WithListReadOptions(opts ...query.ReadOption) Option {
	return func(s *Session) { s.listOpts = opts }
}

type mount struct {
	key         cache.Key
	active      bool
	unsubscribe func()
}

// Session is one browser tab.
type Session struct {
	store    *query.Store
	gateway  note.Gateway
	coord    *route.Coordinator
	logger   *slog.Logger
	onChange func(Screen)
	listOpts []query.ReadOption

	mu     sync.Mutex
	list   mount
	detail mount
}

// New returns a session reading through store and gw.
func New(store *query.Store, gw note.Gateway, opts ...Option) *Session {
	s := &Session{
		store:   store,
		gateway: gw,
		coord:   route.NewCoordinator(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start mounts the page at rawURL as a direct load, seeding the store from
// snap first. A nil snapshot is fine; the views then fetch on mount.
func (s *Session) Start(ctx context.Context, rawURL string, snap *hydration.Snapshot) (Screen, error) {
	hydration.NewBoundary(snap, s.logger).Mount(s.store)

	loc, err := route.Parse(rawURL)
	if err != nil {
		return Screen{}, err
	}
	s.apply(ctx, s.coord.Enter(loc))
	return s.Screen(), nil
}

// Navigate follows an in-app link.
func (s *Session) Navigate(ctx context.Context, rawURL string) (Screen, error) {
	loc, err := route.Parse(rawURL)
	if err != nil {
		return s.Screen(), err
	}
	s.apply(ctx, s.coord.Navigate(loc))
	return s.Screen(), nil
}

// Open activates note id from the current screen.
func (s *Session) Open(ctx context.Context, id string) Screen {
	s.apply(ctx, s.coord.Activate(id))
	return s.Screen()
}

// Close dismisses the modal. It fails with route.ErrNoModal when no modal
// is open.
func (s *Session) Close(ctx context.Context) (Screen, error) {
	v, err := s.coord.Close()
	if err != nil {
		return s.Screen(), err
	}
	s.apply(ctx, v)
	return s.Screen(), nil
}

// Back goes back one history step.
func (s *Session) Back(ctx context.Context) (Screen, error) {
	v, err := s.coord.Back()
	if err != nil {
		return s.Screen(), err
	}
	s.apply(ctx, v)
	return s.Screen(), nil
}

// Reload is the user driven refresh: every cached list page is marked stale,
// the mounted list refetches at once and so does the mounted note.
func (s *Session) Reload(ctx context.Context) Screen {
	s.mu.Lock()
	detail := s.detail
	s.mu.Unlock()

	stale := s.store.InvalidatePrefix(ctx, cache.KindNotes)
	if detail.active {
		if err := s.store.Refetch(ctx, detail.key, nil); err != nil {
			s.logger.WarnContext(ctx, "note reload skipped", "key", detail.key.String(), "error", err)
		}
	}
	s.logger.DebugContext(ctx, "session reloaded", "stale_lists", stale, "note", detail.active)
	return s.Screen()
}

// Screen renders the current state without side effects.
func (s *Session) Screen() Screen {
	v := s.coord.Current()
	sc := Screen{State: v.State, Path: v.Location.Path()}

	if loc, ok := v.ListLocation(); ok {
		r := s.store.Peek(notequery.List(s.gateway, loc.Filter).Key)
		lv := &ListView{Location: loc, Status: r.Status, Err: r.Err}
		if page, ok := query.DataAs[note.NotesPage](r); ok {
			lv.Page = page
			lv.TotalPages = page.TotalPages(loc.Filter.PerPage)
		}
		sc.List = lv
	}

	if id, ok := v.NoteID(); ok {
		r := s.store.Peek(cache.NoteKey(id))
		nv := &NoteView{ID: id, Status: r.Status, Err: r.Err, Modal: v.Modal()}
		if n, ok := query.DataAs[note.Note](r); ok {
			nv.Note = n
		} else if r.Status == query.StatusSuccess {
			nv.Status = query.StatusError
		}
		sc.Note = nv
	}
	return sc
}

// Wait blocks until the fetches of the mounted views settle and returns the
// resulting screen.
func (s *Session) Wait(ctx context.Context) (Screen, error) {
	s.mu.Lock()
	var keys []cache.Key
	for _, m := range []mount{s.list, s.detail} {
		if m.active {
			keys = append(keys, m.key)
		}
	}
	s.mu.Unlock()

	var errs []error
	for _, k := range keys {
		if _, err := s.store.Await(ctx, k); err != nil {
			errs = append(errs, err)
		}
	}
	return s.Screen(), errors.Join(errs...)
}

// Dispose unsubscribes every view. The store keeps the entries until its
// GC window passes.
func (s *Session) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unmountLocked(&s.list)
	s.unmountLocked(&s.detail)
}

// apply mounts the views of v. A view whose key did not change stays
// mounted as is, so a list under a closing modal is neither remounted nor
// refetched.
func (s *Session) apply(ctx context.Context, v route.View) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if loc, ok := v.ListLocation(); ok {
		s.mountLocked(ctx, &s.list, notequery.List(s.gateway, loc.Filter), s.listOpts...)
	} else {
		s.unmountLocked(&s.list)
	}

	if id, ok := v.NoteID(); ok {
		s.mountLocked(ctx, &s.detail, notequery.Note(s.gateway, id),
			query.Enabled(id != ""),
			query.RefetchOnMount(false),
			query.Retry(0, 0),
		)
	} else {
		s.unmountLocked(&s.detail)
	}

	s.logger.DebugContext(ctx, "session navigated", "state", v.State.String(), "path", v.Location.Path())
}

func (s *Session) mountLocked(ctx context.Context, m *mount, q notequery.Query, opts ...query.ReadOption) {
	if m.active && m.key.Equal(q.Key) {
		return
	}
	s.unmountLocked(m)

	m.key = q.Key
	m.active = true
	m.unsubscribe = s.store.Subscribe(q.Key, s.notify)
	s.store.Read(ctx, q.Key, q.Fetch, opts...)
}

func (s *Session) unmountLocked(m *mount) {
	if !m.active {
		return
	}
	m.unsubscribe()
	*m = mount{}
}

func (s *Session) notify(query.Result) {
	if s.onChange != nil {
		s.onChange(s.Screen())
	}
}
