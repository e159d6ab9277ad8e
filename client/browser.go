package client

import (
	"context"
	"net/url"

	"github.com/goliatone/go-notehub/note"
	"github.com/goliatone/go-notehub/query"
	"github.com/goliatone/go-notehub/session"
)

// Browser pairs a page loader with a session, like one browser tab: the
// first Visit hydrates the session's store, later navigation is in-app.
type Browser struct {
	Loader  *Loader
	Session *session.Session
	Page    Page
}

// NewBrowser returns a browser whose session reads through gw into store.
func NewBrowser(loader *Loader, store *query.Store, gw note.Gateway, opts ...session.Option) *Browser {
	return &Browser{
		Loader:  loader,
		Session: session.New(store, gw, opts...),
	}
}

// Visit loads rawURL and starts the session on it.
func (b *Browser) Visit(ctx context.Context, rawURL string) (session.Screen, error) {
	page, err := b.Loader.Load(ctx, rawURL)
	if err != nil {
		return session.Screen{}, err
	}
	b.Page = page
	return b.Session.Start(ctx, page.Path(), page.Snapshot)
}

// APIBase derives the notes API root from a page URL on the same host.
func APIBase(pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}
	return (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/api"}).String(), nil
}
