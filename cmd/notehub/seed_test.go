package main

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/goliatone/go-notehub/cache"
	"github.com/goliatone/go-notehub/gatewaycache"
	"github.com/goliatone/go-notehub/note"
	"github.com/goliatone/go-notehub/pkg/logging"
	"github.com/goliatone/go-notehub/pkg/testsupport"
	"github.com/goliatone/go-notehub/web"
)

func TestNotifyServerDropsCachedLists(t *testing.T) {
	svc, err := cache.NewCacheService(cache.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	base := testsupport.NewFakeGateway(testsupport.SampleNotes())
	cached := gatewaycache.New(base, svc, logging.Discard())
	srv := httptest.NewServer(web.New(cached, web.WithLogger(logging.Discard()), web.WithCacheInvalidator(cached)))
	defer srv.Close()

	ctx := context.Background()
	cached.FetchNotes(ctx, note.ListParams{})
	cached.FetchNotes(ctx, note.ListParams{})
	if base.ListCalls() != 1 {
		t.Fatalf("expected a cached list, got %d calls", base.ListCalls())
	}

	scope, err := notifyServer(ctx, srv.URL+"/")
	if err != nil {
		t.Fatalf("notifyServer: %v", err)
	}
	if scope != gatewaycache.TagLists {
		t.Errorf("scope = %q", scope)
	}
	cached.FetchNotes(ctx, note.ListParams{})
	if base.ListCalls() != 2 {
		t.Errorf("list should be refetched after notify, got %d calls", base.ListCalls())
	}
}

func TestNotifyServerWithoutCache(t *testing.T) {
	srv := httptest.NewServer(web.New(testsupport.NewFakeGateway(nil), web.WithLogger(logging.Discard())))
	defer srv.Close()

	if _, err := notifyServer(context.Background(), srv.URL); err == nil {
		t.Error("expected an error when the server has no gateway cache")
	}
}
