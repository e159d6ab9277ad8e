package di

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-notehub/config"
	"github.com/goliatone/go-notehub/gatewaycache"
	"github.com/goliatone/go-notehub/internal/store/sqlstore"
	"github.com/goliatone/go-notehub/note"
	"github.com/goliatone/go-notehub/pkg/logging"
	"github.com/goliatone/go-notehub/pkg/testsupport"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Gateway.Source = config.SourceMemory
	cfg.Cache.Refresh = nil
	return cfg
}

func TestNewContainer(t *testing.T) {
	container, err := NewContainer(context.Background(), testConfig(), WithLogger(logging.Discard()))
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}
	defer container.Close()

	if container.CacheService() == nil || container.CachedGateway() == nil {
		t.Fatal("cache should be wired when enabled")
	}
	if container.Gateway() != container.CachedGateway() {
		t.Error("server gateway should be the cached one")
	}
	if container.SQLStore() == nil {
		t.Fatal("memory source should use an in-memory sql store")
	}

	page, err := container.Gateway().FetchNotes(context.Background(), note.ListParams{})
	if err != nil {
		t.Fatalf("FetchNotes() failed: %v", err)
	}
	if page.Total != 15 || len(page.Notes) != note.DefaultPerPage {
		t.Errorf("expected seeded notes, got total=%d len=%d", page.Total, len(page.Notes))
	}
}

func TestNewContainerWithDefaults(t *testing.T) {
	container, err := NewContainerWithDefaults(context.Background())
	if err != nil {
		t.Fatalf("NewContainerWithDefaults() failed: %v", err)
	}
	defer container.Close()

	got := container.Config()
	want := config.Default()
	if got.Cache.Capacity != want.Cache.Capacity || got.Query.GCTime != want.Query.GCTime {
		t.Errorf("expected default config, got %+v", got)
	}
}

func TestNewContainerWithoutCache(t *testing.T) {
	cfg := testConfig()
	cfg.Cache.Enabled = false
	gw := testsupport.NewFakeGateway(testsupport.SampleNotes())

	container, err := NewContainer(context.Background(), cfg, WithLogger(logging.Discard()), WithGateway(gw))
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}
	if container.CacheService() != nil {
		t.Error("cache service should be nil when disabled")
	}
	if container.Gateway() != gw {
		t.Error("gateway should be the supplied one")
	}
	if container.SQLStore() != nil {
		t.Error("no sql store expected with a supplied gateway")
	}
}

func TestNewContainer_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Cache.Capacity = 0

	if _, err := NewContainer(context.Background(), cfg); err == nil {
		t.Error("NewContainer() should fail with invalid cache config")
	}

	cfg = testConfig()
	cfg.Gateway.Source = config.SourceHTTP
	if _, err := NewContainer(context.Background(), cfg); err == nil {
		t.Error("NewContainer() should fail without an upstream url")
	}
}

func TestContainerSingletonBehavior(t *testing.T) {
	container, err := NewContainer(context.Background(), testConfig(), WithLogger(logging.Discard()))
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}
	defer container.Close()

	if container.CacheService() != container.CacheService() {
		t.Error("CacheService() should return the same instance")
	}
	if container.Metrics() != container.Metrics() {
		t.Error("Metrics() should return the same instance")
	}
	if container.NewQueryStore() == container.NewQueryStore() {
		t.Error("NewQueryStore() should return a fresh store per call")
	}
}

// Pages rendered through the container share the upstream response cache
// while every request still gets its own prefetch store.
func TestServerSharesGatewayCache(t *testing.T) {
	gw := testsupport.NewFakeGateway(testsupport.SampleNotes())
	container, err := NewContainer(context.Background(), testConfig(), WithLogger(logging.Discard()), WithGateway(gw))
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}
	srv := httptest.NewServer(container.NewServer())
	defer srv.Close()

	for i := 0; i < 3; i++ {
		resp, err := http.Get(srv.URL + "/notes/filter/work")
		if err != nil {
			t.Fatalf("GET failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
	}
	if gw.ListCalls() != 1 {
		t.Errorf("expected one upstream list call, got %d", gw.ListCalls())
	}

	if err := container.CachedGateway().InvalidateTag(context.Background(), gatewaycache.TagListPrefix+"work"); err != nil {
		t.Fatalf("InvalidateTag() failed: %v", err)
	}
	resp, err := http.Get(srv.URL + "/notes/filter/work")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if gw.ListCalls() != 2 {
		t.Errorf("invalidation should force a refetch, got %d calls", gw.ListCalls())
	}

	resp, err = http.Post(srv.URL+"/api/cache/invalidate?tag=work", "", nil)
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from invalidate, got %d", resp.StatusCode)
	}
	resp, err = http.Get(srv.URL + "/notes/filter/work")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if gw.ListCalls() != 3 {
		t.Errorf("invalidate route should force a refetch, got %d calls", gw.ListCalls())
	}
}

func TestInvalidateRouteRequiresCache(t *testing.T) {
	cfg := testConfig()
	cfg.Cache.Enabled = false
	container, err := NewContainer(context.Background(), cfg, WithLogger(logging.Discard()),
		WithGateway(testsupport.NewFakeGateway(testsupport.SampleNotes())))
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}
	srv := httptest.NewServer(container.NewServer())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/cache/invalidate", "", nil)
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		t.Error("invalidate route should not exist without a gateway cache")
	}
}

func TestNewContainerClosesStoreOnSeedFailure(t *testing.T) {
	var opened *sqlstore.Store
	orig := openStore
	openStore = func(opts sqlstore.Options, logger *slog.Logger) (*sqlstore.Store, error) {
		s, err := orig(opts, logger)
		opened = s
		return s, err
	}
	t.Cleanup(func() { openStore = orig })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewContainer(ctx, testConfig(), WithLogger(logging.Discard())); err == nil {
		t.Fatal("NewContainer() should fail when the schema cannot be created")
	}
	if opened == nil {
		t.Fatal("store was never opened")
	}
	if err := opened.Ping(context.Background()); err == nil {
		t.Error("store should be closed after a failed setup")
	}
}

func TestConcurrentPageRenders(t *testing.T) {
	gw := testsupport.NewFakeGateway(testsupport.SampleNotes())
	container, err := NewContainer(context.Background(), testConfig(), WithLogger(logging.Discard()), WithGateway(gw))
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}
	srv := httptest.NewServer(container.NewServer())
	defer srv.Close()

	paths := []string{"/notes/n1", "/notes/n2", "/notes/filter/todo", "/notes/filter/all"}
	client := &http.Client{Timeout: 5 * time.Second}

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			resp, err := client.Get(srv.URL + path)
			if err != nil {
				errs <- err
				return
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				errs <- &statusError{path: path, code: resp.StatusCode}
			}
		}(paths[i%len(paths)])
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	if calls := gw.TotalCalls(); calls > 40 {
		t.Errorf("expected at most one upstream call per request, got %d", calls)
	}
}

type statusError struct {
	path string
	code int
}

func (e *statusError) Error() string {
	return e.path + ": unexpected status " + http.StatusText(e.code)
}
