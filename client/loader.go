// Package client loads server rendered notehub pages the way a browser
// would: it reads the page metadata and the embedded snapshot, then hands
// the snapshot to a session for hydration.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/goliatone/go-notehub/hydration"
	"github.com/goliatone/go-notehub/metadata"
)

// StateSelector finds the snapshot script element.
const StateSelector = `script#__NOTEHUB_STATE__`

// Page is a fetched and parsed page.
type Page struct {
	URL        *url.URL
	StatusCode int
	Meta       metadata.Metadata
	Snapshot   *hydration.Snapshot
	// SnapshotErr is set when the embedded state was missing or partly
	// unreadable. Snapshot then holds whatever could be decoded.
	SnapshotErr error
}

// Path is the page path with its query, as routed by the session.
func (p Page) Path() string {
	return p.URL.RequestURI()
}

// Loader fetches pages over HTTP.
type Loader struct {
	httpClient *http.Client
	types      *hydration.Registry
	logger     *slog.Logger
}

// NewLoader returns a Loader. A nil client uses a 10 second timeout.
func NewLoader(httpClient *http.Client, logger *slog.Logger) *Loader {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{httpClient: httpClient, types: hydration.DefaultRegistry(), logger: logger}
}

// Load fetches rawURL. Non 2xx pages are still parsed since not found pages
// render normally. Only transport and markup failures are errors.
func (l *Loader) Load(ctx context.Context, rawURL string) (Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Page{}, fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("client: load %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return Page{}, fmt.Errorf("client: parse %s: %w", rawURL, err)
	}

	page := Page{URL: resp.Request.URL, StatusCode: resp.StatusCode}
	page.Meta = extractMeta(doc)
	page.Snapshot, page.SnapshotErr = l.extractSnapshot(doc)
	if page.SnapshotErr != nil {
		l.logger.WarnContext(ctx, "page snapshot unusable, client will fetch on mount",
			"url", page.URL.String(),
			"error", page.SnapshotErr,
		)
	}
	return page, nil
}

func extractMeta(doc *goquery.Document) metadata.Metadata {
	attr := func(sel, name string) string {
		v, _ := doc.Find(sel).First().Attr(name)
		return v
	}
	return metadata.Metadata{
		Title:        strings.TrimSpace(doc.Find("head title").First().Text()),
		Description:  attr(`meta[name="description"]`, "content"),
		CanonicalURL: attr(`link[rel="canonical"]`, "href"),
		PreviewImage: attr(`meta[property="og:image"]`, "content"),
	}
}

func (l *Loader) extractSnapshot(doc *goquery.Document) (*hydration.Snapshot, error) {
	sel := doc.Find(StateSelector).First()
	if sel.Length() == 0 {
		return nil, fmt.Errorf("client: no %s element", StateSelector)
	}
	return hydration.JSONCodec{Types: l.types}.Decode([]byte(sel.Text()))
}
