// Package httpgateway implements note.Gateway over the JSON notes API.
package httpgateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-notehub/note"
)

const (
	DefaultTimeout  = 10 * time.Second
	RequestIDHeader = "X-Request-ID"

	maxErrorBody = 4 << 10
)

// Options configure a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client calls GET {base}/notes and GET {base}/notes/{id}.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ note.Gateway = (*Client)(nil)

// New returns a Client for the API rooted at opts.BaseURL.
func New(opts Options) (*Client, error) {
	base := strings.TrimRight(opts.BaseURL, "/")
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("httpgateway: invalid base url %q", opts.BaseURL)
	}

	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{baseURL: base, httpClient: client, logger: logger}, nil
}

// FetchNoteByID loads one note. A 404 maps to note.NotFound; anything else
// that is not a 2xx maps to note.NetworkError.
func (c *Client) FetchNoteByID(ctx context.Context, id string) (note.Note, error) {
	var n note.Note
	if id == "" {
		return n, note.NotFound(id)
	}
	status, err := c.get(ctx, "/notes/"+url.PathEscape(id), nil, &n)
	if status == http.StatusNotFound {
		return note.Note{}, note.NotFound(id)
	}
	return n, err
}

// FetchNotes loads one list page. Lists never report not found.
func (c *Client) FetchNotes(ctx context.Context, params note.ListParams) (note.NotesPage, error) {
	p := params.Normalize()
	q := url.Values{}
	q.Set("page", strconv.Itoa(p.Page))
	q.Set("perPage", strconv.Itoa(p.PerPage))
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	if p.Tag != note.TagNone {
		q.Set("tag", p.Tag.String())
	}

	var page note.NotesPage
	status, err := c.get(ctx, "/notes", q, &page)
	if status == http.StatusNotFound {
		return note.NotesPage{}, note.NetworkError(nil, "notes endpoint not found")
	}
	if err != nil {
		return note.NotesPage{}, err
	}
	if page.Notes == nil {
		page.Notes = []note.Note{}
	}
	return page, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) (int, error) {
	endpoint := c.baseURL + path
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, note.NetworkError(err, "failed to create request")
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, reqID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "notes api request failed", "url", endpoint, "request_id", reqID, "error", err)
		return 0, note.NetworkError(err, "notes api request failed")
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "notes api request",
		"url", endpoint,
		"status", resp.StatusCode,
		"request_id", reqID,
		"elapsed", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return resp.StatusCode, note.NetworkError(
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
			"notes api returned an error",
		)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, note.NetworkError(err, "failed to decode notes api response")
	}
	return resp.StatusCode, nil
}
