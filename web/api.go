package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/goliatone/go-notehub/gatewaycache"
	"github.com/goliatone/go-notehub/hydration"
	"github.com/goliatone/go-notehub/note"
	"github.com/goliatone/go-notehub/route"
)

var errBadRequest = errors.New("bad request")

type apiError struct {
	Code     int    `json:"code"`
	TextCode string `json:"text_code"`
	Message  string `json:"message"`
}

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	params, err := listParamsFromQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	page, err := s.gateway.FetchNotes(r.Context(), params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleGetNote(w http.ResponseWriter, r *http.Request) {
	n, err := s.gateway.FetchNoteByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// handleSnapshot runs the page prefetch for ?path= and returns the snapshot
// alone, as JSON or msgpack depending on Accept.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		path = "/notes/filter/all"
	}
	loc, err := route.Parse(path)
	if err != nil {
		s.writeError(w, r, badRequest(err.Error()))
		return
	}

	res := s.prefetcher.Location(r.Context(), loc)
	codec := hydration.CodecFor(negotiate(r.Header.Get("Accept")), s.registry)
	body, err := codec.Encode(res.Snapshot)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if sum, err := hydration.Checksum(res.Snapshot); err == nil {
		etag := hydration.ETag(sum)
		w.Header().Set("ETag", etag)
		if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	w.Header().Set("Content-Type", codec.ContentType())
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Snapshot-Entries", strconv.Itoa(res.Snapshot.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	status := http.StatusOK
	for name, fn := range s.health {
		if err := fn(r.Context()); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	state := "ok"
	if status != http.StatusOK {
		state = "unavailable"
	}
	writeJSON(w, status, map[string]any{"status": state, "checks": checks})
}

// handleInvalidate drops shared upstream responses: one note and every list
// with ?note=, the lists of one tag with ?tag=, all lists otherwise.
func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var scope string
	var err error
	switch {
	case q.Get("note") != "":
		scope = gatewaycache.TagNotePrefix + q.Get("note")
		err = s.invalidator.InvalidateNote(ctx, q.Get("note"))
	case q.Get("tag") != "":
		tag, ok := note.ParseTag(q.Get("tag"))
		if !ok {
			s.writeError(w, r, badRequest("unrecognized tag "+strconv.Quote(q.Get("tag"))))
			return
		}
		if tag == note.TagNone {
			scope = gatewaycache.TagLists
			err = s.invalidator.InvalidateLists(ctx)
			break
		}
		scope = gatewaycache.TagListPrefix + tag.Slug()
		err = s.invalidator.InvalidateTag(ctx, scope)
	default:
		scope = gatewaycache.TagLists
		err = s.invalidator.InvalidateLists(ctx)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.InfoContext(ctx, "gateway cache invalidated", "scope", scope)
	writeJSON(w, http.StatusOK, map[string]string{"invalidated": scope})
}

func listParamsFromQuery(r *http.Request) (note.ListParams, error) {
	q := r.URL.Query()
	var p note.ListParams
	var err error

	if v := q.Get("page"); v != "" {
		if p.Page, err = strconv.Atoi(v); err != nil {
			return p, badRequest("page must be a number")
		}
	}
	if v := q.Get("perPage"); v != "" {
		if p.PerPage, err = strconv.Atoi(v); err != nil {
			return p, badRequest("perPage must be a number")
		}
	}
	p.Search = q.Get("search")

	tag, ok := note.ParseTag(q.Get("tag"))
	if !ok {
		return p, badRequest("unrecognized tag " + strconv.Quote(q.Get("tag")))
	}
	p.Tag = tag

	p = p.Normalize()
	if err := p.Validate(); err != nil {
		return p, badRequest(err.Error())
	}
	return p, nil
}

type badRequestError struct{ msg string }

func (e badRequestError) Error() string { return e.msg }
func (e badRequestError) Unwrap() error { return errBadRequest }

func badRequest(msg string) error { return badRequestError{msg: msg} }

func negotiate(accept string) string {
	if strings.Contains(accept, hydration.ContentTypeMsgpack) {
		return hydration.ContentTypeMsgpack
	}
	return hydration.ContentTypeJSON
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	e := apiError{Code: http.StatusInternalServerError, TextCode: "INTERNAL_ERROR", Message: err.Error()}
	switch {
	case errors.Is(err, errBadRequest):
		e.Code, e.TextCode = http.StatusBadRequest, "BAD_REQUEST"
	case note.IsNotFound(err):
		e.Code, e.TextCode = http.StatusNotFound, note.TextCodeNotFound
	case note.IsNetwork(err):
		e.Code, e.TextCode = http.StatusBadGateway, note.TextCodeNetworkError
	}
	if e.Code >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "api request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, e.Code, map[string]apiError{"error": e})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
