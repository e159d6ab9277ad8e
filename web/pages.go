package web

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/goliatone/go-notehub/hydration"
	"github.com/goliatone/go-notehub/note"
	"github.com/goliatone/go-notehub/prefetch"
	"github.com/goliatone/go-notehub/query"
	"github.com/goliatone/go-notehub/route"
	"github.com/goliatone/go-notehub/session"
)

// handlePage renders a direct load: one prefetch, metadata derived from its
// result, the initial markup, and the snapshot the client hydrates from.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	loc, err := route.Parse(r.URL.RequestURI())
	if err != nil {
		s.logger.DebugContext(r.Context(), "unroutable page", "path", r.URL.Path, "error", err)
		s.renderNotFound(w, r)
		return
	}

	res := s.prefetcher.Location(r.Context(), loc)
	data, status := s.pageFor(loc, res)

	snapshot, err := hydration.JSONCodec{Types: s.registry}.Encode(res.Snapshot)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "failed to encode snapshot", "key", res.Key.String(), "error", err)
		snapshot, _ = hydration.JSONCodec{Types: s.registry}.Encode(nil)
	}
	data.Snapshot = jsForSnapshot(snapshot)

	s.writePage(w, r, status, data)
}

func (s *Server) pageFor(loc route.Location, res prefetch.Result) (pageData, int) {
	data := pageData{
		SiteName: s.site.Name,
		StateID:  StateElementID,
	}
	if data.SiteName == "" {
		data.SiteName = s.site.Default().Title
	}
	status := http.StatusOK

	if loc.Kind == route.KindNote {
		view := session.NoteView{ID: loc.NoteID, Status: query.StatusPending}
		if n, ok := res.Note(); ok {
			view.Status = query.StatusSuccess
			view.Note = n
			data.Meta = s.site.ForNote(loc.NoteID, &n)
		} else {
			data.Meta = s.site.ForNote(loc.NoteID, nil)
		}
		if note.IsNotFound(res.Err) {
			view.Status = query.StatusError
			view.Err = res.Err
			status = http.StatusNotFound
		}
		data.State = route.StateDetailPageOnly.String()
		data.Tags = tagLinks(note.TagUnrecognized)
		data.Note = &noteData{View: view, Body: renderMarkdown(s.markdown, view.Note.Content)}
		return data, status
	}

	view := session.ListView{Location: loc, Status: query.StatusPending}
	if page, ok := res.Page(); ok {
		view.Status = query.StatusSuccess
		view.Page = page
		view.TotalPages = page.TotalPages(loc.Filter.PerPage)
	}
	data.Meta = s.site.ForFilter(loc.Filter.Tag.Slug())
	data.State = route.StateListOnly.String()
	data.Tags = tagLinks(loc.Filter.Tag)
	data.List = newListData(view)
	return data, status
}

func (s *Server) renderNotFound(w http.ResponseWriter, r *http.Request) {
	empty, _ := hydration.JSONCodec{Types: s.registry}.Encode(nil)
	data := pageData{
		Meta:     s.site.Default(),
		SiteName: s.site.Default().Title,
		StateID:  StateElementID,
		State:    "not-found",
		Tags:     tagLinks(note.TagUnrecognized),
		Snapshot: jsForSnapshot(empty),
		Note: &noteData{View: session.NoteView{
			Status: query.StatusError,
			Err:    errors.New("page not found"),
		}},
	}
	s.writePage(w, r, http.StatusNotFound, data)
}

func (s *Server) writePage(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	var buf bytes.Buffer
	if err := renderPage(&buf, data); err != nil {
		s.logger.ErrorContext(r.Context(), "failed to render page", "path", r.URL.Path, "error", err)
		http.Error(w, session.ErrorMessage, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}
