package route

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/goliatone/go-notehub/note"
)

var (
	ErrUnknownPath     = errors.New("route: unknown path")
	ErrUnrecognizedTag = errors.New("route: unrecognized tag")
)

// Kind distinguishes list locations from note locations.
type Kind int

const (
	KindList Kind = iota
	KindNote
)

// Location is a parsed navigation target. URLs are the source of truth for
// which queries a page needs.
type Location struct {
	Kind   Kind
	Filter note.ListParams
	NoteID string
}

// List builds a list location.
func List(params note.ListParams) Location {
	return Location{Kind: KindList, Filter: params.Normalize()}
}

// Note builds a note location.
func Note(id string) Location {
	return Location{Kind: KindNote, NoteID: id}
}

// Parse reads a path with optional query string:
//
//	/ and /notes and /notes/filter     list of all notes
//	/notes/filter/<tag>                list filtered by tag ("all" for none)
//	/notes/filter/<tag>/<id>           note opened from a filtered list
//	/notes/<id>                        note
//
// List query parameters are page and search.
func Parse(raw string) (Location, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, fmt.Errorf("%w: %v", ErrUnknownPath, err)
	}

	segments := splitPath(u.Path)
	switch {
	case len(segments) == 0,
		len(segments) == 1 && segments[0] == "notes",
		len(segments) == 2 && segments[0] == "notes" && segments[1] == "filter":
		return List(listParams(note.TagNone, u.Query())), nil

	case len(segments) == 2 && segments[0] == "notes":
		return Note(segments[1]), nil

	case len(segments) >= 3 && len(segments) <= 4 && segments[0] == "notes" && segments[1] == "filter":
		tag, ok := note.ParseTag(segments[2])
		if !ok {
			return Location{}, fmt.Errorf("%w: %q", ErrUnrecognizedTag, segments[2])
		}
		if len(segments) == 4 {
			return Note(segments[3]), nil
		}
		return List(listParams(tag, u.Query())), nil
	}

	return Location{}, fmt.Errorf("%w: %s", ErrUnknownPath, u.Path)
}

func splitPath(p string) []string {
	var out []string
	for _, s := range strings.Split(p, "/") {
		if s == "" {
			continue
		}
		if unescaped, err := url.PathUnescape(s); err == nil {
			s = unescaped
		}
		out = append(out, s)
	}
	return out
}

func listParams(tag note.Tag, q url.Values) note.ListParams {
	page, _ := strconv.Atoi(q.Get("page"))
	return note.ListParams{Page: page, Search: q.Get("search"), Tag: tag}.Normalize()
}

// Path renders the canonical URL path, including list query parameters that
// differ from their defaults.
func (l Location) Path() string {
	if l.Kind == KindNote {
		return "/notes/" + url.PathEscape(l.NoteID)
	}

	f := l.Filter.Normalize()
	path := "/notes/filter/" + f.Tag.Slug()
	q := url.Values{}
	if f.Page > 1 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	return path
}

// Equal compares locations by canonical path.
func (l Location) Equal(other Location) bool {
	return l.Path() == other.Path()
}

func (l Location) String() string {
	return l.Path()
}
