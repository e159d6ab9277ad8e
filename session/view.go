package session

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/goliatone/go-notehub/note"
	"github.com/goliatone/go-notehub/query"
	"github.com/goliatone/go-notehub/route"
)

const (
	LoadingMessage = "Loading, please wait..."
	ErrorMessage   = "Something went wrong."
)

// ListView is the list as currently rendered.
type ListView struct {
	Location   route.Location
	Status     query.Status
	Page       note.NotesPage
	TotalPages int
	Err        error
}

// Message is the placeholder text shown instead of notes, if any.
func (v ListView) Message() string {
	switch v.Status {
	case query.StatusPending:
		return LoadingMessage
	case query.StatusError:
		return ErrorMessage
	}
	return ""
}

// NoteView is a note rendered either as a modal or as a full page.
type NoteView struct {
	ID     string
	Status query.Status
	Note   note.Note
	Err    error
	Modal  bool
}

// Loaded reports whether the note data is available.
func (v NoteView) Loaded() bool {
	return v.Status == query.StatusSuccess
}

// Closable reports whether the view has a close control. Only modals do.
func (v NoteView) Closable() bool { return v.Modal }

// Message is the placeholder text shown instead of the note, if any.
func (v NoteView) Message() string {
	switch v.Status {
	case query.StatusPending:
		return LoadingMessage
	case query.StatusError:
		return ErrorMessage
	}
	return ""
}

// Screen is everything on screen after a navigation step.
type Screen struct {
	State route.State
	Path  string
	List  *ListView
	Note  *NoteView
}

// Render writes a plain text rendition of the screen.
func (sc Screen) Render(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n", sc.State, sc.Path)

	if l := sc.List; l != nil {
		f := l.Location.Filter
		fmt.Fprintf(&b, "list tag=%s page=%d", f.Tag.Slug(), f.Page)
		if f.Search != "" {
			fmt.Fprintf(&b, " search=%q", f.Search)
		}
		b.WriteString("\n")
		if msg := l.Message(); msg != "" {
			fmt.Fprintf(&b, "  %s\n", msg)
		} else {
			for _, n := range l.Page.Notes {
				fmt.Fprintf(&b, "  %-10s %-8s %s\n", n.ID, n.Tag.Slug(), n.Title)
			}
			fmt.Fprintf(&b, "  page %d of %d, %d notes\n", l.Page.Page, l.TotalPages, l.Page.Total)
		}
	}

	if n := sc.Note; n != nil {
		kind := "page"
		if n.Modal {
			kind = "modal"
		}
		fmt.Fprintf(&b, "note %s (%s)\n", n.ID, kind)
		if msg := n.Message(); msg != "" {
			fmt.Fprintf(&b, "  %s\n", msg)
		} else {
			fmt.Fprintf(&b, "  %s\n  %s\n  %s\n", n.Note.Title, n.Note.Content, n.Note.CreatedAt.Format(time.RFC3339))
		}
		if n.Closable() {
			b.WriteString("  [close]\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
