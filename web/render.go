package web

import (
	"bytes"
	"embed"
	"html/template"
	"io"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/goliatone/go-notehub/metadata"
	"github.com/goliatone/go-notehub/note"
	"github.com/goliatone/go-notehub/route"
	"github.com/goliatone/go-notehub/session"
)

// StateElementID is the id of the script element carrying the snapshot.
const StateElementID = "__NOTEHUB_STATE__"

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type tagLink struct {
	Label  string
	Path   string
	Active bool
}

type listData struct {
	View   session.ListView
	Action string
	Prev   string
	Next   string
}

type noteData struct {
	View session.NoteView
	Body template.HTML
}

type pageData struct {
	Meta     metadata.Metadata
	SiteName string
	State    string
	StateID  string
	Snapshot template.JS
	Tags     []tagLink
	List     *listData
	Note     *noteData
}

func newMarkdown() goldmark.Markdown {
	return goldmark.New(goldmark.WithExtensions(extension.GFM))
}

// renderMarkdown converts note content. Raw HTML in the source is escaped.
func renderMarkdown(md goldmark.Markdown, src string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(buf.String())
}

func tagLinks(active note.Tag) []tagLink {
	links := []tagLink{{Label: "All notes", Path: route.List(note.ListParams{}).Path(), Active: active == note.TagNone}}
	for _, t := range note.Tags() {
		links = append(links, tagLink{
			Label:  t.String(),
			Path:   route.List(note.ListParams{Tag: t}).Path(),
			Active: active == t,
		})
	}
	return links
}

func newListData(v session.ListView) *listData {
	f := v.Location.Filter
	d := &listData{View: v, Action: "/notes/filter/" + f.Tag.Slug()}
	if f.Page > 1 {
		prev := f
		prev.Page--
		d.Prev = route.List(prev).Path()
	}
	if f.Page < v.TotalPages {
		next := f
		next.Page++
		d.Next = route.List(next).Path()
	}
	return d
}

func renderPage(w io.Writer, data pageData) error {
	return pageTemplate.ExecuteTemplate(w, "page", data)
}

// jsForSnapshot marks encoded snapshot JSON as safe for the script element.
// encoding/json escapes <, > and & so the payload cannot close the element.
func jsForSnapshot(b []byte) template.JS {
	return template.JS(b)
}
