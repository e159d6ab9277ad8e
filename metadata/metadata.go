// Package metadata derives page titles, descriptions and share previews
// from already fetched data. It never fetches and never fails.
package metadata

import (
	"strings"

	"github.com/goliatone/go-notehub/note"
)

const (
	DefaultSiteName = "NoteHub"
	DefaultSiteURL  = "https://notehub.app"
	DefaultImage    = "https://ac.goit.global/fullstack/react/notehub-og-meta.jpg"

	noteDescriptionLimit = 120
	noteFallbackTitle    = "Note"
	noteFallbackDesc     = "Note details"
)

var tagTitles = map[string]string{
	note.AllTags: "All notes",
	"todo":       "Todo",
	"work":       "Work",
	"personal":   "Personal",
	"meeting":    "Meeting",
	"shopping":   "Shopping",
}

// Metadata is the head of a rendered page.
type Metadata struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	CanonicalURL string `json:"canonicalUrl"`
	PreviewImage string `json:"previewImage"`
}

// Site holds the values shared by every page.
type Site struct {
	Name  string `yaml:"name"`
	URL   string `yaml:"url"`
	Image string `yaml:"image"`
}

// DefaultSite is the NoteHub site.
func DefaultSite() Site {
	return Site{Name: DefaultSiteName, URL: DefaultSiteURL, Image: DefaultImage}
}

func (s Site) withDefaults() Site {
	d := DefaultSite()
	if s.Name == "" {
		s.Name = d.Name
	}
	if s.URL == "" {
		s.URL = d.URL
	}
	if s.Image == "" {
		s.Image = d.Image
	}
	s.URL = strings.TrimRight(s.URL, "/")
	return s
}

// Default is the metadata of pages without their own.
func (s Site) Default() Metadata {
	s = s.withDefaults()
	return Metadata{
		Title:        s.Name,
		Description:  s.Name + " app",
		CanonicalURL: s.URL,
		PreviewImage: s.Image,
	}
}

// ForNote describes note id. A nil n means the fetch failed and a generic
// description is used.
func (s Site) ForNote(id string, n *note.Note) Metadata {
	s = s.withDefaults()
	m := Metadata{
		Title:        s.Name + " | " + noteFallbackTitle,
		Description:  noteFallbackDesc,
		CanonicalURL: s.URL + "/notes/" + id,
		PreviewImage: s.Image,
	}
	if n == nil {
		return m
	}
	m.Title = s.Name + " | " + n.Title
	if content := truncate(n.Content, noteDescriptionLimit); content != "" {
		m.Description = content
	}
	return m
}

// ForFilter describes a list filtered by the tag slug. Unknown slugs are
// shown as given.
func (s Site) ForFilter(slug string) Metadata {
	s = s.withDefaults()
	if slug == "" {
		slug = note.AllTags
	}
	title, ok := tagTitles[strings.ToLower(slug)]
	if !ok {
		title = slug
	}
	return Metadata{
		Title:        s.Name + " | " + title,
		Description:  "Notes filtered by: " + title,
		CanonicalURL: s.URL + "/notes/filter/" + slug,
		PreviewImage: s.Image,
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
