// Package note defines the notes domain model shared by the gateway, the query
// store and the rendering layers.
package note

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// Tag is the closed set of note categories. TagNone means "untagged" on a
// note and "all tags" on a list filter. TagUnrecognized is produced by
// ParseTag for any input outside the set and is never valid on the wire.
type Tag uint8

const (
	TagNone Tag = iota
	TagTodo
	TagWork
	TagPersonal
	TagMeeting
	TagShopping
	TagUnrecognized
)

// AllTags is the literal used in URLs and cache keys when no tag filter applies.
const AllTags = "all"

var tagNames = map[Tag]string{
	TagNone:     "",
	TagTodo:     "Todo",
	TagWork:     "Work",
	TagPersonal: "Personal",
	TagMeeting:  "Meeting",
	TagShopping: "Shopping",
}

// Tags lists every concrete tag in display order.
func Tags() []Tag {
	return []Tag{TagTodo, TagWork, TagPersonal, TagMeeting, TagShopping}
}

// ParseTag maps a wire or URL value to a Tag. Matching is case insensitive.
// Empty input and "all" map to TagNone.
func ParseTag(s string) (Tag, bool) {
	v := strings.TrimSpace(s)
	if v == "" || strings.EqualFold(v, AllTags) {
		return TagNone, true
	}
	for tag, name := range tagNames {
		if tag != TagNone && strings.EqualFold(name, v) {
			return tag, true
		}
	}
	return TagUnrecognized, false
}

// String returns the wire name. TagNone is the empty string.
func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return "unrecognized"
}

// Slug returns the URL/cache key segment for the tag, "all" for TagNone.
func (t Tag) Slug() string {
	if t == TagNone {
		return AllTags
	}
	return strings.ToLower(t.String())
}

// Valid reports whether t belongs to the closed set.
func (t Tag) Valid() bool {
	_, ok := tagNames[t]
	return ok
}

// MarshalText implements encoding.TextMarshaler.
func (t Tag) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("note: cannot marshal unrecognized tag %d", t)
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tag) UnmarshalText(b []byte) error {
	tag, ok := ParseTag(string(b))
	if !ok {
		return fmt.Errorf("note: unrecognized tag %q", string(b))
	}
	*t = tag
	return nil
}

// Value implements driver.Valuer so tags persist as their wire name.
func (t Tag) Value() (driver.Value, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("note: cannot store unrecognized tag %d", t)
	}
	return t.String(), nil
}

// Scan implements sql.Scanner.
func (t *Tag) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*t = TagNone
		return nil
	case string:
		return t.UnmarshalText([]byte(v))
	case []byte:
		return t.UnmarshalText(v)
	default:
		return fmt.Errorf("note: cannot scan %T into Tag", src)
	}
}

// Note is a single note record. It is immutable from the point of view of
// the query layer.
type Note struct {
	ID        string    `json:"id" msgpack:"id" bun:"id,pk"`
	Title     string    `json:"title" msgpack:"title" bun:"title,notnull"`
	Content   string    `json:"content" msgpack:"content" bun:"content"`
	Tag       Tag       `json:"tag" msgpack:"tag" bun:"tag,type:varchar(16)"`
	CreatedAt time.Time `json:"createdAt" msgpack:"createdAt" bun:"created_at,notnull"`
}

// NotesPage is one page of a filtered note listing.
type NotesPage struct {
	Notes []Note `json:"notes" msgpack:"notes"`
	Total int    `json:"total" msgpack:"total"`
	Page  int    `json:"page" msgpack:"page"`
}

// TotalPages derives the page count for a given page size.
func (p NotesPage) TotalPages(perPage int) int {
	if perPage <= 0 || p.Total <= 0 {
		return 0
	}
	return (p.Total + perPage - 1) / perPage
}
