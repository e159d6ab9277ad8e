package cache

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/goliatone/go-notehub/note"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = "::"

// Kind identifies the entity a cache key refers to.
type Kind string

const (
	KindNote  Kind = "note"
	KindNotes Kind = "notes"
)

// Key identifies one cache slot. Segment order is fixed per kind and never
// follows call site argument order.
type Key struct {
	Kind  Kind
	Parts []string
}

// Params carries the inputs KeyFor derives a key from. ID is used by
// KindNote, List by KindNotes.
type Params struct {
	ID   string
	List note.ListParams
}

// KeyFor derives the canonical key for kind and params.
func KeyFor(kind Kind, params Params) (Key, error) {
	switch kind {
	case KindNote:
		if params.ID == "" {
			return Key{}, fmt.Errorf("cache: note key requires an id")
		}
		return NoteKey(params.ID), nil
	case KindNotes:
		if !params.List.Tag.Valid() {
			return Key{}, fmt.Errorf("cache: notes key with unrecognized tag")
		}
		return NotesKey(params.List), nil
	default:
		return Key{}, fmt.Errorf("cache: unknown key kind %q", kind)
	}
}

// NoteKey is the key of a single note: (note, id).
func NoteKey(id string) Key {
	return Key{Kind: KindNote, Parts: []string{id}}
}

// NotesKey is the key of a list page: (notes, page, perPage, search, tag).
// Params are normalized first, so a missing tag becomes "all" and a missing
// search becomes "".
func NotesKey(params note.ListParams) Key {
	p := params.Normalize()
	return Key{
		Kind: KindNotes,
		Parts: []string{
			strconv.Itoa(p.Page),
			strconv.Itoa(p.PerPage),
			p.Search,
			p.Tag.Slug(),
		},
	}
}

// String returns the byte stable form used as the store index. Segments are
// escaped so a separator inside a search term cannot collide with another key.
func (k Key) String() string {
	var b strings.Builder
	b.WriteString(string(k.Kind))
	for _, part := range k.Parts {
		b.WriteString(KeySeparator)
		b.WriteString(url.QueryEscape(part))
	}
	return b.String()
}

// Prefix returns the string prefix shared by every key of kind.
func Prefix(kind Kind) string {
	return string(kind) + KeySeparator
}

// IsZero reports whether k is unset.
func (k Key) IsZero() bool {
	return k.Kind == "" && len(k.Parts) == 0
}

// Equal compares keys segment by segment.
func (k Key) Equal(other Key) bool {
	return k.String() == other.String()
}

// MarshalJSON encodes the key as a JSON array: ["notes","1","12","","all"].
func (k Key) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.tuple())
}

// UnmarshalJSON decodes the array form.
func (k *Key) UnmarshalJSON(b []byte) error {
	var tuple []string
	if err := json.Unmarshal(b, &tuple); err != nil {
		return err
	}
	return k.fromTuple(tuple)
}

func (k Key) tuple() []string {
	return append([]string{string(k.Kind)}, k.Parts...)
}

func (k *Key) fromTuple(tuple []string) error {
	if len(tuple) == 0 {
		return fmt.Errorf("cache: empty key tuple")
	}
	k.Kind = Kind(tuple[0])
	k.Parts = append([]string(nil), tuple[1:]...)
	return nil
}

// Tuple exposes the array form for codecs that do not use JSON.
func (k Key) Tuple() []string {
	return k.tuple()
}

// KeyFromTuple is the inverse of Tuple.
func KeyFromTuple(tuple []string) (Key, error) {
	var k Key
	err := k.fromTuple(tuple)
	return k, err
}
