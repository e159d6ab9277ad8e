package hydration

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-notehub/cache"
	"github.com/goliatone/go-notehub/note"
	"github.com/goliatone/go-notehub/pkg/testsupport"
	"github.com/goliatone/go-notehub/query"
)

var (
	createdAt = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	fetchedAt = time.Date(2025, 1, 2, 4, 0, 0, 0, time.UTC)
	milk      = note.Note{ID: "n1", Title: "Buy milk", Content: "Oat milk, two cartons", Tag: note.TagShopping, CreatedAt: createdAt}
	allPage1  = cache.NotesKey(note.ListParams{Page: 1, PerPage: 12})
)

func fixtureSnapshot() *Snapshot {
	return &Snapshot{Entries: []Entry{
		{Key: cache.NoteKey("n1"), Data: milk, UpdatedAt: fetchedAt},
		{Key: allPage1, Data: note.NotesPage{Notes: []note.Note{milk}, Total: 1, Page: 1}, UpdatedAt: fetchedAt},
	}}
}

func assertSameNote(t *testing.T, got, want note.Note) {
	t.Helper()
	if got.ID != want.ID || got.Title != want.Title || got.Content != want.Content || got.Tag != want.Tag {
		t.Errorf("note mismatch: got %+v, want %+v", got, want)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("createdAt mismatch: got %v, want %v", got.CreatedAt, want.CreatedAt)
	}
}

func assertSnapshotRoundTrip(t *testing.T, decoded *Snapshot) {
	t.Helper()
	if decoded.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", decoded.Len())
	}

	single, ok := decoded.Lookup(cache.NoteKey("n1"))
	if !ok {
		t.Fatal("note entry missing")
	}
	n, ok := single.Data.(note.Note)
	if !ok {
		t.Fatalf("expected note.Note, got %T", single.Data)
	}
	assertSameNote(t, n, milk)
	if !single.UpdatedAt.Equal(fetchedAt) {
		t.Errorf("updatedAt mismatch: %v", single.UpdatedAt)
	}

	list, ok := decoded.Lookup(allPage1)
	if !ok {
		t.Fatal("list entry missing")
	}
	page, ok := list.Data.(note.NotesPage)
	if !ok {
		t.Fatalf("expected note.NotesPage, got %T", list.Data)
	}
	if page.Total != 1 || page.Page != 1 || len(page.Notes) != 1 {
		t.Fatalf("unexpected page %+v", page)
	}
	assertSameNote(t, page.Notes[0], milk)
}

func TestJSONCodec_RoundTrip(t *testing.T) {
	codec := JSONCodec{Types: DefaultRegistry()}

	data, err := codec.Encode(fixtureSnapshot())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	testsupport.CompareWithGolden(t, testsupport.GoldenPath("snapshot.json"), data)

	decoded, err := codec.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	assertSnapshotRoundTrip(t, decoded)
}

func TestMsgpackCodec_RoundTrip(t *testing.T) {
	codec := MsgpackCodec{Types: DefaultRegistry()}

	data, err := codec.Encode(fixtureSnapshot())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := codec.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	assertSnapshotRoundTrip(t, decoded)
}

func TestJSONCodec_PartialDecode(t *testing.T) {
	payload := `{"version":1,"queries":[
		{"queryKey":["users","1"],"status":"success","data":{},"dataUpdatedAt":"2025-01-02T04:00:00Z"},
		{"queryKey":["note","n2"],"status":"success","data":{"id":"n2","title":"t","content":"","tag":"Gardening","createdAt":"2025-01-02T03:04:05Z"},"dataUpdatedAt":"2025-01-02T04:00:00Z"},
		{"queryKey":["note","n3"],"status":"error","data":null,"dataUpdatedAt":"0001-01-01T00:00:00Z"},
		{"queryKey":["note","n1"],"status":"success","data":{"id":"n1","title":"Buy milk","content":"Oat milk, two cartons","tag":"Shopping","createdAt":"2025-01-02T03:04:05Z"},"dataUpdatedAt":"2025-01-02T04:00:00Z"}
	]}`

	snap, err := JSONCodec{}.Decode([]byte(payload))
	if err == nil {
		t.Fatal("expected decode errors for unknown kind and unrecognized tag")
	}
	if !strings.Contains(err.Error(), "users") {
		t.Errorf("error should name the unknown kind: %v", err)
	}
	if snap.Len() != 1 {
		t.Fatalf("expected the valid entry to survive, got %d", snap.Len())
	}
}

func TestJSONCodec_RejectsGarbage(t *testing.T) {
	if _, err := (JSONCodec{}).Decode([]byte("<html>")); err == nil {
		t.Error("expected error")
	}
	if _, err := (JSONCodec{}).Decode([]byte(`{"version":9,"queries":[]}`)); err == nil {
		t.Error("expected version error")
	}
}

func TestDehydrate_OnlySuccessEntries(t *testing.T) {
	store := query.NewStore()
	ctx := context.Background()

	if _, err := store.Fetch(ctx, cache.NoteKey("n1"), query.Fn(func(context.Context) (note.Note, error) { return milk, nil })); err != nil {
		t.Fatal(err)
	}
	store.Read(ctx, cache.NoteKey("missing"), func(context.Context) (any, error) {
		return nil, note.NotFound("missing")
	})
	if _, err := store.Await(ctx, cache.NoteKey("missing")); err != nil {
		t.Fatal(err)
	}
	store.Read(ctx, cache.NoteKey("idle"), nil)

	snap := Dehydrate(store)
	if snap.Len() != 1 {
		t.Fatalf("expected only the success entry, got %d", snap.Len())
	}
	if _, ok := snap.Lookup(cache.NoteKey("n1")); !ok {
		t.Error("success entry missing")
	}
}

func TestBoundary_MountOnceAndPrecedence(t *testing.T) {
	store := query.NewStore()

	newer := milk
	newer.Title = "Buy oat milk"
	store.Hydrate(cache.NoteKey("n1"), newer, fetchedAt.Add(time.Minute))

	snap := fixtureSnapshot()
	b := NewBoundary(snap, nil)

	if adopted := b.Mount(store); adopted != 1 {
		t.Fatalf("expected only the list entry adopted, got %d", adopted)
	}
	got, _ := query.DataAs[note.Note](store.Peek(cache.NoteKey("n1")))
	if got.Title != "Buy oat milk" {
		t.Errorf("fresher client value was overwritten: %q", got.Title)
	}
	if store.Peek(allPage1).Status != query.StatusSuccess {
		t.Error("list entry should be hydrated")
	}

	if b.Mount(store) != 0 {
		t.Error("second mount must be a no-op")
	}
	if NewBoundary(snap, nil).Mount(query.NewStore()) != 0 {
		t.Error("a consumed snapshot must not hydrate another store")
	}
	if !snap.Consumed() {
		t.Error("snapshot should report consumed")
	}
}

func TestBoundary_NilSnapshot(t *testing.T) {
	if NewBoundary(nil, nil).Mount(query.NewStore()) != 0 {
		t.Error("nil snapshot should adopt nothing")
	}
}

func TestChecksum(t *testing.T) {
	a, err := Checksum(fixtureSnapshot())
	if err != nil {
		t.Fatal(err)
	}
	b, _ := Checksum(fixtureSnapshot())
	if a != b {
		t.Error("checksum should be stable")
	}

	changed := fixtureSnapshot()
	changed.Entries = changed.Entries[:1]
	c, _ := Checksum(changed)
	if a == c {
		t.Error("checksum should change with content")
	}
	if tag := ETag(a); len(tag) != 18 || tag[0] != '"' {
		t.Errorf("unexpected etag %q", tag)
	}

	refetched := fixtureSnapshot()
	for i := range refetched.Entries {
		refetched.Entries[i].UpdatedAt = refetched.Entries[i].UpdatedAt.Add(time.Millisecond)
	}
	d, _ := Checksum(refetched)
	if a != d {
		t.Error("checksum should ignore fetch timestamps")
	}
}
