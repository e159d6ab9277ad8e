package testsupport

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-notehub/note"
)

func TestLoadFixtureJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.json")
	if err := os.WriteFile(path, []byte(`{"id":"n1","title":"t","tag":"Work"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	var n note.Note
	LoadFixtureJSON(t, path, &n)
	if n.ID != "n1" || n.Tag != note.TagWork {
		t.Errorf("unexpected note %+v", n)
	}
}

func TestCompareWithGolden_CreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "golden", "out.txt")
	CompareWithGolden(t, path, []byte("hello"))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("golden file not created: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("unexpected golden content %q", data)
	}
	CompareWithGolden(t, path, []byte("hello\n"))
}

func TestPaths(t *testing.T) {
	if FixturePath("a.json") != filepath.Join("testdata", "a.json") {
		t.Error("unexpected fixture path")
	}
	if GoldenPath("a.json") != filepath.Join("testdata", "golden", "a.json") {
		t.Error("unexpected golden path")
	}
}

func TestFakeGateway_Listing(t *testing.T) {
	g := NewFakeGateway(SampleNotes())
	ctx := context.Background()

	page, err := g.FetchNotes(ctx, note.ListParams{Tag: note.TagWork})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 2 || page.Notes[0].ID != "n6" {
		t.Errorf("expected newest work note first, got %+v", page)
	}

	page, _ = g.FetchNotes(ctx, note.ListParams{Page: 2, PerPage: 4})
	if page.Total != 6 || len(page.Notes) != 2 {
		t.Errorf("unexpected second page %+v", page)
	}

	page, _ = g.FetchNotes(ctx, note.ListParams{Page: 9})
	if len(page.Notes) != 0 || page.Notes == nil {
		t.Errorf("out of range page should be empty, got %+v", page)
	}

	page, _ = g.FetchNotes(ctx, note.ListParams{Search: "CHAIN"})
	if page.Total != 1 || page.Notes[0].ID != "n4" {
		t.Errorf("search should be case insensitive, got %+v", page)
	}

	if g.ListCalls() != 4 {
		t.Errorf("expected 4 list calls, got %d", g.ListCalls())
	}
}

func TestFakeGateway_Failures(t *testing.T) {
	g := NewFakeGateway(SampleNotes())
	ctx := context.Background()

	if _, err := g.FetchNoteByID(ctx, "nope"); !note.IsNotFound(err) {
		t.Errorf("expected NotFound, got %v", err)
	}

	boom := note.NetworkError(errors.New("reset"), "fetch note")
	g.FailNote("n1", boom)
	if _, err := g.FetchNoteByID(ctx, "n1"); !note.IsNetwork(err) {
		t.Errorf("expected network error, got %v", err)
	}
	g.FailNote("n1", nil)
	if _, err := g.FetchNoteByID(ctx, "n1"); err != nil {
		t.Errorf("expected success after clearing failure, got %v", err)
	}

	if g.NoteCalls("n1") != 2 || g.TotalCalls() != 3 {
		t.Errorf("unexpected counts: n1=%d total=%d", g.NoteCalls("n1"), g.TotalCalls())
	}
}

func TestFakeGateway_Block(t *testing.T) {
	g := NewFakeGateway(SampleNotes())
	release := g.Block()

	done := make(chan error, 1)
	go func() {
		_, err := g.FetchNoteByID(context.Background(), "n1")
		done <- err
	}()

	select {
	case <-done:
		t.Fatal("call should block until released")
	default:
	}

	release()
	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	release()
}
