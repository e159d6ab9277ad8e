package testsupport

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-notehub/note"
)

// SampleNotes is a small fixed data set covering every tag.
func SampleNotes() []note.Note {
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	return []note.Note{
		{ID: "n1", Title: "Buy milk", Content: "Oat milk, two cartons", Tag: note.TagShopping, CreatedAt: base},
		{ID: "n2", Title: "Quarterly review", Content: "Prepare slides for the review", Tag: note.TagWork, CreatedAt: base.Add(time.Hour)},
		{ID: "n3", Title: "Standup", Content: "Daily standup notes", Tag: note.TagMeeting, CreatedAt: base.Add(2 * time.Hour)},
		{ID: "n4", Title: "Fix bike", Content: "Replace the chain", Tag: note.TagTodo, CreatedAt: base.Add(3 * time.Hour)},
		{ID: "n5", Title: "Call mom", Content: "Sunday afternoon", Tag: note.TagPersonal, CreatedAt: base.Add(4 * time.Hour)},
		{ID: "n6", Title: "Deploy API", Content: "Roll out v2 to staging", Tag: note.TagWork, CreatedAt: base.Add(5 * time.Hour)},
	}
}

// FakeGateway is an in-memory note.Gateway that counts calls and can be
// scripted to fail or block.
type FakeGateway struct {
	mu        sync.Mutex
	notes     []note.Note
	noteCalls map[string]int
	listCalls int
	failNext  map[string]error
	failList  error
	gate      chan struct{}
}

// NewFakeGateway serves notes, newest first.
func NewFakeGateway(notes []note.Note) *FakeGateway {
	sorted := append([]note.Note(nil), notes...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	return &FakeGateway{
		notes:     sorted,
		noteCalls: make(map[string]int),
		failNext:  make(map[string]error),
	}
}

// FailNote makes lookups of id fail with err until cleared with a nil err.
func (g *FakeGateway) FailNote(id string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err == nil {
		delete(g.failNext, id)
		return
	}
	g.failNext[id] = err
}

// FailList makes list calls fail with err until cleared with nil.
func (g *FakeGateway) FailList(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failList = err
}

// Block makes every call wait until the returned release function runs.
func (g *FakeGateway) Block() (release func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	gate := make(chan struct{})
	g.gate = gate
	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			if g.gate == gate {
				g.gate = nil
			}
			g.mu.Unlock()
			close(gate)
		})
	}
}

func (g *FakeGateway) wait(ctx context.Context) error {
	g.mu.Lock()
	gate := g.gate
	g.mu.Unlock()
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return note.NetworkError(ctx.Err(), "request cancelled")
	}
}

func (g *FakeGateway) FetchNoteByID(ctx context.Context, id string) (note.Note, error) {
	g.mu.Lock()
	g.noteCalls[id]++
	failure := g.failNext[id]
	g.mu.Unlock()

	if err := g.wait(ctx); err != nil {
		return note.Note{}, err
	}
	if failure != nil {
		return note.Note{}, failure
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	for _, n := range g.notes {
		if n.ID == id {
			return n, nil
		}
	}
	return note.Note{}, note.NotFound(id)
}

func (g *FakeGateway) FetchNotes(ctx context.Context, params note.ListParams) (note.NotesPage, error) {
	p := params.Normalize()

	g.mu.Lock()
	g.listCalls++
	failure := g.failList
	g.mu.Unlock()

	if err := g.wait(ctx); err != nil {
		return note.NotesPage{}, err
	}
	if failure != nil {
		return note.NotesPage{}, failure
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	var matched []note.Note
	search := strings.ToLower(p.Search)
	for _, n := range g.notes {
		if p.Tag != note.TagNone && n.Tag != p.Tag {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(n.Title+" "+n.Content), search) {
			continue
		}
		matched = append(matched, n)
	}

	page := note.NotesPage{Total: len(matched), Page: p.Page, Notes: []note.Note{}}
	start := (p.Page - 1) * p.PerPage
	if start < len(matched) {
		end := min(start+p.PerPage, len(matched))
		page.Notes = append(page.Notes, matched[start:end]...)
	}
	return page, nil
}

// NoteCalls returns how often id was fetched.
func (g *FakeGateway) NoteCalls(id string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.noteCalls[id]
}

// ListCalls returns how often FetchNotes ran.
func (g *FakeGateway) ListCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.listCalls
}

// TotalCalls sums note and list calls.
func (g *FakeGateway) TotalCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	total := g.listCalls
	for _, n := range g.noteCalls {
		total += n
	}
	return total
}
