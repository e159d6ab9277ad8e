package note

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseTag(t *testing.T) {
	tests := []struct {
		in   string
		want Tag
		ok   bool
	}{
		{"", TagNone, true},
		{"all", TagNone, true},
		{"ALL", TagNone, true},
		{"work", TagWork, true},
		{"Work", TagWork, true},
		{" shopping ", TagShopping, true},
		{"Meeting", TagMeeting, true},
		{"groceries", TagUnrecognized, false},
	}
	for _, tt := range tests {
		got, ok := ParseTag(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseTag(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestTagSlug(t *testing.T) {
	if got := TagNone.Slug(); got != "all" {
		t.Errorf("TagNone.Slug() = %q", got)
	}
	for _, tag := range Tags() {
		back, ok := ParseTag(tag.Slug())
		if !ok || back != tag {
			t.Errorf("slug %q does not parse back to %v", tag.Slug(), tag)
		}
	}
}

func TestTagJSON(t *testing.T) {
	n := Note{ID: "a", Title: "t", Tag: TagPersonal}
	data, err := json.Marshal(n)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Note
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Tag != TagPersonal {
		t.Errorf("tag = %v", back.Tag)
	}

	if _, err := json.Marshal(Note{Tag: TagUnrecognized}); err == nil {
		t.Error("expected error marshalling an unrecognized tag")
	}
	if err := json.Unmarshal([]byte(`{"tag":"Groceries"}`), &back); err == nil {
		t.Error("expected error for unknown tag on the wire")
	}
}

func TestTagScan(t *testing.T) {
	var tag Tag
	if err := tag.Scan([]byte("Todo")); err != nil || tag != TagTodo {
		t.Errorf("Scan bytes = %v, %v", tag, err)
	}
	if err := tag.Scan(nil); err != nil || tag != TagNone {
		t.Errorf("Scan nil = %v, %v", tag, err)
	}
	if err := tag.Scan(42); err == nil {
		t.Error("expected error scanning an int")
	}
}

func TestListParamsNormalize(t *testing.T) {
	got := ListParams{Page: 0, PerPage: 0, Search: "  milk "}.Normalize()
	want := ListParams{Page: 1, PerPage: DefaultPerPage, Search: "milk"}
	if got != want {
		t.Errorf("Normalize() = %+v, want %+v", got, want)
	}
	if got.Normalize() != got {
		t.Error("Normalize is not idempotent")
	}

	huge := ListParams{Page: int(^uint(0) >> 1)}.Normalize()
	if huge.Page != MaxPage {
		t.Errorf("Normalize() page = %d, want %d", huge.Page, MaxPage)
	}
	if err := huge.Validate(); err != nil {
		t.Errorf("clamped params should validate: %v", err)
	}
}

func TestListParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		params  ListParams
		wantErr bool
	}{
		{"defaults", ListParams{}.Normalize(), false},
		{"tagged", ListParams{Page: 2, PerPage: 5, Tag: TagWork}, false},
		{"page zero", ListParams{Page: 0, PerPage: 5}, true},
		{"per page zero", ListParams{Page: 1, PerPage: 0}, true},
		{"negative page", ListParams{Page: -3, PerPage: 5}, true},
		{"page too large", ListParams{Page: MaxPage + 1, PerPage: 5}, true},
		{"too large", ListParams{Page: 1, PerPage: MaxPerPage + 1}, true},
		{"bad tag", ListParams{Page: 1, PerPage: 5, Tag: TagUnrecognized}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total, perPage, want int
	}{
		{0, 12, 0},
		{1, 12, 1},
		{12, 12, 1},
		{13, 12, 2},
		{5, 0, 0},
	}
	for _, tt := range tests {
		if got := (NotesPage{Total: tt.total}).TotalPages(tt.perPage); got != tt.want {
			t.Errorf("TotalPages(total=%d, perPage=%d) = %d, want %d", tt.total, tt.perPage, got, tt.want)
		}
	}
}

func TestErrorClassification(t *testing.T) {
	nf := NotFound("x")
	if !IsNotFound(nf) || IsNetwork(nf) {
		t.Errorf("NotFound classified wrong: notFound=%v network=%v", IsNotFound(nf), IsNetwork(nf))
	}

	cause := errors.New("connection refused")
	ne := NetworkError(cause, "fetch notes")
	if !IsNetwork(ne) || IsNotFound(ne) {
		t.Errorf("NetworkError classified wrong: notFound=%v network=%v", IsNotFound(ne), IsNetwork(ne))
	}
	if !errors.Is(ne, cause) {
		t.Error("NetworkError should wrap its cause")
	}

	if IsNotFound(errors.New("plain")) || IsNetwork(errors.New("plain")) {
		t.Error("plain errors must not be classified")
	}
}
