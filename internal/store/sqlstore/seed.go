package sqlstore

import (
	"time"

	"github.com/goliatone/go-notehub/note"
)

// DefaultSeed is the demo data set: enough notes across every tag to span
// more than one list page.
func DefaultSeed(now time.Time) []note.Note {
	type row struct {
		title, content string
		tag            note.Tag
	}
	rows := []row{
		{"Buy milk", "Oat milk, two cartons", note.TagShopping},
		{"Quarterly review", "Prepare slides for the quarterly review", note.TagWork},
		{"Standup", "Daily standup at 9:30", note.TagMeeting},
		{"Fix bike", "Replace the chain and oil the gears", note.TagTodo},
		{"Call mom", "Sunday afternoon", note.TagPersonal},
		{"Deploy API", "Roll out v2 to staging, then production", note.TagWork},
		{"Groceries", "Eggs, bread, coffee", note.TagShopping},
		{"Dentist", "Book a checkup", note.TagPersonal},
		{"Retro", "Sprint retrospective with the team", note.TagMeeting},
		{"Pay rent", "Transfer before the 1st", note.TagTodo},
		{"Design doc", "Draft the caching design doc", note.TagWork},
		{"Birthday gift", "Find something for Sam", note.TagShopping},
		{"Planning", "Quarter planning session", note.TagMeeting},
		{"Read", "Finish the book on distributed systems", note.TagPersonal},
		{"Scratch", "Loose thoughts without a tag", note.TagNone},
	}

	base := now.UTC().Add(-time.Duration(len(rows)) * time.Hour)
	notes := make([]note.Note, len(rows))
	for i, r := range rows {
		notes[i] = note.Note{
			Title:     r.title,
			Content:   r.content,
			Tag:       r.tag,
			CreatedAt: base.Add(time.Duration(i) * time.Hour).Truncate(time.Second),
		}
	}
	return notes
}
