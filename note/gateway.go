package note

import "context"

// Gateway is the remote notes API. Implementations report missing notes with
// NotFound and transport failures with NetworkError. FetchNotes never fails
// with NotFound; an empty page is a valid result.
type Gateway interface {
	FetchNoteByID(ctx context.Context, id string) (Note, error)
	FetchNotes(ctx context.Context, params ListParams) (NotesPage, error)
}

// GatewayFuncs adapts plain functions to Gateway.
type GatewayFuncs struct {
	NoteByID func(ctx context.Context, id string) (Note, error)
	Notes    func(ctx context.Context, params ListParams) (NotesPage, error)
}

func (g GatewayFuncs) FetchNoteByID(ctx context.Context, id string) (Note, error) {
	return g.NoteByID(ctx, id)
}

func (g GatewayFuncs) FetchNotes(ctx context.Context, params ListParams) (NotesPage, error) {
	return g.Notes(ctx, params)
}
