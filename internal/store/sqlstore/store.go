// Package sqlstore serves notes from a SQL database through bun. It backs
// the notes API when the server runs against its own data instead of an
// upstream gateway.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/goliatone/go-notehub/note"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// SelectCriteria narrows a notes query.
type SelectCriteria func(*bun.SelectQuery) *bun.SelectQuery

// Options select the database.
type Options struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// Store is a note.Gateway over a bun database.
type Store struct {
	db     *bun.DB
	logger *slog.Logger
}

var _ note.Gateway = (*Store)(nil)

// Open connects to the database named by opts.
func Open(opts Options, logger *slog.Logger) (*Store, error) {
	sqldb, err := sql.Open(opts.Driver, opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", opts.Driver, err)
	}

	var db *bun.DB
	switch opts.Driver {
	case DriverSQLite:
		// a single connection keeps in-memory databases alive and shared
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())
	case DriverPostgres:
		db = bun.NewDB(sqldb, pgdialect.New())
	default:
		sqldb.Close()
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", opts.Driver)
	}
	return New(db, logger), nil
}

// New wraps an existing bun database.
func New(db *bun.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// DB exposes the underlying database.
func (s *Store) DB() *bun.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// CreateSchema creates the notes table and its indexes if missing.
func (s *Store) CreateSchema(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().
		Model((*note.Note)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("sqlstore: create notes table: %w", err)
	}
	if _, err := s.db.NewCreateIndex().
		Model((*note.Note)(nil)).
		Index("notes_tag_created_at_idx").
		Column("tag", "created_at").
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("sqlstore: create notes index: %w", err)
	}
	return nil
}

// Seed inserts notes, skipping ids that already exist. Notes without an id
// get a random UUID; notes without a timestamp get the current time.
func (s *Store) Seed(ctx context.Context, notes []note.Note) (int, error) {
	if len(notes) == 0 {
		return 0, nil
	}
	rows := make([]note.Note, len(notes))
	now := time.Now().UTC()
	for i, n := range notes {
		if n.ID == "" {
			n.ID = uuid.NewString()
		}
		if n.CreatedAt.IsZero() {
			n.CreatedAt = now
		}
		if !n.Tag.Valid() {
			return 0, fmt.Errorf("sqlstore: note %s has an unrecognized tag", n.ID)
		}
		rows[i] = n
	}

	res, err := s.db.NewInsert().
		Model(&rows).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("sqlstore: seed notes: %w", err)
	}
	inserted, _ := res.RowsAffected()
	s.logger.InfoContext(ctx, "seeded notes", "requested", len(rows), "inserted", inserted)
	return int(inserted), nil
}

// FetchNoteByID loads one note.
func (s *Store) FetchNoteByID(ctx context.Context, id string) (note.Note, error) {
	var n note.Note
	err := s.db.NewSelect().Model(&n).Where("id = ?", id).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return note.Note{}, note.NotFound(id)
	}
	if err != nil {
		return note.Note{}, note.NetworkError(err, "failed to load note")
	}
	return n, nil
}

// FetchNotes loads one page, newest first.
func (s *Store) FetchNotes(ctx context.Context, params note.ListParams) (note.NotesPage, error) {
	p := params.Normalize()
	if err := p.Validate(); err != nil {
		return note.NotesPage{}, note.NetworkError(err, "invalid list parameters")
	}

	notes := []note.Note{}
	q := s.db.NewSelect().Model(&notes)
	for _, c := range []SelectCriteria{ByTag(p.Tag), Matching(p.Search), NewestFirst(), Paginate(p.Page, p.PerPage)} {
		q = c(q)
	}

	total, err := q.ScanAndCount(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return note.NotesPage{}, note.NetworkError(err, "failed to list notes")
	}
	return note.NotesPage{Notes: notes, Total: total, Page: p.Page}, nil
}

// ByTag keeps notes with tag. TagNone matches every note.
func ByTag(tag note.Tag) SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		if tag == note.TagNone {
			return q
		}
		return q.Where("tag = ?", tag.String())
	}
}

// Matching keeps notes whose title or content contains term, case
// insensitively.
func Matching(term string) SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		term = strings.TrimSpace(term)
		if term == "" {
			return q
		}
		pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
		return q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("LOWER(title) LIKE ? ESCAPE '!'", pattern).
				WhereOr("LOWER(content) LIKE ? ESCAPE '!'", pattern)
		})
	}
}

// NewestFirst orders by creation time, then id for a stable order.
func NewestFirst() SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Order("created_at DESC", "id ASC")
	}
}

// Paginate selects one page. Out of range values are clamped to the bounds
// ListParams accepts.
func Paginate(page, perPage int) SelectCriteria {
	page = min(max(page, 1), note.MaxPage)
	perPage = min(max(perPage, 1), note.MaxPerPage)
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Limit(perPage).Offset((page - 1) * perPage)
	}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`)
	return r.Replace(s)
}
