package note

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	// DefaultPerPage is the page size used by list routes.
	DefaultPerPage = 12
	// MaxPerPage bounds the page size accepted from callers.
	MaxPerPage = 100
	// MaxPage bounds the page number so offsets stay far from overflow.
	MaxPage = 100000
)

// ListParams are the pagination and filter inputs of a list request.
type ListParams struct {
	Page    int
	PerPage int
	Search  string
	Tag     Tag
}

// Normalize returns the canonical form of p: page within [1, MaxPage],
// default page size, trimmed search. Two semantically equal requests normalize to equal
// values.
func (p ListParams) Normalize() ListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.PerPage <= 0 {
		p.PerPage = DefaultPerPage
	}
	p.Search = strings.TrimSpace(p.Search)
	return p
}

// Validate checks the normalized params.
func (p ListParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Page, validation.Required, validation.Min(1), validation.Max(MaxPage)),
		validation.Field(&p.PerPage, validation.Required, validation.Min(1), validation.Max(MaxPerPage)),
		validation.Field(&p.Tag, validation.By(func(value any) error {
			if tag, _ := value.(Tag); !tag.Valid() {
				return validation.NewError("validation_tag_unrecognized", "unrecognized tag")
			}
			return nil
		})),
	)
}
