package note

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeNotFound     = "NOTE_NOT_FOUND"
	TextCodeNetworkError = "NETWORK_ERROR"
)

// NotFound reports that id does not resolve to a note.
func NotFound(id string) error {
	return goerrors.New("note not found: "+id, goerrors.CategoryNotFound).
		WithTextCode(TextCodeNotFound).
		WithCode(404)
}

// NetworkError wraps a transport or upstream failure.
func NetworkError(err error, message string) error {
	if err == nil {
		err = errors.New(message)
	}
	return goerrors.Wrap(err, goerrors.CategoryExternal, message).
		WithTextCode(TextCodeNetworkError).
		WithCode(502)
}

// IsNotFound reports whether err is a NotFound error.
func IsNotFound(err error) bool {
	return goerrors.IsCategory(err, goerrors.CategoryNotFound)
}

// IsNetwork reports whether err is a NetworkError.
func IsNetwork(err error) bool {
	return goerrors.IsCategory(err, goerrors.CategoryExternal)
}
