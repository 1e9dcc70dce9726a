package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceRead signals that the record source is missing, unreadable or malformed.
	ErrSourceRead = errors.New("source read failed")
	// ErrBadRequest signals a request body that cannot be decoded.
	ErrBadRequest = errors.New("bad request")
)

// SourceError wraps ErrSourceRead with the path of the failing source.
type SourceError struct {
	Path string
	Err  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("read source %s: %v", e.Path, e.Err)
}

func (e *SourceError) Unwrap() []error { return []error{ErrSourceRead, e.Err} }

// NewSourceError creates a source read error for path.
func NewSourceError(path string, err error) error {
	return &SourceError{Path: path, Err: err}
}
