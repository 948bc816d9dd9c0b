package extract

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEmptyContent      = errors.New("no text content")
	ErrUnreadable        = errors.New("content could not be parsed")
)

// Error reports a failed extraction. Source is the file path or name.
type Error struct {
	Source string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Source, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func fail(source string, sentinel error, cause error) error {
	if cause == nil {
		return &Error{Source: source, Err: sentinel}
	}
	return &Error{Source: source, Err: fmt.Errorf("%w: %v", sentinel, cause)}
}
