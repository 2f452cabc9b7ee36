package analysis

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the record id is unknown.
var ErrNotFound = errors.New("analysis not found")

// ErrForbidden indicates the record belongs to a different key.
var ErrForbidden = errors.New("analysis owned by another key")

// ParseError reports model output that could not be parsed as JSON. It keeps
// the offending text so it can be archived or logged for diagnostics.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("model output is not valid JSON: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
