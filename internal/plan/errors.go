package plan

import (
	"errors"
	"fmt"
)

// Sentinel errors for parse failures.
var (
	ErrInvalidJSON   = errors.New("no JSON object found")
	ErrEmptyResponse = errors.New("empty response")
)

// ParseError provides context for plan parsing failures.
type ParseError struct {
	Op  string // Stage that failed (e.g., "decode plan")
	Err error  // Underlying error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
