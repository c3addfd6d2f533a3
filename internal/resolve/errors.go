package resolve

import (
	"errors"
	"fmt"
)

// Sentinel errors for fatal resolution failures. Nothing executes when
// resolution fails.
var (
	ErrRootNotWritable = errors.New("root directory not writable")
	ErrPathEscape      = errors.New("path escapes root directory")
)

// ResolutionError provides context for resolution failures.
type ResolutionError struct {
	Op   string // Operation that failed (e.g., "resolve folder")
	Path string // Offending path if applicable
	Err  error  // Underlying error
}

func (e *ResolutionError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s '%s': %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}
