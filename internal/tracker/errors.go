package tracker

import "fmt"

// WriteError reports a failed append to the session log or the archive. The
// cycle that produced it still updates the canonical position.
type WriteError struct {
	Target string // log path or "archive"
	Err    error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing to %s: %v", e.Target, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
