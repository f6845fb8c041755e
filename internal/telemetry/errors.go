package telemetry

import (
	"errors"
	"fmt"
)

// ErrNoTelemetry is returned by a source when the remote service answered but
// holds no usable position for the identity. It is recoverable.
var ErrNoTelemetry = errors.New("no telemetry")

// FetchError is a soft, per-source failure of one poll.
type FetchError struct {
	Kind     SourceKind
	Identity string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Kind, e.Identity, e.Err.Error())
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// StatusError is returned when a feed answers with a non-200 status.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.Code, e.URL)
}
