package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// DefaultTimeout bounds a single HTTP request made by a source.
const DefaultTimeout = 15 * time.Second

// Source is a remote feed that can be polled for its freshest sample.
// Implementations must not panic on malformed payloads.
type Source interface {
	Kind() SourceKind
	Identity() string // Callsign or modem id
	Fetch(ctx context.Context) (Sample, error)
}

// Endpoint carries the per-source connection settings.
type Endpoint struct {
	BaseURL string        `json:"baseURL,omitempty"`
	APIKey  string        `json:"-"`
	Timeout time.Duration `json:"timeout,omitempty"`
}

// HTTPClient returns a client honouring the endpoint timeout.
func (e Endpoint) HTTPClient() *http.Client {
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// Feed is a registered Source instance together with its last good sample.
type Feed struct {
	source Source

	mu     sync.RWMutex
	latest Sample
}

// NewFeed wraps a source. The feed starts with a zero sample.
func NewFeed(src Source) *Feed {
	return &Feed{source: src}
}

func (f *Feed) Kind() SourceKind { return f.source.Kind() }
func (f *Feed) Identity() string { return f.source.Identity() }

// Poll fetches a fresh sample. On failure the previous sample is retained and
// the error is returned as a *FetchError.
func (f *Feed) Poll(ctx context.Context) (Sample, error) {
	s, err := f.source.Fetch(ctx)
	if err != nil {
		return Sample{}, &FetchError{Kind: f.Kind(), Identity: f.Identity(), Err: err}
	}
	if s.IsZero() {
		// a fix without time cannot replace the last good one
		return Sample{}, &FetchError{Kind: f.Kind(), Identity: f.Identity(), Err: fmt.Errorf("%w: missing timestamp", ErrNoTelemetry)}
	}

	f.mu.Lock()
	f.latest = s
	f.mu.Unlock()

	return s, nil
}

// Latest returns the last successfully fetched sample.
func (f *Feed) Latest() Sample {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.latest
}

// IsValid reports whether the feed has ever produced a non-zero sample.
func (f *Feed) IsValid() bool {
	return !f.Latest().IsZero()
}
