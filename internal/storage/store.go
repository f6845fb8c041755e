package storage

import (
	"context"
)

// Archive keeps a queryable copy of every tracking session next to the CSV
// logs. Write operations are atomic.
type Archive interface {
	// CreateSession registers a new tracking session and returns its ID.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - logFile: Path of the CSV log written for the session
	//   - policy: Estimation policy in use when the session started
	CreateSession(ctx context.Context, logFile, policy string) (sessionID int64, err error)

	// Session retrieves a session by its ID.
	Session(ctx context.Context, id int64) (*Session, error)

	// Sessions returns all sessions ordered by start time.
	Sessions(ctx context.Context) ([]*Session, error)

	// StoreSamples saves accepted samples of one poll cycle in a single
	// transaction.
	StoreSamples(ctx context.Context, sessionID int64, samples []ArchivedSample) error

	// Samples returns the samples of a session ordered by timestamp.
	Samples(ctx context.Context, sessionID int64) ([]ArchivedSample, error)

	// StoreEstimate saves a fused canonical position.
	StoreEstimate(ctx context.Context, e Estimate) error

	// Estimates returns the fused positions of a session in insertion order.
	Estimates(ctx context.Context, sessionID int64) ([]Estimate, error)

	// Close releases all database connections. It is safe to call Close
	// multiple times.
	Close() error
}
