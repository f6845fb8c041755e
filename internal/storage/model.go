package storage

import (
	"time"

	"github.com/roman-kulish/balloon-tracker/internal/telemetry"
)

// Record is one accepted sample tagged with the kind of feed that produced
// it. Records read from legacy four-column logs have an empty Kind.
type Record struct {
	Kind telemetry.SourceKind `json:"kind"`
	telemetry.Sample
}

// Session describes one tracking session stored in the archive.
type Session struct {
	ID        int64     `json:"ID"`
	StartTime time.Time `json:"startTime"` // When the session log was created
	LogFile   string    `json:"logFile"`   // CSV log written alongside the archive
	Policy    string    `json:"policy"`    // Estimation policy at session start
}

// ArchivedSample is a Record stored in the archive with its feed identity.
type ArchivedSample struct {
	ID        int64  `json:"ID"`
	SessionID int64  `json:"sessionID"`
	Identity  string `json:"identity"` // Callsign or modem id
	Record
}

// Estimate is a fused canonical position stored in the archive.
type Estimate struct {
	SessionID  int64     `json:"sessionID"`
	Policy     string    `json:"policy"`
	ComputedAt time.Time `json:"computedAt"`
	telemetry.Sample
}
