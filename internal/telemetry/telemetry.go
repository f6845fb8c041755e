package telemetry

import (
	"fmt"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

const (
	KindAPRS     SourceKind = "APRS"
	KindIridium  SourceKind = "Iridium"
	KindSondeHub SourceKind = "SondeHub"
)

// SourceKind identifies the feed a sample came from. It is written to the
// session log as the first column.
type SourceKind string

// Kinds returns the known source kinds in display order.
func Kinds() []SourceKind {
	return []SourceKind{KindAPRS, KindIridium, KindSondeHub}
}

// ParseSourceKind maps a case-insensitive name to a known SourceKind.
func ParseSourceKind(s string) (SourceKind, error) {
	for _, k := range Kinds() {
		if strings.EqualFold(string(k), strings.TrimSpace(s)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown source kind '%s'", s)
}

func (k SourceKind) String() string {
	return string(k)
}

// Sample is a single normalized position observation. A zero Timestamp means
// the position was never observed.
type Sample struct {
	Latitude  float64 `json:"latitude"`  // Latitude in degrees
	Longitude float64 `json:"longitude"` // Longitude in degrees
	Altitude  float64 `json:"altitude"`  // Altitude in meters
	Timestamp uint64  `json:"timestamp"` // Unix seconds of the fix
}

// IsZero reports whether the sample has never been observed.
func (s Sample) IsZero() bool {
	return s.Timestamp == 0
}

// Time returns the sample timestamp as UTC time.
func (s Sample) Time() time.Time {
	return time.Unix(int64(s.Timestamp), 0).UTC()
}

// Point returns the horizontal position as an orb point (lon, lat).
func (s Sample) Point() orb.Point {
	return orb.Point{s.Longitude, s.Latitude}
}

// DistanceTo returns the great-circle distance in meters between two samples,
// ignoring altitude.
func (s Sample) DistanceTo(o Sample) float64 {
	return geo.DistanceHaversine(s.Point(), o.Point())
}
