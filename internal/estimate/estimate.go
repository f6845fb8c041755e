// Package estimate reduces concurrent position samples from several feeds
// into one fused sample.
package estimate

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/roman-kulish/balloon-tracker/internal/telemetry"
)

const (
	PolicyAverage    Policy = "average"
	PolicyMedian     Policy = "median"
	PolicyMostRecent Policy = "recent"
	PolicyFiltered   Policy = "filtered"
)

// ErrNoData is returned when a reduction is asked for with no usable input.
var ErrNoData = errors.New("no data to estimate from")

// Policy selects how candidate samples are fused.
type Policy string

// ParsePolicy maps a case-insensitive policy name to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "average", "mean":
		return PolicyAverage, nil
	case "median":
		return PolicyMedian, nil
	case "recent", "mostrecent", "most-recent":
		return PolicyMostRecent, nil
	case "filtered", "outliers":
		return PolicyFiltered, nil
	}
	return "", fmt.Errorf("unknown estimation policy '%s'", s)
}

func (p Policy) String() string {
	return string(p)
}

// Estimate fuses samples with the given policy. It never returns a zero
// sample with a nil error.
func Estimate(p Policy, samples []telemetry.Sample) (telemetry.Sample, error) {
	if len(samples) == 0 {
		return telemetry.Sample{}, ErrNoData
	}

	switch p {
	case PolicyAverage:
		return Average(samples)
	case PolicyMedian:
		return Median(samples)
	case PolicyMostRecent:
		return MostRecent(samples)
	case PolicyFiltered:
		positions := make([]Position, len(samples))
		times := make([]uint64, len(samples))
		for i, s := range samples {
			positions[i] = Position{Latitude: s.Latitude, Longitude: s.Longitude, Altitude: s.Altitude}
			times[i] = s.Timestamp
		}
		return RejectOutliers(positions, times, DefaultMargin)
	}

	return telemetry.Sample{}, fmt.Errorf("unknown estimation policy '%s'", p)
}

// Average returns the per-field arithmetic mean. The timestamp is the integer
// mean of the input timestamps, truncated.
func Average(samples []telemetry.Sample) (telemetry.Sample, error) {
	n := len(samples)
	if n == 0 {
		return telemetry.Sample{}, ErrNoData
	}

	lat := make([]float64, n)
	lon := make([]float64, n)
	alt := make([]float64, n)
	var ts uint64
	for i, s := range samples {
		lat[i] = s.Latitude
		lon[i] = s.Longitude
		alt[i] = s.Altitude
		ts += s.Timestamp
	}

	return telemetry.Sample{
		Latitude:  stat.Mean(lat, nil),
		Longitude: stat.Mean(lon, nil),
		Altitude:  stat.Mean(alt, nil),
		Timestamp: ts / uint64(n),
	}, nil
}

// Median orders samples by timestamp and returns the middle one. For an even
// count the two middle samples are averaged.
func Median(samples []telemetry.Sample) (telemetry.Sample, error) {
	n := len(samples)
	switch n {
	case 0:
		return telemetry.Sample{}, ErrNoData
	case 1:
		return samples[0], nil
	}

	sorted := slices.Clone(samples)
	slices.SortStableFunc(sorted, func(a, b telemetry.Sample) int {
		return cmpUint(a.Timestamp, b.Timestamp)
	})

	if n%2 == 0 {
		return Average(sorted[n/2-1 : n/2+1])
	}
	return sorted[n/2], nil
}

// MostRecent returns the sample with the greatest timestamp, the first one in
// input order on ties.
func MostRecent(samples []telemetry.Sample) (telemetry.Sample, error) {
	if len(samples) == 0 {
		return telemetry.Sample{}, ErrNoData
	}

	best := samples[0]
	for _, s := range samples[1:] {
		if s.Timestamp > best.Timestamp {
			best = s
		}
	}
	return best, nil
}

func cmpUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
