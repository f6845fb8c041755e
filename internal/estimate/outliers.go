package estimate

import (
	"math"
	"slices"

	"github.com/roman-kulish/balloon-tracker/internal/telemetry"
)

const (
	// DefaultMargin is the relative half-width of the acceptance band around
	// the per-axis median.
	DefaultMargin = 1.15

	// zeroMedian is the magnitude below which a median is treated as zero and
	// the band falls back to [-margin, margin].
	zeroMedian = 1e-9
)

// Position is a 3D fix without time.
type Position struct {
	Latitude  float64
	Longitude float64
	Altitude  float64
}

type band struct {
	lo, hi float64
}

func (b band) contains(v float64) bool {
	return v >= b.lo && v <= b.hi
}

// RejectOutliers drops observations that fall outside the median band on any
// axis and returns the most recent remaining one.
//
// With one observation it is returned as is, with two their average is
// returned since no outlier test is possible. Empty or mismatched inputs, and
// sets where every observation is rejected, yield ErrNoData.
func RejectOutliers(positions []Position, times []uint64, margin float64) (telemetry.Sample, error) {
	n := len(positions)
	if n == 0 || n != len(times) {
		return telemetry.Sample{}, ErrNoData
	}

	samples := make([]telemetry.Sample, n)
	for i, p := range positions {
		samples[i] = telemetry.Sample{
			Latitude:  p.Latitude,
			Longitude: p.Longitude,
			Altitude:  p.Altitude,
			Timestamp: times[i],
		}
	}

	switch n {
	case 1:
		return samples[0], nil
	case 2:
		return Average(samples)
	}

	lat := make([]float64, n)
	lon := make([]float64, n)
	alt := make([]float64, n)
	for i, p := range positions {
		lat[i], lon[i], alt[i] = p.Latitude, p.Longitude, p.Altitude
	}

	latBand := acceptanceBand(median(lat), margin)
	lonBand := acceptanceBand(median(lon), margin)
	altBand := acceptanceBand(median(alt), margin)

	var inliers []telemetry.Sample
	for _, s := range samples {
		if latBand.contains(s.Latitude) && lonBand.contains(s.Longitude) && altBand.contains(s.Altitude) {
			inliers = append(inliers, s)
		}
	}

	return MostRecent(inliers)
}

// acceptanceBand returns [m*(1-margin), m*(1+margin)] ordered low to high.
// Negative medians (southern latitudes, western longitudes) flip the product.
func acceptanceBand(m, margin float64) band {
	if math.Abs(m) < zeroMedian {
		return band{lo: -margin, hi: margin}
	}

	a, b := m*(1-margin), m*(1+margin)
	if a > b {
		a, b = b, a
	}
	return band{lo: a, hi: b}
}

func median(values []float64) float64 {
	v := slices.Clone(values)
	slices.Sort(v)

	n := len(v)
	if n%2 == 0 {
		return (v[n/2-1] + v[n/2]) / 2
	}
	return v[n/2]
}
