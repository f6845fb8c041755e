// Package metrics exposes tracker activity as Prometheus metrics.
package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roman-kulish/balloon-tracker/internal/telemetry"
)

// Collector bundles the tracker metrics. A nil *Collector is valid and
// records nothing.
type Collector struct {
	gatherer prometheus.Gatherer

	Fetches       *prometheus.CounterVec   // by kind and result
	FetchDuration *prometheus.HistogramVec // by kind
	Cycles        prometheus.Counter
	LogRows       prometheus.Counter
	WriteErrors   prometheus.Counter

	Latitude     prometheus.Gauge
	Longitude    prometheus.Gauge
	Altitude     prometheus.Gauge
	FixTimestamp prometheus.Gauge
	Displacement prometheus.Gauge
	ActiveFeeds  *prometheus.GaugeVec
}

// NewCollector registers the tracker metrics against reg, defaulting to the
// global registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &Collector{
		gatherer: gatherer,
		Fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_fetches_total",
			Help: "Source fetches, labeled by source kind and result.",
		}, []string{"kind", "result"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tracker_fetch_duration_seconds",
			Help:    "Source fetch latency in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"kind"}),
		Cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_cycles_total",
			Help: "Completed poll cycles.",
		}),
		LogRows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_log_rows_total",
			Help: "Rows appended to the session log.",
		}),
		WriteErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_write_errors_total",
			Help: "Failed session log or archive writes.",
		}),
		Latitude: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_canonical_latitude_degrees",
			Help: "Latitude of the canonical position.",
		}),
		Longitude: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_canonical_longitude_degrees",
			Help: "Longitude of the canonical position.",
		}),
		Altitude: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_canonical_altitude_meters",
			Help: "Altitude of the canonical position.",
		}),
		FixTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_canonical_timestamp_seconds",
			Help: "Unix time of the canonical position.",
		}),
		Displacement: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_canonical_displacement_meters",
			Help: "Ground distance between the last two canonical positions.",
		}),
		ActiveFeeds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tracker_active_feeds",
			Help: "Feeds that have produced a sample, labeled by source kind.",
		}, []string{"kind"}),
	}

	for _, col := range []prometheus.Collector{
		c.Fetches, c.FetchDuration, c.Cycles, c.LogRows, c.WriteErrors,
		c.Latitude, c.Longitude, c.Altitude, c.FixTimestamp, c.Displacement, c.ActiveFeeds,
	} {
		if err := reg.Register(col); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				return nil, fmt.Errorf("tracker metrics already registered: %w", err)
			}
			return nil, err
		}
	}

	return c, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ObserveFetch records the outcome of one source fetch.
func (c *Collector) ObserveFetch(kind telemetry.SourceKind, d time.Duration, err error) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.Fetches.WithLabelValues(string(kind), result).Inc()
	c.FetchDuration.WithLabelValues(string(kind)).Observe(d.Seconds())
}

// ObserveCycle records a finished poll cycle.
func (c *Collector) ObserveCycle(rows, writeErrors int) {
	if c == nil {
		return
	}
	c.Cycles.Inc()
	c.LogRows.Add(float64(rows))
	c.WriteErrors.Add(float64(writeErrors))
}

// SetCanonical publishes the canonical position and its displacement from
// the previous one.
func (c *Collector) SetCanonical(s telemetry.Sample, displacement float64) {
	if c == nil {
		return
	}
	c.Latitude.Set(s.Latitude)
	c.Longitude.Set(s.Longitude)
	c.Altitude.Set(s.Altitude)
	c.FixTimestamp.Set(float64(s.Timestamp))
	c.Displacement.Set(displacement)
}

// SetActiveFeeds publishes the number of valid feeds of a kind.
func (c *Collector) SetActiveFeeds(kind telemetry.SourceKind, n int) {
	if c == nil {
		return
	}
	c.ActiveFeeds.WithLabelValues(string(kind)).Set(float64(n))
}
