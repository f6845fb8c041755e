// Package sondehub reads the latest amateur payload telemetry from SondeHub.
package sondehub

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"github.com/roman-kulish/balloon-tracker/internal/telemetry"
)

// WithLogger sets the logger for the source
func WithLogger(logger *slog.Logger) func(*Source) {
	return func(s *Source) {
		s.logger = logger.With(
			slog.String("source", string(telemetry.KindSondeHub)),
			slog.String("callsign", s.config.Callsign),
		)
	}
}

// Source queries the SondeHub amateur aggregate for one callsign.
type Source struct {
	config *Config
	client *http.Client
	logger *slog.Logger
}

// New creates a SondeHub source
func New(config *Config, options ...func(*Source)) (*Source, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid SondeHub config: %w", err)
	}

	s := Source{
		config: config,
		client: config.HTTPClient(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&s)
	}

	return &s, nil
}

func (s *Source) Kind() telemetry.SourceKind { return telemetry.KindSondeHub }
func (s *Source) Identity() string           { return s.config.Callsign }

// Fetch returns the latest telemetry for the callsign. A missing entry is
// reported as telemetry.ErrNoTelemetry.
func (s *Source) Fetch(ctx context.Context) (telemetry.Sample, error) {
	u, err := url.Parse(s.config.baseURL() + "/amateur")
	if err != nil {
		return telemetry.Sample{}, fmt.Errorf("parsing base URL: %w", err)
	}
	u.RawQuery = url.Values{"callsign": {s.config.Callsign}}.Encode()

	doc, err := telemetry.GetJSON(ctx, s.client, u)
	if err != nil {
		return telemetry.Sample{}, err
	}

	return s.parse(doc)
}

func (s *Source) parse(doc gjson.Result) (telemetry.Sample, error) {
	// callsigns may contain dots or wildcards, so no path lookup here
	var entry gjson.Result
	doc.ForEach(func(key, value gjson.Result) bool {
		if key.String() == s.config.Callsign {
			entry = value
			return false
		}
		return true
	})

	if !entry.IsObject() {
		return telemetry.Sample{}, fmt.Errorf("%w: no SondeHub telemetry data found for %s", telemetry.ErrNoTelemetry, s.config.Callsign)
	}

	for _, name := range []string{"lat", "lon", "alt"} {
		if entry.Get(name).Type != gjson.Number {
			return telemetry.Sample{}, fmt.Errorf("field '%s' is not a number", name)
		}
	}

	received := entry.Get("time_received").String()
	ts, err := time.Parse(time.RFC3339Nano, received)
	if err != nil {
		return telemetry.Sample{}, fmt.Errorf("parsing time_received '%s': %w", received, err)
	}
	if ts.Unix() <= 0 {
		return telemetry.Sample{}, fmt.Errorf("time_received '%s' is before the epoch", received)
	}

	sample := telemetry.Sample{
		Latitude:  entry.Get("lat").Float(),
		Longitude: entry.Get("lon").Float(),
		Altitude:  entry.Get("alt").Float(),
		Timestamp: uint64(ts.Unix()),
	}

	s.logger.Debug("sondehub position",
		slog.Float64("lat", sample.Latitude),
		slog.Float64("lon", sample.Longitude),
		slog.Float64("alt", sample.Altitude),
		slog.String("timeReceived", received),
	)

	return sample, nil
}
