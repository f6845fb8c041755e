// Package aprs polls aprs.fi for the last known position of a callsign.
package aprs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/roman-kulish/balloon-tracker/internal/telemetry"
)

// WithLogger sets the logger for the source
func WithLogger(logger *slog.Logger) func(*Source) {
	return func(s *Source) {
		s.logger = logger.With(
			slog.String("source", string(telemetry.KindAPRS)),
			slog.String("callsign", s.config.Callsign),
		)
	}
}

// Source fetches "loc" records from aprs.fi.
type Source struct {
	config *Config
	client *http.Client
	logger *slog.Logger
}

// New creates an APRS source
func New(config *Config, options ...func(*Source)) (*Source, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid APRS config: %w", err)
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

func (s *Source) Kind() telemetry.SourceKind { return telemetry.KindAPRS }
func (s *Source) Identity() string           { return s.config.Callsign }

// Fetch queries the last position of the callsign. An API level failure or an
// empty result is reported as telemetry.ErrNoTelemetry.
func (s *Source) Fetch(ctx context.Context) (telemetry.Sample, error) {
	u, err := url.Parse(s.config.baseURL() + "/get")
	if err != nil {
		return telemetry.Sample{}, fmt.Errorf("parsing base URL: %w", err)
	}
	q := url.Values{}
	q.Set("name", s.config.Callsign)
	q.Set("what", "loc")
	q.Set("apikey", s.config.APIKey)
	q.Set("format", "json")
	u.RawQuery = q.Encode()

	doc, err := telemetry.GetJSON(ctx, s.client, u)
	if err != nil {
		return telemetry.Sample{}, err
	}

	return s.parse(doc)
}

func (s *Source) parse(doc gjson.Result) (telemetry.Sample, error) {
	if doc.Get("result").String() != "ok" {
		desc := doc.Get("description").String()
		if desc == "" {
			desc = "Unknown error"
		}
		return telemetry.Sample{}, fmt.Errorf("%w: API error: %s", telemetry.ErrNoTelemetry, desc)
	}

	if doc.Get("found").Uint() == 0 {
		return telemetry.Sample{}, fmt.Errorf("%w: no entries found for %s", telemetry.ErrNoTelemetry, s.config.Callsign)
	}

	entry := doc.Get("entries.0")
	if !entry.IsObject() {
		return telemetry.Sample{}, fmt.Errorf("failed to parse position data from response")
	}

	sample := telemetry.Sample{
		Latitude:  numberOrZero(entry.Get("lat")),
		Longitude: numberOrZero(entry.Get("lng")),
		Altitude:  numberOrZero(entry.Get("altitude")),
	}
	if t := numberOrZero(entry.Get("lasttime")); t > 0 {
		sample.Timestamp = uint64(t)
	}

	s.logger.Debug("aprs position",
		slog.Float64("lat", sample.Latitude),
		slog.Float64("lon", sample.Longitude),
		slog.Float64("alt", sample.Altitude),
		slog.Float64("speed", numberOrZero(entry.Get("speed"))),
		slog.String("comment", entry.Get("comment").String()),
		slog.String("symbol", entry.Get("symbol").String()),
		slog.String("path", entry.Get("path").String()),
		slog.Uint64("lasttime", sample.Timestamp),
	)

	return sample, nil
}

// numberOrZero reads a numeric field that aprs.fi usually encodes as a string.
// Anything that does not parse yields 0.
func numberOrZero(r gjson.Result) float64 {
	switch r.Type {
	case gjson.Number:
		return r.Float()
	case gjson.String:
		f, err := strconv.ParseFloat(r.Str, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
