// Package iridium reads satellite modem telemetry from a Borealis flight server.
package iridium

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"

	"github.com/roman-kulish/balloon-tracker/internal/telemetry"
)

// Column names looked up in the flight data table. Their positions are not
// stable between flights.
const (
	fieldLatitude         = "latitude"
	fieldLongitude        = "longitude"
	fieldAltitude         = "altitude"
	fieldVerticalVelocity = "vertical_velocity"
	fieldGroundSpeed      = "ground_speed"
	fieldDatetime         = "datetime"
)

var requiredFields = []string{
	fieldLatitude,
	fieldLongitude,
	fieldAltitude,
	fieldVerticalVelocity,
	fieldGroundSpeed,
	fieldDatetime,
}

// WithLogger sets the logger for the source
func WithLogger(logger *slog.Logger) func(*Source) {
	return func(s *Source) {
		s.logger = logger.With(
			slog.String("source", string(telemetry.KindIridium)),
			slog.String("modem", s.config.Modem),
		)
	}
}

// Source resolves the most recent flight of a modem and reads its last row.
type Source struct {
	config *Config
	client *http.Client
	logger *slog.Logger
}

// New creates an Iridium source
func New(config *Config, options ...func(*Source)) (*Source, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid Iridium config: %w", err)
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

func (s *Source) Kind() telemetry.SourceKind { return telemetry.KindIridium }
func (s *Source) Identity() string           { return s.config.Modem }

// Fetch returns the freshest row of the modem's latest flight.
func (s *Source) Fetch(ctx context.Context) (telemetry.Sample, error) {
	uid, err := s.latestFlight(ctx)
	if err != nil {
		return telemetry.Sample{}, err
	}

	u, err := url.Parse(s.config.baseURL() + "/api/flight")
	if err != nil {
		return telemetry.Sample{}, fmt.Errorf("parsing base URL: %w", err)
	}
	u.RawQuery = url.Values{"uid": {uid}}.Encode()

	doc, err := telemetry.GetJSON(ctx, s.client, u)
	if err != nil {
		return telemetry.Sample{}, fmt.Errorf("fetching flight %s: %w", uid, err)
	}

	return s.parseFlight(uid, doc)
}

func (s *Source) latestFlight(ctx context.Context) (string, error) {
	u, err := url.Parse(s.config.baseURL() + "/api/meta/flights")
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}
	u.RawQuery = url.Values{"modem_name": {s.config.Modem}}.Encode()

	doc, err := telemetry.GetJSON(ctx, s.client, u)
	if err != nil {
		return "", fmt.Errorf("fetching flights: %w", err)
	}
	if !doc.IsArray() {
		return "", fmt.Errorf("invalid flights response")
	}

	flights := doc.Array()
	if len(flights) == 0 {
		return "", fmt.Errorf("%w: no flights for modem %s", telemetry.ErrNoTelemetry, s.config.Modem)
	}

	uid := flights[len(flights)-1].Get("uid")
	if uid.Type != gjson.String || uid.Str == "" {
		return "", fmt.Errorf("latest flight has no uid")
	}
	return uid.Str, nil
}

func (s *Source) parseFlight(uid string, doc gjson.Result) (telemetry.Sample, error) {
	fields := doc.Get("fields")
	if !fields.IsArray() {
		return telemetry.Sample{}, fmt.Errorf("flight %s: missing fields", uid)
	}

	idx, err := fieldIndexes(fields.Array())
	if err != nil {
		return telemetry.Sample{}, fmt.Errorf("flight %s: %w", uid, err)
	}

	rows := doc.Get("data").Array()
	if len(rows) == 0 {
		return telemetry.Sample{}, fmt.Errorf("%w: flight %s has no data", telemetry.ErrNoTelemetry, uid)
	}

	row := rows[len(rows)-1].Array()
	value := func(name string) (gjson.Result, error) {
		i := idx[name]
		if i >= len(row) || row[i].Type != gjson.Number {
			return gjson.Result{}, fmt.Errorf("flight %s: field '%s' is not a number", uid, name)
		}
		return row[i], nil
	}

	values := make(map[string]gjson.Result, len(requiredFields))
	for _, name := range requiredFields {
		v, err := value(name)
		if err != nil {
			return telemetry.Sample{}, err
		}
		values[name] = v
	}

	sample := telemetry.Sample{
		Latitude:  values[fieldLatitude].Float(),
		Longitude: values[fieldLongitude].Float(),
		Altitude:  values[fieldAltitude].Float(),
		Timestamp: values[fieldDatetime].Uint(),
	}

	s.logger.Debug("iridium position",
		slog.String("flight", uid),
		slog.Float64("lat", sample.Latitude),
		slog.Float64("lon", sample.Longitude),
		slog.Float64("alt", sample.Altitude),
		slog.Float64("verticalVelocity", values[fieldVerticalVelocity].Float()),
		slog.Float64("groundSpeed", values[fieldGroundSpeed].Float()),
		slog.Uint64("datetime", sample.Timestamp),
	)

	return sample, nil
}

func fieldIndexes(fields []gjson.Result) (map[string]int, error) {
	idx := make(map[string]int, len(requiredFields))
	for i, f := range fields {
		if _, ok := idx[f.String()]; !ok {
			idx[f.String()] = i
		}
	}
	for _, name := range requiredFields {
		if _, ok := idx[name]; !ok {
			return nil, fmt.Errorf("missing field '%s'", name)
		}
	}
	return idx, nil
}
