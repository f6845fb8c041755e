package sondehub

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/balloon-tracker/internal/telemetry"
)

func newTestSource(t *testing.T, callsign string, status int, body string) *Source {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/amateur", r.URL.Path)
		assert.Equal(t, callsign, r.URL.Query().Get("callsign"))

		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	src, err := New(&Config{Callsign: callsign, Endpoint: telemetry.Endpoint{BaseURL: srv.URL}})
	require.NoError(t, err)
	return src
}

func TestFetch(t *testing.T) {
	src := newTestSource(t, "KF0ABC.11", http.StatusOK, `{
		"OTHER": {"lat": 1, "lon": 2, "alt": 3, "time_received": "2023-11-14T22:13:20Z"},
		"KF0ABC.11": {"lat": 45.7, "lon": -111.05, "alt": 18250.4, "time_received": "2023-11-14T22:13:20.123456Z"}
	}`)

	got, err := src.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, telemetry.Sample{
		Latitude:  45.7,
		Longitude: -111.05,
		Altitude:  18250.4,
		Timestamp: 1700000000,
	}, got)
}

func TestFetch_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		noData bool
	}{
		{"missing callsign", http.StatusOK, `{"OTHER": {"lat": 1, "lon": 2, "alt": 3}}`, true},
		{"empty object", http.StatusOK, `{}`, true},
		{"entry not an object", http.StatusOK, `{"KF0ABC": 12}`, true},
		{"string latitude", http.StatusOK, `{"KF0ABC": {"lat": "45", "lon": 2, "alt": 3, "time_received": "2023-11-14T22:13:20Z"}}`, false},
		{"bad time", http.StatusOK, `{"KF0ABC": {"lat": 45, "lon": 2, "alt": 3, "time_received": "yesterday"}}`, false},
		{"bad status", http.StatusNotFound, `{}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newTestSource(t, "KF0ABC", tt.status, tt.body)

			_, err := src.Fetch(context.Background())
			require.Error(t, err)
			assert.Equal(t, tt.noData, errors.Is(err, telemetry.ErrNoTelemetry))
		})
	}
}
