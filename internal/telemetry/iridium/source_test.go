package iridium

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

const modem = "300434060000000"

func newTestSource(t *testing.T, flights, flight string) *Source {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/meta/flights", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, modem, r.URL.Query().Get("modem_name"))
		_, _ = w.Write([]byte(flights))
	})
	mux.HandleFunc("/api/flight", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "flight-2", r.URL.Query().Get("uid"))
		_, _ = w.Write([]byte(flight))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	src, err := New(&Config{Modem: modem, Endpoint: telemetry.Endpoint{BaseURL: srv.URL}})
	require.NoError(t, err)
	return src
}

const twoFlights = `[{"uid": "flight-1"}, {"uid": "flight-2"}]`

func TestFetch(t *testing.T) {
	// columns deliberately not in the usual order
	src := newTestSource(t, twoFlights, `{
		"fields": ["datetime", "ground_speed", "altitude", "latitude", "vertical_velocity", "longitude", "battery"],
		"data": [
			[1700000000, 3.0, 1200.0, 45.60, 4.5, -111.00, 7.9],
			[1700000060, 3.5, 1460.5, 45.61, 4.3, -111.01, 7.8]
		]
	}`)

	got, err := src.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, telemetry.Sample{
		Latitude:  45.61,
		Longitude: -111.01,
		Altitude:  1460.5,
		Timestamp: 1700000060,
	}, got)
}

func TestFetch_Errors(t *testing.T) {
	tests := []struct {
		name    string
		flights string
		flight  string
		noData  bool
	}{
		{
			name:    "no flights",
			flights: `[]`,
			noData:  true,
		},
		{
			name:    "flights not a list",
			flights: `{"uid": "flight-2"}`,
		},
		{
			name:    "no data rows",
			flights: twoFlights,
			flight:  `{"fields": ["latitude", "longitude", "altitude", "vertical_velocity", "ground_speed", "datetime"], "data": []}`,
			noData:  true,
		},
		{
			name:    "missing field",
			flights: twoFlights,
			flight:  `{"fields": ["latitude", "longitude", "altitude", "datetime"], "data": [[1, 2, 3, 4]]}`,
		},
		{
			name:    "short row",
			flights: twoFlights,
			flight:  `{"fields": ["latitude", "longitude", "altitude", "vertical_velocity", "ground_speed", "datetime"], "data": [[45.0, -111.0]]}`,
		},
		{
			name:    "non numeric value",
			flights: twoFlights,
			flight:  `{"fields": ["latitude", "longitude", "altitude", "vertical_velocity", "ground_speed", "datetime"], "data": [[45.0, -111.0, "high", 1, 1, 1700000000]]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newTestSource(t, tt.flights, tt.flight)

			_, err := src.Fetch(context.Background())
			require.Error(t, err)
			assert.Equal(t, tt.noData, errors.Is(err, telemetry.ErrNoTelemetry))
		})
	}
}

func TestFieldIndexes(t *testing.T) {
	_, err := fieldIndexes(nil)
	assert.Error(t, err)
}
