package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/balloon-tracker/internal/telemetry"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	c.ObserveFetch(telemetry.KindAPRS, 120*time.Millisecond, nil)
	c.ObserveFetch(telemetry.KindAPRS, time.Second, errors.New("timeout"))
	c.ObserveCycle(2, 1)
	c.SetCanonical(telemetry.Sample{Latitude: 45.1, Longitude: -111.1, Altitude: 1510, Timestamp: 150}, 42)
	c.SetActiveFeeds(telemetry.KindIridium, 3)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.Fetches.WithLabelValues("APRS", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Fetches.WithLabelValues("APRS", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Cycles))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.LogRows))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.WriteErrors))
	assert.Equal(t, 45.1, testutil.ToFloat64(c.Latitude))
	assert.Equal(t, 150.0, testutil.ToFloat64(c.FixTimestamp))
	assert.Equal(t, 42.0, testutil.ToFloat64(c.Displacement))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.ActiveFeeds.WithLabelValues("Iridium")))

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "tracker_cycles_total 1")

	_, err = NewCollector(reg)
	assert.Error(t, err)
}

func TestCollector_Nil(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.ObserveFetch(telemetry.KindAPRS, time.Second, nil)
		c.ObserveCycle(1, 0)
		c.SetCanonical(telemetry.Sample{}, 0)
		c.SetActiveFeeds(telemetry.KindAPRS, 1)
	})
}
