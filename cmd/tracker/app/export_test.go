package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/balloon-tracker/internal/storage"
	"github.com/roman-kulish/balloon-tracker/internal/telemetry"
)

func TestExportHistory(t *testing.T) {
	dir := t.TempDir()
	l, err := storage.OpenLog(dir, time.Unix(1700000000, 0))
	require.NoError(t, err)
	require.NoError(t, l.Append(
		storage.Record{Kind: telemetry.KindIridium, Sample: telemetry.Sample{Latitude: 45.1, Longitude: -111.1, Altitude: 1510, Timestamp: 200}},
		storage.Record{Kind: telemetry.KindAPRS, Sample: telemetry.Sample{Latitude: 45.0, Longitude: -111.0, Altitude: 1500, Timestamp: 100}},
	))
	require.NoError(t, l.Close())

	out := filepath.Join(t.TempDir(), "track.geojson")
	n, err := ExportHistory(dir, out)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	fc, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	require.Len(t, fc.Features, 3)

	line, ok := fc.Features[0].Geometry.(orb.LineString)
	require.True(t, ok)
	assert.Equal(t, orb.LineString{{-111.0, 45.0}, {-111.1, 45.1}}, line)

	point, ok := fc.Features[1].Geometry.(orb.Point)
	require.True(t, ok)
	assert.Equal(t, orb.Point{-111.0, 45.0}, point)
	assert.Equal(t, "APRS", fc.Features[1].Properties.MustString("kind"))
}

func TestExportHistory_Empty(t *testing.T) {
	_, err := ExportHistory(t.TempDir(), filepath.Join(t.TempDir(), "track.geojson"))
	assert.Error(t, err)
}
