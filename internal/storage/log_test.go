package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/balloon-tracker/internal/telemetry"
)

func record(kind telemetry.SourceKind, lat, lon, alt float64, ts uint64) Record {
	return Record{
		Kind:   kind,
		Sample: telemetry.Sample{Latitude: lat, Longitude: lon, Altitude: alt, Timestamp: ts},
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestOpenLog(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Launch Data")
	now := time.Unix(1700000000, 0)

	l, err := OpenLog(dir, now)
	require.NoError(t, err)
	defer l.Close()

	assert.Equal(t, filepath.Join(dir, "data1700000000.csv"), l.Path())
	assert.Equal(t, []string{logHeader}, readLines(t, l.Path()))
}

func TestOpenLog_SameSecond(t *testing.T) {
	dir := t.TempDir()
	now := time.Unix(1700000000, 0)

	first, err := OpenLog(dir, now)
	require.NoError(t, err)
	defer first.Close()

	second, err := OpenLog(dir, now)
	require.NoError(t, err)
	defer second.Close()

	assert.Equal(t, filepath.Join(dir, "data1700000001.csv"), second.Path())
}

func TestLog_Append(t *testing.T) {
	l, err := OpenLog(t.TempDir(), time.Unix(1, 0))
	require.NoError(t, err)

	require.NoError(t, l.Append(record(telemetry.KindAPRS, 45, -111, 1500, 100)))
	require.NoError(t, l.Append(
		record(telemetry.KindIridium, 45.1234567, -111.1, 1510.456, 200),
		record(telemetry.KindSondeHub, 45.2, -111.2, 1520, 300),
	))
	require.NoError(t, l.Append())
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())

	assert.Equal(t, []string{
		logHeader,
		"APRS,45.000000,-111.000000,1500.00,100",
		"Iridium,45.123457,-111.100000,1510.46,200",
		"SondeHub,45.200000,-111.200000,1520.00,300",
	}, readLines(t, l.Path()))

	assert.Error(t, l.Append(record(telemetry.KindAPRS, 1, 1, 1, 1)))
}

func TestParseLogFileName(t *testing.T) {
	tests := []struct {
		name string
		ts   uint64
		ok   bool
	}{
		{"data100.csv", 100, true},
		{"data1700000000.csv", 1700000000, true},
		{"data.csv", 0, false},
		{"dataabc.csv", 0, false},
		{"data100.txt", 0, false},
		{"archive.sqlite", 0, false},
	}
	for _, tt := range tests {
		ts, ok := parseLogFileName(tt.name)
		assert.Equal(t, tt.ok, ok, tt.name)
		assert.Equal(t, tt.ts, ts, tt.name)
	}
}
