package app

import (
	"fmt"
	"os"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/roman-kulish/balloon-tracker/internal/storage"
)

// ExportHistory replays the latest session log in dir and writes it to path
// as a GeoJSON feature collection: one LineString for the track followed by a
// Point per logged sample.
func ExportHistory(dir, path string) (int, error) {
	records, err := storage.History(dir)
	if err != nil {
		return 0, fmt.Errorf("reading history: %w", err)
	}
	if len(records) == 0 {
		return 0, fmt.Errorf("no history in '%s'", dir)
	}

	data, err := TrackGeoJSON(records).MarshalJSON()
	if err != nil {
		return 0, fmt.Errorf("encoding GeoJSON: %w", err)
	}

	if err = os.WriteFile(path, data, 0o644); err != nil {
		return 0, fmt.Errorf("writing GeoJSON: %w", err)
	}
	return len(records), nil
}

// TrackGeoJSON converts replayed records, ordered by time, into a feature
// collection.
func TrackGeoJSON(records []storage.Record) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	line := make(orb.LineString, 0, len(records))
	for _, r := range records {
		line = append(line, r.Point())
	}

	track := geojson.NewFeature(line)
	track.Properties["samples"] = len(records)
	track.Properties["start"] = records[0].Time().UTC().Format(time.RFC3339)
	track.Properties["end"] = records[len(records)-1].Time().UTC().Format(time.RFC3339)
	fc.Append(track)

	for _, r := range records {
		f := geojson.NewFeature(r.Point())
		f.Properties["kind"] = string(r.Kind)
		f.Properties["altitude"] = r.Altitude
		f.Properties["time"] = r.Timestamp
		fc.Append(f)
	}

	return fc
}
