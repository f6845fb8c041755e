package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/roman-kulish/balloon-tracker/internal/telemetry"
)

// LatestLog returns the path of the log in dir with the numerically largest
// embedded timestamp. ok is false when dir has no log file.
func LatestLog(dir string) (path string, ok bool, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading log directory '%s': %w", dir, err)
	}

	var best uint64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ts, valid := parseLogFileName(e.Name())
		if !valid {
			continue
		}
		if !ok || ts > best {
			best, path, ok = ts, filepath.Join(dir, e.Name()), true
		}
	}
	return path, ok, nil
}

// History replays the most recent session log in dir. A missing directory or
// an empty one yields no records. Rows that do not parse are skipped. The
// result is ordered by timestamp.
func History(dir string) ([]Record, error) {
	if st, err := os.Stat(dir); err == nil && !st.IsDir() {
		return nil, fmt.Errorf("log path '%s' is not a directory", dir)
	}

	path, ok, err := LatestLog(dir)
	if err != nil || !ok {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening log: %w", err)
	}
	defer func() { _ = f.Close() }()

	return readRecords(f)
}

func readRecords(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var records []Record
	header := true
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading log: %w", err)
		}

		if header {
			header = false
			if isHeader(row) {
				continue
			}
		}

		if rec, ok := parseRow(row); ok {
			records = append(records, rec)
		}
	}

	slices.SortStableFunc(records, func(a, b Record) int {
		switch {
		case a.Timestamp < b.Timestamp:
			return -1
		case a.Timestamp > b.Timestamp:
			return 1
		}
		return 0
	})
	return records, nil
}

func isHeader(row []string) bool {
	line := strings.Join(row, ",")
	return line == logHeader || line == legacyLogHeader
}

func parseRow(row []string) (Record, bool) {
	var rec Record
	switch len(row) {
	case 5:
		rec.Kind = telemetry.SourceKind(strings.TrimSpace(row[0]))
		row = row[1:]
	case 4:
	default:
		return Record{}, false
	}

	var err error
	if rec.Latitude, err = strconv.ParseFloat(strings.TrimSpace(row[0]), 64); err != nil {
		return Record{}, false
	}
	if rec.Longitude, err = strconv.ParseFloat(strings.TrimSpace(row[1]), 64); err != nil {
		return Record{}, false
	}
	if rec.Altitude, err = strconv.ParseFloat(strings.TrimSpace(row[2]), 64); err != nil {
		return Record{}, false
	}
	if rec.Timestamp, err = strconv.ParseUint(strings.TrimSpace(row[3]), 10, 64); err != nil {
		return Record{}, false
	}
	return rec, true
}
