package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	logFilePrefix = "data"
	logFileExt    = ".csv"

	// Header of the session log. The legacy single-source layout has no
	// source-kind column.
	logHeader       = "source-kind,lat,lon,alt,time"
	legacyLogHeader = "lat,lon,alt,time"

	// maxNameAttempts bounds the search for a free file name when sessions are
	// started within the same second.
	maxNameAttempts = 60
)

// Log is the append-only CSV file of one tracking session.
type Log struct {
	path string

	mu sync.Mutex
	f  *os.File

	closeOnce sync.Once
	closeErr  error
}

// OpenLog creates dir if needed and a new session log in it named after now.
// An existing file is never reused or truncated.
func OpenLog(dir string, now time.Time) (*Log, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory '%s': %w", dir, err)
	}

	ts := now.Unix()
	for i := 0; i < maxNameAttempts; i++ {
		path := filepath.Join(dir, logFileName(ts+int64(i)))

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL|os.O_APPEND, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("creating log file: %w", err)
		}

		if _, err = f.WriteString(logHeader + "\n"); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("writing log header: %w", err)
		}

		return &Log{path: path, f: f}, nil
	}

	return nil, fmt.Errorf("no free log file name in '%s'", dir)
}

// Path returns the log file path.
func (l *Log) Path() string {
	return l.path
}

// Append writes records as rows and syncs the file.
func (l *Log) Append(records ...Record) error {
	if len(records) == 0 {
		return nil
	}

	var sb strings.Builder
	for _, r := range records {
		sb.WriteString(formatRow(r))
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.f == nil {
		return fmt.Errorf("log %s is closed", l.path)
	}
	if _, err := l.f.WriteString(sb.String()); err != nil {
		return fmt.Errorf("appending to %s: %w", l.path, err)
	}
	if err := l.f.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", l.path, err)
	}
	return nil
}

// Close closes the log file. It is safe to call Close multiple times.
func (l *Log) Close() error {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		defer l.mu.Unlock()

		l.closeErr = l.f.Close()
		l.f = nil
	})
	return l.closeErr
}

func formatRow(r Record) string {
	return fmt.Sprintf("%s,%.6f,%.6f,%.2f,%d\n", r.Kind, r.Latitude, r.Longitude, r.Altitude, r.Timestamp)
}

func logFileName(ts int64) string {
	return logFilePrefix + strconv.FormatInt(ts, 10) + logFileExt
}

// parseLogFileName returns the timestamp embedded in a log file name.
func parseLogFileName(name string) (uint64, bool) {
	if !strings.HasPrefix(name, logFilePrefix) || !strings.HasSuffix(name, logFileExt) {
		return 0, false
	}

	digits := strings.TrimSuffix(strings.TrimPrefix(name, logFilePrefix), logFileExt)
	ts, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return ts, true
}
