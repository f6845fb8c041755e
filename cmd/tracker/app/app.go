package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/roman-kulish/balloon-tracker/internal/estimate"
	"github.com/roman-kulish/balloon-tracker/internal/metrics"
	"github.com/roman-kulish/balloon-tracker/internal/storage"
	"github.com/roman-kulish/balloon-tracker/internal/telemetry"
	"github.com/roman-kulish/balloon-tracker/internal/tracker"
)

// Run registers the configured sources and polls them on the configured
// schedule until ctx is cancelled.
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	t, err := createTracker(config, logger)
	if err != nil {
		return fmt.Errorf("failed to create tracker: %w", err)
	}
	defer func() {
		if err := t.Close(); err != nil {
			logger.Error("closing tracker", slog.String("error", err.Error()))
		}
	}()

	if err = registerSources(t, config.Sources); err != nil {
		return fmt.Errorf("failed to register sources: %w", err)
	}

	scheduler, err := NewScheduler(config.Tracker.Schedule, func() { runCycle(ctx, t, logger) }, logger)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	runCycle(ctx, t, logger)
	scheduler.Start()

	<-ctx.Done()
	scheduler.Stop()

	logger.Info("tracker stopped", slog.String("log", t.LogPath()))
	return nil
}

func createTracker(config *Config, logger *slog.Logger) (*tracker.Tracker, error) {
	policy, err := estimate.ParsePolicy(config.Tracker.Policy)
	if err != nil {
		return nil, err
	}

	dir, err := dataDirectory(config.Tracker.DataDirectory)
	if err != nil {
		return nil, err
	}

	options := []func(*tracker.Tracker){tracker.WithLogger(logger)}

	if config.Tracker.Archive {
		if err = os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		options = append(options, tracker.WithArchive(storage.NewSqliteStore(filepath.Join(dir, archiveFileName))))
	}

	if config.Metrics.Listen != "" {
		registry := prometheus.NewRegistry()
		collector, err := metrics.NewCollector(registry)
		if err != nil {
			return nil, fmt.Errorf("creating metrics: %w", err)
		}
		serveMetrics(config.Metrics.Listen, collector, logger)
		options = append(options, tracker.WithMetrics(collector))
	}

	return tracker.New(dir, policy, options...), nil
}

func registerSources(t *tracker.Tracker, sources []SourceConfig) error {
	for i := range sources {
		src := &sources[i]
		kind, err := telemetry.ParseSourceKind(src.Kind)
		if err != nil {
			return err
		}
		if err = t.Register(kind, src.Identity, src.Endpoint()); err != nil {
			return fmt.Errorf("registering %s %s: %w", kind, src.Identity, err)
		}
	}
	return nil
}

// dataDirectory resolves dir against the working directory and rejects paths
// that exist but are not directories.
func dataDirectory(dir string) (string, error) {
	if !filepath.IsAbs(dir) {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get current working directory: %w", err)
		}
		dir = filepath.Join(wd, dir)
	}

	stat, err := os.Stat(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return dir, nil
	case err != nil:
		return "", fmt.Errorf("checking data directory '%s': %w", dir, err)
	case !stat.IsDir():
		return "", fmt.Errorf("invalid data directory '%s'", dir)
	}
	return dir, nil
}

func serveMetrics(addr string, collector *metrics.Collector, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("serving metrics", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", slog.String("error", err.Error()))
		}
	}()
}

func runCycle(ctx context.Context, t *tracker.Tracker, logger *slog.Logger) {
	if ctx.Err() != nil {
		return
	}

	for _, err := range t.Update(ctx) {
		logger.Warn(err.Error())
	}

	logStatus(t, logger, time.Now())
}

func logStatus(t *tracker.Tracker, logger *slog.Logger, now time.Time) {
	c := t.Canonical()
	if c.IsZero() {
		logger.Info("no position yet", activeAttrs(t)...)
		return
	}

	attrs := []any{
		slog.Float64("lat", round3(c.Latitude)),
		slog.Float64("lon", round3(c.Longitude)),
		slog.Float64("alt", round3(c.Altitude)),
		slog.String("fix", humanize.RelTime(c.Time(), now, "ago", "from now")),
	}
	logger.Info("position", append(attrs, activeAttrs(t)...)...)
}

func activeAttrs(t *tracker.Tracker) []any {
	var attrs []any
	for _, kind := range telemetry.Kinds() {
		validity := t.Validity(kind)
		if len(validity) == 0 {
			continue
		}
		valid := 0
		for _, ok := range validity {
			if ok {
				valid++
			}
		}
		attrs = append(attrs, slog.String(string(kind), fmt.Sprintf("%d/%d", valid, len(validity))))
	}
	return attrs
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
