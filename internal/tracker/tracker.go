// Package tracker fuses registered telemetry feeds into one canonical
// position and records every accepted sample to the session log.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roman-kulish/balloon-tracker/internal/estimate"
	"github.com/roman-kulish/balloon-tracker/internal/metrics"
	"github.com/roman-kulish/balloon-tracker/internal/storage"
	"github.com/roman-kulish/balloon-tracker/internal/telemetry"
)

// WithLogger sets the logger used by the tracker and the sources it creates.
func WithLogger(logger *slog.Logger) func(*Tracker) {
	return func(t *Tracker) {
		t.logger = logger.With(slog.String("component", "tracker"))
	}
}

// WithArchive mirrors logged samples and fused positions into archive.
func WithArchive(archive storage.Archive) func(*Tracker) {
	return func(t *Tracker) {
		t.archive = archive
	}
}

// WithMetrics publishes fetch and cycle metrics to c.
func WithMetrics(c *metrics.Collector) func(*Tracker) {
	return func(t *Tracker) {
		t.metrics = c
	}
}

// WithClock overrides the clock used to name the session log.
func WithClock(now func() time.Time) func(*Tracker) {
	return func(t *Tracker) {
		t.now = now
	}
}

type feedKey struct {
	kind     telemetry.SourceKind
	identity string
}

// snapshot is the read-only view published after every state change. Readers
// fall back to it while an update holds the lock.
type snapshot struct {
	canonical telemetry.Sample
	policy    estimate.Policy
	validity  map[telemetry.SourceKind][]bool
}

// Tracker owns the registered feeds, the canonical position and the session
// log. All methods are safe for concurrent use.
type Tracker struct {
	dir     string
	logger  *slog.Logger
	archive storage.Archive
	metrics *metrics.Collector
	now     func() time.Time

	mu        sync.Mutex
	feeds     []*telemetry.Feed
	index     map[feedKey]struct{}
	written   map[*telemetry.Feed]uint64 // last logged timestamp per feed
	canonical telemetry.Sample
	policy    estimate.Policy
	log       *storage.Log
	sessionID int64

	snap atomic.Pointer[snapshot]
}

// New creates a tracker writing its session log under dir. Nothing touches the
// filesystem until the first source is registered.
func New(dir string, policy estimate.Policy, options ...func(*Tracker)) *Tracker {
	t := Tracker{
		dir:     dir,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:     time.Now,
		index:   make(map[feedKey]struct{}),
		written: make(map[*telemetry.Feed]uint64),
		policy:  policy,
	}

	for _, option := range options {
		option(&t)
	}

	t.publish()
	return &t
}

// Register creates a network source of the given kind and adds it. A second
// registration of the same kind and identity is a no-op.
func (t *Tracker) Register(kind telemetry.SourceKind, identity string, ep telemetry.Endpoint) error {
	t.mu.Lock()
	_, exists := t.index[feedKey{kind, identity}]
	t.mu.Unlock()
	if exists {
		return nil
	}

	src, err := NewSource(kind, identity, ep, t.logger)
	if err != nil {
		return err
	}
	return t.AddSource(src)
}

// AddSource registers an already constructed source. The first registration
// creates the data directory and the session log.
func (t *Tracker) AddSource(src telemetry.Source) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := feedKey{src.Kind(), src.Identity()}
	if _, ok := t.index[key]; ok {
		return nil
	}

	if err := t.openLog(); err != nil {
		return err
	}

	t.feeds = append(t.feeds, telemetry.NewFeed(src))
	t.index[key] = struct{}{}
	t.logger.Info("source registered",
		slog.String("kind", string(key.kind)),
		slog.String("identity", key.identity))

	t.publish()
	return nil
}

func (t *Tracker) openLog() error {
	if t.log != nil {
		return nil
	}

	l, err := storage.OpenLog(t.dir, t.now())
	if err != nil {
		return fmt.Errorf("creating session log: %w", err)
	}
	t.log = l
	t.logger.Info("session log created", slog.String("path", l.Path()))

	if t.archive != nil {
		id, err := t.archive.CreateSession(context.Background(), l.Path(), t.policy.String())
		if err != nil {
			t.logger.Warn("archive disabled", slog.String("error", err.Error()))
			t.archive = nil
			return nil
		}
		t.sessionID = id
	}

	return nil
}

// Update polls every feed, logs new samples and recomputes the canonical
// position. Source and write failures are returned, they never abort the
// cycle.
func (t *Tracker) Update(ctx context.Context) []error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.feeds) == 0 {
		return nil
	}

	errs := t.pollAll(ctx)

	var candidates []telemetry.Sample
	var fresh []*telemetry.Feed
	for _, f := range t.feeds {
		s := f.Latest()
		if s.IsZero() {
			continue
		}
		candidates = append(candidates, s)
		if t.written[f] != s.Timestamp {
			fresh = append(fresh, f)
		}
	}

	rows, writeErrs := t.record(ctx, fresh)
	errs = append(errs, writeErrs...)

	fused, err := estimate.Estimate(t.policy, candidates)
	switch {
	case errors.Is(err, estimate.ErrNoData):
		// canonical stays as it was
	case err != nil:
		errs = append(errs, fmt.Errorf("estimating position: %w", err))
	case !fused.IsZero():
		errs = append(errs, t.setCanonical(ctx, fused)...)
	}

	t.metrics.ObserveCycle(rows, len(writeErrs))
	t.publish()

	t.logger.Debug("update complete",
		slog.Int("feeds", len(t.feeds)),
		slog.Int("candidates", len(candidates)),
		slog.Int("rows", rows),
		slog.Int("errors", len(errs)))

	return errs
}

func (t *Tracker) pollAll(ctx context.Context) []error {
	results := make([]error, len(t.feeds))

	var wg sync.WaitGroup
	for i, f := range t.feeds {
		wg.Add(1)
		go func() {
			defer wg.Done()

			start := time.Now()
			_, err := f.Poll(ctx)
			t.metrics.ObserveFetch(f.Kind(), time.Since(start), err)
			results[i] = err
		}()
	}
	wg.Wait()

	var errs []error
	for _, err := range results {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// record appends the latest sample of each feed to the log and the archive.
// A feed is only marked as written once the log accepted its row.
func (t *Tracker) record(ctx context.Context, feeds []*telemetry.Feed) (int, []error) {
	if len(feeds) == 0 || t.log == nil {
		return 0, nil
	}

	records := make([]storage.Record, len(feeds))
	for i, f := range feeds {
		records[i] = storage.Record{Kind: f.Kind(), Sample: f.Latest()}
	}

	var errs []error
	rows := 0
	if err := t.log.Append(records...); err != nil {
		errs = append(errs, &WriteError{Target: t.log.Path(), Err: err})
	} else {
		rows = len(records)
		for i, f := range feeds {
			t.written[f] = records[i].Timestamp
		}
	}

	if t.archive != nil {
		archived := make([]storage.ArchivedSample, len(feeds))
		for i, f := range feeds {
			archived[i] = storage.ArchivedSample{
				SessionID: t.sessionID,
				Identity:  f.Identity(),
				Record:    records[i],
			}
		}
		if err := t.archive.StoreSamples(ctx, t.sessionID, archived); err != nil {
			errs = append(errs, &WriteError{Target: "archive", Err: err})
		}
	}

	return rows, errs
}

func (t *Tracker) setCanonical(ctx context.Context, fused telemetry.Sample) []error {
	prev := t.canonical
	if fused == prev {
		return nil
	}
	t.canonical = fused

	var displacement float64
	if !prev.IsZero() {
		displacement = prev.DistanceTo(fused)
	}
	t.metrics.SetCanonical(fused, displacement)

	if t.archive == nil {
		return nil
	}
	err := t.archive.StoreEstimate(ctx, storage.Estimate{
		SessionID:  t.sessionID,
		Policy:     t.policy.String(),
		ComputedAt: t.now(),
		Sample:     fused,
	})
	if err != nil {
		return []error{&WriteError{Target: "archive", Err: err}}
	}
	return nil
}

// publish stores a fresh snapshot. Callers hold t.mu.
func (t *Tracker) publish() {
	s := t.buildSnapshot()
	for _, kind := range telemetry.Kinds() {
		n := 0
		for _, ok := range s.validity[kind] {
			if ok {
				n++
			}
		}
		t.metrics.SetActiveFeeds(kind, n)
	}
	t.snap.Store(s)
}

func (t *Tracker) buildSnapshot() *snapshot {
	s := snapshot{
		canonical: t.canonical,
		policy:    t.policy,
		validity:  make(map[telemetry.SourceKind][]bool),
	}
	for _, f := range t.feeds {
		s.validity[f.Kind()] = append(s.validity[f.Kind()], f.IsValid())
	}
	return &s
}

// view returns the live state when the lock is free and the last published
// snapshot otherwise. It never blocks.
func (t *Tracker) view() *snapshot {
	if t.mu.TryLock() {
		defer t.mu.Unlock()
		return t.buildSnapshot()
	}
	return t.snap.Load()
}

// CurrentPosition returns the canonical position, zero before the first fix.
func (t *Tracker) CurrentPosition() (lat, lon, alt float64) {
	c := t.view().canonical
	return c.Latitude, c.Longitude, c.Altitude
}

// Canonical returns the canonical sample including its timestamp.
func (t *Tracker) Canonical() telemetry.Sample {
	return t.view().canonical
}

// LastUpdate returns the unix timestamp of the canonical position.
func (t *Tracker) LastUpdate() uint64 {
	return t.view().canonical.Timestamp
}

// LastUpdateAge returns how old the canonical position is at now. It is zero
// when there is no fix yet or the fix lies in the future.
func (t *Tracker) LastUpdateAge(now time.Time) time.Duration {
	c := t.view().canonical
	if c.IsZero() {
		return 0
	}
	return max(now.Sub(c.Time()), 0)
}

// ActiveCount returns the number of registered feeds of kind.
func (t *Tracker) ActiveCount(kind telemetry.SourceKind) int {
	return len(t.view().validity[kind])
}

// Validity reports, in registration order, whether each feed of kind has
// produced a sample.
func (t *Tracker) Validity(kind telemetry.SourceKind) []bool {
	v := t.view().validity[kind]
	out := make([]bool, len(v))
	copy(out, v)
	return out
}

// History replays the most recent session log in the data directory.
func (t *Tracker) History() ([]storage.Record, error) {
	return storage.History(t.dir)
}

// LogPath returns the session log path, empty before the first registration.
func (t *Tracker) LogPath() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.log == nil {
		return ""
	}
	return t.log.Path()
}

// SetPolicy switches the estimation policy. It takes effect on the next
// update.
func (t *Tracker) SetPolicy(p estimate.Policy) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.policy = p
	t.publish()
}

func (t *Tracker) Policy() estimate.Policy {
	return t.view().policy
}

// Close flushes and closes the session log and the archive.
func (t *Tracker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var logErr, archiveErr error
	if t.log != nil {
		logErr = t.log.Close()
	}
	if t.archive != nil {
		archiveErr = t.archive.Close()
	}
	return errors.Join(logErr, archiveErr)
}
