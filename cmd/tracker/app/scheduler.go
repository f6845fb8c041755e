package app

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the poll cycle on a cron schedule. A cycle that is still
// running when the next one is due is skipped.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler parses schedule (standard cron or a descriptor like "@every 10s")
// and binds it to job.
func NewScheduler(schedule string, job func(), logger *slog.Logger) (*Scheduler, error) {
	log := cronLogger{logger: logger.With(slog.String("component", "scheduler"))}

	c := cron.New(
		cron.WithLogger(log),
		cron.WithChain(cron.Recover(log), cron.SkipIfStillRunning(log)),
	)
	if _, err := c.AddFunc(schedule, job); err != nil {
		return nil, fmt.Errorf("parsing schedule '%s': %w", schedule, err)
	}

	return &Scheduler{cron: c}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new cycles and waits for a running one to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// cronLogger implements cron.Logger on top of slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, slog.String("error", err.Error()))...)
}
