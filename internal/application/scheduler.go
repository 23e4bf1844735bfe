package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Sweeper is the unit of scheduled work.
type Sweeper interface {
	Sweep(ctx context.Context) error
}

// Scheduler runs a Sweeper on a cron schedule. A sweep still running when
// the next tick fires causes that tick to be skipped. Overlap with manual
// triage requests is harmless because every decision is re-derived from a
// fresh snapshot.
type Scheduler struct {
	spec    string
	sweeper Sweeper
	logger  *slog.Logger
}

// NewScheduler validates spec (standard 5-field cron or a descriptor such as
// "@every 15m") and returns a Scheduler.
func NewScheduler(spec string, sweeper Sweeper, logger *slog.Logger) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{spec: spec, sweeper: sweeper, logger: logger}, nil
}

// Start runs an immediate sweep, then sweeps on schedule until ctx is
// canceled. Start blocks; in-flight sweeps are awaited before it returns.
func (s *Scheduler) Start(ctx context.Context) {
	log := cronLogger{logger: s.logger}
	c := cron.New(
		cron.WithLogger(log),
		cron.WithChain(cron.Recover(log)),
	)

	job := cron.NewChain(cron.SkipIfStillRunning(log)).Then(cron.FuncJob(func() {
		if err := s.sweeper.Sweep(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("sweep failed", "error", err)
		}
	}))

	if _, err := c.AddJob(s.spec, job); err != nil {
		s.logger.Error("scheduling sweep failed", "schedule", s.spec, "error", err)
		return
	}

	job.Run()

	c.Start()
	s.logger.Info("scheduler started", "schedule", s.spec)

	<-ctx.Done()
	<-c.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
