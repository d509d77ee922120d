package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Default cadences: resumption every minute, trigger scans daily early
// morning.
const (
	DefaultResumptionSchedule = "* * * * *"
	DefaultScanSchedule       = "0 6 * * *"
)

// Job is one periodic pass; implemented by Resumption and triggers.Scanner.
type Job interface {
	RunOnce(ctx context.Context) error
}

// Scheduler runs jobs on cron cadences. Overlapping passes of the same job
// are skipped rather than stacked.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

func New(logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DefaultLogger),
			cron.Recover(cron.DefaultLogger),
		)),
		logger: logger.With("module", "scheduler"),
	}
}

// Add registers a job under a cron expression.
func (s *Scheduler) Add(ctx context.Context, name, schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		err := job.RunOnce(ctx)
		if err != nil {
			s.logger.ErrorContext(ctx, "Scheduled job failed", "job", name, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.logger.InfoContext(ctx, "Scheduled job", "job", name, "schedule", schedule)

	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
