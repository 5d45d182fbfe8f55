package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Job is a unit of periodic maintenance work.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

type Scheduler struct {
	job      Job
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
}

func NewScheduler(job Job, interval, timeout time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		job:      job,
		interval: interval,
		timeout:  timeout,
		logger:   logger.With("job", job.Name),
	}
}

// Start runs the job once immediately and then on every tick until ctx is
// cancelled. A failed run is logged and does not stop the schedule.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval)

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	runCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	if err := s.job.Run(runCtx); err != nil {
		s.logger.Error("job failed", "error", err, "duration", time.Since(start))
		return
	}
	s.logger.Debug("job completed", "duration", time.Since(start))
}
