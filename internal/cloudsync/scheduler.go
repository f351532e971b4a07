package cloudsync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler pushes the store file on a cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	syncer   *Syncer
	schedule string
	logger   *slog.Logger
	entry    cron.EntryID
}

// NewScheduler creates a scheduler running syncer.Push on schedule, a
// standard five-field cron expression or a descriptor such as "@hourly".
func NewScheduler(syncer *Syncer, schedule string, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:     cron.New(),
		syncer:   syncer,
		schedule: schedule,
		logger:   logger,
	}
}

// Start registers the push job and starts the cron scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	id, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.syncer.Push(ctx); err != nil {
			s.logger.Warn("scheduled push failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sync schedule %q: %w", s.schedule, err)
	}
	s.entry = id
	s.cron.Start()
	s.logger.Info("sync scheduler started", "schedule", s.schedule)
	return nil
}

// Stop stops the scheduler and waits for a running push to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("sync scheduler stopped")
}

// Next returns when the push job runs next; zero before Start.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}
