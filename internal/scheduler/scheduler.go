package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/feedengine/internal/config"
	"github.com/mamadbah2/feedengine/internal/service/reporting"
)

// Age-based category matches change at local midnight.
const dayRolloverSchedule = "0 0 * * *"

// Reporter runs the daily insights report.
type Reporter interface {
	RunDaily(ctx context.Context) (reporting.Result, error)
}

// Flusher drops every cached resolution.
type Flusher interface {
	Flush()
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron     *cron.Cron
	reporter Reporter
	cache    Flusher
	cfg      config.ReportingConfig
	logger   *zap.Logger
}

// NewScheduler creates a new scheduler instance in the configured timezone.
func NewScheduler(cfg config.ReportingConfig, reporter Reporter, cache Flusher, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		reporter: reporter,
		cache:    cache,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// Start registers the jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("report_schedule", s.cfg.CronSchedule), zap.String("timezone", s.cfg.Timezone))

	if s.cache != nil {
		if _, err := s.cron.AddFunc(dayRolloverSchedule, s.flushCache); err != nil {
			return fmt.Errorf("schedule cache rollover: %w", err)
		}
	}
	if s.reporter != nil {
		if _, err := s.cron.AddFunc(s.cfg.CronSchedule, s.runDailyReport); err != nil {
			return fmt.Errorf("schedule daily report: %w", err)
		}
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

// Entries returns the number of registered jobs.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) flushCache() {
	s.cache.Flush()
	s.logger.Info("day rollover, resolution cache flushed")
}

func (s *Scheduler) runDailyReport() {
	s.logger.Info("generating daily insights report")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	res, err := s.reporter.RunDaily(ctx)
	if err != nil {
		s.logger.Error("failed to generate daily report", zap.Error(err))
		return
	}
	s.logger.Info("daily report finished", zap.Int("batches", res.Batches), zap.Int("notified", res.Notified))
}
