// Package scheduler runs periodic housekeeping jobs next to the scan loop.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/yourusername/arb-scanner/internal/logger"
	"github.com/yourusername/arb-scanner/internal/scanner"
)

// StatsSource provides cumulative scanner statistics
type StatsSource interface {
	Stats() scanner.Stats
}

// Scheduler manages cron jobs
type Scheduler struct {
	cron            *cron.Cron
	logger          *logger.ScanLogger
	mu              sync.RWMutex
	isRunning       bool
	jobIDs          []cron.EntryID
	gracefulTimeout time.Duration
	now             func() time.Time
}

// NewScheduler creates a new scheduler running in UTC
func NewScheduler(log *logger.ScanLogger) *Scheduler {
	return &Scheduler{
		cron:            cron.New(cron.WithLocation(time.UTC)),
		logger:          log,
		jobIDs:          make([]cron.EntryID, 0),
		gracefulTimeout: 5 * time.Second,
		now:             time.Now,
	}
}

// ScheduleStatsSummary logs cumulative scanner statistics on the given
// cron expression, e.g. "@every 1m".
func (s *Scheduler) ScheduleStatsSummary(cronExpression string, source StatsSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}

	entryID, err := s.cron.AddFunc(cronExpression, func() {
		s.logStats(source)
	})
	if err != nil {
		return fmt.Errorf("failed to add job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.Debugf("Scheduled stats summary job with cron expression: %s", cronExpression)

	return nil
}

func (s *Scheduler) logStats(source StatsSource) {
	stats := source.Stats()
	s.logger.LogStatsSummary(stats.Cycles, stats.FailedCycles, stats.Opportunities, stats.BestNetSpreadPct, stats.Uptime(s.now()))
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.Debugf("Scheduler started with %d jobs", len(s.jobIDs))

	return nil
}

// Stop stops the scheduler, waiting up to the graceful timeout for running jobs
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	s.isRunning = false
	select {
	case <-s.cron.Stop().Done():
	case <-time.After(s.gracefulTimeout):
		return fmt.Errorf("scheduler jobs did not finish within %s", s.gracefulTimeout)
	}
	s.logger.Debug("Scheduler stopped")

	return nil
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRun returns the time of the next scheduled job run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || len(s.jobIDs) == 0 {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			nextTime := entry.Next
			if nextRun.IsZero() || nextTime.Before(nextRun) {
				nextRun = nextTime
			}
		}
	}

	return nextRun
}
