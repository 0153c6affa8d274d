// Package scheduler drives the sync cycle on a fixed period.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/prudhvinik1/dbsync/internal/services"
)

// ErrAlreadyStarted is returned when Start is called on a running scheduler.
var ErrAlreadyStarted = errors.New("scheduler already started")

// CycleRunner executes one sync cycle.
type CycleRunner interface {
	Run(ctx context.Context) services.CycleReport
}

// Status is a snapshot of the scheduler's progress.
type Status struct {
	Running        bool       `json:"running"`
	Interval       string     `json:"interval"`
	LastRunTime    *time.Time `json:"lastRunTime,omitempty"`
	NextRunTime    *time.Time `json:"nextRunTime,omitempty"`
	TotalRuns      int64      `json:"totalRuns"`
	SuccessfulRuns int64      `json:"successfulRuns"`
	FailedRuns     int64      `json:"failedRuns"`
	SkippedRuns    int64      `json:"skippedRuns"`
	LastError      string     `json:"lastError,omitempty"`
}

// Scheduler runs a cycle immediately on Start and then on every tick. Cycles
// execute on the scheduler goroutine, so they never overlap each other.
type Scheduler struct {
	runner   CycleRunner
	interval time.Duration

	mu         sync.Mutex
	status     Status
	cancelFunc context.CancelFunc
	done       chan struct{}
}

func New(runner CycleRunner, interval time.Duration) *Scheduler {
	return &Scheduler{
		runner:   runner,
		interval: interval,
		status:   Status{Interval: interval.String()},
	}
}

// Start blocks until ctx is cancelled or Stop is called. A stopped scheduler
// may be started again; its status counters carry over.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.cancelFunc != nil {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	schedCtx, cancel := context.WithCancel(ctx)
	s.cancelFunc = cancel
	s.done = make(chan struct{})
	s.status.Running = true
	done := s.done
	s.mu.Unlock()

	slog.Info("Starting sync scheduler", "interval", s.interval)

	defer func() {
		cancel()
		s.mu.Lock()
		// Cleared so the scheduler can be started again.
		s.cancelFunc = nil
		s.status.Running = false
		s.status.NextRunTime = nil
		s.mu.Unlock()
		close(done)
		slog.Info("Sync scheduler stopped")
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runOnce(schedCtx)

	for {
		select {
		case <-ticker.C:
			s.runOnce(schedCtx)
		case <-schedCtx.Done():
			return nil
		}
	}
}

// Stop cancels the loop and waits for the in-flight cycle to return.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	cancel, done := s.cancelFunc, s.done
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	slog.Info("Stopping sync scheduler")
	cancel()
	<-done
	return nil
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	started := time.Now()
	report := s.runner.Run(ctx)
	next := time.Now().Add(s.interval)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.TotalRuns++
	s.status.LastRunTime = &started
	s.status.NextRunTime = &next

	switch {
	case report.Skipped:
		s.status.SkippedRuns++
	case report.Err != nil:
		s.status.FailedRuns++
		s.status.LastError = report.Err.Error()
	default:
		s.status.SuccessfulRuns++
	}
}
