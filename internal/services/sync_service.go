package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prudhvinik1/dbsync/internal/models"
	"github.com/prudhvinik1/dbsync/internal/repositories"
	"github.com/prudhvinik1/dbsync/internal/telemetry"
)

// DefaultLockTTL bounds how long a crashed instance can hold the cycle lock. It
// is also the deadline of every cycle run under the lock.
const DefaultLockTTL = 60 * time.Second

// Cycle skip reasons recorded on the skipped-cycles counter
const (
	skipReasonInProgress = "in_progress"
	skipReasonLocked     = "locked"
)

// CycleReport summarizes one sync cycle.
type CycleReport struct {
	Fetched     int
	Completed   int
	Delivered   bool
	DeliveryErr error
	Generated   int
	Skipped     bool
	Duration    time.Duration
	Err         error
}

// SyncService runs the fetch, mark, deliver, persist and replenish cycle.
// A nil sender or generator disables that step.
type SyncService struct {
	store      repositories.RowRepository
	sender     Sender
	generator  Generator
	batchCount int

	lock    repositories.CycleLock
	lockTTL time.Duration
	metrics *telemetry.SyncMetrics

	mu sync.Mutex
}

type SyncOption func(*SyncService)

// WithCycleLock guards every cycle with a lock shared across instances.
func WithCycleLock(lock repositories.CycleLock) SyncOption {
	return func(s *SyncService) {
		s.lock = lock
	}
}

func WithLockTTL(ttl time.Duration) SyncOption {
	return func(s *SyncService) {
		s.lockTTL = ttl
	}
}

func WithSyncMetrics(metrics *telemetry.SyncMetrics) SyncOption {
	return func(s *SyncService) {
		s.metrics = metrics
	}
}

func NewSyncService(
	store repositories.RowRepository,
	sender Sender,
	generator Generator,
	batchCount int,
	opts ...SyncOption,
) *SyncService {
	s := &SyncService{
		store:      store,
		sender:     sender,
		generator:  generator,
		batchCount: batchCount,
		lockTTL:    DefaultLockTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes a single cycle. Errors never escape: they are logged and
// returned in the report.
func (s *SyncService) Run(ctx context.Context) CycleReport {
	start := time.Now()

	if !s.mu.TryLock() {
		slog.Warn("Skipping sync cycle, previous cycle still running")
		s.metrics.RecordCycleSkipped(ctx, skipReasonInProgress)
		return CycleReport{Skipped: true, Err: ErrCycleInProgress}
	}
	defer s.mu.Unlock()

	if s.lock != nil {
		token, ok, err := s.lock.Acquire(ctx, s.lockTTL)
		if err != nil {
			slog.Error("Sync cycle failed", "step", "lock", "error", err)
			report := CycleReport{Err: err, Duration: time.Since(start)}
			s.metrics.RecordCycle(ctx, report.Duration, telemetry.OutcomeFailed)
			return report
		}
		if !ok {
			slog.Info("Skipping sync cycle, another instance holds the cycle lock")
			s.metrics.RecordCycleSkipped(ctx, skipReasonLocked)
			return CycleReport{Skipped: true, Err: ErrCycleInProgress}
		}
		defer s.releaseLock(ctx, token)
	}

	// A cycle under the shared lock must end before the lock expires.
	cycleCtx := ctx
	if s.lock != nil {
		var cancel context.CancelFunc
		cycleCtx, cancel = context.WithTimeout(ctx, s.lockTTL)
		defer cancel()
	}

	report := s.runCycle(cycleCtx)
	report.Duration = time.Since(start)

	outcome := telemetry.OutcomeSuccess
	if report.Err != nil {
		outcome = telemetry.OutcomeFailed
	}
	s.metrics.RecordCycle(ctx, report.Duration, outcome)
	s.recordBacklog(ctx)

	slog.Debug("Sync cycle finished",
		"fetched", report.Fetched,
		"completed", report.Completed,
		"delivered", report.Delivered,
		"generated", report.Generated,
		"duration", report.Duration,
	)
	return report
}

func (s *SyncService) runCycle(ctx context.Context) CycleReport {
	var report CycleReport

	rows, err := s.store.FetchBatch(ctx, models.StatusNotCompleted, s.batchCount)
	if err != nil {
		return s.fail(report, "fetch", err)
	}
	report.Fetched = len(rows)

	if len(rows) > 0 {
		for _, row := range rows {
			row.CompletionStatus = models.StatusCompleted
		}

		if s.sender != nil {
			report.Delivered, report.DeliveryErr = s.deliver(ctx, rows)
		}

		if err := s.store.SaveAll(ctx, rows); err != nil {
			return s.fail(report, "persist", err)
		}
		report.Completed = len(rows)
		s.metrics.RecordRowsCompleted(ctx, len(rows))
		slog.Info("Completed sync batch", "rows", len(rows))
	}

	if s.generator != nil {
		generated, err := s.generator.Generate()
		if err != nil {
			return s.fail(report, "generate", err)
		}
		if err := s.store.SaveAll(ctx, generated); err != nil {
			return s.fail(report, "replenish", err)
		}
		report.Generated = len(generated)
		s.metrics.RecordRowsGenerated(ctx, len(generated))
		slog.Info("Generated rows", "rows", len(generated))
	}

	return report
}

// deliver sends the batch. A failure is logged and reported but never stops the cycle.
func (s *SyncService) deliver(ctx context.Context, rows []*models.Row) (bool, error) {
	body, err := s.sender.Send(ctx, rows)
	if err != nil {
		statusCode := 0
		var sendErr *SendError
		if errors.As(err, &sendErr) {
			statusCode = sendErr.StatusCode
		}
		slog.Error("Failed to deliver sync batch", "rows", len(rows), "status", statusCode, "error", err)
		s.metrics.RecordDeliveryFailure(ctx, statusCode)
		return false, err
	}

	slog.Info("Delivered sync batch", "rows", len(rows), "response", body)
	return true, nil
}

func (s *SyncService) fail(report CycleReport, step string, err error) CycleReport {
	slog.Error("Sync cycle failed", "step", step, "error", err)
	report.Err = fmt.Errorf("%s: %w", step, err)
	return report
}

func (s *SyncService) releaseLock(ctx context.Context, token string) {
	if err := s.lock.Release(context.WithoutCancel(ctx), token); err != nil {
		slog.Warn("Failed to release cycle lock", "error", err)
	}
}

func (s *SyncService) recordBacklog(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	backlog, err := s.store.CountByStatus(ctx, models.StatusNotCompleted)
	if err != nil {
		slog.Debug("Failed to count backlog", "error", err)
		return
	}
	s.metrics.RecordBacklog(ctx, backlog)
}
