// Package telemetry provides OpenTelemetry metrics for the sync worker.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// SyncMetricsMeterName is the name used for the sync cycle meter
	SyncMetricsMeterName = "github.com/prudhvinik1/dbsync/sync"

	// ReceiveMetricsMeterName is the name used for the inbound receiver meter
	ReceiveMetricsMeterName = "github.com/prudhvinik1/dbsync/receive"
)

// Cycle outcomes recorded on the duration histogram
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

// SyncMetrics holds the OpenTelemetry instruments for sync cycles
type SyncMetrics struct {
	cycleDuration    metric.Float64Histogram
	rowsCompleted    metric.Int64Counter
	rowsGenerated    metric.Int64Counter
	deliveryFailures metric.Int64Counter
	cyclesSkipped    metric.Int64Counter
	backlog          metric.Int64Gauge
}

// NewSyncMetrics creates the sync instruments on the given provider.
// If provider is nil, it returns nil (no-op metrics).
func NewSyncMetrics(provider metric.MeterProvider) (*SyncMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(SyncMetricsMeterName)

	cycleDuration, err := meter.Float64Histogram(
		"dbsync_cycle_duration",
		metric.WithDescription("Duration of sync cycles in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30),
	)
	if err != nil {
		return nil, err
	}

	rowsCompleted, err := meter.Int64Counter(
		"dbsync_rows_completed",
		metric.WithDescription("Rows persisted as COMPLETED by sync cycles"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		return nil, err
	}

	rowsGenerated, err := meter.Int64Counter(
		"dbsync_rows_generated",
		metric.WithDescription("Synthetic rows inserted by the generator"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		return nil, err
	}

	deliveryFailures, err := meter.Int64Counter(
		"dbsync_delivery_failures",
		metric.WithDescription("Outbound batch deliveries that failed"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	cyclesSkipped, err := meter.Int64Counter(
		"dbsync_cycles_skipped",
		metric.WithDescription("Cycles skipped because another cycle held the lock"),
		metric.WithUnit("{cycle}"),
	)
	if err != nil {
		return nil, err
	}

	backlog, err := meter.Int64Gauge(
		"dbsync_backlog_rows",
		metric.WithDescription("Rows still NOT_COMPLETED after the last cycle"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		cycleDuration:    cycleDuration,
		rowsCompleted:    rowsCompleted,
		rowsGenerated:    rowsGenerated,
		deliveryFailures: deliveryFailures,
		cyclesSkipped:    cyclesSkipped,
		backlog:          backlog,
	}, nil
}

// RecordCycle records the duration of a finished cycle with its outcome
func (m *SyncMetrics) RecordCycle(ctx context.Context, duration time.Duration, outcome string) {
	if m == nil || m.cycleDuration == nil {
		return
	}
	m.cycleDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *SyncMetrics) RecordRowsCompleted(ctx context.Context, count int) {
	if m == nil || m.rowsCompleted == nil || count == 0 {
		return
	}
	m.rowsCompleted.Add(ctx, int64(count))
}

func (m *SyncMetrics) RecordRowsGenerated(ctx context.Context, count int) {
	if m == nil || m.rowsGenerated == nil || count == 0 {
		return
	}
	m.rowsGenerated.Add(ctx, int64(count))
}

// RecordDeliveryFailure counts a failed delivery; statusCode is 0 for network errors
func (m *SyncMetrics) RecordDeliveryFailure(ctx context.Context, statusCode int) {
	if m == nil || m.deliveryFailures == nil {
		return
	}
	m.deliveryFailures.Add(ctx, 1,
		metric.WithAttributes(attribute.Int("status_code", statusCode)))
}

func (m *SyncMetrics) RecordCycleSkipped(ctx context.Context, reason string) {
	if m == nil || m.cyclesSkipped == nil {
		return
	}
	m.cyclesSkipped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *SyncMetrics) RecordBacklog(ctx context.Context, count int64) {
	if m == nil || m.backlog == nil {
		return
	}
	m.backlog.Record(ctx, count)
}

// ReceiveMetrics holds the instruments for the inbound receiver
type ReceiveMetrics struct {
	rowsReceived metric.Int64Counter
}

// NewReceiveMetrics creates the receiver instruments on the given provider.
// If provider is nil, it returns nil (no-op metrics).
func NewReceiveMetrics(provider metric.MeterProvider) (*ReceiveMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(ReceiveMetricsMeterName)

	rowsReceived, err := meter.Int64Counter(
		"dbsync_rows_received",
		metric.WithDescription("Rows pushed to this instance by peers"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		return nil, err
	}

	return &ReceiveMetrics{rowsReceived: rowsReceived}, nil
}

func (m *ReceiveMetrics) RecordRowsReceived(ctx context.Context, count int) {
	if m == nil || m.rowsReceived == nil {
		return
	}
	m.rowsReceived.Add(ctx, int64(count))
}
