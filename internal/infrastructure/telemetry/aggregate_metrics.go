package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/neuroerp/backend/internal/domain/shared"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
const (
	MetricAttrAggregateType = attribute.Key("aggregate_type")
	MetricAttrOperation     = attribute.Key("operation")
	MetricAttrOutcome       = attribute.Key("outcome")
	MetricAttrStatus        = attribute.Key("status")
)

// Operation outcomes
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
)

// AggregateMetrics holds the instruments of aggregate operations and the outbox relay
type AggregateMetrics struct {
	operations    metric.Int64Counter
	duration      metric.Float64Histogram
	events        metric.Int64Counter
	relayed       metric.Int64Counter
	outboxBacklog metric.Int64Gauge
}

// NewAggregateMetrics creates the instruments on meter
func NewAggregateMetrics(meter metric.Meter) (*AggregateMetrics, error) {
	if meter == nil {
		return nil, errors.New("NewAggregateMetrics: meter cannot be nil")
	}

	var m AggregateMetrics
	var err error
	if m.operations, err = meter.Int64Counter("neuroerp.aggregate.operations",
		metric.WithDescription("Aggregate operations by outcome"),
		metric.WithUnit("{operation}"),
	); err != nil {
		return nil, err
	}
	if m.duration, err = meter.Float64Histogram("neuroerp.aggregate.operation.duration",
		metric.WithDescription("Load, mutate and save latency of aggregate operations"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5),
	); err != nil {
		return nil, err
	}
	if m.events, err = meter.Int64Counter("neuroerp.aggregate.events",
		metric.WithDescription("Domain events emitted by aggregates"),
		metric.WithUnit("{event}"),
	); err != nil {
		return nil, err
	}
	if m.relayed, err = meter.Int64Counter("neuroerp.outbox.relayed",
		metric.WithDescription("Outbox entries handled by the relay, by resulting status"),
		metric.WithUnit("{entry}"),
	); err != nil {
		return nil, err
	}
	if m.outboxBacklog, err = meter.Int64Gauge("neuroerp.outbox.backlog",
		metric.WithDescription("Outbox entries per status"),
		metric.WithUnit("{entry}"),
	); err != nil {
		return nil, err
	}
	return &m, nil
}

// Outcome classifies an operation error for the outcome attribute
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, shared.ErrConcurrencyConflict):
		return OutcomeConflict
	case errors.Is(err, shared.ErrValidation),
		errors.Is(err, shared.ErrIllegalStateTransition),
		errors.Is(err, shared.ErrBusinessRule),
		errors.Is(err, shared.ErrDuplicateAssignment),
		errors.Is(err, shared.ErrNotAssigned),
		errors.Is(err, shared.ErrPreconditionFailed),
		errors.Is(err, shared.ErrAlreadyExists),
		errors.Is(err, shared.ErrNotFound):
		return OutcomeRejected
	default:
		return OutcomeError
	}
}

// RecordOperation counts one operation and its latency. A nil receiver is a no-op.
func (m *AggregateMetrics) RecordOperation(ctx context.Context, aggregateType, operation string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		MetricAttrAggregateType.String(aggregateType),
		MetricAttrOperation.String(operation),
		MetricAttrOutcome.String(Outcome(err)),
	)
	m.operations.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordEvents counts emitted events per topic
func (m *AggregateMetrics) RecordEvents(ctx context.Context, events []shared.DomainEvent) {
	if m == nil {
		return
	}
	for _, e := range events {
		m.events.Add(ctx, 1, metric.WithAttributes(
			MetricAttrAggregateType.String(e.AggregateType()),
			attribute.String("event_type", e.EventType()),
		))
	}
}

// RecordRelay counts relay results of one batch
func (m *AggregateMetrics) RecordRelay(ctx context.Context, sent, failed, dead int) {
	if m == nil {
		return
	}
	for status, n := range map[shared.OutboxStatus]int{
		shared.OutboxStatusSent:   sent,
		shared.OutboxStatusFailed: failed,
		shared.OutboxStatusDead:   dead,
	} {
		if n > 0 {
			m.relayed.Add(ctx, int64(n), metric.WithAttributes(MetricAttrStatus.String(string(status))))
		}
	}
}

// RecordBacklog records the outbox size per status
func (m *AggregateMetrics) RecordBacklog(ctx context.Context, counts map[shared.OutboxStatus]int64) {
	if m == nil {
		return
	}
	for status, n := range counts {
		m.outboxBacklog.Record(ctx, n, metric.WithAttributes(MetricAttrStatus.String(string(status))))
	}
}
