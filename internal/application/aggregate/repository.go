// Package aggregate holds the generic application-side repository every
// command service is built on. One operation is load, mutate, save with a
// version predicate, then drain and publish the events.
package aggregate

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/neuroerp/backend/internal/domain/shared"
	"github.com/neuroerp/backend/internal/infrastructure/logger"
	"github.com/neuroerp/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// RestoreFunc rebuilds an aggregate from its record, e.g. contracts.RestoreContract
type RestoreFunc[A shared.AggregateRoot] func(rec shared.Record, opts ...shared.Option) (A, error)

// DefaultConflictRetries is how often Update reloads and re-applies after a
// concurrent writer won
const DefaultConflictRetries = 3

// Option configures a Repository
type Option func(*options)

type options struct {
	publisher       shared.EventPublisher
	metrics         *telemetry.AggregateMetrics
	logger          *zap.Logger
	aggregateOpts   []shared.Option
	conflictRetries int
	clock           shared.Clock
}

// WithPublisher publishes drained events in-process after each commit. The
// outbox already holds them, so a publish failure is logged and not returned.
func WithPublisher(p shared.EventPublisher) Option {
	return func(o *options) { o.publisher = p }
}

// WithMetrics records operation counts and latency
func WithMetrics(m *telemetry.AggregateMetrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithLogger sets the base logger
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock sets the clock handed to created and restored aggregates
func WithClock(c shared.Clock) Option {
	return func(o *options) {
		o.clock = c
		o.aggregateOpts = append(o.aggregateOpts, shared.WithClock(c))
	}
}

// WithConflictRetries sets how often Update retries after a ConflictError. 0 disables retries.
func WithConflictRetries(n int) Option {
	return func(o *options) { o.conflictRetries = n }
}

// Repository loads and saves one aggregate type through a shared.AggregateStore
type Repository[A shared.AggregateRoot] struct {
	aggregateType string
	store         shared.AggregateStore
	restore       RestoreFunc[A]
	opts          options
}

// NewRepository creates a repository for aggregateType
func NewRepository[A shared.AggregateRoot](aggregateType string, store shared.AggregateStore, restore RestoreFunc[A], opts ...Option) *Repository[A] {
	o := options{conflictRetries: DefaultConflictRetries, clock: shared.SystemClock{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	o.logger = o.logger.Named("repository").With(zap.String("aggregate_type", aggregateType))
	return &Repository[A]{aggregateType: aggregateType, store: store, restore: restore, opts: o}
}

// AggregateOptions returns the options to pass to the aggregate constructor
// so created instances share the repository clock
func (r *Repository[A]) AggregateOptions() []shared.Option {
	return r.opts.aggregateOpts
}

// Get loads an aggregate by id
func (r *Repository[A]) Get(ctx context.Context, tenantID, id uuid.UUID) (A, error) {
	rec, err := r.store.Get(ctx, tenantID, r.aggregateType, id)
	if err != nil {
		var zero A
		return zero, r.notFound(err, id.String())
	}
	return r.load(ctx, rec)
}

// GetByBusinessKey loads an aggregate by its business key
func (r *Repository[A]) GetByBusinessKey(ctx context.Context, tenantID uuid.UUID, key string) (A, error) {
	rec, err := r.store.GetByBusinessKey(ctx, tenantID, r.aggregateType, key)
	if err != nil {
		var zero A
		return zero, r.notFound(err, key)
	}
	return r.load(ctx, rec)
}

// List loads one page of aggregates. A corrupt record fails the whole page.
func (r *Repository[A]) List(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (shared.Paginated[A], error) {
	page, err := r.store.List(ctx, tenantID, r.aggregateType, filter)
	if err != nil {
		return shared.Paginated[A]{}, err
	}
	return MapPage(page, func(rec shared.Record) (A, error) { return r.load(ctx, rec) })
}

// Create builds a new aggregate and inserts it
func (r *Repository[A]) Create(ctx context.Context, tenantID uuid.UUID, build func(opts ...shared.Option) (A, error)) (A, error) {
	return r.instrument(ctx, tenantID, "create", func(ctx context.Context) (A, error) {
		agg, err := build(r.opts.aggregateOpts...)
		if err != nil {
			return agg, err
		}
		return agg, r.Save(ctx, agg)
	})
}

// Update loads the aggregate, applies mutate and saves it. When another
// writer commits first, the load and mutate are repeated on the fresh state.
func (r *Repository[A]) Update(ctx context.Context, tenantID, id uuid.UUID, op string, mutate func(A) error) (A, error) {
	return r.instrument(ctx, tenantID, op, func(ctx context.Context) (A, error) {
		for attempt := 0; ; attempt++ {
			agg, err := r.Get(ctx, tenantID, id)
			if err != nil {
				return agg, err
			}
			if err := mutate(agg); err != nil {
				return agg, err
			}
			err = r.Save(ctx, agg)
			if err == nil || !errors.Is(err, shared.ErrConcurrencyConflict) || attempt >= r.opts.conflictRetries {
				return agg, err
			}
			logger.Enrich(ctx, r.opts.logger).Info("Version conflict, retrying",
				zap.String("aggregate_id", id.String()),
				zap.String("operation", op),
				zap.Int("attempt", attempt+1),
			)
		}
	})
}

// Save writes agg with its persisted version as the predicate and the
// pending events into the outbox. A mutation that did not advance the
// version (an idempotent no-op) writes nothing.
func (r *Repository[A]) Save(ctx context.Context, agg A) error {
	expected := agg.PersistedVersion()
	if agg.GetVersion() == expected {
		return nil
	}

	rec, err := agg.ToPersisted()
	if err != nil {
		return err
	}
	if err := r.store.Save(ctx, rec, expected, agg.PendingEvents()...); err != nil {
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			logger.Enrich(ctx, r.opts.logger).Warn("Concurrent modification",
				zap.String("aggregate_id", rec.ID.String()),
				zap.Int("expected_version", expected),
			)
		}
		return err
	}

	agg.MarkPersisted()
	events := agg.DrainEvents()
	r.opts.metrics.RecordEvents(ctx, events)

	log := logger.Enrich(ctx, r.opts.logger)
	log.Debug("Aggregate saved",
		zap.String("aggregate_id", rec.ID.String()),
		zap.String("business_key", rec.BusinessKey),
		zap.Int("version", rec.Version),
		zap.Int("events", len(events)),
	)

	if r.opts.publisher != nil && len(events) > 0 {
		if err := r.opts.publisher.Publish(ctx, events...); err != nil {
			log.Error("Failed to publish events after commit",
				zap.String("aggregate_id", rec.ID.String()),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (r *Repository[A]) load(ctx context.Context, rec shared.Record) (A, error) {
	agg, err := r.restore(rec, r.opts.aggregateOpts...)
	if err != nil {
		logger.Enrich(ctx, r.opts.logger).Error("Corrupt aggregate record",
			zap.String("aggregate_id", rec.ID.String()),
			zap.Int("version", rec.Version),
			zap.Error(err),
		)
	}
	return agg, err
}

func (r *Repository[A]) notFound(err error, ref string) error {
	if errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("%s %s: %w", r.aggregateType, ref, shared.ErrNotFound)
	}
	return err
}

func (r *Repository[A]) instrument(ctx context.Context, tenantID uuid.UUID, op string, fn func(context.Context) (A, error)) (A, error) {
	ctx, span := telemetry.StartAggregateSpan(ctx, r.aggregateType, op, tenantID)
	defer span.End()
	start := r.opts.clock.Now()

	agg, err := fn(ctx)

	r.opts.metrics.RecordOperation(ctx, r.aggregateType, op, r.opts.clock.Now().Sub(start), err)
	if err != nil {
		telemetry.RecordError(span, err)
		if telemetry.Outcome(err) == telemetry.OutcomeError {
			logger.Enrich(ctx, r.opts.logger).Error("Aggregate operation failed",
				zap.String("operation", op),
				zap.Error(err),
			)
		}
		return agg, err
	}

	span.SetAttributes(
		telemetry.AttrAggregateID.String(agg.GetID().String()),
		telemetry.AttrVersion.Int(agg.GetVersion()),
	)
	telemetry.SetOK(span)
	return agg, nil
}
