package event

import (
	"context"
	"fmt"

	"github.com/neuroerp/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// OutboxPublisher publishes domain events to the outbox within a transaction
type OutboxPublisher struct {
	serializer *EventSerializer
	clock      shared.Clock
	maxRetries int
}

// OutboxPublisherOption configures an OutboxPublisher
type OutboxPublisherOption func(*OutboxPublisher)

// WithPublisherClock sets the clock used for entry timestamps
func WithPublisherClock(clock shared.Clock) OutboxPublisherOption {
	return func(p *OutboxPublisher) { p.clock = clock }
}

// WithMaxRetries sets the delivery attempts before an entry is dead-lettered
func WithMaxRetries(n int) OutboxPublisherOption {
	return func(p *OutboxPublisher) {
		if n > 0 {
			p.maxRetries = n
		}
	}
}

// NewOutboxPublisher creates a new outbox publisher
func NewOutboxPublisher(serializer *EventSerializer, opts ...OutboxPublisherOption) *OutboxPublisher {
	p := &OutboxPublisher{
		serializer: serializer,
		clock:      shared.SystemClock{},
		maxRetries: shared.DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Entries serializes events into pending outbox entries
func (p *OutboxPublisher) Entries(events ...shared.DomainEvent) ([]*shared.OutboxEntry, error) {
	now := p.clock.Now().UTC().Truncate(shared.TimestampPrecision)
	entries := make([]*shared.OutboxEntry, 0, len(events))
	for _, event := range events {
		payload, err := p.serializer.Serialize(event)
		if err != nil {
			return nil, err
		}
		entry := shared.NewOutboxEntry(event, payload, now)
		entry.MaxRetries = p.maxRetries
		entries = append(entries, entry)
	}
	return entries, nil
}

// PublishWithTx publishes events to the outbox within the provided transaction
// so they are persisted atomically with the aggregate changes
func (p *OutboxPublisher) PublishWithTx(ctx context.Context, tx *gorm.DB, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	entries, err := p.Entries(events...)
	if err != nil {
		return err
	}
	return NewGormOutboxRepository(tx).Save(ctx, entries...)
}

// SaveEvents implements the shared.OutboxEventSaver interface
func (p *OutboxPublisher) SaveEvents(ctx context.Context, txProvider interface{}, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, ok := txProvider.(*gorm.DB)
	if !ok {
		return fmt.Errorf("txProvider must be a *gorm.DB, got %T", txProvider)
	}

	return p.PublishWithTx(ctx, tx, events...)
}

// Ensure OutboxPublisher implements OutboxEventSaver
var _ shared.OutboxEventSaver = (*OutboxPublisher)(nil)
