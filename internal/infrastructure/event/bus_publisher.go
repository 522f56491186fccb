package event

import (
	"context"

	"github.com/neuroerp/backend/internal/domain/shared"
)

// BusEntryPublisher deserializes outbox entries and publishes them on an
// in-process EventBus. It lets single-node deployments run handlers such as
// the webhook dispatcher off the outbox without Redis.
type BusEntryPublisher struct {
	bus        shared.EventPublisher
	serializer *EventSerializer
}

// NewBusEntryPublisher creates a new bus-backed entry publisher
func NewBusEntryPublisher(bus shared.EventPublisher, serializer *EventSerializer) *BusEntryPublisher {
	return &BusEntryPublisher{bus: bus, serializer: serializer}
}

// PublishEntry implements EntryPublisher
func (p *BusEntryPublisher) PublishEntry(ctx context.Context, entry *shared.OutboxEntry) error {
	event, err := p.serializer.Deserialize(entry.EventType, entry.Payload)
	if err != nil {
		return err
	}
	return p.bus.Publish(ctx, event)
}

// FanoutPublisher delivers each entry to every publisher in order and stops at
// the first failure
type FanoutPublisher []EntryPublisher

// PublishEntry implements EntryPublisher
func (f FanoutPublisher) PublishEntry(ctx context.Context, entry *shared.OutboxEntry) error {
	for _, p := range f {
		if err := p.PublishEntry(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

var (
	_ EntryPublisher = (*BusEntryPublisher)(nil)
	_ EntryPublisher = FanoutPublisher(nil)
)
