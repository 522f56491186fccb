package event

import (
	"context"
	"errors"
	"testing"

	"github.com/neuroerp/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBusEntryPublisher_DeliversDeserializedEvent(t *testing.T) {
	serializer := NewEventSerializer()
	serializer.RegisterAggregate("Webhook", "Triggered")
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newTestHandler("WebhookTriggered")
	bus.Subscribe(handler)

	outbox := NewOutboxPublisher(serializer)
	event := newTestEvent("Webhook", "Triggered")
	entries, err := outbox.Entries(event)
	require.NoError(t, err)

	require.NoError(t, NewBusEntryPublisher(bus, serializer).PublishEntry(context.Background(), entries[0]))

	require.Len(t, handler.getHandled(), 1)
	got := handler.getHandled()[0].(*shared.AggregateEvent)
	assert.Equal(t, event.EventID(), got.EventID())
	assert.Equal(t, shared.EventKind("Triggered"), got.Kind)
}

func TestBusEntryPublisher_UnknownType(t *testing.T) {
	pub := NewBusEntryPublisher(NewInMemoryEventBus(zap.NewNop()), NewEventSerializer())

	err := pub.PublishEntry(context.Background(), newTestEntry("Contract", shared.EventKindCreated, testNow))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown event type")
}

func TestFanoutPublisher_StopsAtFirstFailure(t *testing.T) {
	boom := errors.New("down")
	first := &recordingPublisher{}
	failing := &recordingPublisher{err: boom}
	last := &recordingPublisher{}

	err := FanoutPublisher{first, failing, last}.PublishEntry(context.Background(),
		newTestEntry("Contract", shared.EventKindCreated, testNow))

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, first.count())
	assert.Zero(t, last.count())
}
