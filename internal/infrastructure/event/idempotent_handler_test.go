package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/neuroerp/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockIdempotencyStore is a testify mock of shared.IdempotencyStore
type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, eventID, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	args := m.Called(ctx, eventID)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockIdempotencyStore) Close() error {
	return m.Called().Error(0)
}

// memoryStore is a minimal concurrent-safe store for race tests
type memoryStore struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (s *memoryStore) MarkProcessed(_ context.Context, id string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen[id] {
		return false, nil
	}
	s.seen[id] = true
	return true, nil
}

func (s *memoryStore) IsProcessed(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen[id], nil
}

func (s *memoryStore) Release(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seen, id)
	return nil
}

func (s *memoryStore) Close() error { return nil }

func TestIdempotentHandler_NewEvent(t *testing.T) {
	inner := newTestHandler("WebhookTriggered")
	store := new(MockIdempotencyStore)
	h := NewIdempotentHandler("dispatcher", inner, store, zap.NewNop())
	event := newTestEvent("Webhook", "Triggered")

	store.On("MarkProcessed", mock.Anything, "dispatcher:"+event.EventID().String(), 24*time.Hour).Return(true, nil)

	require.NoError(t, h.Handle(context.Background(), event))
	assert.Len(t, inner.getHandled(), 1)
	assert.Equal(t, IdempotencyStats{Processed: 1}, h.Stats())
	store.AssertExpectations(t)
}

func TestIdempotentHandler_DuplicateSkipped(t *testing.T) {
	inner := newTestHandler()
	store := new(MockIdempotencyStore)
	h := NewIdempotentHandler("dispatcher", inner, store, zap.NewNop())

	store.On("MarkProcessed", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)

	require.NoError(t, h.Handle(context.Background(), newTestEvent("Webhook", "Triggered")))
	assert.Empty(t, inner.getHandled())
	assert.Equal(t, int64(1), h.Stats().Duplicate)
}

func TestIdempotentHandler_HandlerError(t *testing.T) {
	inner := newTestHandler()
	boom := errors.New("delivery failed")
	inner.setError(boom)
	store := new(MockIdempotencyStore)
	event := newTestEvent("Webhook", "Triggered")
	key := "dispatcher:" + event.EventID().String()
	store.On("MarkProcessed", mock.Anything, key, mock.Anything).Return(true, nil)
	store.On("Release", mock.Anything, key).Return(nil)
	h := NewIdempotentHandler("dispatcher", inner, store, zap.NewNop())

	err := h.Handle(context.Background(), event)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(1), h.Stats().Failed)
	store.AssertExpectations(t)
}

func TestIdempotentHandler_RetryAfterFailureIsHandled(t *testing.T) {
	inner := newTestHandler()
	inner.setError(errors.New("downstream unavailable"))
	h := NewIdempotentHandler("dispatcher", inner, &memoryStore{seen: map[string]bool{}}, zap.NewNop())
	event := newTestEvent("Shift", "StatusChanged")

	require.Error(t, h.Handle(context.Background(), event))

	inner.setError(nil)
	require.NoError(t, h.Handle(context.Background(), event))
	require.NoError(t, h.Handle(context.Background(), event))

	assert.Equal(t, IdempotencyStats{Processed: 1, Duplicate: 1, Failed: 1}, h.Stats())
}

func TestIdempotentHandler_StoreErrorStillHandles(t *testing.T) {
	inner := newTestHandler()
	store := new(MockIdempotencyStore)
	store.On("MarkProcessed", mock.Anything, mock.Anything, mock.Anything).Return(false, errors.New("redis down"))
	h := NewIdempotentHandler("dispatcher", inner, store, zap.NewNop())

	require.NoError(t, h.Handle(context.Background(), newTestEvent("Webhook", "Triggered")))
	assert.Len(t, inner.getHandled(), 1)
}

func TestIdempotentHandler_Disabled(t *testing.T) {
	inner := newTestHandler()
	store := new(MockIdempotencyStore)
	h := NewIdempotentHandler("dispatcher", inner, store, zap.NewNop(),
		WithIdempotencyConfig(shared.IdempotencyConfig{Enabled: false}))
	event := newTestEvent("Webhook", "Triggered")

	require.NoError(t, h.Handle(context.Background(), event))
	require.NoError(t, h.Handle(context.Background(), event))

	assert.Len(t, inner.getHandled(), 2)
	store.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything, mock.Anything)
}

func TestIdempotentHandler_EventTypes(t *testing.T) {
	inner := newTestHandler("WebhookTriggered", "WebhookStatusChanged")
	h := NewIdempotentHandler("dispatcher", inner, new(MockIdempotencyStore), zap.NewNop())

	assert.Equal(t, []string{"WebhookTriggered", "WebhookStatusChanged"}, h.EventTypes())
}

func TestIdempotentHandler_KeysScopedByHandlerName(t *testing.T) {
	store := &memoryStore{seen: map[string]bool{}}
	a := newTestHandler()
	b := newTestHandler()
	ha := NewIdempotentHandler("audit", a, store, zap.NewNop())
	hb := NewIdempotentHandler("dispatcher", b, store, zap.NewNop())
	event := newTestEvent("Contract", shared.EventKindCreated)

	require.NoError(t, ha.Handle(context.Background(), event))
	require.NoError(t, hb.Handle(context.Background(), event))
	require.NoError(t, hb.Handle(context.Background(), event))

	assert.Len(t, a.getHandled(), 1)
	assert.Len(t, b.getHandled(), 1)
}

func TestIdempotentHandler_ConcurrentDuplicates(t *testing.T) {
	store := &memoryStore{seen: map[string]bool{}}
	inner := newTestHandler()
	h := NewIdempotentHandler("dispatcher", inner, store, zap.NewNop())
	event := newTestEvent("Webhook", "Triggered")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.Handle(context.Background(), event)
		}()
	}
	wg.Wait()

	assert.Len(t, inner.getHandled(), 1)
	assert.Equal(t, int64(19), h.Stats().Duplicate)
}
