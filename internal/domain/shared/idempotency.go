package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// IdempotencyStore remembers which (handler, event) pairs were handled so a
// relayed event delivered twice is acted on once
type IdempotencyStore interface {
	// MarkProcessed claims key for ttl. It returns false if key is already claimed.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	IsProcessed(ctx context.Context, key string) (bool, error)

	// Release drops a claim so a redelivery of the event is handled again.
	// Called when the handler failed after the claim.
	Release(ctx context.Context, key string) error

	Close() error
}

// IdempotencyKey is the store key of event for the named handler. Handlers
// are keyed separately so each of them sees every event once.
func IdempotencyKey(handler string, eventID uuid.UUID) string {
	return handler + ":" + eventID.String()
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL must exceed the longest outbox retry window, otherwise a late
	// redelivery is handled twice
	TTL     time.Duration
	Enabled bool
}

// DefaultIdempotencyConfig returns a 24h TTL, enabled
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
