package event

import (
	"context"
	"fmt"
	"strconv"

	"github.com/neuroerp/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

// DefaultStreamPrefix is prepended to event topics to form stream keys
const DefaultStreamPrefix = "neuroerp:events:"

// streamClient is the subset of the Redis API the stream publisher needs
type streamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisStreamPublisher appends outbox entries to one Redis stream per topic
type RedisStreamPublisher struct {
	client streamClient
	prefix string
	maxLen int64
}

// NewRedisStreamPublisher creates a publisher writing to <prefix><topic>.
// maxLen caps each stream approximately; 0 leaves streams unbounded.
func NewRedisStreamPublisher(client *redis.Client, prefix string, maxLen int64) *RedisStreamPublisher {
	return newRedisStreamPublisher(client, prefix, maxLen)
}

func newRedisStreamPublisher(client streamClient, prefix string, maxLen int64) *RedisStreamPublisher {
	if prefix == "" {
		prefix = DefaultStreamPrefix
	}
	return &RedisStreamPublisher{client: client, prefix: prefix, maxLen: maxLen}
}

// StreamKey returns the stream an entry is appended to
func (p *RedisStreamPublisher) StreamKey(entry *shared.OutboxEntry) string {
	return p.prefix + entry.Topic
}

// PublishEntry implements EntryPublisher
func (p *RedisStreamPublisher) PublishEntry(ctx context.Context, entry *shared.OutboxEntry) error {
	args := &redis.XAddArgs{
		Stream: p.StreamKey(entry),
		Values: map[string]interface{}{
			"event_id":          entry.EventID.String(),
			"event_type":        entry.EventType,
			"tenant_id":         entry.TenantID.String(),
			"aggregate_type":    entry.AggregateType,
			"aggregate_id":      entry.AggregateID.String(),
			"aggregate_version": strconv.Itoa(entry.AggregateVersion),
			"payload":           string(entry.Payload),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", args.Stream, err)
	}
	return nil
}

var _ EntryPublisher = (*RedisStreamPublisher)(nil)
