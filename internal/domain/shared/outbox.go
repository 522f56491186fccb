package shared

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// OutboxStatus represents the status of an outbox entry
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "PENDING"
	OutboxStatusProcessing OutboxStatus = "PROCESSING"
	OutboxStatusSent       OutboxStatus = "SENT"
	OutboxStatusFailed     OutboxStatus = "FAILED"
	OutboxStatusDead       OutboxStatus = "DEAD"
)

// Default retry configuration
const (
	DefaultMaxRetries  = 5
	DefaultBaseBackoff = time.Second
)

// Topical is implemented by events that name their bus topic
type Topical interface {
	Topic() string
}

// TopicOf returns the event's topic, falling back to its type
func TopicOf(event DomainEvent) string {
	if t, ok := event.(Topical); ok {
		return t.Topic()
	}
	return event.EventType()
}

// OutboxEntry is a serialized aggregate event awaiting relay to the external bus.
// It is written in the same transaction as the aggregate record.
type OutboxEntry struct {
	ID               uuid.UUID
	TenantID         uuid.UUID
	EventID          uuid.UUID
	EventType        string
	Topic            string
	AggregateID      uuid.UUID
	AggregateType    string
	AggregateVersion int
	Payload          []byte
	Status           OutboxStatus
	RetryCount       int
	MaxRetries       int
	LastError        string
	NextRetryAt      *time.Time
	ProcessedAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewOutboxEntry creates a pending outbox entry for a domain event
func NewOutboxEntry(event DomainEvent, payload []byte, now time.Time) *OutboxEntry {
	entry := &OutboxEntry{
		ID:            uuid.New(),
		TenantID:      event.TenantID(),
		EventID:       event.EventID(),
		EventType:     event.EventType(),
		Topic:         TopicOf(event),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		Payload:       payload,
		Status:        OutboxStatusPending,
		MaxRetries:    DefaultMaxRetries,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if ae, ok := event.(*AggregateEvent); ok {
		entry.AggregateVersion = ae.AggregateVersion
	}
	return entry
}

// CanRetry returns true if the entry can be retried
func (e *OutboxEntry) CanRetry() bool {
	return e.Status == OutboxStatusFailed && e.RetryCount < e.MaxRetries
}

// MarkProcessing claims the entry for a relay run
func (e *OutboxEntry) MarkProcessing(now time.Time) error {
	if e.Status != OutboxStatusPending && e.Status != OutboxStatusFailed {
		return errors.New("can only mark pending or failed entries as processing")
	}
	e.Status = OutboxStatusProcessing
	e.UpdatedAt = now
	return nil
}

// MarkSent marks the entry as delivered to the bus
func (e *OutboxEntry) MarkSent(now time.Time) {
	e.Status = OutboxStatusSent
	e.ProcessedAt = &now
	e.UpdatedAt = now
}

// MarkFailed records a delivery failure. The entry is retried after
// base * 2^(retries-1) until MaxRetries is reached, then dead-lettered.
func (e *OutboxEntry) MarkFailed(errMsg string, now time.Time, base time.Duration) {
	if base <= 0 {
		base = DefaultBaseBackoff
	}
	e.RetryCount++
	e.LastError = errMsg
	e.UpdatedAt = now

	if e.RetryCount >= e.MaxRetries {
		e.Status = OutboxStatusDead
		e.NextRetryAt = nil
		return
	}
	e.Status = OutboxStatusFailed
	next := now.Add(base * time.Duration(1<<uint(e.RetryCount-1)))
	e.NextRetryAt = &next
}

// ResetForRetry moves a dead letter back to pending
func (e *OutboxEntry) ResetForRetry(now time.Time) error {
	if e.Status != OutboxStatusDead {
		return errors.New("can only retry dead letter entries")
	}
	e.Status = OutboxStatusPending
	e.RetryCount = 0
	e.LastError = ""
	e.NextRetryAt = nil
	e.UpdatedAt = now
	return nil
}

// IsDead returns true if the entry is in dead letter status
func (e *OutboxEntry) IsDead() bool {
	return e.Status == OutboxStatusDead
}

// OutboxRepository defines the interface for outbox persistence
type OutboxRepository interface {
	// Save inserts new entries
	Save(ctx context.Context, entries ...*OutboxEntry) error
	// FindPending retrieves pending entries in creation order up to limit
	FindPending(ctx context.Context, limit int) ([]*OutboxEntry, error)
	// FindRetryable retrieves failed entries due for retry at before
	FindRetryable(ctx context.Context, before time.Time, limit int) ([]*OutboxEntry, error)
	// MarkProcessing claims the given pending or failed entries for one relay
	// run and returns those actually claimed
	MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*OutboxEntry, error)
	// FindDead retrieves dead letter entries with pagination
	FindDead(ctx context.Context, page, pageSize int) ([]*OutboxEntry, int64, error)
	// FindByID retrieves a single outbox entry by ID
	FindByID(ctx context.Context, id uuid.UUID) (*OutboxEntry, error)
	// Update persists the status fields of an entry
	Update(ctx context.Context, entry *OutboxEntry) error
	// DeleteSentBefore deletes delivered entries older than before
	DeleteSentBefore(ctx context.Context, before time.Time) (int64, error)
	// CountByStatus returns count of entries for each status
	CountByStatus(ctx context.Context) (map[OutboxStatus]int64, error)
}
