package shared

import (
	"time"

	"github.com/google/uuid"
)

// Entity is the base interface for all domain entities
type Entity interface {
	GetID() uuid.UUID
	GetCreatedAt() time.Time
	GetUpdatedAt() time.Time
}

// Envelope holds the identity and audit fields every aggregate carries.
// ID, TenantID and BusinessKey never change after creation.
type Envelope struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	BusinessKey string
	Version     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CreatedBy   string
	UpdatedBy   string
}

// GetID returns the entity ID
func (e Envelope) GetID() uuid.UUID {
	return e.ID
}

// GetCreatedAt returns the creation timestamp
func (e Envelope) GetCreatedAt() time.Time {
	return e.CreatedAt
}

// GetUpdatedAt returns the last update timestamp
func (e Envelope) GetUpdatedAt() time.Time {
	return e.UpdatedAt
}

// NewEnvelope creates the envelope of a brand new aggregate at version 1
func NewEnvelope(tenantID uuid.UUID, businessKey string, now time.Time, actor string) Envelope {
	return Envelope{
		ID:          uuid.New(),
		TenantID:    tenantID,
		BusinessKey: businessKey,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
		CreatedBy:   actor,
		UpdatedBy:   actor,
	}
}

// Clock supplies the current time to factories and stampers
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC
type SystemClock struct{}

// Now returns the current UTC time
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// ClockFunc adapts a function to Clock
type ClockFunc func() time.Time

// Now calls f
func (f ClockFunc) Now() time.Time {
	return f()
}

type options struct {
	clock Clock
}

// Option configures aggregate construction and restoration
type Option func(*options)

// WithClock overrides the clock used to stamp the aggregate
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{clock: SystemClock{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
