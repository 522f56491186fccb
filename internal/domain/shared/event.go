package shared

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DomainEvent represents an event that occurred in the domain
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	AggregateType() string
	TenantID() uuid.UUID
}

// VersionedEvent extends DomainEvent with schema versioning support
type VersionedEvent interface {
	DomainEvent
	// SchemaVersion returns the version of the event schema (e.g., 1, 2, 3)
	SchemaVersion() int
}

// BaseDomainEvent provides common fields for all domain events
type BaseDomainEvent struct {
	ID            uuid.UUID `json:"id"`
	Type          string    `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggID         uuid.UUID `json:"aggregate_id"`
	AggType       string    `json:"aggregate_type"`
	TenantIDValue uuid.UUID `json:"tenant_id"`
	Version       int       `json:"schema_version,omitempty"`
}

// EventID returns the unique event identifier
func (e *BaseDomainEvent) EventID() uuid.UUID {
	return e.ID
}

// EventType returns the type of the event
func (e *BaseDomainEvent) EventType() string {
	return e.Type
}

// OccurredAt returns when the event occurred
func (e *BaseDomainEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID returns the ID of the aggregate that produced this event
func (e *BaseDomainEvent) AggregateID() uuid.UUID {
	return e.AggID
}

// AggregateType returns the type of the aggregate
func (e *BaseDomainEvent) AggregateType() string {
	return e.AggType
}

// TenantID returns the tenant ID
func (e *BaseDomainEvent) TenantID() uuid.UUID {
	return e.TenantIDValue
}

// SchemaVersion returns the schema version of the event.
// Returns 1 if no version is set.
func (e *BaseDomainEvent) SchemaVersion() int {
	if e.Version == 0 {
		return 1
	}
	return e.Version
}

// NewBaseDomainEvent creates a new base domain event stamped at the given logical time
func NewBaseDomainEvent(eventType, aggType string, aggID, tenantID uuid.UUID, at time.Time) BaseDomainEvent {
	return BaseDomainEvent{
		ID:            uuid.New(),
		Type:          eventType,
		Timestamp:     at,
		AggID:         aggID,
		AggType:       aggType,
		TenantIDValue: tenantID,
		Version:       1,
	}
}

// EventKind classifies aggregate events
type EventKind string

const (
	EventKindCreated       EventKind = "Created"
	EventKindUpdated       EventKind = "Updated"
	EventKindStatusChanged EventKind = "StatusChanged"
)

// FieldChange captures the before and after value of one changed field
type FieldChange struct {
	Field  string      `json:"field"`
	Before interface{} `json:"before,omitempty"`
	After  interface{} `json:"after,omitempty"`
}

// AggregateEvent is the single event shape emitted by every accepted aggregate mutation
type AggregateEvent struct {
	BaseDomainEvent
	Kind             EventKind       `json:"kind"`
	Operation        string          `json:"operation"`
	AggregateVersion int             `json:"aggregate_version"`
	Actor            string          `json:"actor,omitempty"`
	Changes          []FieldChange   `json:"changes,omitempty"`
	Patch            json.RawMessage `json:"patch,omitempty"`
}

// NewAggregateEvent creates an event whose type is <AggregateType><Kind>, e.g. ContractStatusChanged
func NewAggregateEvent(env Envelope, aggType string, kind EventKind, op string, changes []FieldChange, patch json.RawMessage) *AggregateEvent {
	return &AggregateEvent{
		BaseDomainEvent:  NewBaseDomainEvent(aggType+string(kind), aggType, env.ID, env.TenantID, env.UpdatedAt),
		Kind:             kind,
		Operation:        op,
		AggregateVersion: env.Version,
		Actor:            env.UpdatedBy,
		Changes:          changes,
		Patch:            patch,
	}
}

// Topic returns the bus topic for the event: <aggregate>.<eventKind>
func (e *AggregateEvent) Topic() string {
	return fmt.Sprintf("%s.%s", e.AggType, e.Kind)
}

// Change returns the change recorded for field, if any
func (e *AggregateEvent) Change(field string) (FieldChange, bool) {
	for _, c := range e.Changes {
		if c.Field == field {
			return c, true
		}
	}
	return FieldChange{}, false
}
