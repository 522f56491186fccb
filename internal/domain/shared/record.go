package shared

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Record is the flat persisted snapshot of an aggregate. It holds no live
// references, so stores can upsert it keyed by ID with a version predicate.
type Record struct {
	ID            uuid.UUID       `json:"id"`
	TenantID      uuid.UUID       `json:"tenant_id"`
	AggregateType string          `json:"aggregate_type"`
	BusinessKey   string          `json:"business_key"`
	Status        string          `json:"status"`
	Version       int             `json:"version"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	CreatedBy     string          `json:"created_by,omitempty"`
	UpdatedBy     string          `json:"updated_by,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// Envelope returns the identity and audit part of the record
func (r Record) Envelope() Envelope {
	return Envelope{
		ID:          r.ID,
		TenantID:    r.TenantID,
		BusinessKey: r.BusinessKey,
		Version:     r.Version,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		CreatedBy:   r.CreatedBy,
		UpdatedBy:   r.UpdatedBy,
	}
}

// PublicView is the API-facing snapshot of an aggregate: no tenant id, and
// sensitive payload fields redacted per aggregate type.
type PublicView[P any] struct {
	ID          uuid.UUID `json:"id"`
	Type        string    `json:"type"`
	BusinessKey string    `json:"business_key"`
	Status      string    `json:"status"`
	Version     int       `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	CreatedBy   string    `json:"created_by,omitempty"`
	UpdatedBy   string    `json:"updated_by,omitempty"`
	Payload     P         `json:"payload"`
}
