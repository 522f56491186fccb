package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/neuroerp/backend/internal/domain/shared"
	"gorm.io/datatypes"
)

// AggregateRecordModel is the persistence model of any aggregate.
// (tenant_id, aggregate_type, business_key) is unique; version carries the
// optimistic lock.
type AggregateRecordModel struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey"`
	TenantID      uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uq_aggregate_business_key,priority:1;index:idx_aggregate_tenant_type_status,priority:1"`
	AggregateType string         `gorm:"type:varchar(50);not null;uniqueIndex:uq_aggregate_business_key,priority:2;index:idx_aggregate_tenant_type_status,priority:2"`
	BusinessKey   string         `gorm:"type:varchar(100);not null;uniqueIndex:uq_aggregate_business_key,priority:3"`
	Status        string         `gorm:"type:varchar(30);not null;index:idx_aggregate_tenant_type_status,priority:3"`
	Version       int            `gorm:"not null"`
	Payload       datatypes.JSON `gorm:"not null"`
	CreatedBy     string         `gorm:"type:varchar(100)"`
	UpdatedBy     string         `gorm:"type:varchar(100)"`
	CreatedAt     time.Time      `gorm:"not null;autoCreateTime:false"`
	UpdatedAt     time.Time      `gorm:"not null;autoUpdateTime:false"`
}

// TableName returns the table name for GORM
func (AggregateRecordModel) TableName() string {
	return "aggregate_records"
}

// ToDomain converts the model to a persisted record
func (m *AggregateRecordModel) ToDomain() shared.Record {
	return shared.Record{
		ID:            m.ID,
		TenantID:      m.TenantID,
		AggregateType: m.AggregateType,
		BusinessKey:   m.BusinessKey,
		Status:        m.Status,
		Version:       m.Version,
		CreatedAt:     m.CreatedAt.UTC(),
		UpdatedAt:     m.UpdatedAt.UTC(),
		CreatedBy:     m.CreatedBy,
		UpdatedBy:     m.UpdatedBy,
		Payload:       []byte(m.Payload),
	}
}

// AggregateRecordModelFromDomain creates a model from a persisted record
func AggregateRecordModelFromDomain(r shared.Record) *AggregateRecordModel {
	return &AggregateRecordModel{
		ID:            r.ID,
		TenantID:      r.TenantID,
		AggregateType: r.AggregateType,
		BusinessKey:   r.BusinessKey,
		Status:        r.Status,
		Version:       r.Version,
		Payload:       datatypes.JSON(r.Payload),
		CreatedBy:     r.CreatedBy,
		UpdatedBy:     r.UpdatedBy,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}
