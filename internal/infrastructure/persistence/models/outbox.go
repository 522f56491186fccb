package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/neuroerp/backend/internal/domain/shared"
	"gorm.io/datatypes"
)

// OutboxEntryModel is the persistence model for domain events stored in the outbox
type OutboxEntryModel struct {
	ID               uuid.UUID           `gorm:"type:uuid;primaryKey"`
	TenantID         uuid.UUID           `gorm:"type:uuid;not null;index"`
	EventID          uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex"`
	EventType        string              `gorm:"type:varchar(100);not null"`
	Topic            string              `gorm:"type:varchar(150);not null"`
	AggregateID      uuid.UUID           `gorm:"type:uuid;not null;index"`
	AggregateType    string              `gorm:"type:varchar(50);not null"`
	AggregateVersion int                 `gorm:"not null"`
	Payload          datatypes.JSON      `gorm:"not null"`
	Status           shared.OutboxStatus `gorm:"type:varchar(20);not null;index:idx_outbox_status_created,priority:1"`
	RetryCount       int                 `gorm:"not null"`
	MaxRetries       int                 `gorm:"not null"`
	LastError        string              `gorm:"type:text"`
	NextRetryAt      *time.Time          `gorm:"index"`
	ProcessedAt      *time.Time
	CreatedAt        time.Time `gorm:"not null;autoCreateTime:false;index:idx_outbox_status_created,priority:2"`
	UpdatedAt        time.Time `gorm:"not null;autoUpdateTime:false"`
}

// TableName returns the table name for GORM
func (OutboxEntryModel) TableName() string {
	return "outbox_events"
}

// ToDomain converts the persistence model to a domain OutboxEntry
func (m *OutboxEntryModel) ToDomain() *shared.OutboxEntry {
	return &shared.OutboxEntry{
		ID:               m.ID,
		TenantID:         m.TenantID,
		EventID:          m.EventID,
		EventType:        m.EventType,
		Topic:            m.Topic,
		AggregateID:      m.AggregateID,
		AggregateType:    m.AggregateType,
		AggregateVersion: m.AggregateVersion,
		Payload:          []byte(m.Payload),
		Status:           m.Status,
		RetryCount:       m.RetryCount,
		MaxRetries:       m.MaxRetries,
		LastError:        m.LastError,
		NextRetryAt:      m.NextRetryAt,
		ProcessedAt:      m.ProcessedAt,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// OutboxEntryModelFromDomain creates a persistence model from a domain OutboxEntry
func OutboxEntryModelFromDomain(e *shared.OutboxEntry) *OutboxEntryModel {
	return &OutboxEntryModel{
		ID:               e.ID,
		TenantID:         e.TenantID,
		EventID:          e.EventID,
		EventType:        e.EventType,
		Topic:            e.Topic,
		AggregateID:      e.AggregateID,
		AggregateType:    e.AggregateType,
		AggregateVersion: e.AggregateVersion,
		Payload:          datatypes.JSON(e.Payload),
		Status:           e.Status,
		RetryCount:       e.RetryCount,
		MaxRetries:       e.MaxRetries,
		LastError:        e.LastError,
		NextRetryAt:      e.NextRetryAt,
		ProcessedAt:      e.ProcessedAt,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}

// AllModels lists every model for AutoMigrate in tests and embedded setups
func AllModels() []interface{} {
	return []interface{}{&AggregateRecordModel{}, &OutboxEntryModel{}}
}
