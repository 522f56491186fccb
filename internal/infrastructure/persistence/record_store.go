package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/neuroerp/backend/internal/domain/shared"
	"github.com/neuroerp/backend/internal/infrastructure/persistence/models"
	"github.com/neuroerp/backend/internal/infrastructure/persistence/tenant"
	"gorm.io/gorm"
)

// GormAggregateStore implements shared.AggregateStore on the aggregate_records
// table. Updates carry a version predicate; events go to the outbox in the
// same transaction as the record.
type GormAggregateStore struct {
	db     *tenant.TenantDB
	outbox shared.OutboxEventSaver
}

// NewGormAggregateStore creates a store. outbox may be nil, in which case
// events passed to Save are not persisted.
func NewGormAggregateStore(db *gorm.DB, outbox shared.OutboxEventSaver) *GormAggregateStore {
	return &GormAggregateStore{db: tenant.NewTenantDB(db), outbox: outbox}
}

// Get loads a record by id
func (s *GormAggregateStore) Get(ctx context.Context, tenantID uuid.UUID, aggregateType string, id uuid.UUID) (shared.Record, error) {
	var model models.AggregateRecordModel
	err := s.db.ForTenant(ctx, tenantID).
		Where("aggregate_type = ? AND id = ?", aggregateType, id).
		First(&model).Error
	return toRecord(&model, err)
}

// GetByBusinessKey loads a record by its tenant-unique business key
func (s *GormAggregateStore) GetByBusinessKey(ctx context.Context, tenantID uuid.UUID, aggregateType, key string) (shared.Record, error) {
	var model models.AggregateRecordModel
	err := s.db.ForTenant(ctx, tenantID).
		Where("aggregate_type = ? AND business_key = ?", aggregateType, key).
		First(&model).Error
	return toRecord(&model, err)
}

// List returns one page of records of a type, optionally filtered by status
func (s *GormAggregateStore) List(ctx context.Context, tenantID uuid.UUID, aggregateType string, filter shared.Filter) (shared.Paginated[shared.Record], error) {
	f := filter.Normalize()

	query := s.db.ForTenant(ctx, tenantID).
		Model(&models.AggregateRecordModel{}).
		Where("aggregate_type = ?", aggregateType)
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return shared.Paginated[shared.Record]{}, err
	}

	sortField := ValidateSortField(f.SortBy, RecordSortFields, "created_at")
	var rows []models.AggregateRecordModel
	if err := query.
		Order(sortField + " " + ValidateSortOrder(f.OrderDir)).
		Order("id ASC").
		Offset(f.Offset()).
		Limit(f.PageSize).
		Find(&rows).Error; err != nil {
		return shared.Paginated[shared.Record]{}, err
	}

	items := make([]shared.Record, len(rows))
	for i := range rows {
		items[i] = rows[i].ToDomain()
	}
	return shared.NewPaginated(items, total, f.Page, f.PageSize), nil
}

// Save inserts rec when expectedVersion is 0 and otherwise updates it if the
// stored version still equals expectedVersion
func (s *GormAggregateStore) Save(ctx context.Context, rec shared.Record, expectedVersion int, events ...shared.DomainEvent) error {
	if rec.Version <= expectedVersion {
		return fmt.Errorf("%w: record version %d does not advance expected version %d",
			shared.ErrInvalidInput, rec.Version, expectedVersion)
	}

	return s.db.Transaction(ctx, rec.TenantID, func(tx *gorm.DB) error {
		if expectedVersion == 0 {
			if err := tx.Create(models.AggregateRecordModelFromDomain(rec)).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return fmt.Errorf("%s %q: %w", rec.AggregateType, rec.BusinessKey, shared.ErrAlreadyExists)
				}
				return err
			}
		} else if err := s.update(tx, rec, expectedVersion); err != nil {
			return err
		}

		if s.outbox == nil || len(events) == 0 {
			return nil
		}
		return s.outbox.SaveEvents(ctx, tx, events...)
	})
}

func (s *GormAggregateStore) update(tx *gorm.DB, rec shared.Record, expectedVersion int) error {
	model := models.AggregateRecordModelFromDomain(rec)
	result := tx.Model(&models.AggregateRecordModel{}).
		Where("aggregate_type = ? AND id = ? AND version = ?", rec.AggregateType, rec.ID, expectedVersion).
		Updates(map[string]interface{}{
			"business_key": model.BusinessKey,
			"status":       model.Status,
			"version":      model.Version,
			"payload":      model.Payload,
			"updated_by":   model.UpdatedBy,
			"updated_at":   model.UpdatedAt,
		})
	if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%s %q: %w", rec.AggregateType, rec.BusinessKey, shared.ErrAlreadyExists)
	}
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 1 {
		return nil
	}

	var exists int64
	if err := tx.Model(&models.AggregateRecordModel{}).
		Where("aggregate_type = ? AND id = ?", rec.AggregateType, rec.ID).
		Count(&exists).Error; err != nil {
		return err
	}
	if exists == 0 {
		return shared.ErrNotFound
	}
	return &shared.ConflictError{AggregateType: rec.AggregateType, ID: rec.ID, ExpectedVersion: expectedVersion}
}

func toRecord(model *models.AggregateRecordModel, err error) (shared.Record, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.Record{}, shared.ErrNotFound
	}
	if err != nil {
		return shared.Record{}, err
	}
	return model.ToDomain(), nil
}

// Ensure GormAggregateStore implements AggregateStore
var _ shared.AggregateStore = (*GormAggregateStore)(nil)
