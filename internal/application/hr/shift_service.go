package hr

import (
	"context"

	"github.com/google/uuid"
	"github.com/neuroerp/backend/internal/application/aggregate"
	"github.com/neuroerp/backend/internal/domain/hr"
	"github.com/neuroerp/backend/internal/domain/shared"
)

// ShiftView is the public representation of a shift
type ShiftView = shared.PublicView[hr.ShiftPayload]

// ShiftService handles shift planning
type ShiftService struct {
	*aggregate.Service[*hr.Shift, hr.ShiftPayload]
}

// NewShiftService creates a new ShiftService
func NewShiftService(store shared.AggregateStore, opts ...aggregate.Option) *ShiftService {
	repo := aggregate.NewRepository(hr.AggregateTypeShift, store, hr.RestoreShift, opts...)
	return &ShiftService{
		Service: aggregate.NewService[*hr.Shift, hr.ShiftPayload](repo),
	}
}

// Create plans a shift
func (s *ShiftService) Create(ctx context.Context, tenantID uuid.UUID, payload hr.ShiftPayload, actor string) (ShiftView, error) {
	return s.Service.Create(ctx, tenantID, func(opts ...shared.Option) (*hr.Shift, error) {
		return hr.NewShift(tenantID, payload, actor, opts...)
	})
}

// AssignEmployee puts employeeID on the roster
func (s *ShiftService) AssignEmployee(ctx context.Context, tenantID, id, employeeID uuid.UUID, actor string) (ShiftView, error) {
	return s.Do(ctx, tenantID, id, hr.OpAssignEmployee, func(sh *hr.Shift) error {
		return sh.AssignEmployee(employeeID, actor)
	})
}

// UnassignEmployee takes employeeID off the roster
func (s *ShiftService) UnassignEmployee(ctx context.Context, tenantID, id, employeeID uuid.UUID, actor string) (ShiftView, error) {
	return s.Do(ctx, tenantID, id, hr.OpUnassignEmployee, func(sh *hr.Shift) error {
		return sh.UnassignEmployee(employeeID, actor)
	})
}

// Publish releases the plan
func (s *ShiftService) Publish(ctx context.Context, tenantID, id uuid.UUID, actor string) (ShiftView, error) {
	return s.Do(ctx, tenantID, id, hr.OpPublishShift, func(sh *hr.Shift) error {
		return sh.Publish(actor)
	})
}

// Complete closes a published shift
func (s *ShiftService) Complete(ctx context.Context, tenantID, id uuid.UUID, actor string) (ShiftView, error) {
	return s.Do(ctx, tenantID, id, hr.OpCompleteShift, func(sh *hr.Shift) error {
		return sh.Complete(actor)
	})
}

// Cancel drops the shift
func (s *ShiftService) Cancel(ctx context.Context, tenantID, id uuid.UUID, actor string) (ShiftView, error) {
	return s.Do(ctx, tenantID, id, hr.OpCancelShift, func(sh *hr.Shift) error {
		return sh.Cancel(actor)
	})
}

// Coverage returns assigned over required headcount
func (s *ShiftService) Coverage(ctx context.Context, tenantID, id uuid.UUID) (float64, error) {
	sh, err := s.Repository().Get(ctx, tenantID, id)
	if err != nil {
		return 0, err
	}
	return sh.Coverage(), nil
}
