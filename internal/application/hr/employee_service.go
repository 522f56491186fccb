// Package hr provides the command services of the HR context
package hr

import (
	"context"

	"github.com/google/uuid"
	"github.com/neuroerp/backend/internal/application/aggregate"
	"github.com/neuroerp/backend/internal/domain/hr"
	"github.com/neuroerp/backend/internal/domain/shared"
)

// EmployeeView is the public representation of an employee, IBAN removed
type EmployeeView = shared.PublicView[hr.EmployeePayload]

// EmployeeService handles employee operations
type EmployeeService struct {
	*aggregate.Service[*hr.Employee, hr.EmployeePayload]
}

// NewEmployeeService creates a new EmployeeService
func NewEmployeeService(store shared.AggregateStore, opts ...aggregate.Option) *EmployeeService {
	repo := aggregate.NewRepository(hr.AggregateTypeEmployee, store, hr.RestoreEmployee, opts...)
	return &EmployeeService{
		Service: aggregate.NewService[*hr.Employee, hr.EmployeePayload](repo),
	}
}

// Create hires an employee
func (s *EmployeeService) Create(ctx context.Context, tenantID uuid.UUID, payload hr.EmployeePayload, actor string) (EmployeeView, error) {
	return s.Service.Create(ctx, tenantID, func(opts ...shared.Option) (*hr.Employee, error) {
		return hr.NewEmployee(tenantID, payload, actor, opts...)
	})
}

// UpdateDetails edits personal data
func (s *EmployeeService) UpdateDetails(ctx context.Context, tenantID, id uuid.UUID, patch hr.EmployeeDetailsPatch, actor string) (EmployeeView, error) {
	return s.Do(ctx, tenantID, id, hr.OpEmployeeUpdateDetails, func(e *hr.Employee) error {
		return e.UpdateDetails(patch, actor)
	})
}

// StartLeave marks the employee as on leave
func (s *EmployeeService) StartLeave(ctx context.Context, tenantID, id uuid.UUID, actor string) (EmployeeView, error) {
	return s.Do(ctx, tenantID, id, hr.OpStartLeave, func(e *hr.Employee) error {
		return e.StartLeave(actor)
	})
}

// ReturnFromLeave marks the employee as active again
func (s *EmployeeService) ReturnFromLeave(ctx context.Context, tenantID, id uuid.UUID, actor string) (EmployeeView, error) {
	return s.Do(ctx, tenantID, id, hr.OpReturnFromLeave, func(e *hr.Employee) error {
		return e.ReturnFromLeave(actor)
	})
}

// Terminate ends the employment on date
func (s *EmployeeService) Terminate(ctx context.Context, tenantID, id uuid.UUID, date, actor string) (EmployeeView, error) {
	return s.Do(ctx, tenantID, id, hr.OpTerminate, func(e *hr.Employee) error {
		return e.Terminate(date, actor)
	})
}
