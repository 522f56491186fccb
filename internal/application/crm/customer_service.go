// Package crm provides the command services of the CRM context
package crm

import (
	"context"

	"github.com/google/uuid"
	"github.com/neuroerp/backend/internal/application/aggregate"
	"github.com/neuroerp/backend/internal/domain/crm"
	"github.com/neuroerp/backend/internal/domain/shared"
)

// CustomerView is the public representation of a customer, internal notes removed
type CustomerView = shared.PublicView[crm.CustomerPayload]

// CustomerService handles customer operations
type CustomerService struct {
	*aggregate.Service[*crm.Customer, crm.CustomerPayload]
}

// NewCustomerService creates a new CustomerService
func NewCustomerService(store shared.AggregateStore, opts ...aggregate.Option) *CustomerService {
	repo := aggregate.NewRepository(crm.AggregateTypeCustomer, store, crm.RestoreCustomer, opts...)
	return &CustomerService{
		Service: aggregate.NewService[*crm.Customer, crm.CustomerPayload](repo),
	}
}

// Create creates a customer. An empty status creates a Prospect.
func (s *CustomerService) Create(ctx context.Context, tenantID uuid.UUID, payload crm.CustomerPayload, status crm.CustomerStatus, actor string) (CustomerView, error) {
	return s.Service.Create(ctx, tenantID, func(opts ...shared.Option) (*crm.Customer, error) {
		return crm.NewCustomer(tenantID, payload, status, actor, opts...)
	})
}

// Activate activates a customer
func (s *CustomerService) Activate(ctx context.Context, tenantID, id uuid.UUID, actor string) (CustomerView, error) {
	return s.Do(ctx, tenantID, id, crm.OpCustomerActivate, func(c *crm.Customer) error {
		return c.Activate(actor)
	})
}

// Deactivate deactivates a customer
func (s *CustomerService) Deactivate(ctx context.Context, tenantID, id uuid.UUID, actor string) (CustomerView, error) {
	return s.Do(ctx, tenantID, id, crm.OpCustomerDeactivate, func(c *crm.Customer) error {
		return c.Deactivate(actor)
	})
}

// Block blocks a customer for credit or compliance reasons
func (s *CustomerService) Block(ctx context.Context, tenantID, id uuid.UUID, reason, actor string) (CustomerView, error) {
	return s.Do(ctx, tenantID, id, crm.OpCustomerBlock, func(c *crm.Customer) error {
		return c.Block(reason, actor)
	})
}

// UpdateDetails edits master data
func (s *CustomerService) UpdateDetails(ctx context.Context, tenantID, id uuid.UUID, patch crm.CustomerDetailsPatch, actor string) (CustomerView, error) {
	return s.Do(ctx, tenantID, id, crm.OpCustomerUpdateDetails, func(c *crm.Customer) error {
		return c.UpdateDetails(patch, actor)
	})
}
