// Package contracts provides the command service of the Contracts context
package contracts

import (
	"context"

	"github.com/google/uuid"
	"github.com/neuroerp/backend/internal/application/aggregate"
	"github.com/neuroerp/backend/internal/domain/contracts"
	"github.com/neuroerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ContractView is the public representation of a contract
type ContractView = shared.PublicView[contracts.ContractPayload]

// ContractService handles contract operations
type ContractService struct {
	*aggregate.Service[*contracts.Contract, contracts.ContractPayload]
}

// NewContractService creates a new ContractService
func NewContractService(store shared.AggregateStore, opts ...aggregate.Option) *ContractService {
	repo := aggregate.NewRepository(contracts.AggregateTypeContract, store, contracts.RestoreContract, opts...)
	return &ContractService{
		Service: aggregate.NewService[*contracts.Contract, contracts.ContractPayload](repo),
	}
}

// Create creates a Draft contract
func (s *ContractService) Create(ctx context.Context, tenantID uuid.UUID, payload contracts.ContractPayload, actor string) (ContractView, error) {
	return s.Service.Create(ctx, tenantID, func(opts ...shared.Option) (*contracts.Contract, error) {
		return contracts.NewContract(tenantID, payload, actor, opts...)
	})
}

// Activate puts a draft contract into force
func (s *ContractService) Activate(ctx context.Context, tenantID, id uuid.UUID, actor string) (ContractView, error) {
	return s.Do(ctx, tenantID, id, contracts.OpActivate, func(c *contracts.Contract) error {
		return c.Activate(actor)
	})
}

// RecordFulfillment books a delivered quantity
func (s *ContractService) RecordFulfillment(ctx context.Context, tenantID, id uuid.UUID, qty decimal.Decimal, actor string) (ContractView, error) {
	return s.Do(ctx, tenantID, id, contracts.OpRecordFulfillment, func(c *contracts.Contract) error {
		return c.RecordFulfillment(qty, actor)
	})
}

// Cancel cancels a contract that is not yet fulfilled
func (s *ContractService) Cancel(ctx context.Context, tenantID, id uuid.UUID, reason, actor string) (ContractView, error) {
	return s.Do(ctx, tenantID, id, contracts.OpCancel, func(c *contracts.Contract) error {
		return c.Cancel(reason, actor)
	})
}

// MarkDefaulted records that the counterparty failed to perform
func (s *ContractService) MarkDefaulted(ctx context.Context, tenantID, id uuid.UUID, reason, actor string) (ContractView, error) {
	return s.Do(ctx, tenantID, id, contracts.OpMarkDefaulted, func(c *contracts.Contract) error {
		return c.MarkDefaulted(reason, actor)
	})
}

// UpdateTerms edits the terms of a draft contract
func (s *ContractService) UpdateTerms(ctx context.Context, tenantID, id uuid.UUID, patch contracts.ContractTermsPatch, actor string) (ContractView, error) {
	return s.Do(ctx, tenantID, id, contracts.OpUpdateTerms, func(c *contracts.Contract) error {
		return c.UpdateTerms(patch, actor)
	})
}
