package crm

import (
	"context"

	"github.com/google/uuid"
	"github.com/neuroerp/backend/internal/application/aggregate"
	"github.com/neuroerp/backend/internal/domain/crm"
	"github.com/neuroerp/backend/internal/domain/shared"
)

const opAdvance = "advance"

// OpportunityView is the public representation of an opportunity
type OpportunityView = shared.PublicView[crm.OpportunityPayload]

// OpportunityService handles sales pipeline operations
type OpportunityService struct {
	*aggregate.Service[*crm.Opportunity, crm.OpportunityPayload]
}

// NewOpportunityService creates a new OpportunityService
func NewOpportunityService(store shared.AggregateStore, opts ...aggregate.Option) *OpportunityService {
	repo := aggregate.NewRepository(crm.AggregateTypeOpportunity, store, crm.RestoreOpportunity, opts...)
	return &OpportunityService{
		Service: aggregate.NewService[*crm.Opportunity, crm.OpportunityPayload](repo),
	}
}

// Create opens an opportunity. An empty stage creates a Lead.
func (s *OpportunityService) Create(ctx context.Context, tenantID uuid.UUID, payload crm.OpportunityPayload, stage crm.OpportunityStage, actor string) (OpportunityView, error) {
	return s.Service.Create(ctx, tenantID, func(opts ...shared.Option) (*crm.Opportunity, error) {
		return crm.NewOpportunity(tenantID, payload, stage, actor, opts...)
	})
}

// Advance moves the opportunity to the next pipeline stage
func (s *OpportunityService) Advance(ctx context.Context, tenantID, id uuid.UUID, stage crm.OpportunityStage, actor string) (OpportunityView, error) {
	return s.Do(ctx, tenantID, id, opAdvance, func(o *crm.Opportunity) error {
		return o.Advance(stage, actor)
	})
}

// UpdateProbability sets the win probability
func (s *OpportunityService) UpdateProbability(ctx context.Context, tenantID, id uuid.UUID, prob float64, actor string) (OpportunityView, error) {
	return s.Do(ctx, tenantID, id, crm.OpUpdateProbability, func(o *crm.Opportunity) error {
		return o.UpdateProbability(prob, actor)
	})
}

// MarkAsWon closes the opportunity as won
func (s *OpportunityService) MarkAsWon(ctx context.Context, tenantID, id uuid.UUID, actor string) (OpportunityView, error) {
	return s.Do(ctx, tenantID, id, crm.OpMarkAsWon, func(o *crm.Opportunity) error {
		return o.MarkAsWon(actor)
	})
}

// MarkAsLost closes the opportunity as lost
func (s *OpportunityService) MarkAsLost(ctx context.Context, tenantID, id uuid.UUID, reason, actor string) (OpportunityView, error) {
	return s.Do(ctx, tenantID, id, crm.OpMarkAsLost, func(o *crm.Opportunity) error {
		return o.MarkAsLost(reason, actor)
	})
}
