// Package integration provides the command services of the Integration
// context and the dispatcher that triggers webhooks on domain events.
package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/neuroerp/backend/internal/application/aggregate"
	"github.com/neuroerp/backend/internal/domain/integration"
	"github.com/neuroerp/backend/internal/domain/shared"
)

// IntegrationView is the public representation of an integration, secrets masked
type IntegrationView = shared.PublicView[integration.IntegrationPayload]

// IntegrationService handles integration operations
type IntegrationService struct {
	*aggregate.Service[*integration.Integration, integration.IntegrationPayload]
}

// NewIntegrationService creates a new IntegrationService
func NewIntegrationService(store shared.AggregateStore, opts ...aggregate.Option) *IntegrationService {
	repo := aggregate.NewRepository(integration.AggregateTypeIntegration, store, integration.RestoreIntegration, opts...)
	return &IntegrationService{
		Service: aggregate.NewService[*integration.Integration, integration.IntegrationPayload](repo),
	}
}

// Create registers an integration. An empty status creates it Pending.
func (s *IntegrationService) Create(ctx context.Context, tenantID uuid.UUID, payload integration.IntegrationPayload, status integration.IntegrationStatus, actor string) (IntegrationView, error) {
	return s.Service.Create(ctx, tenantID, func(opts ...shared.Option) (*integration.Integration, error) {
		return integration.NewIntegration(tenantID, payload, status, actor, opts...)
	})
}

// Activate brings the integration online
func (s *IntegrationService) Activate(ctx context.Context, tenantID, id uuid.UUID, actor string) (IntegrationView, error) {
	return s.Do(ctx, tenantID, id, integration.OpActivateIntegration, func(i *integration.Integration) error {
		return i.Activate(actor)
	})
}

// Deactivate takes the integration offline
func (s *IntegrationService) Deactivate(ctx context.Context, tenantID, id uuid.UUID, actor string) (IntegrationView, error) {
	return s.Do(ctx, tenantID, id, integration.OpDeactivateIntegration, func(i *integration.Integration) error {
		return i.Deactivate(actor)
	})
}

// MarkError records a connection failure
func (s *IntegrationService) MarkError(ctx context.Context, tenantID, id uuid.UUID, message, actor string) (IntegrationView, error) {
	return s.Do(ctx, tenantID, id, integration.OpMarkError, func(i *integration.Integration) error {
		return i.MarkError(message, actor)
	})
}

// RecordSync notes a completed sync run
func (s *IntegrationService) RecordSync(ctx context.Context, tenantID, id uuid.UUID, at time.Time, actor string) (IntegrationView, error) {
	return s.Do(ctx, tenantID, id, integration.OpRecordSync, func(i *integration.Integration) error {
		return i.RecordSync(at, actor)
	})
}

// UpdateConfig edits connection settings
func (s *IntegrationService) UpdateConfig(ctx context.Context, tenantID, id uuid.UUID, patch integration.IntegrationConfigPatch, actor string) (IntegrationView, error) {
	return s.Do(ctx, tenantID, id, integration.OpUpdateConfig, func(i *integration.Integration) error {
		return i.UpdateConfig(patch, actor)
	})
}
