package integration

import (
	"context"

	"github.com/google/uuid"
	"github.com/neuroerp/backend/internal/application/aggregate"
	"github.com/neuroerp/backend/internal/domain/integration"
	"github.com/neuroerp/backend/internal/domain/shared"
)

// WebhookView is the public representation of a webhook, secret removed
type WebhookView = shared.PublicView[integration.WebhookPayload]

// WebhookService handles webhook operations
type WebhookService struct {
	*aggregate.Service[*integration.Webhook, integration.WebhookPayload]
}

// NewWebhookService creates a new WebhookService
func NewWebhookService(store shared.AggregateStore, opts ...aggregate.Option) *WebhookService {
	repo := aggregate.NewRepository(integration.AggregateTypeWebhook, store, integration.RestoreWebhook, opts...)
	return &WebhookService{
		Service: aggregate.NewService[*integration.Webhook, integration.WebhookPayload](repo),
	}
}

// Create registers a webhook. An empty status creates it Active.
func (s *WebhookService) Create(ctx context.Context, tenantID uuid.UUID, payload integration.WebhookPayload, status integration.WebhookStatus, actor string) (WebhookView, error) {
	return s.Service.Create(ctx, tenantID, func(opts ...shared.Option) (*integration.Webhook, error) {
		return integration.NewWebhook(tenantID, payload, status, actor, opts...)
	})
}

// Trigger records a delivery request for eventType
func (s *WebhookService) Trigger(ctx context.Context, tenantID, id uuid.UUID, eventType, actor string) (WebhookView, error) {
	return s.Do(ctx, tenantID, id, integration.OpTriggerWebhook, func(w *integration.Webhook) error {
		return w.Trigger(eventType, actor)
	})
}

// MarkFailed records a failed delivery attempt
func (s *WebhookService) MarkFailed(ctx context.Context, tenantID, id uuid.UUID, errMsg string, retryCount int, actor string) (WebhookView, error) {
	return s.Do(ctx, tenantID, id, integration.OpMarkFailed, func(w *integration.Webhook) error {
		return w.MarkFailed(errMsg, retryCount, actor)
	})
}

// MarkDelivered records a successful delivery
func (s *WebhookService) MarkDelivered(ctx context.Context, tenantID, id uuid.UUID, actor string) (WebhookView, error) {
	return s.Do(ctx, tenantID, id, integration.OpMarkDelivered, func(w *integration.Webhook) error {
		return w.MarkDelivered(actor)
	})
}

// Enable reactivates a webhook
func (s *WebhookService) Enable(ctx context.Context, tenantID, id uuid.UUID, actor string) (WebhookView, error) {
	return s.Do(ctx, tenantID, id, integration.OpEnableWebhook, func(w *integration.Webhook) error {
		return w.Enable(actor)
	})
}

// Disable stops deliveries
func (s *WebhookService) Disable(ctx context.Context, tenantID, id uuid.UUID, actor string) (WebhookView, error) {
	return s.Do(ctx, tenantID, id, integration.OpDisableWebhook, func(w *integration.Webhook) error {
		return w.Disable(actor)
	})
}
