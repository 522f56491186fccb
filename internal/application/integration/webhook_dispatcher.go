package integration

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/neuroerp/backend/internal/application/aggregate"
	"github.com/neuroerp/backend/internal/domain/integration"
	"github.com/neuroerp/backend/internal/domain/shared"
	"github.com/neuroerp/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// DispatcherActor is recorded as updatedBy on webhooks triggered by the dispatcher
const DispatcherActor = "system:webhook-dispatcher"

const dispatchPageSize = 100

// WebhookDispatcher triggers every active webhook of the event's tenant that
// subscribes to the event type. Webhook events themselves are never dispatched.
type WebhookDispatcher struct {
	webhooks *aggregate.Repository[*integration.Webhook]
	logger   *zap.Logger
}

// NewWebhookDispatcher creates a dispatcher on top of the webhook service
func NewWebhookDispatcher(webhooks *WebhookService, log *zap.Logger) *WebhookDispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &WebhookDispatcher{
		webhooks: webhooks.Repository(),
		logger:   log.Named("webhook_dispatcher"),
	}
}

// EventTypes returns nil: the dispatcher receives all events
func (d *WebhookDispatcher) EventTypes() []string {
	return nil
}

// Handle triggers the subscribed webhooks. A webhook that no longer accepts
// the trigger is skipped; other failures are joined and returned.
func (d *WebhookDispatcher) Handle(ctx context.Context, event shared.DomainEvent) error {
	if event.AggregateType() == integration.AggregateTypeWebhook {
		return nil
	}
	tenantID := event.TenantID()
	ctx = logger.WithTenantID(ctx, tenantID)
	log := logger.Enrich(ctx, d.logger).With(
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
	)

	targets, err := d.subscribers(ctx, tenantID, event.EventType())
	if err != nil {
		return err
	}

	var errs []error
	for _, id := range targets {
		_, err := d.webhooks.Update(ctx, tenantID, id, integration.OpTriggerWebhook, func(w *integration.Webhook) error {
			return w.Trigger(event.EventType(), DispatcherActor)
		})
		switch {
		case err == nil:
			log.Debug("Webhook triggered", zap.String("webhook_id", id.String()))
		case errors.Is(err, shared.ErrPreconditionFailed):
			log.Info("Webhook skipped", zap.String("webhook_id", id.String()), zap.Error(err))
		default:
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *WebhookDispatcher) subscribers(ctx context.Context, tenantID uuid.UUID, eventType string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	filter := shared.Filter{
		Page:     1,
		PageSize: dispatchPageSize,
		Status:   string(integration.WebhookStatusActive),
		SortBy:   "business_key",
		OrderDir: "asc",
	}
	for {
		page, err := d.webhooks.List(ctx, tenantID, filter)
		if err != nil {
			return nil, err
		}
		for _, w := range page.Items {
			if w.Subscribes(eventType) {
				ids = append(ids, w.ID())
			}
		}
		if filter.Page >= page.TotalPages {
			return ids, nil
		}
		filter.Page++
	}
}
