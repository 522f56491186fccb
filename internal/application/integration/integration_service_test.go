package integration

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/neuroerp/backend/internal/domain/integration"
	"github.com/neuroerp/backend/internal/domain/shared"
	"github.com/neuroerp/backend/internal/infrastructure/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegrationService(t *testing.T) {
	svc := NewIntegrationService(persistence.NewInMemoryAggregateStore())
	ctx := context.Background()
	tenantID := uuid.New()

	in, err := svc.Create(ctx, tenantID, integration.IntegrationPayload{
		Name:     "DATEV Export",
		Type:     integration.IntegrationTypeAPI,
		Endpoint: "https://api.datev.example/v1",
		Secrets:  map[string]string{"clientSecret": "s3cr3t"},
	}, "", "admin")
	require.NoError(t, err)
	assert.Equal(t, string(integration.IntegrationStatusPending), in.Status)

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "s3cr3t")

	_, err = svc.RecordSync(ctx, tenantID, in.ID, time.Now(), "scheduler")
	assert.ErrorIs(t, err, shared.ErrIllegalStateTransition)

	_, err = svc.Activate(ctx, tenantID, in.ID, "admin")
	require.NoError(t, err)

	at := time.Date(2026, 5, 4, 3, 0, 0, 0, time.UTC)
	synced, err := svc.RecordSync(ctx, tenantID, in.ID, at, "scheduler")
	require.NoError(t, err)
	assert.Equal(t, 1, synced.Payload.SyncCount)

	_, err = svc.RecordSync(ctx, tenantID, in.ID, at.Add(-time.Hour), "scheduler")
	assert.ErrorIs(t, err, shared.ErrBusinessRule)

	failed, err := svc.MarkError(ctx, tenantID, in.ID, "401 Unauthorized", "scheduler")
	require.NoError(t, err)
	assert.Equal(t, string(integration.IntegrationStatusError), failed.Status)

	interval := 30
	cfg, err := svc.UpdateConfig(ctx, tenantID, in.ID, integration.IntegrationConfigPatch{
		SyncIntervalMinutes: &interval,
		Secrets:             map[string]string{"clientSecret": "rotated"},
	}, "admin")
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Payload.SyncIntervalMinutes)
	assert.Equal(t, integration.RedactedSecret, cfg.Payload.Secrets["clientSecret"])

	off, err := svc.Deactivate(ctx, tenantID, in.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, string(integration.IntegrationStatusInactive), off.Status)
}

func TestWebhookService(t *testing.T) {
	svc := NewWebhookService(persistence.NewInMemoryAggregateStore())
	ctx := context.Background()
	tenantID := uuid.New()

	wh, err := svc.Create(ctx, tenantID, integration.WebhookPayload{
		Name:       "erp-sync",
		URL:        "https://hooks.example.com/erp",
		Events:     []string{"ContractCreated"},
		Secret:     "whsec",
		MaxRetries: 2,
	}, "", "admin")
	require.NoError(t, err)
	assert.True(t, wh.Payload.IsActive)
	assert.Empty(t, wh.Payload.Secret)

	_, err = svc.Trigger(ctx, tenantID, wh.ID, "CustomerCreated", "admin")
	assert.ErrorIs(t, err, shared.ErrPreconditionFailed)

	triggered, err := svc.Trigger(ctx, tenantID, wh.ID, "ContractCreated", "admin")
	require.NoError(t, err)
	assert.Equal(t, 1, triggered.Payload.TriggerCount)

	_, err = svc.MarkFailed(ctx, tenantID, wh.ID, "timeout", 1, "relay")
	require.NoError(t, err)
	failing, err := svc.MarkFailed(ctx, tenantID, wh.ID, "timeout", 2, "relay")
	require.NoError(t, err)
	assert.Equal(t, string(integration.WebhookStatusFailing), failing.Status)

	_, err = svc.Trigger(ctx, tenantID, wh.ID, "ContractCreated", "admin")
	assert.ErrorIs(t, err, shared.ErrPreconditionFailed)

	delivered, err := svc.MarkDelivered(ctx, tenantID, wh.ID, "relay")
	require.NoError(t, err)
	assert.Equal(t, string(integration.WebhookStatusActive), delivered.Status)
	assert.Zero(t, delivered.Payload.RetryCount)

	disabled, err := svc.Disable(ctx, tenantID, wh.ID, "admin")
	require.NoError(t, err)
	assert.False(t, disabled.Payload.IsActive)

	enabled, err := svc.Enable(ctx, tenantID, wh.ID, "admin")
	require.NoError(t, err)
	assert.True(t, enabled.Payload.IsActive)
}
