package integration

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neuroerp/backend/internal/domain/shared"
)

// AggregateTypeIntegration is the aggregate type name of Integration
const AggregateTypeIntegration = "Integration"

// RedactedSecret replaces secret values in public views
const RedactedSecret = "***"

// IntegrationStatus represents the connection status of an integration
type IntegrationStatus string

const (
	IntegrationStatusPending  IntegrationStatus = "Pending"
	IntegrationStatusActive   IntegrationStatus = "Active"
	IntegrationStatusInactive IntegrationStatus = "Inactive"
	IntegrationStatusError    IntegrationStatus = "Error"
)

// IntegrationType classifies the external system
type IntegrationType string

const (
	IntegrationTypeAPI      IntegrationType = "api"
	IntegrationTypeFile     IntegrationType = "file"
	IntegrationTypeDatabase IntegrationType = "database"
	IntegrationTypeEDI      IntegrationType = "edi"
)

// IntegrationPayload holds the business fields of an integration
type IntegrationPayload struct {
	Name                string            `json:"name" validate:"required,max=100"`
	Type                IntegrationType   `json:"type" validate:"required,oneof=api file database edi"`
	Description         string            `json:"description,omitempty" validate:"max=500"`
	Endpoint            string            `json:"endpoint,omitempty" validate:"omitempty,url"`
	Config              map[string]string `json:"config" validate:"dive,keys,min=1,max=64,endkeys,max=1024"`
	Secrets             map[string]string `json:"secrets" validate:"dive,keys,min=1,max=64,endkeys,required"`
	SyncIntervalMinutes int               `json:"syncIntervalMinutes" validate:"gte=0,lte=10080"`
	LastSyncAt          *time.Time        `json:"lastSyncAt,omitempty"`
	SyncCount           int               `json:"syncCount" validate:"gte=0"`
	LastError           string            `json:"lastError,omitempty" validate:"max=2000"`
}

// IntegrationConfigPatch is the update input of UpdateConfig. Nil fields are
// left unchanged; map entries are merged and an empty value removes the key.
type IntegrationConfigPatch struct {
	Description         *string           `json:"description,omitempty" validate:"omitempty,max=500"`
	Endpoint            *string           `json:"endpoint,omitempty" validate:"omitempty,url"`
	Config              map[string]string `json:"config,omitempty" validate:"omitempty,dive,keys,min=1,max=64,endkeys,max=1024"`
	Secrets             map[string]string `json:"secrets,omitempty" validate:"omitempty,dive,keys,min=1,max=64,endkeys"`
	SyncIntervalMinutes *int              `json:"syncIntervalMinutes,omitempty" validate:"omitempty,gte=0,lte=10080"`
}

type errorInput struct {
	Message string `json:"lastError" validate:"required,max=2000"`
}

// Integration operations
const (
	OpActivateIntegration   = "activate"
	OpDeactivateIntegration = "deactivate"
	OpMarkError             = "markError"
	OpRecordSync            = "recordSync"
	OpUpdateConfig          = "updateConfig"
)

// IntegrationTransitions is the transition guard of Integration
var IntegrationTransitions = shared.NewTransitionTable(AggregateTypeIntegration,
	shared.Transition[IntegrationStatus]{
		Op:   OpActivateIntegration,
		From: []IntegrationStatus{IntegrationStatusPending, IntegrationStatusInactive, IntegrationStatusError},
		To:   IntegrationStatusActive,
	},
	shared.Transition[IntegrationStatus]{
		Op:   OpDeactivateIntegration,
		From: []IntegrationStatus{IntegrationStatusPending, IntegrationStatusActive, IntegrationStatusError},
		To:   IntegrationStatusInactive,
	},
	shared.Transition[IntegrationStatus]{
		Op:   OpMarkError,
		From: []IntegrationStatus{IntegrationStatusPending, IntegrationStatusActive},
		To:   IntegrationStatusError,
	},
	shared.Transition[IntegrationStatus]{Op: OpRecordSync, From: []IntegrationStatus{IntegrationStatusActive}},
	shared.Transition[IntegrationStatus]{
		Op: OpUpdateConfig,
		From: []IntegrationStatus{
			IntegrationStatusPending, IntegrationStatusActive, IntegrationStatusInactive, IntegrationStatusError,
		},
	},
)

// IntegrationDefinition configures the aggregate engine for Integration
var IntegrationDefinition = &shared.Definition[IntegrationStatus, IntegrationPayload]{
	Type: AggregateTypeIntegration,
	Statuses: []IntegrationStatus{
		IntegrationStatusPending, IntegrationStatusActive, IntegrationStatusInactive, IntegrationStatusError,
	},
	Initial:     IntegrationStatusPending,
	Transitions: IntegrationTransitions,
	Schema:      shared.NewSchema(AggregateTypeIntegration),
	Defaults: func(p *IntegrationPayload, _ IntegrationStatus) {
		if p.Config == nil {
			p.Config = map[string]string{}
		}
		if p.Secrets == nil {
			p.Secrets = map[string]string{}
		}
	},
	Rules: func(p *IntegrationPayload, status IntegrationStatus) error {
		if status == IntegrationStatusError && p.LastError == "" {
			return shared.NewBusinessRuleViolation(AggregateTypeIntegration, "error_message", "an integration in Error needs lastError")
		}
		return nil
	},
	Redact: func(p *IntegrationPayload) {
		for k := range p.Secrets {
			p.Secrets[k] = RedactedSecret
		}
	},
	BusinessKey: func(p *IntegrationPayload) string { return p.Name },
}

// Integration is the aggregate root of a connection to an external system
type Integration struct {
	*shared.Aggregate[IntegrationStatus, IntegrationPayload]
}

// NewIntegration creates an integration, Pending unless status says otherwise
func NewIntegration(tenantID uuid.UUID, payload IntegrationPayload, status IntegrationStatus, actor string, opts ...shared.Option) (*Integration, error) {
	agg, err := shared.Create(IntegrationDefinition, tenantID, shared.CreateInput[IntegrationStatus, IntegrationPayload]{
		Status:  status,
		Payload: payload,
		Actor:   actor,
	}, opts...)
	if err != nil {
		return nil, err
	}
	return &Integration{Aggregate: agg}, nil
}

// RestoreIntegration rebuilds an integration from its persisted record
func RestoreIntegration(rec shared.Record, opts ...shared.Option) (*Integration, error) {
	agg, err := shared.Restore(IntegrationDefinition, rec, opts...)
	if err != nil {
		return nil, err
	}
	return &Integration{Aggregate: agg}, nil
}

// Activate brings the integration online and clears any previous error
func (i *Integration) Activate(actor string) error {
	return i.Mutate(shared.Mutation[IntegrationStatus, IntegrationPayload]{
		Op:    OpActivateIntegration,
		Actor: actor,
		Apply: func(p *IntegrationPayload) error {
			p.LastError = ""
			return nil
		},
	})
}

// Deactivate takes the integration offline
func (i *Integration) Deactivate(actor string) error {
	return i.Mutate(shared.Mutation[IntegrationStatus, IntegrationPayload]{Op: OpDeactivateIntegration, Actor: actor})
}

// MarkError records a connection failure
func (i *Integration) MarkError(message, actor string) error {
	return i.Mutate(shared.Mutation[IntegrationStatus, IntegrationPayload]{
		Op:    OpMarkError,
		Actor: actor,
		Patch: &errorInput{Message: message},
		Apply: func(p *IntegrationPayload) error {
			p.LastError = message
			return nil
		},
	})
}

// RecordSync notes a completed sync run at. Sync times never move backwards.
func (i *Integration) RecordSync(at time.Time, actor string) error {
	at = at.UTC().Truncate(shared.TimestampPrecision)
	return i.Mutate(shared.Mutation[IntegrationStatus, IntegrationPayload]{
		Op:    OpRecordSync,
		Actor: actor,
		Apply: func(p *IntegrationPayload) error {
			if p.LastSyncAt != nil && at.Before(*p.LastSyncAt) {
				return shared.NewBusinessRuleViolation(AggregateTypeIntegration, "sync_order",
					fmt.Sprintf("sync at %s precedes last sync %s", at.Format(time.RFC3339), p.LastSyncAt.Format(time.RFC3339)))
			}
			p.LastSyncAt = &at
			p.SyncCount++
			p.LastError = ""
			return nil
		},
	})
}

// UpdateConfig edits connection settings in any status
func (i *Integration) UpdateConfig(patch IntegrationConfigPatch, actor string) error {
	return i.Mutate(shared.Mutation[IntegrationStatus, IntegrationPayload]{
		Op:    OpUpdateConfig,
		Actor: actor,
		Patch: &patch,
		Apply: func(p *IntegrationPayload) error {
			if patch.Description != nil {
				p.Description = *patch.Description
			}
			if patch.Endpoint != nil {
				p.Endpoint = *patch.Endpoint
			}
			if patch.SyncIntervalMinutes != nil {
				p.SyncIntervalMinutes = *patch.SyncIntervalMinutes
			}
			p.Config = mergeSettings(p.Config, patch.Config)
			p.Secrets = mergeSettings(p.Secrets, patch.Secrets)
			return nil
		},
	})
}

func mergeSettings(dst, src map[string]string) map[string]string {
	if dst == nil {
		dst = make(map[string]string, len(src))
	}
	for k, v := range src {
		if v == "" {
			delete(dst, k)
			continue
		}
		dst[k] = v
	}
	return dst
}
