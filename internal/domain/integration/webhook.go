package integration

import (
	"github.com/google/uuid"
	"github.com/neuroerp/backend/internal/domain/shared"
)

// AggregateTypeWebhook is the aggregate type name of Webhook
const AggregateTypeWebhook = "Webhook"

// DefaultWebhookMaxRetries is used when a webhook is created without maxRetries
const DefaultWebhookMaxRetries = 5

// AllEvents subscribes a webhook to every event type
const AllEvents = "*"

// EventKindTriggered is the event kind recorded when a delivery is requested
const EventKindTriggered shared.EventKind = "Triggered"

// WebhookStatus represents the delivery health of a webhook
type WebhookStatus string

const (
	WebhookStatusActive   WebhookStatus = "Active"
	WebhookStatusFailing  WebhookStatus = "Failing"
	WebhookStatusDisabled WebhookStatus = "Disabled"
)

// WebhookPayload holds the business fields of a webhook.
// IsActive mirrors the status: false exactly when Disabled.
type WebhookPayload struct {
	Name           string   `json:"name" validate:"required,max=100"`
	URL            string   `json:"url" validate:"required,url"`
	Events         []string `json:"events" validate:"required,min=1,unique,dive,required,max=100"`
	Secret         string   `json:"secret,omitempty" validate:"max=256"`
	IsActive       bool     `json:"isActive"`
	MaxRetries     int      `json:"maxRetries" validate:"gte=1,lte=20"`
	RetryCount     int      `json:"retryCount" validate:"gte=0"`
	LastEvent      string   `json:"lastEvent,omitempty" validate:"max=100"`
	LastError      string   `json:"lastError,omitempty" validate:"max=2000"`
	TriggerCount   int      `json:"triggerCount" validate:"gte=0"`
	DeliveredCount int      `json:"deliveredCount" validate:"gte=0"`
}

type triggerInput struct {
	EventType string `json:"eventType" validate:"required,max=100"`
}

type failureInput struct {
	Error      string `json:"lastError" validate:"required,max=2000"`
	RetryCount int    `json:"retryCount" validate:"gte=0"`
}

// Webhook operations
const (
	OpTriggerWebhook = "trigger"
	OpMarkFailed     = "markFailed"
	OpMarkDelivered  = "markDelivered"
	OpEnableWebhook  = "enable"
	OpDisableWebhook = "disable"
)

// WebhookTransitions is the transition guard of Webhook
var WebhookTransitions = shared.NewTransitionTable(AggregateTypeWebhook,
	shared.Transition[WebhookStatus]{Op: OpTriggerWebhook, From: []WebhookStatus{WebhookStatusActive}},
	shared.Transition[WebhookStatus]{Op: OpMarkFailed, From: []WebhookStatus{WebhookStatusActive, WebhookStatusFailing}},
	shared.Transition[WebhookStatus]{Op: OpMarkDelivered, From: []WebhookStatus{WebhookStatusActive, WebhookStatusFailing}},
	shared.Transition[WebhookStatus]{
		Op:   OpEnableWebhook,
		From: []WebhookStatus{WebhookStatusDisabled, WebhookStatusFailing},
		To:   WebhookStatusActive,
	},
	shared.Transition[WebhookStatus]{
		Op:   OpDisableWebhook,
		From: []WebhookStatus{WebhookStatusActive, WebhookStatusFailing},
		To:   WebhookStatusDisabled,
	},
)

// WebhookDefinition configures the aggregate engine for Webhook
var WebhookDefinition = &shared.Definition[WebhookStatus, WebhookPayload]{
	Type:        AggregateTypeWebhook,
	Statuses:    []WebhookStatus{WebhookStatusActive, WebhookStatusFailing, WebhookStatusDisabled},
	Initial:     WebhookStatusActive,
	Transitions: WebhookTransitions,
	Schema:      shared.NewSchema(AggregateTypeWebhook),
	Defaults: func(p *WebhookPayload, status WebhookStatus) {
		if p.MaxRetries == 0 {
			p.MaxRetries = DefaultWebhookMaxRetries
		}
		p.IsActive = status != WebhookStatusDisabled
	},
	Rules:  webhookRules,
	Redact: func(p *WebhookPayload) { p.Secret = "" },
	Clone: func(p WebhookPayload) WebhookPayload {
		p.Events = append([]string(nil), p.Events...)
		return p
	},
	BusinessKey: func(p *WebhookPayload) string { return p.Name },
}

func webhookRules(p *WebhookPayload, status WebhookStatus) error {
	if p.IsActive == (status == WebhookStatusDisabled) {
		return shared.NewBusinessRuleViolation(AggregateTypeWebhook, "active_flag", "isActive must be false exactly when Disabled")
	}
	if status == WebhookStatusFailing && p.LastError == "" {
		return shared.NewBusinessRuleViolation(AggregateTypeWebhook, "error_message", "a failing webhook needs lastError")
	}
	return nil
}

// Webhook is the aggregate root of an outbound event subscription
type Webhook struct {
	*shared.Aggregate[WebhookStatus, WebhookPayload]
}

// NewWebhook creates a webhook, Active unless status says otherwise
func NewWebhook(tenantID uuid.UUID, payload WebhookPayload, status WebhookStatus, actor string, opts ...shared.Option) (*Webhook, error) {
	agg, err := shared.Create(WebhookDefinition, tenantID, shared.CreateInput[WebhookStatus, WebhookPayload]{
		Status:  status,
		Payload: payload,
		Actor:   actor,
	}, opts...)
	if err != nil {
		return nil, err
	}
	return &Webhook{Aggregate: agg}, nil
}

// RestoreWebhook rebuilds a webhook from its persisted record
func RestoreWebhook(rec shared.Record, opts ...shared.Option) (*Webhook, error) {
	agg, err := shared.Restore(WebhookDefinition, rec, opts...)
	if err != nil {
		return nil, err
	}
	return &Webhook{Aggregate: agg}, nil
}

// Subscribes reports whether the webhook listens to eventType
func (w *Webhook) Subscribes(eventType string) bool {
	var ok bool
	w.View(func(p *WebhookPayload) {
		for _, e := range p.Events {
			if e == eventType || e == AllEvents {
				ok = true
				return
			}
		}
	})
	return ok
}

// Trigger records the intent to deliver eventType. Delivery happens outside
// the aggregate; the adapter reports back via MarkDelivered or MarkFailed.
func (w *Webhook) Trigger(eventType, actor string) error {
	if err := w.canTrigger(eventType); err != nil {
		return err
	}
	return w.Mutate(shared.Mutation[WebhookStatus, WebhookPayload]{
		Op:    OpTriggerWebhook,
		Actor: actor,
		Patch: &triggerInput{EventType: eventType},
		Apply: func(p *WebhookPayload) error {
			p.LastEvent = eventType
			p.TriggerCount++
			return nil
		},
		Kind: EventKindTriggered,
	})
}

func (w *Webhook) canTrigger(eventType string) error {
	reason := ""
	switch {
	case !w.Payload().IsActive:
		reason = "webhook is not active"
	case w.Status() == WebhookStatusFailing:
		reason = "webhook is failing"
	case !w.Subscribes(eventType):
		reason = "webhook is not subscribed to " + eventType
	}
	if reason == "" {
		return nil
	}
	return &shared.PreconditionFailedError{AggregateType: AggregateTypeWebhook, Operation: OpTriggerWebhook, Reason: reason}
}

// MarkFailed records a failed delivery. Once retryCount reaches MaxRetries the
// webhook moves to Failing.
func (w *Webhook) MarkFailed(errMsg string, retryCount int, actor string) error {
	return w.Mutate(shared.Mutation[WebhookStatus, WebhookPayload]{
		Op:    OpMarkFailed,
		Actor: actor,
		Patch: &failureInput{Error: errMsg, RetryCount: retryCount},
		Apply: func(p *WebhookPayload) error {
			p.LastError = errMsg
			p.RetryCount = retryCount
			return nil
		},
		Next: func(p *WebhookPayload, current WebhookStatus) WebhookStatus {
			if p.RetryCount >= p.MaxRetries {
				return WebhookStatusFailing
			}
			return current
		},
	})
}

// MarkDelivered records a successful delivery and resets the failure state
func (w *Webhook) MarkDelivered(actor string) error {
	return w.Mutate(shared.Mutation[WebhookStatus, WebhookPayload]{
		Op:    OpMarkDelivered,
		Actor: actor,
		Apply: func(p *WebhookPayload) error {
			p.DeliveredCount++
			p.RetryCount = 0
			p.LastError = ""
			return nil
		},
		Next: func(*WebhookPayload, WebhookStatus) WebhookStatus { return WebhookStatusActive },
	})
}

// Enable reactivates a disabled or failing webhook
func (w *Webhook) Enable(actor string) error {
	return w.Mutate(shared.Mutation[WebhookStatus, WebhookPayload]{
		Op:    OpEnableWebhook,
		Actor: actor,
		Apply: func(p *WebhookPayload) error {
			p.IsActive = true
			p.RetryCount = 0
			p.LastError = ""
			return nil
		},
	})
}

// Disable stops deliveries
func (w *Webhook) Disable(actor string) error {
	return w.Mutate(shared.Mutation[WebhookStatus, WebhookPayload]{
		Op:    OpDisableWebhook,
		Actor: actor,
		Apply: func(p *WebhookPayload) error {
			p.IsActive = false
			return nil
		},
	})
}
