// Package contracts contains the Contracts bounded context: agricultural
// purchase and sales contracts and their fulfillment lifecycle.
package contracts

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/neuroerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AggregateTypeContract is the aggregate type name of Contract
const AggregateTypeContract = "Contract"

// Event types emitted by Contract
const (
	EventTypeContractCreated       = AggregateTypeContract + string(shared.EventKindCreated)
	EventTypeContractUpdated       = AggregateTypeContract + string(shared.EventKindUpdated)
	EventTypeContractStatusChanged = AggregateTypeContract + string(shared.EventKindStatusChanged)
)

// ContractStatus represents the status of a contract
type ContractStatus string

const (
	ContractStatusDraft              ContractStatus = "Draft"
	ContractStatusActive             ContractStatus = "Active"
	ContractStatusPartiallyFulfilled ContractStatus = "PartiallyFulfilled"
	ContractStatusFulfilled          ContractStatus = "Fulfilled"
	ContractStatusCancelled          ContractStatus = "Cancelled"
	ContractStatusDefaulted          ContractStatus = "Defaulted"
)

// ContractType distinguishes purchases from growers and sales to buyers
type ContractType string

const (
	ContractTypePurchase ContractType = "Purchase"
	ContractTypeSale     ContractType = "Sale"
)

// DeliveryTerms describes where and under which Incoterm goods change hands
type DeliveryTerms struct {
	Incoterm string `json:"incoterm" validate:"required,oneof=EXW FCA FAS FOB CFR CIF CPT CIP DAP DPU DDP"`
	Location string `json:"location" validate:"required,max=200"`
}

// ContractPayload holds the business fields of a contract
type ContractPayload struct {
	ContractNumber     string          `json:"contractNumber" validate:"required,max=50"`
	Type               ContractType    `json:"type" validate:"required,oneof=Purchase Sale"`
	CounterpartyID     uuid.UUID       `json:"counterpartyId" validate:"required"`
	Commodity          string          `json:"commodity" validate:"required,max=100"`
	Quantity           decimal.Decimal `json:"quantity" validate:"gt=0"`
	Unit               string          `json:"unit" validate:"required,oneof=t kg dt"`
	FulfilledQuantity  decimal.Decimal `json:"fulfilledQuantity" validate:"gte=0"`
	PricePerUnit       decimal.Decimal `json:"pricePerUnit" validate:"gte=0"`
	AmountNet          decimal.Decimal `json:"amountNet" validate:"gte=0"`
	Currency           string          `json:"currency" validate:"required,iso4217"`
	DeliveryFrom       string          `json:"deliveryFrom" validate:"required,datetime=2006-01-02"`
	DeliveryTo         string          `json:"deliveryTo" validate:"required,datetime=2006-01-02"`
	DeliveryTerms      DeliveryTerms   `json:"deliveryTerms"`
	CancellationReason string          `json:"cancellationReason,omitempty" validate:"max=500"`
	DefaultReason      string          `json:"defaultReason,omitempty" validate:"max=500"`
}

// ContractTermsPatch is the update input of UpdateTerms. Nil fields are left unchanged.
type ContractTermsPatch struct {
	Quantity      *decimal.Decimal `json:"quantity,omitempty" validate:"omitempty,gt=0"`
	PricePerUnit  *decimal.Decimal `json:"pricePerUnit,omitempty" validate:"omitempty,gte=0"`
	AmountNet     *decimal.Decimal `json:"amountNet,omitempty" validate:"omitempty,gte=0"`
	Currency      *string          `json:"currency,omitempty" validate:"omitempty,iso4217"`
	DeliveryFrom  *string          `json:"deliveryFrom,omitempty" validate:"omitempty,datetime=2006-01-02"`
	DeliveryTo    *string          `json:"deliveryTo,omitempty" validate:"omitempty,datetime=2006-01-02"`
	DeliveryTerms *DeliveryTerms   `json:"deliveryTerms,omitempty" validate:"omitempty"`
}

type fulfillmentInput struct {
	Quantity decimal.Decimal `json:"quantity" validate:"gt=0"`
}

type reasonInput struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// Contract operations
const (
	OpActivate          = "activate"
	OpRecordFulfillment = "recordFulfillment"
	OpCancel            = "cancel"
	OpMarkDefaulted     = "markDefaulted"
	OpUpdateTerms       = "updateTerms"
)

// ContractTransitions is the transition guard of Contract
var ContractTransitions = shared.NewTransitionTable(AggregateTypeContract,
	shared.Transition[ContractStatus]{Op: OpActivate, From: []ContractStatus{ContractStatusDraft}, To: ContractStatusActive},
	shared.Transition[ContractStatus]{Op: OpRecordFulfillment, From: []ContractStatus{ContractStatusActive, ContractStatusPartiallyFulfilled}},
	shared.Transition[ContractStatus]{
		Op:   OpCancel,
		From: []ContractStatus{ContractStatusDraft, ContractStatusActive, ContractStatusPartiallyFulfilled},
		To:   ContractStatusCancelled,
	},
	shared.Transition[ContractStatus]{
		Op:   OpMarkDefaulted,
		From: []ContractStatus{ContractStatusActive, ContractStatusPartiallyFulfilled},
		To:   ContractStatusDefaulted,
	},
	shared.Transition[ContractStatus]{Op: OpUpdateTerms, From: []ContractStatus{ContractStatusDraft}},
).WithTerminal(ContractStatusFulfilled, ContractStatusCancelled, ContractStatusDefaulted)

// ContractDefinition configures the aggregate engine for Contract
var ContractDefinition = &shared.Definition[ContractStatus, ContractPayload]{
	Type: AggregateTypeContract,
	Statuses: []ContractStatus{
		ContractStatusDraft, ContractStatusActive, ContractStatusPartiallyFulfilled,
		ContractStatusFulfilled, ContractStatusCancelled, ContractStatusDefaulted,
	},
	Initial:     ContractStatusDraft,
	Transitions: ContractTransitions,
	Schema:      shared.NewSchema(AggregateTypeContract),
	Rules:       contractRules,
	BusinessKey: func(p *ContractPayload) string { return p.ContractNumber },
}

func contractRules(p *ContractPayload, status ContractStatus) error {
	from, err := shared.ParseDate(p.DeliveryFrom)
	if err != nil {
		return err
	}
	to, err := shared.ParseDate(p.DeliveryTo)
	if err != nil {
		return err
	}
	if to.Before(from) {
		return shared.NewBusinessRuleViolation(AggregateTypeContract, "delivery_period",
			fmt.Sprintf("deliveryTo %s precedes deliveryFrom %s", p.DeliveryTo, p.DeliveryFrom))
	}
	if p.FulfilledQuantity.GreaterThan(p.Quantity) {
		return shared.NewBusinessRuleViolation(AggregateTypeContract, "over_fulfillment",
			fmt.Sprintf("fulfilled %s exceeds contracted %s %s", p.FulfilledQuantity, p.Quantity, p.Unit))
	}
	if status == ContractStatusFulfilled && !p.FulfilledQuantity.Equal(p.Quantity) {
		return shared.NewBusinessRuleViolation(AggregateTypeContract, "fulfilled_quantity",
			"a fulfilled contract must have its full quantity delivered")
	}
	if status == ContractStatusCancelled && p.CancellationReason == "" {
		return shared.NewBusinessRuleViolation(AggregateTypeContract, "cancellation_reason",
			"a cancelled contract needs a reason")
	}
	return nil
}

// Contract is the aggregate root of a trading contract
type Contract struct {
	*shared.Aggregate[ContractStatus, ContractPayload]
}

// NewContract validates the payload and creates a Draft contract
func NewContract(tenantID uuid.UUID, payload ContractPayload, actor string, opts ...shared.Option) (*Contract, error) {
	agg, err := shared.Create(ContractDefinition, tenantID, shared.CreateInput[ContractStatus, ContractPayload]{
		Payload: payload,
		Actor:   actor,
	}, opts...)
	if err != nil {
		return nil, err
	}
	return &Contract{Aggregate: agg}, nil
}

// RestoreContract rebuilds a contract from its persisted record
func RestoreContract(rec shared.Record, opts ...shared.Option) (*Contract, error) {
	agg, err := shared.Restore(ContractDefinition, rec, opts...)
	if err != nil {
		return nil, err
	}
	return &Contract{Aggregate: agg}, nil
}

// Activate moves a Draft contract to Active
func (c *Contract) Activate(actor string) error {
	return c.Mutate(shared.Mutation[ContractStatus, ContractPayload]{Op: OpActivate, Actor: actor})
}

// RecordFulfillment books a delivered quantity. The contract becomes
// Fulfilled once the full quantity is delivered, PartiallyFulfilled before that.
func (c *Contract) RecordFulfillment(qty decimal.Decimal, actor string) error {
	return c.Mutate(shared.Mutation[ContractStatus, ContractPayload]{
		Op:    OpRecordFulfillment,
		Actor: actor,
		Patch: &fulfillmentInput{Quantity: qty},
		Apply: func(p *ContractPayload) error {
			p.FulfilledQuantity = p.FulfilledQuantity.Add(qty)
			return nil
		},
		Next: func(p *ContractPayload, _ ContractStatus) ContractStatus {
			if p.FulfilledQuantity.Equal(p.Quantity) {
				return ContractStatusFulfilled
			}
			return ContractStatusPartiallyFulfilled
		},
	})
}

// Cancel cancels the contract. Fulfilled and Defaulted contracts cannot be cancelled.
func (c *Contract) Cancel(reason, actor string) error {
	return c.Mutate(shared.Mutation[ContractStatus, ContractPayload]{
		Op:    OpCancel,
		Actor: actor,
		Patch: &reasonInput{Reason: reason},
		Apply: func(p *ContractPayload) error {
			p.CancellationReason = reason
			return nil
		},
	})
}

// MarkDefaulted records that the counterparty failed to perform
func (c *Contract) MarkDefaulted(reason, actor string) error {
	return c.Mutate(shared.Mutation[ContractStatus, ContractPayload]{
		Op:    OpMarkDefaulted,
		Actor: actor,
		Patch: &reasonInput{Reason: reason},
		Apply: func(p *ContractPayload) error {
			p.DefaultReason = reason
			return nil
		},
	})
}

// UpdateTerms edits commercial terms while the contract is still a Draft
func (c *Contract) UpdateTerms(patch ContractTermsPatch, actor string) error {
	return c.Mutate(shared.Mutation[ContractStatus, ContractPayload]{
		Op:    OpUpdateTerms,
		Actor: actor,
		Patch: &patch,
		Apply: func(p *ContractPayload) error {
			if patch.Quantity != nil {
				p.Quantity = *patch.Quantity
			}
			if patch.PricePerUnit != nil {
				p.PricePerUnit = *patch.PricePerUnit
			}
			if patch.AmountNet != nil {
				p.AmountNet = *patch.AmountNet
			}
			if patch.Currency != nil {
				p.Currency = *patch.Currency
			}
			if patch.DeliveryFrom != nil {
				p.DeliveryFrom = *patch.DeliveryFrom
			}
			if patch.DeliveryTo != nil {
				p.DeliveryTo = *patch.DeliveryTo
			}
			if patch.DeliveryTerms != nil {
				p.DeliveryTerms = *patch.DeliveryTerms
			}
			return nil
		},
	})
}

// OpenQuantity returns the quantity still to be delivered
func (c *Contract) OpenQuantity() decimal.Decimal {
	var open decimal.Decimal
	c.View(func(p *ContractPayload) {
		open = p.Quantity.Sub(p.FulfilledQuantity)
	})
	return open
}
