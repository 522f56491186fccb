// Package crm contains the CRM bounded context: customers and the sales
// opportunities pursued with them.
package crm

import (
	"github.com/google/uuid"
	"github.com/neuroerp/backend/internal/domain/shared"
	"github.com/neuroerp/backend/internal/domain/shared/valueobject"
)

// AggregateTypeCustomer is the aggregate type name of Customer
const AggregateTypeCustomer = "Customer"

// CustomerStatus represents the status of a customer
type CustomerStatus string

const (
	CustomerStatusProspect CustomerStatus = "Prospect"
	CustomerStatusActive   CustomerStatus = "Active"
	CustomerStatusInactive CustomerStatus = "Inactive"
	CustomerStatusBlocked  CustomerStatus = "Blocked" // Blocked for credit or compliance reasons
)

// CustomerType represents the legal form of a customer
type CustomerType string

const (
	CustomerTypeCompany    CustomerType = "Company"
	CustomerTypeIndividual CustomerType = "Individual"
	CustomerTypeFarm       CustomerType = "Farm"
)

// CustomerPayload holds the business fields of a customer
type CustomerPayload struct {
	CustomerNumber   string               `json:"customerNumber" validate:"required,max=50"`
	Name             string               `json:"name" validate:"required,max=200"`
	Type             CustomerType         `json:"type" validate:"required,oneof=Company Individual Farm"`
	Email            string               `json:"email,omitempty" validate:"omitempty,email,max=200"`
	Phone            string               `json:"phone,omitempty" validate:"max=50"`
	VATID            string               `json:"vatId,omitempty" validate:"omitempty,alphanum,max=20"`
	Address          *valueobject.Address `json:"address,omitempty" validate:"omitempty"`
	CreditLimit      valueobject.Money    `json:"creditLimit"`
	PaymentTermsDays int                  `json:"paymentTermsDays" validate:"gte=0,lte=365"`
	Tags             []string             `json:"tags" validate:"unique,dive,required,max=50"`
	InternalNotes    string               `json:"internalNotes,omitempty" validate:"max=2000"`
	BlockReason      string               `json:"blockReason,omitempty" validate:"max=500"`
}

// CustomerDetailsPatch is the update input of UpdateDetails. Nil fields are left unchanged.
type CustomerDetailsPatch struct {
	Name             *string              `json:"name,omitempty" validate:"omitempty,max=200"`
	Email            *string              `json:"email,omitempty" validate:"omitempty,email,max=200"`
	Phone            *string              `json:"phone,omitempty" validate:"omitempty,max=50"`
	VATID            *string              `json:"vatId,omitempty" validate:"omitempty,alphanum,max=20"`
	Address          *valueobject.Address `json:"address,omitempty" validate:"omitempty"`
	CreditLimit      *valueobject.Money   `json:"creditLimit,omitempty" validate:"omitempty"`
	PaymentTermsDays *int                 `json:"paymentTermsDays,omitempty" validate:"omitempty,gte=0,lte=365"`
	Tags             []string             `json:"tags,omitempty" validate:"omitempty,unique,dive,required,max=50"`
	InternalNotes    *string              `json:"internalNotes,omitempty" validate:"omitempty,max=2000"`
}

// Customer operations
const (
	OpCustomerActivate      = "activate"
	OpCustomerDeactivate    = "deactivate"
	OpCustomerBlock         = "block"
	OpCustomerUpdateDetails = "updateDetails"
)

// CustomerTransitions is the transition guard of Customer
var CustomerTransitions = shared.NewTransitionTable(AggregateTypeCustomer,
	shared.Transition[CustomerStatus]{
		Op:   OpCustomerActivate,
		From: []CustomerStatus{CustomerStatusProspect, CustomerStatusInactive, CustomerStatusBlocked},
		To:   CustomerStatusActive,
	},
	shared.Transition[CustomerStatus]{
		Op:   OpCustomerDeactivate,
		From: []CustomerStatus{CustomerStatusProspect, CustomerStatusActive, CustomerStatusBlocked},
		To:   CustomerStatusInactive,
	},
	shared.Transition[CustomerStatus]{
		Op:   OpCustomerBlock,
		From: []CustomerStatus{CustomerStatusProspect, CustomerStatusActive, CustomerStatusInactive},
		To:   CustomerStatusBlocked,
	},
	shared.Transition[CustomerStatus]{
		Op:   OpCustomerUpdateDetails,
		From: []CustomerStatus{CustomerStatusProspect, CustomerStatusActive, CustomerStatusInactive},
	},
)

// CustomerDefinition configures the aggregate engine for Customer
var CustomerDefinition = &shared.Definition[CustomerStatus, CustomerPayload]{
	Type:        AggregateTypeCustomer,
	Statuses:    []CustomerStatus{CustomerStatusProspect, CustomerStatusActive, CustomerStatusInactive, CustomerStatusBlocked},
	Initial:     CustomerStatusProspect,
	Transitions: CustomerTransitions,
	Schema:      shared.NewSchema(AggregateTypeCustomer),
	Defaults: func(p *CustomerPayload, _ CustomerStatus) {
		if p.Tags == nil {
			p.Tags = []string{}
		}
		if p.CreditLimit.Currency == "" {
			p.CreditLimit = valueobject.Zero(valueobject.DefaultCurrency)
		}
	},
	Rules: func(p *CustomerPayload, status CustomerStatus) error {
		if status == CustomerStatusBlocked && p.BlockReason == "" {
			return shared.NewBusinessRuleViolation(AggregateTypeCustomer, "block_reason", "a blocked customer needs a reason")
		}
		return nil
	},
	Redact: func(p *CustomerPayload) {
		p.InternalNotes = ""
	},
	BusinessKey: func(p *CustomerPayload) string { return p.CustomerNumber },
}

// Customer is the aggregate root of a CRM customer
type Customer struct {
	*shared.Aggregate[CustomerStatus, CustomerPayload]
}

// NewCustomer creates a customer, a Prospect unless status says otherwise
func NewCustomer(tenantID uuid.UUID, payload CustomerPayload, status CustomerStatus, actor string, opts ...shared.Option) (*Customer, error) {
	agg, err := shared.Create(CustomerDefinition, tenantID, shared.CreateInput[CustomerStatus, CustomerPayload]{
		Status:  status,
		Payload: payload,
		Actor:   actor,
	}, opts...)
	if err != nil {
		return nil, err
	}
	return &Customer{Aggregate: agg}, nil
}

// RestoreCustomer rebuilds a customer from its persisted record
func RestoreCustomer(rec shared.Record, opts ...shared.Option) (*Customer, error) {
	agg, err := shared.Restore(CustomerDefinition, rec, opts...)
	if err != nil {
		return nil, err
	}
	return &Customer{Aggregate: agg}, nil
}

// Activate makes the customer Active and clears any block reason
func (c *Customer) Activate(actor string) error {
	return c.Mutate(shared.Mutation[CustomerStatus, CustomerPayload]{
		Op:    OpCustomerActivate,
		Actor: actor,
		Apply: func(p *CustomerPayload) error {
			p.BlockReason = ""
			return nil
		},
	})
}

// Deactivate makes the customer Inactive
func (c *Customer) Deactivate(actor string) error {
	return c.Mutate(shared.Mutation[CustomerStatus, CustomerPayload]{
		Op:    OpCustomerDeactivate,
		Actor: actor,
		Apply: func(p *CustomerPayload) error {
			p.BlockReason = ""
			return nil
		},
	})
}

type blockInput struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// Block blocks the customer for the given reason
func (c *Customer) Block(reason, actor string) error {
	return c.Mutate(shared.Mutation[CustomerStatus, CustomerPayload]{
		Op:    OpCustomerBlock,
		Actor: actor,
		Patch: &blockInput{Reason: reason},
		Apply: func(p *CustomerPayload) error {
			p.BlockReason = reason
			return nil
		},
	})
}

// UpdateDetails edits master data. Blocked customers are frozen.
func (c *Customer) UpdateDetails(patch CustomerDetailsPatch, actor string) error {
	return c.Mutate(shared.Mutation[CustomerStatus, CustomerPayload]{
		Op:    OpCustomerUpdateDetails,
		Actor: actor,
		Patch: &patch,
		Apply: func(p *CustomerPayload) error {
			if patch.Name != nil {
				p.Name = *patch.Name
			}
			if patch.Email != nil {
				p.Email = *patch.Email
			}
			if patch.Phone != nil {
				p.Phone = *patch.Phone
			}
			if patch.VATID != nil {
				p.VATID = *patch.VATID
			}
			if patch.Address != nil {
				addr := *patch.Address
				p.Address = &addr
			}
			if patch.CreditLimit != nil {
				p.CreditLimit = *patch.CreditLimit
			}
			if patch.PaymentTermsDays != nil {
				p.PaymentTermsDays = *patch.PaymentTermsDays
			}
			if patch.Tags != nil {
				p.Tags = append([]string{}, patch.Tags...)
			}
			if patch.InternalNotes != nil {
				p.InternalNotes = *patch.InternalNotes
			}
			return nil
		},
	})
}
