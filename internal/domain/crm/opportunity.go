package crm

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/neuroerp/backend/internal/domain/shared"
	"github.com/neuroerp/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// AggregateTypeOpportunity is the aggregate type name of Opportunity
const AggregateTypeOpportunity = "Opportunity"

// OpportunityStage is the sales pipeline stage; it is the status of an Opportunity
type OpportunityStage string

const (
	StageLead        OpportunityStage = "Lead"
	StageQualified   OpportunityStage = "Qualified"
	StageProposal    OpportunityStage = "Proposal"
	StageNegotiation OpportunityStage = "Negotiation"
	StageWon         OpportunityStage = "Won"
	StageLost        OpportunityStage = "Lost"
)

// DefaultProbability is the win probability assumed for a stage when none is given
var DefaultProbability = map[OpportunityStage]float64{
	StageLead:        0.1,
	StageQualified:   0.25,
	StageProposal:    0.5,
	StageNegotiation: 0.75,
	StageWon:         1,
	StageLost:        0,
}

// OpportunityPayload holds the business fields of an opportunity
type OpportunityPayload struct {
	OpportunityNumber string            `json:"opportunityNumber" validate:"required,max=50"`
	Title             string            `json:"title" validate:"required,max=200"`
	CustomerID        uuid.UUID         `json:"customerId" validate:"required"`
	OwnerID           string            `json:"ownerId,omitempty" validate:"max=100"`
	ExpectedValue     valueobject.Money `json:"expectedValue"`
	Probability       *float64          `json:"probability" validate:"required,gte=0,lte=1"`
	ExpectedCloseDate string            `json:"expectedCloseDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	LostReason        string            `json:"lostReason,omitempty" validate:"max=500"`
}

type probabilityInput struct {
	Probability float64 `json:"probability" validate:"gte=0,lte=1"`
}

// Opportunity operations
const (
	OpQualify           = "qualify"
	OpPropose           = "propose"
	OpNegotiate         = "negotiate"
	OpUpdateProbability = "updateProbability"
	OpMarkAsWon         = "markAsWon"
	OpMarkAsLost        = "markAsLost"
)

var openStages = []OpportunityStage{StageLead, StageQualified, StageProposal, StageNegotiation}

// OpportunityTransitions is the transition guard of Opportunity
var OpportunityTransitions = shared.NewTransitionTable(AggregateTypeOpportunity,
	shared.Transition[OpportunityStage]{Op: OpQualify, From: []OpportunityStage{StageLead}, To: StageQualified},
	shared.Transition[OpportunityStage]{Op: OpPropose, From: []OpportunityStage{StageQualified}, To: StageProposal},
	shared.Transition[OpportunityStage]{Op: OpNegotiate, From: []OpportunityStage{StageProposal}, To: StageNegotiation},
	shared.Transition[OpportunityStage]{Op: OpUpdateProbability, From: openStages},
	shared.Transition[OpportunityStage]{Op: OpMarkAsWon, From: openStages, To: StageWon},
	shared.Transition[OpportunityStage]{Op: OpMarkAsLost, From: openStages, To: StageLost},
).WithTerminal(StageWon, StageLost)

var advanceOps = map[OpportunityStage]string{
	StageQualified:   OpQualify,
	StageProposal:    OpPropose,
	StageNegotiation: OpNegotiate,
}

// OpportunityDefinition configures the aggregate engine for Opportunity
var OpportunityDefinition = &shared.Definition[OpportunityStage, OpportunityPayload]{
	Type:        AggregateTypeOpportunity,
	Statuses:    []OpportunityStage{StageLead, StageQualified, StageProposal, StageNegotiation, StageWon, StageLost},
	Initial:     StageLead,
	Transitions: OpportunityTransitions,
	Schema:      shared.NewSchema(AggregateTypeOpportunity),
	Defaults: func(p *OpportunityPayload, stage OpportunityStage) {
		if p.Probability == nil {
			prob := DefaultProbability[stage]
			p.Probability = &prob
		}
		if p.ExpectedValue.Currency == "" {
			p.ExpectedValue = valueobject.Zero(valueobject.DefaultCurrency)
		}
	},
	Rules: func(p *OpportunityPayload, stage OpportunityStage) error {
		if stage == StageWon && *p.Probability != 1 {
			return shared.NewBusinessRuleViolation(AggregateTypeOpportunity, "won_probability", "a won opportunity has probability 1")
		}
		if stage == StageLost && *p.Probability != 0 {
			return shared.NewBusinessRuleViolation(AggregateTypeOpportunity, "lost_probability", "a lost opportunity has probability 0")
		}
		return nil
	},
	BusinessKey: func(p *OpportunityPayload) string { return p.OpportunityNumber },
}

// Opportunity is the aggregate root of a sales opportunity
type Opportunity struct {
	*shared.Aggregate[OpportunityStage, OpportunityPayload]
}

// NewOpportunity creates an opportunity. An empty stage starts it as a Lead; a nil
// probability takes the stage default.
func NewOpportunity(tenantID uuid.UUID, payload OpportunityPayload, stage OpportunityStage, actor string, opts ...shared.Option) (*Opportunity, error) {
	agg, err := shared.Create(OpportunityDefinition, tenantID, shared.CreateInput[OpportunityStage, OpportunityPayload]{
		Status:  stage,
		Payload: payload,
		Actor:   actor,
	}, opts...)
	if err != nil {
		return nil, err
	}
	return &Opportunity{Aggregate: agg}, nil
}

// RestoreOpportunity rebuilds an opportunity from its persisted record
func RestoreOpportunity(rec shared.Record, opts ...shared.Option) (*Opportunity, error) {
	agg, err := shared.Restore(OpportunityDefinition, rec, opts...)
	if err != nil {
		return nil, err
	}
	return &Opportunity{Aggregate: agg}, nil
}

// Stage returns the pipeline stage
func (o *Opportunity) Stage() OpportunityStage {
	return o.Status()
}

// Probability returns the current win probability
func (o *Opportunity) Probability() float64 {
	var prob float64
	o.View(func(p *OpportunityPayload) {
		prob = *p.Probability
	})
	return prob
}

// Advance moves the opportunity one step along the pipeline to stage.
// Won and Lost are reached through MarkAsWon and MarkAsLost.
func (o *Opportunity) Advance(stage OpportunityStage, actor string) error {
	op, ok := advanceOps[stage]
	if !ok {
		return OpportunityDefinition.Schema.Violation("stage", "oneof",
			fmt.Sprintf("Must be one of: %s %s %s", StageQualified, StageProposal, StageNegotiation))
	}
	return o.Mutate(shared.Mutation[OpportunityStage, OpportunityPayload]{Op: op, Actor: actor})
}

// UpdateProbability sets the win probability, which must lie in [0,1]
func (o *Opportunity) UpdateProbability(prob float64, actor string) error {
	return o.Mutate(shared.Mutation[OpportunityStage, OpportunityPayload]{
		Op:    OpUpdateProbability,
		Actor: actor,
		Patch: &probabilityInput{Probability: prob},
		Apply: func(p *OpportunityPayload) error {
			p.Probability = &prob
			return nil
		},
	})
}

// MarkAsWon closes the opportunity as won. Repeating it is a no-op.
func (o *Opportunity) MarkAsWon(actor string) error {
	return o.Mutate(shared.Mutation[OpportunityStage, OpportunityPayload]{
		Op:    OpMarkAsWon,
		Actor: actor,
		Apply: func(p *OpportunityPayload) error {
			one := 1.0
			p.Probability = &one
			p.LostReason = ""
			return nil
		},
	})
}

// MarkAsLost closes the opportunity as lost. Repeating it is a no-op.
func (o *Opportunity) MarkAsLost(reason, actor string) error {
	return o.Mutate(shared.Mutation[OpportunityStage, OpportunityPayload]{
		Op:    OpMarkAsLost,
		Actor: actor,
		Apply: func(p *OpportunityPayload) error {
			zero := 0.0
			p.Probability = &zero
			p.LostReason = reason
			return nil
		},
	})
}

// WeightedValue returns expected value times win probability
func (o *Opportunity) WeightedValue() valueobject.Money {
	var m valueobject.Money
	o.View(func(p *OpportunityPayload) {
		m = p.ExpectedValue.Multiply(decimal.NewFromFloat(*p.Probability)).Round(2)
	})
	return m
}
