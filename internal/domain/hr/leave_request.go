package hr

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/neuroerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AggregateTypeLeaveRequest is the aggregate type name of LeaveRequest
const AggregateTypeLeaveRequest = "LeaveRequest"

// LeaveDayTolerance is how far declared days may deviate from the calendar
// span, in days, to allow for half days at either end
const LeaveDayTolerance = 1

// LeaveStatus represents the decision status of a leave request
type LeaveStatus string

const (
	LeaveStatusPending   LeaveStatus = "Pending"
	LeaveStatusApproved  LeaveStatus = "Approved"
	LeaveStatusRejected  LeaveStatus = "Rejected"
	LeaveStatusCancelled LeaveStatus = "Cancelled"
)

// LeaveType classifies the absence
type LeaveType string

const (
	LeaveTypeVacation LeaveType = "Vacation"
	LeaveTypeSick     LeaveType = "Sick"
	LeaveTypeSpecial  LeaveType = "Special"
	LeaveTypeUnpaid   LeaveType = "Unpaid"
)

// LeaveRequestPayload holds the business fields of a leave request
type LeaveRequestPayload struct {
	RequestNumber  string          `json:"requestNumber" validate:"required,max=50"`
	EmployeeID     uuid.UUID       `json:"employeeId" validate:"required"`
	Type           LeaveType       `json:"type" validate:"required,oneof=Vacation Sick Special Unpaid"`
	From           string          `json:"from" validate:"required,datetime=2006-01-02"`
	To             string          `json:"to" validate:"required,datetime=2006-01-02"`
	Days           decimal.Decimal `json:"days" validate:"gt=0"`
	Note           string          `json:"note,omitempty" validate:"max=500"`
	DecidedBy      string          `json:"decidedBy,omitempty" validate:"max=100"`
	DecisionReason string          `json:"decisionReason,omitempty" validate:"max=500"`
}

type rejectionInput struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// LeaveRequest operations
const (
	OpApproveLeave = "approve"
	OpRejectLeave  = "reject"
	OpCancelLeave  = "cancel"
)

// LeaveRequestTransitions is the transition guard of LeaveRequest
var LeaveRequestTransitions = shared.NewTransitionTable(AggregateTypeLeaveRequest,
	shared.Transition[LeaveStatus]{Op: OpApproveLeave, From: []LeaveStatus{LeaveStatusPending}, To: LeaveStatusApproved},
	shared.Transition[LeaveStatus]{Op: OpRejectLeave, From: []LeaveStatus{LeaveStatusPending}, To: LeaveStatusRejected},
	shared.Transition[LeaveStatus]{Op: OpCancelLeave, From: []LeaveStatus{LeaveStatusPending, LeaveStatusApproved}, To: LeaveStatusCancelled},
).WithTerminal(LeaveStatusRejected, LeaveStatusCancelled)

// LeaveRequestDefinition configures the aggregate engine for LeaveRequest
var LeaveRequestDefinition = &shared.Definition[LeaveStatus, LeaveRequestPayload]{
	Type:        AggregateTypeLeaveRequest,
	Statuses:    []LeaveStatus{LeaveStatusPending, LeaveStatusApproved, LeaveStatusRejected, LeaveStatusCancelled},
	Initial:     LeaveStatusPending,
	Transitions: LeaveRequestTransitions,
	Schema:      shared.NewSchema(AggregateTypeLeaveRequest),
	Rules:       leaveRequestRules,
	BusinessKey: func(p *LeaveRequestPayload) string { return p.RequestNumber },
}

// leaveRequestRules checks to >= from and that declared days match the
// inclusive calendar span within LeaveDayTolerance
func leaveRequestRules(p *LeaveRequestPayload, _ LeaveStatus) error {
	from, err := shared.ParseDate(p.From)
	if err != nil {
		return err
	}
	to, err := shared.ParseDate(p.To)
	if err != nil {
		return err
	}
	if to.Before(from) {
		return shared.NewBusinessRuleViolation(AggregateTypeLeaveRequest, "date_range",
			fmt.Sprintf("to %s precedes from %s", p.To, p.From))
	}

	span := decimal.NewFromInt(int64(shared.InclusiveDays(from, to)))
	if p.Days.Sub(span).Abs().GreaterThan(decimal.NewFromInt(LeaveDayTolerance)) {
		return shared.NewBusinessRuleViolation(AggregateTypeLeaveRequest, "days_mismatch",
			fmt.Sprintf("declared %s days but %s to %s spans %s", p.Days, p.From, p.To, span))
	}
	return nil
}

// LeaveRequest is the aggregate root of an absence request
type LeaveRequest struct {
	*shared.Aggregate[LeaveStatus, LeaveRequestPayload]
}

// NewLeaveRequest creates a Pending leave request
func NewLeaveRequest(tenantID uuid.UUID, payload LeaveRequestPayload, actor string, opts ...shared.Option) (*LeaveRequest, error) {
	agg, err := shared.Create(LeaveRequestDefinition, tenantID, shared.CreateInput[LeaveStatus, LeaveRequestPayload]{
		Payload: payload,
		Actor:   actor,
	}, opts...)
	if err != nil {
		return nil, err
	}
	return &LeaveRequest{Aggregate: agg}, nil
}

// RestoreLeaveRequest rebuilds a leave request from its persisted record
func RestoreLeaveRequest(rec shared.Record, opts ...shared.Option) (*LeaveRequest, error) {
	agg, err := shared.Restore(LeaveRequestDefinition, rec, opts...)
	if err != nil {
		return nil, err
	}
	return &LeaveRequest{Aggregate: agg}, nil
}

// Approve grants a pending request
func (r *LeaveRequest) Approve(actor string) error {
	return r.Mutate(shared.Mutation[LeaveStatus, LeaveRequestPayload]{
		Op:    OpApproveLeave,
		Actor: actor,
		Apply: func(p *LeaveRequestPayload) error {
			p.DecidedBy = actor
			return nil
		},
	})
}

// Reject turns down a pending request with a reason
func (r *LeaveRequest) Reject(reason, actor string) error {
	return r.Mutate(shared.Mutation[LeaveStatus, LeaveRequestPayload]{
		Op:    OpRejectLeave,
		Actor: actor,
		Patch: &rejectionInput{Reason: reason},
		Apply: func(p *LeaveRequestPayload) error {
			p.DecidedBy = actor
			p.DecisionReason = reason
			return nil
		},
	})
}

// Cancel withdraws a pending or approved request
func (r *LeaveRequest) Cancel(actor string) error {
	return r.Mutate(shared.Mutation[LeaveStatus, LeaveRequestPayload]{Op: OpCancelLeave, Actor: actor})
}
