package hr

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neuroerp/backend/internal/domain/shared"
)

// AggregateTypeTimeEntry is the aggregate type name of TimeEntry
const AggregateTypeTimeEntry = "TimeEntry"

// MaxEntrySpan is the longest elapsed time a single entry may cover
const MaxEntrySpan = 24 * time.Hour

// DefaultDailyThresholdHours is the working time per day above which minutes count as overtime
const DefaultDailyThresholdHours = 8

// TimeEntryStatus represents the approval status of a time entry
type TimeEntryStatus string

const (
	TimeEntryStatusDraft     TimeEntryStatus = "Draft"
	TimeEntryStatusSubmitted TimeEntryStatus = "Submitted"
	TimeEntryStatusApproved  TimeEntryStatus = "Approved"
	TimeEntryStatusRejected  TimeEntryStatus = "Rejected"
)

// TimeEntryPayload holds the business fields of a time entry
type TimeEntryPayload struct {
	EntryNumber         string    `json:"entryNumber" validate:"required,max=50"`
	EmployeeID          uuid.UUID `json:"employeeId" validate:"required"`
	ShiftID             uuid.UUID `json:"shiftId"`
	Start               time.Time `json:"start" validate:"required"`
	End                 time.Time `json:"end" validate:"required"`
	BreakMinutes        int       `json:"breakMinutes" validate:"gte=0"`
	DailyThresholdHours float64   `json:"dailyThresholdHours" validate:"gt=0,lte=24"`
	Note                string    `json:"note,omitempty" validate:"max=500"`
	ApprovedBy          string    `json:"approvedBy,omitempty" validate:"max=100"`
	RejectionReason     string    `json:"rejectionReason,omitempty" validate:"max=500"`
}

// TimeEntryPatch is the update input of Adjust. Nil fields are left unchanged.
type TimeEntryPatch struct {
	Start        *time.Time `json:"start,omitempty" validate:"omitempty"`
	End          *time.Time `json:"end,omitempty" validate:"omitempty"`
	BreakMinutes *int       `json:"breakMinutes,omitempty" validate:"omitempty,gte=0"`
	Note         *string    `json:"note,omitempty" validate:"omitempty,max=500"`
}

// TimeEntry operations
const (
	OpAdjustTimeEntry  = "adjust"
	OpSubmitTimeEntry  = "submit"
	OpApproveTimeEntry = "approve"
	OpRejectTimeEntry  = "reject"
)

// TimeEntryTransitions is the transition guard of TimeEntry
var TimeEntryTransitions = shared.NewTransitionTable(AggregateTypeTimeEntry,
	shared.Transition[TimeEntryStatus]{Op: OpAdjustTimeEntry, From: []TimeEntryStatus{TimeEntryStatusDraft}},
	shared.Transition[TimeEntryStatus]{Op: OpSubmitTimeEntry, From: []TimeEntryStatus{TimeEntryStatusDraft}, To: TimeEntryStatusSubmitted},
	shared.Transition[TimeEntryStatus]{Op: OpApproveTimeEntry, From: []TimeEntryStatus{TimeEntryStatusSubmitted}, To: TimeEntryStatusApproved},
	shared.Transition[TimeEntryStatus]{Op: OpRejectTimeEntry, From: []TimeEntryStatus{TimeEntryStatusSubmitted}, To: TimeEntryStatusRejected},
).WithTerminal(TimeEntryStatusApproved, TimeEntryStatusRejected)

// TimeEntryDefinition configures the aggregate engine for TimeEntry
var TimeEntryDefinition = &shared.Definition[TimeEntryStatus, TimeEntryPayload]{
	Type:        AggregateTypeTimeEntry,
	Statuses:    []TimeEntryStatus{TimeEntryStatusDraft, TimeEntryStatusSubmitted, TimeEntryStatusApproved, TimeEntryStatusRejected},
	Initial:     TimeEntryStatusDraft,
	Transitions: TimeEntryTransitions,
	Schema:      shared.NewSchema(AggregateTypeTimeEntry),
	Defaults: func(p *TimeEntryPayload, _ TimeEntryStatus) {
		if p.DailyThresholdHours == 0 {
			p.DailyThresholdHours = DefaultDailyThresholdHours
		}
		p.Start = p.Start.UTC()
		p.End = p.End.UTC()
	},
	Rules:       timeEntryRules,
	BusinessKey: func(p *TimeEntryPayload) string { return p.EntryNumber },
}

func timeEntryRules(p *TimeEntryPayload, _ TimeEntryStatus) error {
	elapsed := p.End.Sub(p.Start)
	switch {
	case elapsed <= 0:
		return shared.NewBusinessRuleViolation(AggregateTypeTimeEntry, "time_range", "end must be after start")
	case elapsed > MaxEntrySpan:
		return shared.NewBusinessRuleViolation(AggregateTypeTimeEntry, "max_duration",
			fmt.Sprintf("entry spans %s, more than %s", elapsed, MaxEntrySpan))
	case time.Duration(p.BreakMinutes)*time.Minute > elapsed:
		return shared.NewBusinessRuleViolation(AggregateTypeTimeEntry, "break_exceeds_total",
			fmt.Sprintf("break of %d minutes exceeds elapsed %s", p.BreakMinutes, elapsed))
	}
	return nil
}

// WorkingMinutes is elapsed minutes minus breaks, clamped at zero
func WorkingMinutes(p *TimeEntryPayload) int {
	m := int(p.End.Sub(p.Start).Minutes()) - p.BreakMinutes
	if m < 0 {
		return 0
	}
	return m
}

// OvertimeMinutes is working minutes above the daily threshold, clamped at zero
func OvertimeMinutes(p *TimeEntryPayload) int {
	m := WorkingMinutes(p) - int(p.DailyThresholdHours*60)
	if m < 0 {
		return 0
	}
	return m
}

// TimeEntry is the aggregate root of a recorded working period
type TimeEntry struct {
	*shared.Aggregate[TimeEntryStatus, TimeEntryPayload]
}

// NewTimeEntry creates a Draft time entry
func NewTimeEntry(tenantID uuid.UUID, payload TimeEntryPayload, actor string, opts ...shared.Option) (*TimeEntry, error) {
	agg, err := shared.Create(TimeEntryDefinition, tenantID, shared.CreateInput[TimeEntryStatus, TimeEntryPayload]{
		Payload: payload,
		Actor:   actor,
	}, opts...)
	if err != nil {
		return nil, err
	}
	return &TimeEntry{Aggregate: agg}, nil
}

// RestoreTimeEntry rebuilds a time entry from its persisted record
func RestoreTimeEntry(rec shared.Record, opts ...shared.Option) (*TimeEntry, error) {
	agg, err := shared.Restore(TimeEntryDefinition, rec, opts...)
	if err != nil {
		return nil, err
	}
	return &TimeEntry{Aggregate: agg}, nil
}

// WorkingMinutes returns the derived working time of the entry
func (e *TimeEntry) WorkingMinutes() int {
	var m int
	e.View(func(p *TimeEntryPayload) { m = WorkingMinutes(p) })
	return m
}

// OvertimeMinutes returns the derived overtime of the entry
func (e *TimeEntry) OvertimeMinutes() int {
	var m int
	e.View(func(p *TimeEntryPayload) { m = OvertimeMinutes(p) })
	return m
}

// Adjust corrects a draft entry
func (e *TimeEntry) Adjust(patch TimeEntryPatch, actor string) error {
	return e.Mutate(shared.Mutation[TimeEntryStatus, TimeEntryPayload]{
		Op:    OpAdjustTimeEntry,
		Actor: actor,
		Patch: &patch,
		Apply: func(p *TimeEntryPayload) error {
			if patch.Start != nil {
				p.Start = patch.Start.UTC()
			}
			if patch.End != nil {
				p.End = patch.End.UTC()
			}
			if patch.BreakMinutes != nil {
				p.BreakMinutes = *patch.BreakMinutes
			}
			if patch.Note != nil {
				p.Note = *patch.Note
			}
			return nil
		},
	})
}

// Submit hands the entry in for approval
func (e *TimeEntry) Submit(actor string) error {
	return e.Mutate(shared.Mutation[TimeEntryStatus, TimeEntryPayload]{Op: OpSubmitTimeEntry, Actor: actor})
}

// Approve accepts a submitted entry
func (e *TimeEntry) Approve(actor string) error {
	return e.Mutate(shared.Mutation[TimeEntryStatus, TimeEntryPayload]{
		Op:    OpApproveTimeEntry,
		Actor: actor,
		Apply: func(p *TimeEntryPayload) error {
			p.ApprovedBy = actor
			return nil
		},
	})
}

// Reject returns a submitted entry with a reason
func (e *TimeEntry) Reject(reason, actor string) error {
	return e.Mutate(shared.Mutation[TimeEntryStatus, TimeEntryPayload]{
		Op:    OpRejectTimeEntry,
		Actor: actor,
		Patch: &rejectionInput{Reason: reason},
		Apply: func(p *TimeEntryPayload) error {
			p.RejectionReason = reason
			return nil
		},
	})
}
