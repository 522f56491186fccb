package hr

import (
	"time"

	"github.com/google/uuid"
	"github.com/neuroerp/backend/internal/domain/shared"
)

// AggregateTypeShift is the aggregate type name of Shift
const AggregateTypeShift = "Shift"

// ShiftStatus represents the planning status of a shift
type ShiftStatus string

const (
	ShiftStatusPlanned   ShiftStatus = "Planned"
	ShiftStatusPublished ShiftStatus = "Published"
	ShiftStatusCompleted ShiftStatus = "Completed"
	ShiftStatusCancelled ShiftStatus = "Cancelled"
)

const clockLayout = "15:04"

// ShiftPayload holds the business fields of a shift. Employees are referenced by id only.
type ShiftPayload struct {
	ShiftCode           string      `json:"shiftCode" validate:"required,max=50"`
	Name                string      `json:"name" validate:"required,max=100"`
	Location            string      `json:"location,omitempty" validate:"max=100"`
	Date                string      `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime           string      `json:"startTime" validate:"required,datetime=15:04"`
	EndTime             string      `json:"endTime" validate:"required,datetime=15:04"`
	RequiredHeadcount   int         `json:"requiredHeadcount" validate:"gte=1,lte=500"`
	AssignedEmployeeIDs []uuid.UUID `json:"assignedEmployeeIds" validate:"unique,dive,required"`
}

// Shift operations
const (
	OpAssignEmployee   = "assignEmployee"
	OpUnassignEmployee = "unassignEmployee"
	OpPublishShift     = "publish"
	OpCompleteShift    = "complete"
	OpCancelShift      = "cancel"
)

var plannableShift = []ShiftStatus{ShiftStatusPlanned, ShiftStatusPublished}

// ShiftTransitions is the transition guard of Shift
var ShiftTransitions = shared.NewTransitionTable(AggregateTypeShift,
	shared.Transition[ShiftStatus]{Op: OpAssignEmployee, From: plannableShift},
	shared.Transition[ShiftStatus]{Op: OpUnassignEmployee, From: plannableShift},
	shared.Transition[ShiftStatus]{Op: OpPublishShift, From: []ShiftStatus{ShiftStatusPlanned}, To: ShiftStatusPublished},
	shared.Transition[ShiftStatus]{Op: OpCompleteShift, From: []ShiftStatus{ShiftStatusPublished}, To: ShiftStatusCompleted},
	shared.Transition[ShiftStatus]{Op: OpCancelShift, From: plannableShift, To: ShiftStatusCancelled},
).WithTerminal(ShiftStatusCompleted, ShiftStatusCancelled)

// ShiftDefinition configures the aggregate engine for Shift
var ShiftDefinition = &shared.Definition[ShiftStatus, ShiftPayload]{
	Type:        AggregateTypeShift,
	Statuses:    []ShiftStatus{ShiftStatusPlanned, ShiftStatusPublished, ShiftStatusCompleted, ShiftStatusCancelled},
	Initial:     ShiftStatusPlanned,
	Transitions: ShiftTransitions,
	Schema:      shared.NewSchema(AggregateTypeShift),
	Defaults: func(p *ShiftPayload, _ ShiftStatus) {
		if p.AssignedEmployeeIDs == nil {
			p.AssignedEmployeeIDs = []uuid.UUID{}
		}
	},
	Rules: func(p *ShiftPayload, _ ShiftStatus) error {
		if p.StartTime == p.EndTime {
			return shared.NewBusinessRuleViolation(AggregateTypeShift, "duration", "a shift cannot start and end at the same time")
		}
		return nil
	},
	Clone: func(p ShiftPayload) ShiftPayload {
		p.AssignedEmployeeIDs = append([]uuid.UUID{}, p.AssignedEmployeeIDs...)
		return p
	},
	BusinessKey: func(p *ShiftPayload) string { return p.ShiftCode },
}

// Shift is the aggregate root of a planned work shift
type Shift struct {
	*shared.Aggregate[ShiftStatus, ShiftPayload]
}

// NewShift creates a Planned shift
func NewShift(tenantID uuid.UUID, payload ShiftPayload, actor string, opts ...shared.Option) (*Shift, error) {
	agg, err := shared.Create(ShiftDefinition, tenantID, shared.CreateInput[ShiftStatus, ShiftPayload]{
		Payload: payload,
		Actor:   actor,
	}, opts...)
	if err != nil {
		return nil, err
	}
	return &Shift{Aggregate: agg}, nil
}

// RestoreShift rebuilds a shift from its persisted record
func RestoreShift(rec shared.Record, opts ...shared.Option) (*Shift, error) {
	agg, err := shared.Restore(ShiftDefinition, rec, opts...)
	if err != nil {
		return nil, err
	}
	return &Shift{Aggregate: agg}, nil
}

// IsAssigned reports whether employeeID is on the roster
func (s *Shift) IsAssigned(employeeID uuid.UUID) bool {
	var found bool
	s.View(func(p *ShiftPayload) {
		found = indexOf(p.AssignedEmployeeIDs, employeeID) >= 0
	})
	return found
}

// Coverage is assigned headcount divided by required headcount. It is derived, never stored.
func (s *Shift) Coverage() float64 {
	var c float64
	s.View(func(p *ShiftPayload) {
		c = float64(len(p.AssignedEmployeeIDs)) / float64(p.RequiredHeadcount)
	})
	return c
}

// Duration returns the shift length; an end before the start runs past midnight
func (s *Shift) Duration() time.Duration {
	var d time.Duration
	s.View(func(p *ShiftPayload) {
		start, err1 := time.Parse(clockLayout, p.StartTime)
		end, err2 := time.Parse(clockLayout, p.EndTime)
		if err1 != nil || err2 != nil {
			return
		}
		d = end.Sub(start)
		if d <= 0 {
			d += 24 * time.Hour
		}
	})
	return d
}

// AssignEmployee adds employeeID to the roster. Assigning twice raises DuplicateAssignment.
func (s *Shift) AssignEmployee(employeeID uuid.UUID, actor string) error {
	return s.Mutate(shared.Mutation[ShiftStatus, ShiftPayload]{
		Op:    OpAssignEmployee,
		Actor: actor,
		Apply: func(p *ShiftPayload) error {
			if indexOf(p.AssignedEmployeeIDs, employeeID) >= 0 {
				return &shared.DuplicateAssignmentError{AggregateType: AggregateTypeShift, Member: employeeID.String()}
			}
			p.AssignedEmployeeIDs = append(p.AssignedEmployeeIDs, employeeID)
			return nil
		},
	})
}

// UnassignEmployee removes employeeID from the roster. Removing a non-member raises NotAssigned.
func (s *Shift) UnassignEmployee(employeeID uuid.UUID, actor string) error {
	return s.Mutate(shared.Mutation[ShiftStatus, ShiftPayload]{
		Op:    OpUnassignEmployee,
		Actor: actor,
		Apply: func(p *ShiftPayload) error {
			i := indexOf(p.AssignedEmployeeIDs, employeeID)
			if i < 0 {
				return &shared.NotAssignedError{AggregateType: AggregateTypeShift, Member: employeeID.String()}
			}
			p.AssignedEmployeeIDs = append(p.AssignedEmployeeIDs[:i], p.AssignedEmployeeIDs[i+1:]...)
			return nil
		},
	})
}

// Publish releases the plan to employees
func (s *Shift) Publish(actor string) error {
	return s.Mutate(shared.Mutation[ShiftStatus, ShiftPayload]{Op: OpPublishShift, Actor: actor})
}

// Complete closes a published shift
func (s *Shift) Complete(actor string) error {
	return s.Mutate(shared.Mutation[ShiftStatus, ShiftPayload]{Op: OpCompleteShift, Actor: actor})
}

// Cancel drops the shift
func (s *Shift) Cancel(actor string) error {
	return s.Mutate(shared.Mutation[ShiftStatus, ShiftPayload]{Op: OpCancelShift, Actor: actor})
}

func indexOf(ids []uuid.UUID, id uuid.UUID) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
