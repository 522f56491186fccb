// Package hr contains the HR bounded context: employees, leave requests,
// shift planning and time tracking.
package hr

import (
	"github.com/google/uuid"
	"github.com/neuroerp/backend/internal/domain/shared"
	"github.com/neuroerp/backend/internal/domain/shared/valueobject"
)

// AggregateTypeEmployee is the aggregate type name of Employee
const AggregateTypeEmployee = "Employee"

// EmployeeStatus represents the employment status
type EmployeeStatus string

const (
	EmployeeStatusActive     EmployeeStatus = "Active"
	EmployeeStatusOnLeave    EmployeeStatus = "OnLeave"
	EmployeeStatusTerminated EmployeeStatus = "Terminated"
)

// EmployeePayload holds the business fields of an employee
type EmployeePayload struct {
	EmployeeNumber  string               `json:"employeeNumber" validate:"required,max=50"`
	FirstName       string               `json:"firstName" validate:"required,max=100"`
	LastName        string               `json:"lastName" validate:"required,max=100"`
	Email           string               `json:"email,omitempty" validate:"omitempty,email"`
	Department      string               `json:"department,omitempty" validate:"max=100"`
	Position        string               `json:"position,omitempty" validate:"max=100"`
	HireDate        string               `json:"hireDate" validate:"required,datetime=2006-01-02"`
	TerminationDate string               `json:"terminationDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	WeeklyHours     float64              `json:"weeklyHours" validate:"gte=0,lte=60"`
	Address         *valueobject.Address `json:"address,omitempty" validate:"omitempty"`
	IBAN            string               `json:"iban,omitempty" validate:"omitempty,alphanum,min=15,max=34"`
}

// EmployeeDetailsPatch is the update input of UpdateDetails. Nil fields are left unchanged.
type EmployeeDetailsPatch struct {
	FirstName   *string              `json:"firstName,omitempty" validate:"omitempty,max=100"`
	LastName    *string              `json:"lastName,omitempty" validate:"omitempty,max=100"`
	Email       *string              `json:"email,omitempty" validate:"omitempty,email"`
	Department  *string              `json:"department,omitempty" validate:"omitempty,max=100"`
	Position    *string              `json:"position,omitempty" validate:"omitempty,max=100"`
	WeeklyHours *float64             `json:"weeklyHours,omitempty" validate:"omitempty,gte=0,lte=60"`
	Address     *valueobject.Address `json:"address,omitempty" validate:"omitempty"`
	IBAN        *string              `json:"iban,omitempty" validate:"omitempty,alphanum,min=15,max=34"`
}

type terminationInput struct {
	Date string `json:"terminationDate" validate:"required,datetime=2006-01-02"`
}

// Employee operations
const (
	OpEmployeeUpdateDetails = "updateDetails"
	OpStartLeave            = "startLeave"
	OpReturnFromLeave       = "returnFromLeave"
	OpTerminate             = "terminate"
)

// EmployeeTransitions is the transition guard of Employee
var EmployeeTransitions = shared.NewTransitionTable(AggregateTypeEmployee,
	shared.Transition[EmployeeStatus]{Op: OpEmployeeUpdateDetails, From: []EmployeeStatus{EmployeeStatusActive, EmployeeStatusOnLeave}},
	shared.Transition[EmployeeStatus]{Op: OpStartLeave, From: []EmployeeStatus{EmployeeStatusActive}, To: EmployeeStatusOnLeave},
	shared.Transition[EmployeeStatus]{Op: OpReturnFromLeave, From: []EmployeeStatus{EmployeeStatusOnLeave}, To: EmployeeStatusActive},
	shared.Transition[EmployeeStatus]{
		Op:   OpTerminate,
		From: []EmployeeStatus{EmployeeStatusActive, EmployeeStatusOnLeave},
		To:   EmployeeStatusTerminated,
	},
).WithTerminal(EmployeeStatusTerminated)

// EmployeeDefinition configures the aggregate engine for Employee
var EmployeeDefinition = &shared.Definition[EmployeeStatus, EmployeePayload]{
	Type:        AggregateTypeEmployee,
	Statuses:    []EmployeeStatus{EmployeeStatusActive, EmployeeStatusOnLeave, EmployeeStatusTerminated},
	Initial:     EmployeeStatusActive,
	Transitions: EmployeeTransitions,
	Schema:      shared.NewSchema(AggregateTypeEmployee),
	Rules:       employeeRules,
	Redact: func(p *EmployeePayload) {
		p.IBAN = ""
	},
	BusinessKey: func(p *EmployeePayload) string { return p.EmployeeNumber },
}

func employeeRules(p *EmployeePayload, status EmployeeStatus) error {
	if status == EmployeeStatusTerminated && p.TerminationDate == "" {
		return shared.NewBusinessRuleViolation(AggregateTypeEmployee, "termination_date", "a terminated employee needs a termination date")
	}
	if p.TerminationDate == "" {
		return nil
	}
	hired, err := shared.ParseDate(p.HireDate)
	if err != nil {
		return err
	}
	left, err := shared.ParseDate(p.TerminationDate)
	if err != nil {
		return err
	}
	if left.Before(hired) {
		return shared.NewBusinessRuleViolation(AggregateTypeEmployee, "termination_date", "terminationDate precedes hireDate")
	}
	return nil
}

// Employee is the aggregate root of an employee record
type Employee struct {
	*shared.Aggregate[EmployeeStatus, EmployeePayload]
}

// NewEmployee creates an Active employee
func NewEmployee(tenantID uuid.UUID, payload EmployeePayload, actor string, opts ...shared.Option) (*Employee, error) {
	agg, err := shared.Create(EmployeeDefinition, tenantID, shared.CreateInput[EmployeeStatus, EmployeePayload]{
		Payload: payload,
		Actor:   actor,
	}, opts...)
	if err != nil {
		return nil, err
	}
	return &Employee{Aggregate: agg}, nil
}

// RestoreEmployee rebuilds an employee from its persisted record
func RestoreEmployee(rec shared.Record, opts ...shared.Option) (*Employee, error) {
	agg, err := shared.Restore(EmployeeDefinition, rec, opts...)
	if err != nil {
		return nil, err
	}
	return &Employee{Aggregate: agg}, nil
}

// FullName returns "First Last"
func (e *Employee) FullName() string {
	var name string
	e.View(func(p *EmployeePayload) {
		name = p.FirstName + " " + p.LastName
	})
	return name
}

// UpdateDetails edits personal data of a current employee
func (e *Employee) UpdateDetails(patch EmployeeDetailsPatch, actor string) error {
	return e.Mutate(shared.Mutation[EmployeeStatus, EmployeePayload]{
		Op:    OpEmployeeUpdateDetails,
		Actor: actor,
		Patch: &patch,
		Apply: func(p *EmployeePayload) error {
			if patch.FirstName != nil {
				p.FirstName = *patch.FirstName
			}
			if patch.LastName != nil {
				p.LastName = *patch.LastName
			}
			if patch.Email != nil {
				p.Email = *patch.Email
			}
			if patch.Department != nil {
				p.Department = *patch.Department
			}
			if patch.Position != nil {
				p.Position = *patch.Position
			}
			if patch.WeeklyHours != nil {
				p.WeeklyHours = *patch.WeeklyHours
			}
			if patch.Address != nil {
				addr := *patch.Address
				p.Address = &addr
			}
			if patch.IBAN != nil {
				p.IBAN = *patch.IBAN
			}
			return nil
		},
	})
}

// StartLeave marks the employee as on leave
func (e *Employee) StartLeave(actor string) error {
	return e.Mutate(shared.Mutation[EmployeeStatus, EmployeePayload]{Op: OpStartLeave, Actor: actor})
}

// ReturnFromLeave marks the employee as active again
func (e *Employee) ReturnFromLeave(actor string) error {
	return e.Mutate(shared.Mutation[EmployeeStatus, EmployeePayload]{Op: OpReturnFromLeave, Actor: actor})
}

// Terminate ends the employment on date (YYYY-MM-DD)
func (e *Employee) Terminate(date, actor string) error {
	return e.Mutate(shared.Mutation[EmployeeStatus, EmployeePayload]{
		Op:    OpTerminate,
		Actor: actor,
		Patch: &terminationInput{Date: date},
		Apply: func(p *EmployeePayload) error {
			p.TerminationDate = date
			return nil
		},
	})
}
