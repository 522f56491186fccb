package shared

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors. The typed errors below match these through errors.Is.
var (
	ErrNotFound               = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists          = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput           = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict    = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrValidation             = NewDomainError("VALIDATION_FAILED", "Validation failed")
	ErrIllegalStateTransition = NewDomainError("ILLEGAL_STATE_TRANSITION", "Operation not allowed in current state")
	ErrBusinessRule           = NewDomainError("BUSINESS_RULE_VIOLATION", "Business rule violated")
	ErrDuplicateAssignment    = NewDomainError("DUPLICATE_ASSIGNMENT", "Member is already assigned")
	ErrNotAssigned            = NewDomainError("NOT_ASSIGNED", "Member is not assigned")
	ErrPreconditionFailed     = NewDomainError("PRECONDITION_FAILED", "Precondition failed")
	ErrCorruptState           = NewDomainError("CORRUPT_STATE", "Persisted state is corrupt")
)

// knownErrors is ordered so that wrapping errors win over what they wrap
var knownErrors = []*DomainError{
	ErrCorruptState, ErrValidation, ErrIllegalStateTransition, ErrBusinessRule,
	ErrDuplicateAssignment, ErrNotAssigned, ErrPreconditionFailed, ErrConcurrencyConflict,
	ErrNotFound, ErrAlreadyExists, ErrInvalidInput,
}

// ErrorCode returns the code of the domain error err matches, "" for nil
// and "INTERNAL" for anything else
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	for _, known := range knownErrors {
		if errors.Is(err, known) {
			return known.Code
		}
	}
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return "INTERNAL"
}

// FieldViolation describes one violated constraint on one field
type FieldViolation struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message"`
}

// ValidationError lists every violated constraint of a payload, never just the first
type ValidationError struct {
	AggregateType string           `json:"aggregate_type,omitempty"`
	Violations    []FieldViolation `json:"violations"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s: %s", v.Field, v.Message))
	}
	prefix := "validation failed"
	if e.AggregateType != "" {
		prefix = e.AggregateType + " " + prefix
	}
	return prefix + ": " + strings.Join(parts, "; ")
}

// Is matches ErrValidation
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Fields returns the names of all violated fields in report order
func (e *ValidationError) Fields() []string {
	fields := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		fields = append(fields, v.Field)
	}
	return fields
}

// IllegalStateTransitionError is returned when a mutator is invoked from a status that forbids it
type IllegalStateTransitionError struct {
	AggregateType string   `json:"aggregate_type"`
	Operation     string   `json:"operation"`
	Current       string   `json:"current"`
	AllowedFrom   []string `json:"allowed_from"`
}

func (e *IllegalStateTransitionError) Error() string {
	return fmt.Sprintf("%s: cannot %s from status %s (allowed from: %s)",
		e.AggregateType, e.Operation, e.Current, strings.Join(e.AllowedFrom, ", "))
}

// Is matches ErrIllegalStateTransition
func (e *IllegalStateTransitionError) Is(target error) bool { return target == ErrIllegalStateTransition }

// BusinessRuleViolation is a cross-field invariant failure that is not a pure schema issue
type BusinessRuleViolation struct {
	AggregateType string `json:"aggregate_type"`
	Rule          string `json:"rule"`
	Message       string `json:"message"`
}

// NewBusinessRuleViolation creates a new BusinessRuleViolation
func NewBusinessRuleViolation(aggregateType, rule, message string) *BusinessRuleViolation {
	return &BusinessRuleViolation{AggregateType: aggregateType, Rule: rule, Message: message}
}

func (e *BusinessRuleViolation) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.AggregateType, e.Rule, e.Message)
}

// Is matches ErrBusinessRule
func (e *BusinessRuleViolation) Is(target error) bool { return target == ErrBusinessRule }

// DuplicateAssignmentError is returned when adding a member that is already in a roster
type DuplicateAssignmentError struct {
	AggregateType string `json:"aggregate_type"`
	Member        string `json:"member"`
}

func (e *DuplicateAssignmentError) Error() string {
	return fmt.Sprintf("%s: %s is already assigned", e.AggregateType, e.Member)
}

// Is matches ErrDuplicateAssignment
func (e *DuplicateAssignmentError) Is(target error) bool { return target == ErrDuplicateAssignment }

// NotAssignedError is returned when removing a member that is not in a roster
type NotAssignedError struct {
	AggregateType string `json:"aggregate_type"`
	Member        string `json:"member"`
}

func (e *NotAssignedError) Error() string {
	return fmt.Sprintf("%s: %s is not assigned", e.AggregateType, e.Member)
}

// Is matches ErrNotAssigned
func (e *NotAssignedError) Is(target error) bool { return target == ErrNotAssigned }

// PreconditionFailedError is returned when an operation's non-status precondition does not hold
type PreconditionFailedError struct {
	AggregateType string `json:"aggregate_type"`
	Operation     string `json:"operation"`
	Reason        string `json:"reason"`
}

func (e *PreconditionFailedError) Error() string {
	return fmt.Sprintf("%s: cannot %s: %s", e.AggregateType, e.Operation, e.Reason)
}

// Is matches ErrPreconditionFailed
func (e *PreconditionFailedError) Is(target error) bool { return target == ErrPreconditionFailed }

// CorruptStateError is returned when a persisted record fails re-validation on load.
// It indicates a persistence or migration bug and is never repaired silently.
type CorruptStateError struct {
	AggregateType string    `json:"aggregate_type"`
	ID            uuid.UUID `json:"id"`
	Cause         error     `json:"-"`
}

func (e *CorruptStateError) Error() string {
	return fmt.Sprintf("corrupt %s record %s: %v", e.AggregateType, e.ID, e.Cause)
}

// Unwrap exposes the underlying validation failure
func (e *CorruptStateError) Unwrap() error { return e.Cause }

// Is matches ErrCorruptState
func (e *CorruptStateError) Is(target error) bool { return target == ErrCorruptState }

// ConflictError is raised by stores when another writer advanced the version first
type ConflictError struct {
	AggregateType   string    `json:"aggregate_type"`
	ID              uuid.UUID `json:"id"`
	ExpectedVersion int       `json:"expected_version"`
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s was modified concurrently (expected version %d)",
		e.AggregateType, e.ID, e.ExpectedVersion)
}

// Is matches ErrConcurrencyConflict
func (e *ConflictError) Is(target error) bool { return target == ErrConcurrencyConflict }
