// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")
	ErrExpired         = errors.New("expired")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrRateLimited        = errors.New("rate limited")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "student", "belt", "roster"
	Op      string // Operation that failed, e.g., "Promote", "Import"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Student domain errors
var (
	ErrStudentNotFound    = NewDomainError("student", "Find", ErrNotFound, "student not found")
	ErrInvalidStudentName = NewDomainError("student", "Validate", ErrEmptyValue, "student name is required")
	ErrStudentNameTooLong = NewDomainError("student", "Validate", ErrValueOutOfRange, "student name is too long")
	ErrNegativeStripes    = NewDomainError("student", "Validate", ErrNegativeValue, "stripes cannot be negative")
	ErrNegativePoints     = NewDomainError("student", "Validate", ErrNegativeValue, "points cannot be negative")
	ErrReadinessLocked    = NewDomainError("student", "SetReadiness", ErrStateTransition, "not enough stripes to mark ready for grading")
)

// Belt domain errors
var (
	ErrBeltNotFound      = NewDomainError("belt", "Find", ErrNotFound, "belt not found in ledger")
	ErrEmptyLedger       = NewDomainError("belt", "NewLedger", ErrEmptyValue, "belt ledger must contain at least one belt")
	ErrDuplicateBelt     = NewDomainError("belt", "NewLedger", ErrAlreadyExists, "duplicate belt id in ledger")
	ErrInvalidBeltPolicy = NewDomainError("belt", "ValidatePolicy", ErrValueOutOfRange, "points per stripe and stripes per belt must be positive")
)

// Scoring domain errors
var (
	ErrUnknownSkill        = NewDomainError("scoring", "SetScore", ErrNotFound, "skill is not part of this session")
	ErrStudentNotInSession = NewDomainError("scoring", "SetScore", ErrNotFound, "student is not part of this session")
	ErrEmptySession        = NewDomainError("scoring", "NewSessionDraft", ErrEmptyValue, "session must have at least one skill")
)

// Roster import errors
var (
	ErrImportBatchNotFound  = NewDomainError("roster", "FindBatch", ErrNotFound, "import batch not found or expired")
	ErrImportRowOutOfRange  = NewDomainError("roster", "EditRow", ErrValueOutOfRange, "import row index out of range")
	ErrImportEmpty          = NewDomainError("roster", "Parse", ErrEmptyValue, "import contains no rows")
	ErrImportFileUnreadable = NewDomainError("roster", "Decode", ErrInvalidFormat, "import file could not be read")
)

// External service errors
var (
	ErrTextGenUnavailable = NewDomainError("textgen", "Generate", ErrServiceUnavailable, "text generation service is unavailable")
	ErrTextGenTimeout     = NewDomainError("textgen", "Generate", ErrTimeout, "text generation request timeout")
	ErrTextGenEmpty       = NewDomainError("textgen", "Generate", ErrInvalidFormat, "text generation returned an empty response")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange) ||
		errors.Is(err, ErrInvalidFormat)
}

// IsStateConflict checks if the error is a rejected state transition.
func IsStateConflict(err error) bool {
	return errors.Is(err, ErrInvalidState) || errors.Is(err, ErrStateTransition)
}

// IsExternalService checks if the error is from an external service.
func IsExternalService(err error) bool {
	return errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited)
}
