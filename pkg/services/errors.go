// Package services provides the automation lifecycle operations the API
// exposes, with validation at the store boundary.
package services

import (
	"errors"
	"fmt"
)

// Business logic errors. Validation errors map to 400 responses, conflicts
// to 409.
var (
	ErrInvalidRequest         = errors.New("invalid request")
	ErrAutomationNil          = errors.New("automation cannot be nil")
	ErrUnknownTriggerType     = errors.New("unknown trigger type")
	ErrInvalidActionOrder     = errors.New("action orders must be strictly increasing")
	ErrInvalidActionConfig    = errors.New("invalid action config")
	ErrInvalidTriggerConfig   = errors.New("invalid trigger config")
	ErrInvalidStatusTransition = errors.New("invalid status transition")

	ErrAutomationHasWaitingExecutions = errors.New("automation has waiting executions")
)

// ServiceError wraps service-level errors with operation context.
type ServiceError struct {
	Op      string
	Code    string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error should map to HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrAutomationNil) ||
		errors.Is(err, ErrUnknownTriggerType) ||
		errors.Is(err, ErrInvalidActionOrder) ||
		errors.Is(err, ErrInvalidActionConfig) ||
		errors.Is(err, ErrInvalidTriggerConfig)
}

// IsConflictError checks if an error should map to HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrInvalidStatusTransition) ||
		errors.Is(err, ErrAutomationHasWaitingExecutions)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
