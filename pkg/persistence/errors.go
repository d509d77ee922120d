// Package persistence provides standardized error types for store operations.
package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrAutomationNotFound indicates an automation was not found by id.
	ErrAutomationNotFound = errors.New("automation not found")

	// ErrExecutionNotFound indicates an execution was not found by id.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrSubjectNotFound indicates a subject was not found by id.
	ErrSubjectNotFound = errors.New("subject not found")

	// ErrExecutionConflict indicates a conditional status update lost:
	// the execution was not in the expected prior status.
	ErrExecutionConflict = errors.New("execution status conflict")
)

// AutomationError wraps automation store errors with operation context.
type AutomationError struct {
	Op           string
	AutomationID string
	Err          error
}

func (e *AutomationError) Error() string {
	return fmt.Sprintf("%s operation failed for automation %s: %v", e.Op, e.AutomationID, e.Err)
}

func (e *AutomationError) Unwrap() error {
	return e.Err
}

func (e *AutomationError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewAutomationError creates an automation store error with context.
func NewAutomationError(op, automationID string, err error) *AutomationError {
	return &AutomationError{Op: op, AutomationID: automationID, Err: err}
}

// ExecutionError wraps execution store errors with operation context.
type ExecutionError struct {
	Op          string
	ExecutionID string
	Err         error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s operation failed for execution %s: %v", e.Op, e.ExecutionID, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func (e *ExecutionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewExecutionError creates an execution store error with context.
func NewExecutionError(op, executionID string, err error) *ExecutionError {
	return &ExecutionError{Op: op, ExecutionID: executionID, Err: err}
}

// IsAutomationNotFound checks if an error indicates a missing automation.
func IsAutomationNotFound(err error) bool {
	return errors.Is(err, ErrAutomationNotFound)
}

// IsExecutionNotFound checks if an error indicates a missing execution.
func IsExecutionNotFound(err error) bool {
	return errors.Is(err, ErrExecutionNotFound)
}

// IsSubjectNotFound checks if an error indicates a missing subject.
func IsSubjectNotFound(err error) bool {
	return errors.Is(err, ErrSubjectNotFound)
}

// IsExecutionConflict checks if an error indicates a lost conditional
// status update.
func IsExecutionConflict(err error) bool {
	return errors.Is(err, ErrExecutionConflict)
}
