package models

import (
	"time"

	"github.com/google/uuid"
)

// ExecutionStatus represents the state of one run of an automation.
// running is the initial state; completed and failed are terminal.
type ExecutionStatus string

const (
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusWaiting   ExecutionStatus = "waiting"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
)

// ActionResult is one entry in an execution's append-only outcome log.
type ActionResult struct {
	ActionID   string     `json:"action_id"`
	ActionType ActionType `json:"action_type"`
	Success    bool       `json:"success"`
	Message    string     `json:"message,omitempty"`
}

// Execution is one run of an automation against one subject. It is a
// persisted continuation: the engine can reconstruct and resume it purely
// from CurrentActionOrder and Status, with no in-memory state surviving a
// restart.
type Execution struct {
	ID           string `json:"id"`
	AutomationID string `json:"automation_id"`
	SubjectID    string `json:"subject_id"`
	DonationID   string `json:"donation_id,omitempty"`

	Status ExecutionStatus `json:"status"`

	// CurrentActionOrder is the order of the last action fully executed,
	// 0 before any action has run. It never decreases.
	CurrentActionOrder int `json:"current_action_order"`
	ActionsExecuted    int `json:"actions_executed"`

	// ScheduledFor is set only while waiting: the earliest time the
	// resumption scanner may pick the execution back up.
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`

	Results      []ActionResult `json:"results"`
	ErrorMessage string         `json:"error_message,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewExecution creates a running execution for the given automation and
// trigger context.
func NewExecution(automationID string, trigger TriggerContext) *Execution {
	return &Execution{
		ID:           "exec-" + uuid.New().String()[:8],
		AutomationID: automationID,
		SubjectID:    trigger.SubjectID,
		DonationID:   trigger.DonationID,
		Status:       ExecutionStatusRunning,
		Results:      []ActionResult{},
		CreatedAt:    time.Now().UTC(),
	}
}

// Terminal reports whether the execution reached a final status. Terminal
// executions are retained for auditing and never picked up again.
func (e *Execution) Terminal() bool {
	return e.Status == ExecutionStatusCompleted || e.Status == ExecutionStatusFailed
}

// RecordResult appends an outcome and advances the cursor to the action's
// order.
func (e *Execution) RecordResult(action ActionSpec, result ActionResult) {
	e.Results = append(e.Results, result)
	e.ActionsExecuted++
	e.CurrentActionOrder = action.Order
}

// Suspend puts the execution into waiting until the given wake time.
func (e *Execution) Suspend(until time.Time) {
	e.Status = ExecutionStatusWaiting
	e.ScheduledFor = &until
}

// Complete marks the execution as completed at the given time.
func (e *Execution) Complete(at time.Time) {
	e.Status = ExecutionStatusCompleted
	e.ScheduledFor = nil
	e.CompletedAt = &at
}

// Fail marks the execution as failed with the given error message.
func (e *Execution) Fail(message string, at time.Time) {
	e.Status = ExecutionStatusFailed
	e.ScheduledFor = nil
	e.ErrorMessage = message
	e.CompletedAt = &at
}
