// Package events defines the event types exchanged between the API, the
// trigger evaluators and the worker over the event bus.
package events

import (
	"time"

	"github.com/donorpilot/donorpilot/pkg/models"
)

type EventType string

// Topic is the single bus topic all automation events flow through.
const Topic = "donorpilot.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// CRM-side facts the event evaluator reacts to.
	SubjectCreatedEvent   EventType = "subject.created"
	DonationReceivedEvent EventType = "donation.received"

	// Automation lifecycle events.
	AutomationTriggeredEvent EventType = "automation.triggered"
	ExecutionCompletedEvent  EventType = "execution.completed"
	ExecutionFailedEvent     EventType = "execution.failed"

	// Outbound side effects raised by actions.
	EmailRequestedEvent     EventType = "email.requested"
	NotificationRaisedEvent EventType = "notification.raised"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// SubjectCreated announces a new subject record in the CRM.
type SubjectCreated struct {
	BaseEvent

	SubjectID string `json:"subject_id"`
}

func (s SubjectCreated) GetType() EventType {
	return SubjectCreatedEvent
}

// DonationReceived announces a settled donation.
type DonationReceived struct {
	BaseEvent

	SubjectID  string  `json:"subject_id"`
	DonationID string  `json:"donation_id"`
	Amount     float64 `json:"amount"`
}

func (d DonationReceived) GetType() EventType {
	return DonationReceivedEvent
}

// AutomationTriggered asks a worker to start an execution of the given
// automation for the given trigger context.
type AutomationTriggered struct {
	BaseEvent

	AutomationID string                `json:"automation_id"`
	Trigger      models.TriggerContext `json:"trigger"`
}

func (a AutomationTriggered) GetType() EventType {
	return AutomationTriggeredEvent
}

type ExecutionCompleted struct {
	BaseEvent

	AutomationID    string        `json:"automation_id"`
	ExecutionID     string        `json:"execution_id"`
	SubjectID       string        `json:"subject_id"`
	ActionsExecuted int           `json:"actions_executed"`
	Duration        time.Duration `json:"duration"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

type ExecutionFailed struct {
	BaseEvent

	AutomationID string `json:"automation_id"`
	ExecutionID  string `json:"execution_id"`
	SubjectID    string `json:"subject_id"`
	Error        string `json:"error"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}

// EmailRequested carries a fully rendered email for a downstream sender.
type EmailRequested struct {
	BaseEvent

	SubjectID    string `json:"subject_id"`
	AutomationID string `json:"automation_id,omitempty"`
	To           string `json:"to"`
	FromName     string `json:"from_name,omitempty"`
	EmailSubject string `json:"email_subject"`
	Body         string `json:"body"`
}

func (e EmailRequested) GetType() EventType {
	return EmailRequestedEvent
}

// NotificationRaised carries an internal team notification.
type NotificationRaised struct {
	BaseEvent

	SubjectID    string `json:"subject_id,omitempty"`
	AutomationID string `json:"automation_id,omitempty"`
	Message      string `json:"message"`
}

func (n NotificationRaised) GetType() EventType {
	return NotificationRaisedEvent
}
