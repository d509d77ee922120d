// Package models defines the core domain models for donor automation workflows.
package models

import (
	"errors"
	"sort"
	"time"
)

// AutomationStatus represents the lifecycle state of an automation.
type AutomationStatus string

const (
	AutomationStatusDraft  AutomationStatus = "draft"  // Editable, never triggered
	AutomationStatusActive AutomationStatus = "active" // Evaluated by trigger scans and events
	AutomationStatusPaused AutomationStatus = "paused" // No new triggering, waiting executions frozen
)

// TriggerType identifies what causes an automation to fire. Event-driven
// types fire synchronously once per real occurrence; condition-based types
// are evaluated by the periodic scan.
type TriggerType string

const (
	TriggerSubjectCreated   TriggerType = "subject.created"
	TriggerDonationReceived TriggerType = "donation.received"

	TriggerInactiveDonor       TriggerType = "donor.inactive"
	TriggerDonationAnniversary TriggerType = "donation.anniversary"
	TriggerDonorBirthday       TriggerType = "donor.birthday"
	TriggerUpgradeOpportunity  TriggerType = "donor.upgrade_opportunity"
)

// ConditionBased reports whether the trigger is evaluated by the periodic
// scan rather than by a domain event.
func (t TriggerType) ConditionBased() bool {
	switch t {
	case TriggerInactiveDonor, TriggerDonationAnniversary, TriggerDonorBirthday, TriggerUpgradeOpportunity:
		return true
	case TriggerSubjectCreated, TriggerDonationReceived:
		return false
	}

	return false
}

// Known reports whether the trigger type belongs to the supported set.
func (t TriggerType) Known() bool {
	switch t {
	case TriggerSubjectCreated, TriggerDonationReceived,
		TriggerInactiveDonor, TriggerDonationAnniversary,
		TriggerDonorBirthday, TriggerUpgradeOpportunity:
		return true
	}

	return false
}

// ConditionTriggerTypes lists the trigger types the periodic scan evaluates.
func ConditionTriggerTypes() []TriggerType {
	return []TriggerType{
		TriggerInactiveDonor,
		TriggerDonationAnniversary,
		TriggerDonorBirthday,
		TriggerUpgradeOpportunity,
	}
}

// Automation is the persisted configuration of one workflow: a trigger, an
// ordered action sequence, a lifecycle status and running counters.
type Automation struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"           validate:"required,min=3"`
	Description   string           `json:"description"`
	TriggerType   TriggerType      `json:"trigger_type"   validate:"required"`
	TriggerConfig map[string]any   `json:"trigger_config,omitempty"`
	Actions       []ActionSpec     `json:"actions"        validate:"dive"`
	Status        AutomationStatus `json:"status"`

	// Counters are a derived read model, moved only by atomic store
	// increments when an execution reaches a terminal status.
	TotalExecutions      int        `json:"total_executions"`
	SuccessfulExecutions int        `json:"successful_executions"`
	FailedExecutions     int        `json:"failed_executions"`
	LastExecutedAt       *time.Time `json:"last_executed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var ErrActionOrderNotIncreasing = errors.New("action orders must be strictly increasing")

// SortedActions returns the actions in ascending order. Order values are
// 1-based and strictly increasing but not necessarily contiguous.
func (a *Automation) SortedActions() []ActionSpec {
	actions := make([]ActionSpec, len(a.Actions))
	copy(actions, a.Actions)

	sort.Slice(actions, func(i, j int) bool {
		return actions[i].Order < actions[j].Order
	})

	return actions
}

// ActionsAfter returns the actions whose order is strictly greater than the
// cursor, in ascending order. A cursor of 0 yields the whole sequence.
func (a *Automation) ActionsAfter(cursor int) []ActionSpec {
	remaining := make([]ActionSpec, 0, len(a.Actions))

	for _, action := range a.SortedActions() {
		if action.Order > cursor {
			remaining = append(remaining, action)
		}
	}

	return remaining
}

// ValidateActionOrder checks that the action sequence uses positive,
// strictly increasing order values. Gaps are legal.
func (a *Automation) ValidateActionOrder() error {
	previous := 0

	for _, action := range a.SortedActions() {
		if action.Order <= previous {
			return ErrActionOrderNotIncreasing
		}

		previous = action.Order
	}

	return nil
}
