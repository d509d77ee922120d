// Package web provides the operator-facing REST API for automations.
package web

import "github.com/donorpilot/donorpilot/pkg/models"

// CreateAutomationRequest represents the request body for creating a new
// automation.
type CreateAutomationRequest struct {
	Name          string              `json:"name"           validate:"required,min=3"`
	Description   string              `json:"description"`
	TriggerType   models.TriggerType  `json:"trigger_type"   validate:"required"`
	TriggerConfig map[string]any      `json:"trigger_config,omitempty"`
	Actions       []models.ActionSpec `json:"actions"        validate:"dive"`
}

// UpdateAutomationRequest represents the request body for updating an
// existing automation. All fields are optional to support partial updates.
type UpdateAutomationRequest struct {
	Name          *string             `json:"name,omitempty"        validate:"omitempty,min=3"`
	Description   *string             `json:"description,omitempty"`
	TriggerType   *models.TriggerType `json:"trigger_type,omitempty"`
	TriggerConfig map[string]any      `json:"trigger_config,omitempty"`
	Actions       []models.ActionSpec `json:"actions,omitempty"     validate:"omitempty,dive"`
}
