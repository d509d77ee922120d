package models

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// JSON schemas for the opaque config blobs, checked at the store boundary.
// Definitions whose config fails the schema are rejected before they can
// reach the execution path.

var actionConfigSchemas = map[ActionType]string{
	ActionSendEmail: `{
		"type": "object",
		"properties": {
			"template_id": {"type": "string"},
			"subject":     {"type": "string", "minLength": 1},
			"body":        {"type": "string", "minLength": 1},
			"from_name":   {"type": "string"}
		},
		"required": ["subject", "body"]
	}`,
	ActionAddTag: `{
		"type": "object",
		"properties": {
			"tag": {"type": "string", "minLength": 1}
		},
		"required": ["tag"]
	}`,
	ActionRemoveTag: `{
		"type": "object",
		"properties": {
			"tag": {"type": "string", "minLength": 1}
		},
		"required": ["tag"]
	}`,
	ActionNotifyTeam: `{
		"type": "object",
		"properties": {
			"message":      {"type": "string", "minLength": 1},
			"notify_owner": {"type": "boolean"}
		},
		"required": ["message"]
	}`,
	ActionWait: `{
		"type": "object",
		"properties": {
			"days":    {"type": "integer", "minimum": 0},
			"hours":   {"type": "integer", "minimum": 0},
			"minutes": {"type": "integer", "minimum": 0}
		}
	}`,
}

var triggerConfigSchemas = map[TriggerType]string{
	TriggerInactiveDonor: `{
		"type": "object",
		"properties": {
			"inactive_days": {"type": "integer", "minimum": 1}
		}
	}`,
	TriggerUpgradeOpportunity: `{
		"type": "object",
		"properties": {
			"min_donations": {"type": "integer", "minimum": 1}
		}
	}`,
}

// ValidateActionConfig checks an action config blob against the schema for
// its type. Types without a schema pass: unknown actions are a
// forward-compatible no-op at execution time.
func ValidateActionConfig(actionType ActionType, config map[string]any) error {
	schema, ok := actionConfigSchemas[actionType]
	if !ok {
		return nil
	}

	return validateAgainstSchema(string(actionType), schema, config)
}

// ValidateTriggerConfig checks a trigger config blob against the schema for
// its type. Trigger types without configurable fields pass.
func ValidateTriggerConfig(triggerType TriggerType, config map[string]any) error {
	schema, ok := triggerConfigSchemas[triggerType]
	if !ok {
		return nil
	}

	return validateAgainstSchema(string(triggerType), schema, config)
}

func validateAgainstSchema(name, schema string, config map[string]any) error {
	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewGoLoader(config),
	)
	if err != nil {
		return fmt.Errorf("failed to validate %s config: %w", name, err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, resultError := range result.Errors() {
			details = append(details, resultError.String())
		}

		return fmt.Errorf("invalid %s config: %s", name, strings.Join(details, "; "))
	}

	return nil
}
