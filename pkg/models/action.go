package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// ActionType identifies one step kind in an automation's action sequence.
// The set is closed: the action executor and the engine switch over it
// exhaustively, and unknown values degrade to a forward-compatible no-op.
type ActionType string

const (
	ActionSendEmail  ActionType = "send_email"
	ActionAddTag     ActionType = "add_tag"
	ActionRemoveTag  ActionType = "remove_tag"
	ActionNotifyTeam ActionType = "notify_team"
	ActionWait       ActionType = "wait"
)

// ActionSpec is one step in an automation. Specs are immutable once an
// execution references them; the engine identifies progress by Order.
type ActionSpec struct {
	ID     string         `json:"id"`
	Order  int            `json:"order" validate:"required,min=1"`
	Type   ActionType     `json:"type"  validate:"required"`
	Config map[string]any `json:"config,omitempty"`
}

// DecodeConfig decodes an opaque config blob into a typed per-variant
// struct. Configs travel as JSON-ish maps through the store boundary, so a
// JSON round trip is the defensive way to coerce them.
func DecodeConfig(config map[string]any, out any) error {
	data, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to encode action config: %w", err)
	}

	err = json.Unmarshal(data, out)
	if err != nil {
		return fmt.Errorf("failed to decode action config: %w", err)
	}

	return nil
}

// EmailConfig configures a send_email action.
type EmailConfig struct {
	TemplateID string `json:"template_id,omitempty"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
	FromName   string `json:"from_name,omitempty"`
}

// TagConfig configures add_tag and remove_tag actions.
type TagConfig struct {
	Tag string `json:"tag"`
}

// NotifyConfig configures a notify_team action.
type NotifyConfig struct {
	Message     string `json:"message"`
	NotifyOwner bool   `json:"notify_owner,omitempty"`
}

// WaitConfig configures a wait action. The three fields are summed into a
// single delay.
type WaitConfig struct {
	Days    int `json:"days,omitempty"`
	Hours   int `json:"hours,omitempty"`
	Minutes int `json:"minutes,omitempty"`
}

// Delay returns the total suspension duration.
func (w WaitConfig) Delay() time.Duration {
	seconds := w.Days*86400 + w.Hours*3600 + w.Minutes*60

	return time.Duration(seconds) * time.Second
}
