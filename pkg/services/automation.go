package services

import (
	"context"
	"fmt"
	"time"

	"github.com/donorpilot/donorpilot/pkg/models"
	"github.com/donorpilot/donorpilot/pkg/persistence"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ErrAutomationNotFound is returned when an automation is not found.
var ErrAutomationNotFound = persistence.ErrAutomationNotFound

// Automation implements the operator-facing lifecycle of automation
// definitions: create, update, activate, pause, delete.
type Automation struct {
	persistence persistence.Persistence
	validate    *validator.Validate
}

// NewAutomation creates a new automation service.
func NewAutomation(p persistence.Persistence) *Automation {
	return &Automation{
		persistence: p,
		validate:    validator.New(),
	}
}

// HealthCheck checks the health of the persistence layer.
func (s *Automation) HealthCheck(ctx context.Context) (string, bool) {
	if s.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := s.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// List returns all automations.
func (s *Automation) List(ctx context.Context) ([]*models.Automation, error) {
	automations, err := s.persistence.Automations().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list automations: %w", err)
	}

	return automations, nil
}

// FetchByID retrieves an automation by its ID.
func (s *Automation) FetchByID(ctx context.Context, id string) (*models.Automation, error) {
	return s.persistence.Automations().GetByID(ctx, id)
}

// Create validates and stores a new automation. New automations start as
// drafts unless the caller sets a status explicitly.
func (s *Automation) Create(ctx context.Context, automation *models.Automation) (*models.Automation, error) {
	if automation == nil {
		return nil, ErrAutomationNil
	}

	now := time.Now().UTC()
	automation.ID = "atm-" + uuid.New().String()[:8]
	automation.CreatedAt = now
	automation.UpdatedAt = now

	if automation.Status == "" {
		automation.Status = models.AutomationStatusDraft
	}

	err := s.validateDefinition(automation)
	if err != nil {
		return nil, err
	}

	err = s.persistence.Automations().Save(ctx, automation)
	if err != nil {
		return nil, fmt.Errorf("failed to create automation: %w", err)
	}

	return automation, nil
}

// Update modifies an existing automation. Counters and creation time are
// carried over from the stored record, never taken from the caller.
func (s *Automation) Update(ctx context.Context, id string, automation *models.Automation) (*models.Automation, error) {
	if automation == nil {
		return nil, ErrAutomationNil
	}

	existing, err := s.persistence.Automations().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	automation.ID = id
	automation.Status = existing.Status
	automation.TotalExecutions = existing.TotalExecutions
	automation.SuccessfulExecutions = existing.SuccessfulExecutions
	automation.FailedExecutions = existing.FailedExecutions
	automation.LastExecutedAt = existing.LastExecutedAt
	automation.CreatedAt = existing.CreatedAt
	automation.UpdatedAt = time.Now().UTC()

	err = s.validateDefinition(automation)
	if err != nil {
		return nil, err
	}

	err = s.persistence.Automations().Save(ctx, automation)
	if err != nil {
		return nil, fmt.Errorf("failed to update automation: %w", err)
	}

	return automation, nil
}

// Activate moves an automation to active, making it visible to trigger
// evaluation.
func (s *Automation) Activate(ctx context.Context, id string) (*models.Automation, error) {
	return s.transition(ctx, id, models.AutomationStatusActive)
}

// Pause stops new triggering and freezes the automation's waiting
// executions until it is activated again.
func (s *Automation) Pause(ctx context.Context, id string) (*models.Automation, error) {
	return s.transition(ctx, id, models.AutomationStatusPaused)
}

func (s *Automation) transition(ctx context.Context, id string, target models.AutomationStatus) (*models.Automation, error) {
	automation, err := s.persistence.Automations().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if automation.Status == target {
		return automation, nil
	}

	// Pause only makes sense for an active automation; drafts have nothing
	// to freeze.
	if target == models.AutomationStatusPaused && automation.Status != models.AutomationStatusActive {
		return nil, NewValidationError(
			"transition",
			"INVALID_STATUS_TRANSITION",
			fmt.Sprintf("cannot pause automation in status %s", automation.Status),
			ErrInvalidStatusTransition,
		)
	}

	automation.Status = target
	automation.UpdatedAt = time.Now().UTC()

	err = s.persistence.Automations().Save(ctx, automation)
	if err != nil {
		return nil, fmt.Errorf("failed to update automation status: %w", err)
	}

	return automation, nil
}

// Delete removes an automation. Deletion is refused while executions are
// suspended on it; completing or failing them first keeps the audit trail
// consistent.
func (s *Automation) Delete(ctx context.Context, id string) error {
	_, err := s.persistence.Automations().GetByID(ctx, id)
	if err != nil {
		return err
	}

	executions, err := s.persistence.Executions().ListByAutomation(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to list executions: %w", err)
	}

	for _, execution := range executions {
		if execution.Status == models.ExecutionStatusWaiting || execution.Status == models.ExecutionStatusRunning {
			return NewValidationError(
				"Delete",
				"AUTOMATION_IN_FLIGHT",
				fmt.Sprintf("execution %s is still %s", execution.ID, execution.Status),
				ErrAutomationHasWaitingExecutions,
			)
		}
	}

	err = s.persistence.Automations().Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete automation: %w", err)
	}

	return nil
}

// ListExecutions returns the executions of one automation.
func (s *Automation) ListExecutions(ctx context.Context, id string) ([]*models.Execution, error) {
	_, err := s.persistence.Automations().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	executions, err := s.persistence.Executions().ListByAutomation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	return executions, nil
}

// validateDefinition runs struct validation, action order checks and the
// per-type config schemas.
func (s *Automation) validateDefinition(automation *models.Automation) error {
	err := s.validate.Struct(automation)
	if err != nil {
		return NewValidationError("validateDefinition", "INVALID_AUTOMATION", err.Error(), ErrInvalidRequest)
	}

	if !automation.TriggerType.Known() {
		return NewValidationError(
			"validateDefinition",
			"UNKNOWN_TRIGGER_TYPE",
			fmt.Sprintf("unknown trigger type %q", automation.TriggerType),
			ErrUnknownTriggerType,
		)
	}

	err = automation.ValidateActionOrder()
	if err != nil {
		return NewValidationError("validateDefinition", "INVALID_ACTION_ORDER", err.Error(), ErrInvalidActionOrder)
	}

	err = models.ValidateTriggerConfig(automation.TriggerType, automation.TriggerConfig)
	if err != nil {
		return NewValidationError("validateDefinition", "INVALID_TRIGGER_CONFIG", err.Error(), ErrInvalidTriggerConfig)
	}

	for _, action := range automation.Actions {
		err = models.ValidateActionConfig(action.Type, action.Config)
		if err != nil {
			return NewValidationError(
				"validateDefinition",
				"INVALID_ACTION_CONFIG",
				fmt.Sprintf("action %s: %v", action.ID, err),
				ErrInvalidActionConfig,
			)
		}
	}

	return nil
}
