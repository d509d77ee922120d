package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/donorpilot/donorpilot/pkg/models"
	"github.com/donorpilot/donorpilot/pkg/persistence"
)

// AutomationRepository handles automation-related database operations.
type AutomationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewAutomationRepository creates a new automation repository.
func NewAutomationRepository(db *sql.DB, logger *slog.Logger) *AutomationRepository {
	return &AutomationRepository{db: db, logger: logger}
}

const automationColumns = `
	id, name, description, trigger_type, trigger_config, actions, status,
	total_executions, successful_executions, failed_executions,
	last_executed_at, created_at, updated_at
`

func (ar *AutomationRepository) List(ctx context.Context) ([]*models.Automation, error) {
	query := "SELECT " + automationColumns + " FROM automations ORDER BY created_at DESC"

	rows, err := ar.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query automations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanAutomations(rows)
}

func (ar *AutomationRepository) GetByID(ctx context.Context, id string) (*models.Automation, error) {
	query := "SELECT " + automationColumns + " FROM automations WHERE id = $1"

	automation, err := scanAutomation(ar.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewAutomationError("GetByID", id, persistence.ErrAutomationNotFound)
		}

		return nil, persistence.NewAutomationError("GetByID", id, err)
	}

	return automation, nil
}

func (ar *AutomationRepository) Save(ctx context.Context, automation *models.Automation) error {
	triggerConfigJSON, err := json.Marshal(automation.TriggerConfig)
	if err != nil {
		return persistence.NewAutomationError("Save", automation.ID, err)
	}

	actionsJSON, err := json.Marshal(automation.Actions)
	if err != nil {
		return persistence.NewAutomationError("Save", automation.ID, err)
	}

	query := `
		INSERT INTO automations (
			id, name, description, trigger_type, trigger_config, actions, status,
			total_executions, successful_executions, failed_executions,
			last_executed_at, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			trigger_type = EXCLUDED.trigger_type,
			trigger_config = EXCLUDED.trigger_config,
			actions = EXCLUDED.actions,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
	`

	_, err = ar.db.ExecContext(ctx, query,
		automation.ID,
		automation.Name,
		automation.Description,
		automation.TriggerType,
		triggerConfigJSON,
		actionsJSON,
		automation.Status,
		automation.TotalExecutions,
		automation.SuccessfulExecutions,
		automation.FailedExecutions,
		automation.LastExecutedAt,
		automation.CreatedAt,
		automation.UpdatedAt,
	)
	if err != nil {
		return persistence.NewAutomationError("Save", automation.ID, err)
	}

	return nil
}

func (ar *AutomationRepository) Delete(ctx context.Context, id string) error {
	_, err := ar.db.ExecContext(ctx, "DELETE FROM automations WHERE id = $1", id)
	if err != nil {
		return persistence.NewAutomationError("Delete", id, err)
	}

	return nil
}

func (ar *AutomationRepository) ActiveByTriggerType(ctx context.Context, triggerType models.TriggerType) ([]*models.Automation, error) {
	query := "SELECT " + automationColumns + ` FROM automations
		WHERE status = 'active' AND trigger_type = $1
		ORDER BY created_at`

	rows, err := ar.db.QueryContext(ctx, query, triggerType)
	if err != nil {
		return nil, fmt.Errorf("failed to query active automations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanAutomations(rows)
}

// IncrementCounters is a single-row atomic update: counters only move
// forward, one increment per terminal execution.
func (ar *AutomationRepository) IncrementCounters(ctx context.Context, id string, succeeded bool, at time.Time) error {
	query := `
		UPDATE automations SET
			total_executions = total_executions + 1,
			successful_executions = successful_executions + CASE WHEN $2 THEN 1 ELSE 0 END,
			failed_executions = failed_executions + CASE WHEN $2 THEN 0 ELSE 1 END,
			last_executed_at = $3,
			updated_at = NOW()
		WHERE id = $1
	`

	result, err := ar.db.ExecContext(ctx, query, id, succeeded, at)
	if err != nil {
		return persistence.NewAutomationError("IncrementCounters", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewAutomationError("IncrementCounters", id, err)
	}

	if affected == 0 {
		return persistence.NewAutomationError("IncrementCounters", id, persistence.ErrAutomationNotFound)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAutomation(row rowScanner) (*models.Automation, error) {
	var (
		automation        models.Automation
		triggerConfigJSON []byte
		actionsJSON       []byte
		lastExecutedAt    sql.NullTime
	)

	err := row.Scan(
		&automation.ID,
		&automation.Name,
		&automation.Description,
		&automation.TriggerType,
		&triggerConfigJSON,
		&actionsJSON,
		&automation.Status,
		&automation.TotalExecutions,
		&automation.SuccessfulExecutions,
		&automation.FailedExecutions,
		&lastExecutedAt,
		&automation.CreatedAt,
		&automation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(triggerConfigJSON) > 0 {
		err = json.Unmarshal(triggerConfigJSON, &automation.TriggerConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal trigger config: %w", err)
		}
	}

	if len(actionsJSON) > 0 {
		err = json.Unmarshal(actionsJSON, &automation.Actions)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal actions: %w", err)
		}
	}

	if lastExecutedAt.Valid {
		automation.LastExecutedAt = &lastExecutedAt.Time
	}

	return &automation, nil
}

func scanAutomations(rows *sql.Rows) ([]*models.Automation, error) {
	automations := make([]*models.Automation, 0)

	for rows.Next() {
		automation, err := scanAutomation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan automation: %w", err)
		}

		automations = append(automations, automation)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate automations: %w", err)
	}

	return automations, nil
}
