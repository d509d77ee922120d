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

// ExecutionRepository handles execution-related database operations.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

const executionColumns = `
	id, automation_id, subject_id, donation_id, status,
	current_action_order, actions_executed, scheduled_for,
	results, error_message, created_at, completed_at
`

func (er *ExecutionRepository) Save(ctx context.Context, execution *models.Execution) error {
	resultsJSON, err := json.Marshal(execution.Results)
	if err != nil {
		return persistence.NewExecutionError("Save", execution.ID, err)
	}

	query := `
		INSERT INTO executions (
			id, automation_id, subject_id, donation_id, status,
			current_action_order, actions_executed, scheduled_for,
			results, error_message, created_at, completed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			current_action_order = EXCLUDED.current_action_order,
			actions_executed = EXCLUDED.actions_executed,
			scheduled_for = EXCLUDED.scheduled_for,
			results = EXCLUDED.results,
			error_message = EXCLUDED.error_message,
			completed_at = EXCLUDED.completed_at
	`

	_, err = er.db.ExecContext(ctx, query,
		execution.ID,
		execution.AutomationID,
		execution.SubjectID,
		nullString(execution.DonationID),
		execution.Status,
		execution.CurrentActionOrder,
		execution.ActionsExecuted,
		execution.ScheduledFor,
		resultsJSON,
		nullString(execution.ErrorMessage),
		execution.CreatedAt,
		execution.CompletedAt,
	)
	if err != nil {
		return persistence.NewExecutionError("Save", execution.ID, err)
	}

	return nil
}

func (er *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.Execution, error) {
	query := "SELECT " + executionColumns + " FROM executions WHERE id = $1"

	execution, err := scanExecution(er.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewExecutionError("GetByID", id, persistence.ErrExecutionNotFound)
		}

		return nil, persistence.NewExecutionError("GetByID", id, err)
	}

	return execution, nil
}

func (er *ExecutionRepository) ListByAutomation(ctx context.Context, automationID string) ([]*models.Execution, error) {
	query := "SELECT " + executionColumns + ` FROM executions
		WHERE automation_id = $1
		ORDER BY created_at DESC`

	rows, err := er.db.QueryContext(ctx, query, automationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanExecutions(rows)
}

func (er *ExecutionRepository) DueWaiting(ctx context.Context, now time.Time) ([]*models.Execution, error) {
	query := "SELECT " + executionColumns + ` FROM executions
		WHERE status = 'waiting' AND scheduled_for <= $1
		ORDER BY scheduled_for`

	rows, err := er.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query due executions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanExecutions(rows)
}

// ClaimWaiting flips waiting to running in a single conditional update.
// When zero rows move the execution was either claimed by another scanner
// pass or never existed, and the follow-up read tells the two apart.
func (er *ExecutionRepository) ClaimWaiting(ctx context.Context, id string) error {
	result, err := er.db.ExecContext(ctx,
		"UPDATE executions SET status = 'running', scheduled_for = NULL WHERE id = $1 AND status = 'waiting'",
		id,
	)
	if err != nil {
		return persistence.NewExecutionError("ClaimWaiting", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewExecutionError("ClaimWaiting", id, err)
	}

	if affected == 0 {
		var exists bool

		err = er.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM executions WHERE id = $1)", id).Scan(&exists)
		if err != nil {
			return persistence.NewExecutionError("ClaimWaiting", id, err)
		}

		if !exists {
			return persistence.NewExecutionError("ClaimWaiting", id, persistence.ErrExecutionNotFound)
		}

		return persistence.NewExecutionError("ClaimWaiting", id, persistence.ErrExecutionConflict)
	}

	return nil
}

func scanExecution(row rowScanner) (*models.Execution, error) {
	var (
		execution    models.Execution
		donationID   sql.NullString
		scheduledFor sql.NullTime
		resultsJSON  []byte
		errorMessage sql.NullString
		completedAt  sql.NullTime
	)

	err := row.Scan(
		&execution.ID,
		&execution.AutomationID,
		&execution.SubjectID,
		&donationID,
		&execution.Status,
		&execution.CurrentActionOrder,
		&execution.ActionsExecuted,
		&scheduledFor,
		&resultsJSON,
		&errorMessage,
		&execution.CreatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	execution.DonationID = donationID.String
	execution.ErrorMessage = errorMessage.String

	if scheduledFor.Valid {
		execution.ScheduledFor = &scheduledFor.Time
	}

	if completedAt.Valid {
		execution.CompletedAt = &completedAt.Time
	}

	if len(resultsJSON) > 0 {
		err = json.Unmarshal(resultsJSON, &execution.Results)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal results: %w", err)
		}
	}

	return &execution, nil
}

func scanExecutions(rows *sql.Rows) ([]*models.Execution, error) {
	executions := make([]*models.Execution, 0)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		executions = append(executions, execution)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate executions: %w", err)
	}

	return executions, nil
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
