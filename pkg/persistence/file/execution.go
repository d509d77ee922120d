package file

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/donorpilot/donorpilot/pkg/models"
	"github.com/donorpilot/donorpilot/pkg/persistence"
)

// ExecutionRepository stores executions as JSON files. A mutex serializes
// the conditional claim so concurrent scanner passes cannot both win.
type ExecutionRepository struct {
	dir string
	mu  sync.Mutex
}

// NewExecutionRepository creates an execution repository under root.
func NewExecutionRepository(root string) *ExecutionRepository {
	return &ExecutionRepository{dir: filepath.Join(root, "executions")}
}

func (er *ExecutionRepository) Save(_ context.Context, execution *models.Execution) error {
	if err := validateID(execution.ID); err != nil {
		return persistence.NewExecutionError("Save", execution.ID, err)
	}

	toSave := *execution
	if toSave.Results == nil {
		toSave.Results = []models.ActionResult{}
	}

	err := writeRecord(er.dir, execution.ID, &toSave)
	if err != nil {
		return persistence.NewExecutionError("Save", execution.ID, err)
	}

	return nil
}

func (er *ExecutionRepository) GetByID(_ context.Context, id string) (*models.Execution, error) {
	execution := &models.Execution{}

	found, err := readRecord(er.dir, id, execution)
	if err != nil {
		return nil, persistence.NewExecutionError("GetByID", id, err)
	}

	if !found {
		return nil, persistence.NewExecutionError("GetByID", id, persistence.ErrExecutionNotFound)
	}

	return execution, nil
}

func (er *ExecutionRepository) ListByAutomation(ctx context.Context, automationID string) ([]*models.Execution, error) {
	all, err := er.list(ctx)
	if err != nil {
		return nil, err
	}

	matching := make([]*models.Execution, 0)

	for _, execution := range all {
		if execution.AutomationID == automationID {
			matching = append(matching, execution)
		}
	}

	return matching, nil
}

func (er *ExecutionRepository) DueWaiting(ctx context.Context, now time.Time) ([]*models.Execution, error) {
	all, err := er.list(ctx)
	if err != nil {
		return nil, err
	}

	due := make([]*models.Execution, 0)

	for _, execution := range all {
		if execution.Status != models.ExecutionStatusWaiting {
			continue
		}

		if execution.ScheduledFor != nil && !execution.ScheduledFor.After(now) {
			due = append(due, execution)
		}
	}

	return due, nil
}

func (er *ExecutionRepository) ClaimWaiting(ctx context.Context, id string) error {
	er.mu.Lock()
	defer er.mu.Unlock()

	execution, err := er.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if execution.Status != models.ExecutionStatusWaiting {
		return persistence.NewExecutionError("ClaimWaiting", id, persistence.ErrExecutionConflict)
	}

	execution.Status = models.ExecutionStatusRunning

	return er.Save(ctx, execution)
}

func (er *ExecutionRepository) list(_ context.Context) ([]*models.Execution, error) {
	ids, err := listIDs(er.dir)
	if err != nil {
		return nil, err
	}

	executions := make([]*models.Execution, 0, len(ids))

	for _, id := range ids {
		execution := &models.Execution{}

		found, err := readRecord(er.dir, id, execution)
		if err != nil {
			return nil, persistence.NewExecutionError("list", id, err)
		}

		if found {
			executions = append(executions, execution)
		}
	}

	return executions, nil
}
