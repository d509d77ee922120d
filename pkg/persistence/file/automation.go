package file

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/donorpilot/donorpilot/pkg/models"
	"github.com/donorpilot/donorpilot/pkg/persistence"
)

// AutomationRepository stores automation definitions as JSON files.
type AutomationRepository struct {
	dir string
	mu  sync.Mutex // serializes read-modify-write on counters
}

// NewAutomationRepository creates an automation repository under root.
func NewAutomationRepository(root string) *AutomationRepository {
	return &AutomationRepository{dir: filepath.Join(root, "automations")}
}

func (ar *AutomationRepository) List(_ context.Context) ([]*models.Automation, error) {
	ids, err := listIDs(ar.dir)
	if err != nil {
		return nil, err
	}

	automations := make([]*models.Automation, 0, len(ids))

	for _, id := range ids {
		automation := &models.Automation{}

		found, err := readRecord(ar.dir, id, automation)
		if err != nil {
			return nil, persistence.NewAutomationError("List", id, err)
		}

		if found {
			automations = append(automations, automation)
		}
	}

	return automations, nil
}

func (ar *AutomationRepository) GetByID(_ context.Context, id string) (*models.Automation, error) {
	automation := &models.Automation{}

	found, err := readRecord(ar.dir, id, automation)
	if err != nil {
		return nil, persistence.NewAutomationError("GetByID", id, err)
	}

	if !found {
		return nil, persistence.NewAutomationError("GetByID", id, persistence.ErrAutomationNotFound)
	}

	return automation, nil
}

func (ar *AutomationRepository) Save(_ context.Context, automation *models.Automation) error {
	if err := validateID(automation.ID); err != nil {
		return persistence.NewAutomationError("Save", automation.ID, err)
	}

	err := writeRecord(ar.dir, automation.ID, automation)
	if err != nil {
		return persistence.NewAutomationError("Save", automation.ID, err)
	}

	return nil
}

func (ar *AutomationRepository) Delete(_ context.Context, id string) error {
	if err := validateID(id); err != nil {
		return persistence.NewAutomationError("Delete", id, err)
	}

	err := removeRecord(ar.dir, id)
	if err != nil {
		return persistence.NewAutomationError("Delete", id, err)
	}

	return nil
}

func (ar *AutomationRepository) ActiveByTriggerType(ctx context.Context, triggerType models.TriggerType) ([]*models.Automation, error) {
	all, err := ar.List(ctx)
	if err != nil {
		return nil, err
	}

	matching := make([]*models.Automation, 0)

	for _, automation := range all {
		if automation.Status == models.AutomationStatusActive && automation.TriggerType == triggerType {
			matching = append(matching, automation)
		}
	}

	return matching, nil
}

func (ar *AutomationRepository) IncrementCounters(ctx context.Context, id string, succeeded bool, at time.Time) error {
	ar.mu.Lock()
	defer ar.mu.Unlock()

	automation, err := ar.GetByID(ctx, id)
	if err != nil {
		return err
	}

	automation.TotalExecutions++
	if succeeded {
		automation.SuccessfulExecutions++
	} else {
		automation.FailedExecutions++
	}

	automation.LastExecutedAt = &at
	automation.UpdatedAt = time.Now().UTC()

	return ar.Save(ctx, automation)
}
