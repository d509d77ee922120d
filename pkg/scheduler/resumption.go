// Package scheduler hosts the periodic loops: the resumption scanner that
// wakes suspended executions and the trigger scan cadence.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/donorpilot/donorpilot/pkg/models"
	"github.com/donorpilot/donorpilot/pkg/persistence"
)

// ExecutionResumer resumes one claimed execution; implemented by the engine.
type ExecutionResumer interface {
	Resume(ctx context.Context, execution *models.Execution) error
}

// Resumption picks up waiting executions whose wake time has passed.
type Resumption struct {
	persistence persistence.Persistence
	resumer     ExecutionResumer
	logger      *slog.Logger
	now         func() time.Time
}

func NewResumption(p persistence.Persistence, resumer ExecutionResumer, logger *slog.Logger) *Resumption {
	return &Resumption{
		persistence: p,
		resumer:     resumer,
		logger:      logger.With("module", "scheduler"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the scanner's clock.
func (r *Resumption) WithClock(now func() time.Time) *Resumption {
	r.now = now

	return r
}

// RunOnce resumes every due execution it manages to claim. Losing a claim
// is normal when several scanner instances run; losers move on silently.
// Executions of paused automations stay frozen.
func (r *Resumption) RunOnce(ctx context.Context) error {
	due, err := r.persistence.Executions().DueWaiting(ctx, r.now())
	if err != nil {
		return fmt.Errorf("failed to query due executions: %w", err)
	}

	for _, execution := range due {
		automation, err := r.persistence.Automations().GetByID(ctx, execution.AutomationID)
		if err == nil && automation.Status == models.AutomationStatusPaused {
			continue
		}

		err = r.persistence.Executions().ClaimWaiting(ctx, execution.ID)
		if err != nil {
			if persistence.IsExecutionConflict(err) {
				continue
			}

			r.logger.ErrorContext(ctx, "Failed to claim execution",
				"execution_id", execution.ID, "error", err)

			continue
		}

		execution.Status = models.ExecutionStatusRunning

		r.logger.InfoContext(ctx, "Resuming execution",
			"execution_id", execution.ID,
			"automation_id", execution.AutomationID,
		)

		err = r.resumer.Resume(ctx, execution)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to resume execution",
				"execution_id", execution.ID, "error", err)
		}
	}

	return nil
}
