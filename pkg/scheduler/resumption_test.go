package scheduler

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/donorpilot/donorpilot/pkg/models"
	"github.com/donorpilot/donorpilot/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingResumer struct {
	resumed []*models.Execution
}

func (r *recordingResumer) Resume(_ context.Context, execution *models.Execution) error {
	r.resumed = append(r.resumed, execution)

	return nil
}

func TestResumptionRunOnce(t *testing.T) {
	ctx := context.Background()
	p := file.NewPersistence(t.TempDir())
	resumer := &recordingResumer{}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, p.Automations().Save(ctx, &models.Automation{
		ID:          "atm-1",
		Name:        "Active flow",
		TriggerType: models.TriggerDonationReceived,
		Status:      models.AutomationStatusActive,
	}))

	due := models.NewExecution("atm-1", models.TriggerContext{SubjectID: "donor-1"})
	due.Suspend(now.Add(-time.Minute))

	notDue := models.NewExecution("atm-1", models.TriggerContext{SubjectID: "donor-2"})
	notDue.Suspend(now.Add(time.Hour))

	for _, execution := range []*models.Execution{due, notDue} {
		require.NoError(t, p.Executions().Save(ctx, execution))
	}

	resumption := NewResumption(p, resumer, slog.Default()).
		WithClock(func() time.Time { return now })

	require.NoError(t, resumption.RunOnce(ctx))

	require.Len(t, resumer.resumed, 1)
	assert.Equal(t, due.ID, resumer.resumed[0].ID)
	assert.Equal(t, models.ExecutionStatusRunning, resumer.resumed[0].Status)

	// The claim already moved the execution out of waiting; a second pass
	// finds nothing due.
	require.NoError(t, resumption.RunOnce(ctx))
	assert.Len(t, resumer.resumed, 1)
}

func TestResumptionSkipsPausedAutomations(t *testing.T) {
	ctx := context.Background()
	p := file.NewPersistence(t.TempDir())
	resumer := &recordingResumer{}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, p.Automations().Save(ctx, &models.Automation{
		ID:          "atm-paused",
		Name:        "Paused flow",
		TriggerType: models.TriggerDonationReceived,
		Status:      models.AutomationStatusPaused,
	}))

	frozen := models.NewExecution("atm-paused", models.TriggerContext{SubjectID: "donor-1"})
	frozen.Suspend(now.Add(-time.Hour))
	require.NoError(t, p.Executions().Save(ctx, frozen))

	resumption := NewResumption(p, resumer, slog.Default()).
		WithClock(func() time.Time { return now })

	require.NoError(t, resumption.RunOnce(ctx))
	assert.Empty(t, resumer.resumed)

	// Still waiting, ready to drain once the automation is active again.
	stored, err := p.Executions().GetByID(ctx, frozen.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusWaiting, stored.Status)
}
