package engine

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/donorpilot/donorpilot/pkg/models"
	"github.com/donorpilot/donorpilot/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingExecutor records executed actions and can be programmed to fail.
type countingExecutor struct {
	executed []models.ActionSpec
	failOn   string
	fatalOn  string
}

func (c *countingExecutor) Execute(
	_ context.Context,
	_ *models.Automation,
	_ *models.Subject,
	action models.ActionSpec,
) (models.ActionResult, error) {
	if action.ID == c.fatalOn {
		return models.ActionResult{}, errors.New("executor blew up")
	}

	c.executed = append(c.executed, action)

	result := models.ActionResult{ActionID: action.ID, ActionType: action.Type, Success: true}
	if action.ID == c.failOn {
		result.Success = false
		result.Message = "step failed"
	}

	return result, nil
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func setup(t *testing.T) (*file.Persistence, *countingExecutor) {
	t.Helper()

	return file.NewPersistence(t.TempDir()), &countingExecutor{}
}

func saveFixtures(t *testing.T, p *file.Persistence, automation *models.Automation) {
	t.Helper()

	ctx := context.Background()
	require.NoError(t, p.Automations().Save(ctx, automation))
	require.NoError(t, p.Subjects().Save(ctx, &models.Subject{
		ID:     "donor-1",
		Email:  "donor@example.org",
		Status: models.SubjectStatusActive,
	}))
}

func TestEngineRunCompletes(t *testing.T) {
	ctx := context.Background()
	p, executor := setup(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	automation := &models.Automation{
		ID:          "atm-1",
		Name:        "Welcome",
		TriggerType: models.TriggerSubjectCreated,
		Status:      models.AutomationStatusActive,
		Actions: []models.ActionSpec{
			{ID: "a1", Order: 1, Type: models.ActionAddTag, Config: map[string]any{"tag": "new"}},
			{ID: "a2", Order: 2, Type: models.ActionNotifyTeam, Config: map[string]any{"message": "hi"}},
		},
	}
	saveFixtures(t, p, automation)

	engine := New(p, executor, slog.Default(), WithClock(fixedClock(now)))

	execution, err := engine.Run(ctx, "atm-1", models.TriggerContext{SubjectID: "donor-1"})
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Equal(t, 2, execution.ActionsExecuted)
	assert.Len(t, executor.executed, 2)
	require.NotNil(t, execution.CompletedAt)
	assert.Equal(t, now, *execution.CompletedAt)

	stored, err := p.Automations().GetByID(ctx, "atm-1")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.TotalExecutions)
	assert.Equal(t, 1, stored.SuccessfulExecutions)
}

func TestEngineRunRejectsInactive(t *testing.T) {
	ctx := context.Background()
	p, executor := setup(t)

	automation := &models.Automation{
		ID:          "atm-1",
		Name:        "Draft",
		TriggerType: models.TriggerSubjectCreated,
		Status:      models.AutomationStatusDraft,
	}
	saveFixtures(t, p, automation)

	engine := New(p, executor, slog.Default())

	_, err := engine.Run(ctx, "atm-1", models.TriggerContext{SubjectID: "donor-1"})
	assert.ErrorIs(t, err, ErrAutomationNotActive)
	assert.Empty(t, executor.executed)
}

func TestEngineSuspendsOnWaitAndResumes(t *testing.T) {
	ctx := context.Background()
	p, executor := setup(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	automation := &models.Automation{
		ID:          "atm-1",
		Name:        "Thank you flow",
		TriggerType: models.TriggerDonationReceived,
		Status:      models.AutomationStatusActive,
		Actions: []models.ActionSpec{
			{ID: "a1", Order: 1, Type: models.ActionSendEmail, Config: map[string]any{"subject": "Thanks", "body": "..."}},
			{ID: "a2", Order: 2, Type: models.ActionWait, Config: map[string]any{"days": 3}},
			{ID: "a3", Order: 3, Type: models.ActionAddTag, Config: map[string]any{"tag": "thanked"}},
		},
	}
	saveFixtures(t, p, automation)

	engine := New(p, executor, slog.Default(), WithClock(fixedClock(now)))

	execution, err := engine.Run(ctx, "atm-1", models.TriggerContext{SubjectID: "donor-1", DonationID: "don-1"})
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusWaiting, execution.Status)
	assert.Equal(t, 2, execution.CurrentActionOrder)
	require.NotNil(t, execution.ScheduledFor)
	assert.Equal(t, now.Add(72*time.Hour), *execution.ScheduledFor)
	assert.Len(t, executor.executed, 1)

	// Only the claimed execution resumes, continuing after the wait.
	require.NoError(t, p.Executions().ClaimWaiting(ctx, execution.ID))

	claimed, err := p.Executions().GetByID(ctx, execution.ID)
	require.NoError(t, err)
	require.NoError(t, engine.Resume(ctx, claimed))

	assert.Equal(t, models.ExecutionStatusCompleted, claimed.Status)
	assert.Equal(t, 3, claimed.ActionsExecuted)
	require.Len(t, executor.executed, 2)
	assert.Equal(t, "a3", executor.executed[1].ID)
}

func TestEngineZeroDelayWaitIsNoOp(t *testing.T) {
	ctx := context.Background()
	p, executor := setup(t)

	automation := &models.Automation{
		ID:          "atm-1",
		Name:        "No delay",
		TriggerType: models.TriggerSubjectCreated,
		Status:      models.AutomationStatusActive,
		Actions: []models.ActionSpec{
			{ID: "a1", Order: 1, Type: models.ActionWait},
			{ID: "a2", Order: 2, Type: models.ActionAddTag, Config: map[string]any{"tag": "new"}},
		},
	}
	saveFixtures(t, p, automation)

	engine := New(p, executor, slog.Default())

	execution, err := engine.Run(ctx, "atm-1", models.TriggerContext{SubjectID: "donor-1"})
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Equal(t, 2, execution.ActionsExecuted)
}

func TestEngineFatalExecutorErrorFailsExecution(t *testing.T) {
	ctx := context.Background()
	p, executor := setup(t)
	executor.fatalOn = "a2"

	automation := &models.Automation{
		ID:          "atm-1",
		Name:        "Fails midway",
		TriggerType: models.TriggerSubjectCreated,
		Status:      models.AutomationStatusActive,
		Actions: []models.ActionSpec{
			{ID: "a1", Order: 1, Type: models.ActionAddTag, Config: map[string]any{"tag": "new"}},
			{ID: "a2", Order: 2, Type: models.ActionNotifyTeam, Config: map[string]any{"message": "hi"}},
			{ID: "a3", Order: 3, Type: models.ActionAddTag, Config: map[string]any{"tag": "late"}},
		},
	}
	saveFixtures(t, p, automation)

	engine := New(p, executor, slog.Default())

	execution, err := engine.Run(ctx, "atm-1", models.TriggerContext{SubjectID: "donor-1"})
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
	assert.Equal(t, "executor blew up", execution.ErrorMessage)
	// The third action never runs.
	assert.Len(t, executor.executed, 1)

	stored, err := p.Automations().GetByID(ctx, "atm-1")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.FailedExecutions)
}

func TestEngineNonFatalFailureContinues(t *testing.T) {
	ctx := context.Background()
	p, executor := setup(t)
	executor.failOn = "a1"

	automation := &models.Automation{
		ID:          "atm-1",
		Name:        "Soft failure",
		TriggerType: models.TriggerSubjectCreated,
		Status:      models.AutomationStatusActive,
		Actions: []models.ActionSpec{
			{ID: "a1", Order: 1, Type: models.ActionSendEmail, Config: map[string]any{"subject": "Hi", "body": "..."}},
			{ID: "a2", Order: 2, Type: models.ActionAddTag, Config: map[string]any{"tag": "contacted"}},
		},
	}
	saveFixtures(t, p, automation)

	engine := New(p, executor, slog.Default())

	execution, err := engine.Run(ctx, "atm-1", models.TriggerContext{SubjectID: "donor-1"})
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	require.Len(t, execution.Results, 2)
	assert.False(t, execution.Results[0].Success)
	assert.True(t, execution.Results[1].Success)
}

func TestEngineResumeWithPausedAutomationRequeues(t *testing.T) {
	ctx := context.Background()
	p, executor := setup(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	automation := &models.Automation{
		ID:          "atm-1",
		Name:        "Paused flow",
		TriggerType: models.TriggerDonationReceived,
		Status:      models.AutomationStatusActive,
		Actions: []models.ActionSpec{
			{ID: "a1", Order: 1, Type: models.ActionWait, Config: map[string]any{"hours": 1}},
			{ID: "a2", Order: 2, Type: models.ActionAddTag, Config: map[string]any{"tag": "late"}},
		},
	}
	saveFixtures(t, p, automation)

	engine := New(p, executor, slog.Default(), WithClock(fixedClock(now)))

	execution, err := engine.Run(ctx, "atm-1", models.TriggerContext{SubjectID: "donor-1"})
	require.NoError(t, err)
	require.Equal(t, models.ExecutionStatusWaiting, execution.Status)

	automation.Status = models.AutomationStatusPaused
	require.NoError(t, p.Automations().Save(ctx, automation))

	require.NoError(t, p.Executions().ClaimWaiting(ctx, execution.ID))
	claimed, err := p.Executions().GetByID(ctx, execution.ID)
	require.NoError(t, err)

	require.NoError(t, engine.Resume(ctx, claimed))

	assert.Equal(t, models.ExecutionStatusWaiting, claimed.Status)
	assert.Empty(t, executor.executed)
}

func TestEngineResumeMissingAutomationFails(t *testing.T) {
	ctx := context.Background()
	p, executor := setup(t)

	require.NoError(t, p.Subjects().Save(ctx, &models.Subject{ID: "donor-1", Status: models.SubjectStatusActive}))

	execution := models.NewExecution("atm-gone", models.TriggerContext{SubjectID: "donor-1"})
	execution.Suspend(time.Now().UTC().Add(-time.Minute))
	require.NoError(t, p.Executions().Save(ctx, execution))

	engine := New(p, executor, slog.Default())

	require.NoError(t, engine.Resume(ctx, execution))
	assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
	assert.Equal(t, "automation no longer exists", execution.ErrorMessage)
}
