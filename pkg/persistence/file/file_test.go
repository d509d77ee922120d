package file

import (
	"context"
	"testing"
	"time"

	"github.com/donorpilot/donorpilot/pkg/models"
	"github.com/donorpilot/donorpilot/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPersistence(t *testing.T) *Persistence {
	t.Helper()

	return NewPersistence(t.TempDir())
}

func TestAutomationRepository_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	p := newTestPersistence(t)

	automation := &models.Automation{
		ID:          "atm-welcome",
		Name:        "Welcome new donors",
		TriggerType: models.TriggerSubjectCreated,
		Status:      models.AutomationStatusActive,
		Actions: []models.ActionSpec{
			{ID: "a1", Order: 1, Type: models.ActionAddTag, Config: map[string]any{"tag": "new"}},
		},
		CreatedAt: time.Now().UTC(),
	}

	require.NoError(t, p.Automations().Save(ctx, automation))

	loaded, err := p.Automations().GetByID(ctx, "atm-welcome")
	require.NoError(t, err)
	assert.Equal(t, "Welcome new donors", loaded.Name)
	require.Len(t, loaded.Actions, 1)
	assert.Equal(t, models.ActionAddTag, loaded.Actions[0].Type)

	_, err = p.Automations().GetByID(ctx, "atm-missing")
	assert.True(t, persistence.IsAutomationNotFound(err))
}

func TestAutomationRepository_ActiveByTriggerType(t *testing.T) {
	ctx := context.Background()
	p := newTestPersistence(t)

	for _, automation := range []*models.Automation{
		{ID: "atm-1", Name: "Birthday wishes", TriggerType: models.TriggerDonorBirthday, Status: models.AutomationStatusActive},
		{ID: "atm-2", Name: "Birthday draft", TriggerType: models.TriggerDonorBirthday, Status: models.AutomationStatusDraft},
		{ID: "atm-3", Name: "Win back", TriggerType: models.TriggerInactiveDonor, Status: models.AutomationStatusActive},
	} {
		require.NoError(t, p.Automations().Save(ctx, automation))
	}

	active, err := p.Automations().ActiveByTriggerType(ctx, models.TriggerDonorBirthday)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "atm-1", active[0].ID)
}

func TestAutomationRepository_IncrementCounters(t *testing.T) {
	ctx := context.Background()
	p := newTestPersistence(t)

	require.NoError(t, p.Automations().Save(ctx, &models.Automation{
		ID: "atm-1", Name: "Counter test", TriggerType: models.TriggerSubjectCreated,
	}))

	now := time.Now().UTC()
	require.NoError(t, p.Automations().IncrementCounters(ctx, "atm-1", true, now))
	require.NoError(t, p.Automations().IncrementCounters(ctx, "atm-1", true, now))
	require.NoError(t, p.Automations().IncrementCounters(ctx, "atm-1", false, now))

	loaded, err := p.Automations().GetByID(ctx, "atm-1")
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.TotalExecutions)
	assert.Equal(t, 2, loaded.SuccessfulExecutions)
	assert.Equal(t, 1, loaded.FailedExecutions)
	assert.Equal(t, loaded.TotalExecutions, loaded.SuccessfulExecutions+loaded.FailedExecutions)
	require.NotNil(t, loaded.LastExecutedAt)
}

func TestExecutionRepository_DueWaiting(t *testing.T) {
	ctx := context.Background()
	p := newTestPersistence(t)
	now := time.Now().UTC()

	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	waitingDue := models.NewExecution("atm-1", models.TriggerContext{SubjectID: "donor-1"})
	waitingDue.Suspend(past)

	waitingNotDue := models.NewExecution("atm-1", models.TriggerContext{SubjectID: "donor-2"})
	waitingNotDue.Suspend(future)

	completed := models.NewExecution("atm-1", models.TriggerContext{SubjectID: "donor-3"})
	completed.Complete(now)

	for _, execution := range []*models.Execution{waitingDue, waitingNotDue, completed} {
		require.NoError(t, p.Executions().Save(ctx, execution))
	}

	due, err := p.Executions().DueWaiting(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, waitingDue.ID, due[0].ID)
}

func TestExecutionRepository_ClaimWaiting(t *testing.T) {
	ctx := context.Background()
	p := newTestPersistence(t)

	execution := models.NewExecution("atm-1", models.TriggerContext{SubjectID: "donor-1"})
	execution.Suspend(time.Now().UTC().Add(-time.Minute))
	require.NoError(t, p.Executions().Save(ctx, execution))

	require.NoError(t, p.Executions().ClaimWaiting(ctx, execution.ID))

	claimed, err := p.Executions().GetByID(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusRunning, claimed.Status)

	// A second claim loses: the execution is no longer waiting.
	err = p.Executions().ClaimWaiting(ctx, execution.ID)
	assert.True(t, persistence.IsExecutionConflict(err))
}

func TestSubjectRepository_ScanQueries(t *testing.T) {
	ctx := context.Background()
	p := newTestPersistence(t)
	now := time.Now().UTC()

	longAgo := now.AddDate(0, -8, 0)
	recently := now.AddDate(0, 0, -3)
	birthday := time.Date(1980, now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	subjects := []*models.Subject{
		{ID: "donor-idle", Status: models.SubjectStatusActive, LastActivityAt: &longAgo},
		{ID: "donor-fresh", Status: models.SubjectStatusActive, LastActivityAt: &recently},
		{ID: "donor-archived", Status: models.SubjectStatusArchived, LastActivityAt: &longAgo},
		{ID: "donor-birthday", Status: models.SubjectStatusActive, BirthDate: &birthday},
		{ID: "donor-upgrade", Status: models.SubjectStatusActive, DonationCount: 4},
		{ID: "donor-recurring", Status: models.SubjectStatusActive, DonationCount: 6, RecurringDonor: true},
	}
	for _, subject := range subjects {
		require.NoError(t, p.Subjects().Save(ctx, subject))
	}

	inactive, err := p.Subjects().InactiveSince(ctx, now.AddDate(0, -6, 0))
	require.NoError(t, err)
	require.Len(t, inactive, 1)
	assert.Equal(t, "donor-idle", inactive[0].ID)

	birthdays, err := p.Subjects().WithBirthdayOn(ctx, now.Month(), now.Day())
	require.NoError(t, err)
	require.Len(t, birthdays, 1)
	assert.Equal(t, "donor-birthday", birthdays[0].ID)

	upgrades, err := p.Subjects().UpgradeCandidates(ctx, 3)
	require.NoError(t, err)
	require.Len(t, upgrades, 1)
	assert.Equal(t, "donor-upgrade", upgrades[0].ID)
}

func TestSubjectRepository_CompletedDonationsOn(t *testing.T) {
	ctx := context.Background()
	p := newTestPersistence(t)
	now := time.Now().UTC()
	lastYear := now.AddDate(-1, 0, 0)

	donations := []*models.Donation{
		{ID: "don-1", SubjectID: "donor-1", Amount: 50, Status: models.DonationStatusCompleted, ReceivedAt: lastYear},
		{ID: "don-2", SubjectID: "donor-2", Amount: 25, Status: models.DonationStatusPending, ReceivedAt: lastYear},
		{ID: "don-3", SubjectID: "donor-3", Amount: 10, Status: models.DonationStatusCompleted, ReceivedAt: lastYear.AddDate(0, 0, -1)},
	}
	for _, donation := range donations {
		require.NoError(t, p.Subjects().SaveDonation(ctx, donation))
	}

	matches, err := p.Subjects().CompletedDonationsOn(ctx, lastYear)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "don-1", matches[0].ID)
}

func TestSubjectRepository_UpdateTagsAndCommunications(t *testing.T) {
	ctx := context.Background()
	p := newTestPersistence(t)

	require.NoError(t, p.Subjects().Save(ctx, &models.Subject{ID: "donor-1", Status: models.SubjectStatusActive}))
	require.NoError(t, p.Subjects().UpdateTags(ctx, "donor-1", []string{"vip"}))

	subject, err := p.Subjects().GetByID(ctx, "donor-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"vip"}, subject.Tags)

	entry := models.CommunicationEntry{
		Channel: models.CommunicationChannelEmail,
		Status:  models.CommunicationStatusSent,
		Subject: "Happy Birthday",
		SentAt:  time.Now().UTC(),
	}
	require.NoError(t, p.Subjects().RecordCommunication(ctx, "donor-1", entry))
	require.NoError(t, p.Subjects().RecordCommunication(ctx, "donor-1", entry))
}
