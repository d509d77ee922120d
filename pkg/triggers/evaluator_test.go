package triggers

import (
	"context"
	"log/slog"
	"testing"

	"github.com/donorpilot/donorpilot/pkg/events"
	"github.com/donorpilot/donorpilot/pkg/models"
	"github.com/donorpilot/donorpilot/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventEvaluatorFansOutToMatchingAutomations(t *testing.T) {
	ctx := context.Background()
	p := file.NewPersistence(t.TempDir())
	launcher := &recordingLauncher{}

	for _, automation := range []*models.Automation{
		{ID: "atm-welcome", Name: "Welcome", TriggerType: models.TriggerSubjectCreated, Status: models.AutomationStatusActive},
		{ID: "atm-welcome-2", Name: "Welcome again", TriggerType: models.TriggerSubjectCreated, Status: models.AutomationStatusActive},
		{ID: "atm-paused", Name: "Paused welcome", TriggerType: models.TriggerSubjectCreated, Status: models.AutomationStatusPaused},
		{ID: "atm-thanks", Name: "Thanks", TriggerType: models.TriggerDonationReceived, Status: models.AutomationStatusActive},
	} {
		require.NoError(t, p.Automations().Save(ctx, automation))
	}

	evaluator := NewEventEvaluator(p.Automations(), launcher, slog.Default())

	require.NoError(t, evaluator.HandleSubjectCreated(ctx, &events.SubjectCreated{SubjectID: "donor-1"}))
	require.Len(t, launcher.launches, 2)
	assert.Equal(t, "atm-welcome", launcher.launches[0].automationID)
	assert.Equal(t, "atm-welcome-2", launcher.launches[1].automationID)

	require.NoError(t, evaluator.HandleDonationReceived(ctx, &events.DonationReceived{
		SubjectID:  "donor-1",
		DonationID: "don-1",
	}))
	require.Len(t, launcher.launches, 3)
	assert.Equal(t, "atm-thanks", launcher.launches[2].automationID)
	assert.Equal(t, "don-1", launcher.launches[2].trigger.DonationID)
}
