package triggers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/donorpilot/donorpilot/pkg/events"
	"github.com/donorpilot/donorpilot/pkg/models"
	"github.com/donorpilot/donorpilot/pkg/persistence"
)

// EventEvaluator fans CRM events out to the active automations with the
// matching trigger type. Event-driven triggers fire once per real
// occurrence, so there is no dedup here.
type EventEvaluator struct {
	automations persistence.AutomationRepository
	launcher    Launcher
	logger      *slog.Logger
}

func NewEventEvaluator(automations persistence.AutomationRepository, launcher Launcher, logger *slog.Logger) *EventEvaluator {
	return &EventEvaluator{
		automations: automations,
		launcher:    launcher,
		logger:      logger.With("module", "triggers"),
	}
}

// HandleSubjectCreated fires subject.created automations for the new subject.
func (e *EventEvaluator) HandleSubjectCreated(ctx context.Context, event *events.SubjectCreated) error {
	return e.fanOut(ctx, models.TriggerSubjectCreated, models.TriggerContext{
		SubjectID: event.SubjectID,
	})
}

// HandleDonationReceived fires donation.received automations for the donor.
func (e *EventEvaluator) HandleDonationReceived(ctx context.Context, event *events.DonationReceived) error {
	return e.fanOut(ctx, models.TriggerDonationReceived, models.TriggerContext{
		SubjectID:  event.SubjectID,
		DonationID: event.DonationID,
	})
}

func (e *EventEvaluator) fanOut(ctx context.Context, triggerType models.TriggerType, trigger models.TriggerContext) error {
	automations, err := e.automations.ActiveByTriggerType(ctx, triggerType)
	if err != nil {
		return fmt.Errorf("failed to list automations for %s: %w", triggerType, err)
	}

	for _, automation := range automations {
		e.logger.InfoContext(ctx, "Automation triggered",
			"automation_id", automation.ID,
			"trigger_type", triggerType,
			"subject_id", trigger.SubjectID,
		)

		err = e.launcher.Launch(ctx, automation, trigger)
		if err != nil {
			return fmt.Errorf("failed to launch automation %s: %w", automation.ID, err)
		}
	}

	return nil
}
