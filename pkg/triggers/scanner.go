package triggers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/donorpilot/donorpilot/pkg/dedup"
	"github.com/donorpilot/donorpilot/pkg/models"
	"github.com/donorpilot/donorpilot/pkg/persistence"
)

// Scanner evaluates the condition-based triggers against the subject store.
// One RunOnce pass covers every active condition-based automation; the
// scheduler decides the cadence.
type Scanner struct {
	persistence persistence.Persistence
	guard       dedup.Guard
	launcher    Launcher
	logger      *slog.Logger
	now         func() time.Time
}

func NewScanner(p persistence.Persistence, guard dedup.Guard, launcher Launcher, logger *slog.Logger) *Scanner {
	return &Scanner{
		persistence: p,
		guard:       guard,
		launcher:    launcher,
		logger:      logger.With("module", "triggers"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the scanner's clock.
func (s *Scanner) WithClock(now func() time.Time) *Scanner {
	s.now = now

	return s
}

// RunOnce evaluates every condition-based trigger type. A definition with
// an undecodable config is logged and skipped, never fatal for the scan.
func (s *Scanner) RunOnce(ctx context.Context) error {
	for _, triggerType := range models.ConditionTriggerTypes() {
		automations, err := s.persistence.Automations().ActiveByTriggerType(ctx, triggerType)
		if err != nil {
			return fmt.Errorf("failed to list automations for %s: %w", triggerType, err)
		}

		for _, automation := range automations {
			err = s.evaluate(ctx, automation)
			if err != nil {
				s.logger.ErrorContext(ctx, "Trigger scan failed for automation",
					"automation_id", automation.ID,
					"trigger_type", automation.TriggerType,
					"error", err,
				)
			}
		}
	}

	return nil
}

func (s *Scanner) evaluate(ctx context.Context, automation *models.Automation) error {
	switch automation.TriggerType {
	case models.TriggerInactiveDonor:
		return s.evaluateInactive(ctx, automation)
	case models.TriggerDonationAnniversary:
		return s.evaluateAnniversary(ctx, automation)
	case models.TriggerDonorBirthday:
		return s.evaluateBirthday(ctx, automation)
	case models.TriggerUpgradeOpportunity:
		return s.evaluateUpgrade(ctx, automation)
	default:
		return nil
	}
}

func (s *Scanner) evaluateInactive(ctx context.Context, automation *models.Automation) error {
	var config models.InactiveDonorConfig

	err := models.DecodeConfig(automation.TriggerConfig, &config)
	if err != nil {
		s.logger.WarnContext(ctx, "Skipping automation with undecodable trigger config",
			"automation_id", automation.ID, "error", err)

		return nil
	}

	config.ApplyDefaults()
	cutoff := s.now().AddDate(0, 0, -config.InactiveDays)

	subjects, err := s.persistence.Subjects().InactiveSince(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to query inactive subjects: %w", err)
	}

	for _, subject := range subjects {
		err = s.launchOnce(ctx, automation, models.TriggerContext{SubjectID: subject.ID})
		if err != nil {
			return err
		}
	}

	return nil
}

func (s *Scanner) evaluateAnniversary(ctx context.Context, automation *models.Automation) error {
	oneYearAgo := s.now().AddDate(-1, 0, 0)

	donations, err := s.persistence.Subjects().CompletedDonationsOn(ctx, oneYearAgo)
	if err != nil {
		return fmt.Errorf("failed to query anniversary donations: %w", err)
	}

	for _, donation := range donations {
		err = s.launch(ctx, automation, models.TriggerContext{
			SubjectID:  donation.SubjectID,
			DonationID: donation.ID,
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func (s *Scanner) evaluateBirthday(ctx context.Context, automation *models.Automation) error {
	today := s.now()

	subjects, err := s.persistence.Subjects().WithBirthdayOn(ctx, today.Month(), today.Day())
	if err != nil {
		return fmt.Errorf("failed to query birthday subjects: %w", err)
	}

	for _, subject := range subjects {
		err = s.launch(ctx, automation, models.TriggerContext{SubjectID: subject.ID})
		if err != nil {
			return err
		}
	}

	return nil
}

func (s *Scanner) evaluateUpgrade(ctx context.Context, automation *models.Automation) error {
	var config models.UpgradeOpportunityConfig

	err := models.DecodeConfig(automation.TriggerConfig, &config)
	if err != nil {
		s.logger.WarnContext(ctx, "Skipping automation with undecodable trigger config",
			"automation_id", automation.ID, "error", err)

		return nil
	}

	config.ApplyDefaults()

	subjects, err := s.persistence.Subjects().UpgradeCandidates(ctx, config.MinDonations)
	if err != nil {
		return fmt.Errorf("failed to query upgrade candidates: %w", err)
	}

	for _, subject := range subjects {
		err = s.launchOnce(ctx, automation, models.TriggerContext{SubjectID: subject.ID})
		if err != nil {
			return err
		}
	}

	return nil
}

// launchOnce fires at most once per automation/subject pair. Inactive and
// upgrade conditions hold across scans, so firing is gated by the dedup
// guard. Marking after launching accepts an at-least-once risk.
func (s *Scanner) launchOnce(ctx context.Context, automation *models.Automation, trigger models.TriggerContext) error {
	processed, err := s.guard.IsProcessed(ctx, automation.ID, trigger.SubjectID)
	if err != nil {
		return fmt.Errorf("failed to check dedup marker: %w", err)
	}

	if processed {
		return nil
	}

	err = s.launch(ctx, automation, trigger)
	if err != nil {
		return err
	}

	err = s.guard.MarkProcessed(ctx, automation.ID, trigger.SubjectID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to mark subject as processed",
			"automation_id", automation.ID,
			"subject_id", trigger.SubjectID,
			"error", err,
		)
	}

	return nil
}

func (s *Scanner) launch(ctx context.Context, automation *models.Automation, trigger models.TriggerContext) error {
	s.logger.InfoContext(ctx, "Automation triggered",
		"automation_id", automation.ID,
		"trigger_type", automation.TriggerType,
		"subject_id", trigger.SubjectID,
	)

	err := s.launcher.Launch(ctx, automation, trigger)
	if err != nil {
		return fmt.Errorf("failed to launch automation %s: %w", automation.ID, err)
	}

	return nil
}
