// Package persistence defines the store contracts the automation engine
// depends on: automation definitions, executions, and the subject store the
// surrounding product owns.
package persistence

import (
	"context"
	"time"

	"github.com/donorpilot/donorpilot/pkg/models"
)

type Persistence interface {
	Automations() AutomationRepository
	Executions() ExecutionRepository
	Subjects() SubjectRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// AutomationRepository stores automation definitions.
type AutomationRepository interface {
	List(ctx context.Context) ([]*models.Automation, error)
	GetByID(ctx context.Context, id string) (*models.Automation, error)
	Save(ctx context.Context, automation *models.Automation) error
	Delete(ctx context.Context, id string) error

	// ActiveByTriggerType returns the active automations with the given
	// trigger type; trigger evaluation never sees draft or paused ones.
	ActiveByTriggerType(ctx context.Context, triggerType models.TriggerType) ([]*models.Automation, error)

	// IncrementCounters atomically moves the execution counters after an
	// execution reaches a terminal status. Counters never decrease.
	IncrementCounters(ctx context.Context, id string, succeeded bool, at time.Time) error
}

// ExecutionRepository stores executions and supports the resumption scan.
type ExecutionRepository interface {
	Save(ctx context.Context, execution *models.Execution) error
	GetByID(ctx context.Context, id string) (*models.Execution, error)
	ListByAutomation(ctx context.Context, automationID string) ([]*models.Execution, error)

	// DueWaiting returns executions with status waiting whose scheduled
	// wake time has passed.
	DueWaiting(ctx context.Context, now time.Time) ([]*models.Execution, error)

	// ClaimWaiting conditionally flips an execution from waiting to
	// running. It returns ErrExecutionConflict when the execution is not
	// in waiting status, which gives the scanner its single-writer
	// guarantee under concurrent or retried scans.
	ClaimWaiting(ctx context.Context, id string) error
}

// SubjectRepository is the engine's narrow view of the subject store. The
// bulk queries back the periodic trigger scans.
type SubjectRepository interface {
	GetByID(ctx context.Context, id string) (*models.Subject, error)
	Save(ctx context.Context, subject *models.Subject) error
	UpdateTags(ctx context.Context, id string, tags []string) error
	RecordCommunication(ctx context.Context, id string, entry models.CommunicationEntry) error
	SaveDonation(ctx context.Context, donation *models.Donation) error

	// InactiveSince returns active subjects whose last activity predates
	// the cutoff.
	InactiveSince(ctx context.Context, cutoff time.Time) ([]*models.Subject, error)

	// WithBirthdayOn returns subjects whose stored birth month/day match.
	WithBirthdayOn(ctx context.Context, month time.Month, day int) ([]*models.Subject, error)

	// CompletedDonationsOn returns completed donations dated on the given
	// calendar day.
	CompletedDonationsOn(ctx context.Context, day time.Time) ([]*models.Donation, error)

	// UpgradeCandidates returns subjects with at least minDonations
	// completed donations and no recurring donation.
	UpgradeCandidates(ctx context.Context, minDonations int) ([]*models.Subject, error)
}
