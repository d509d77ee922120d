package file

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/donorpilot/donorpilot/pkg/models"
	"github.com/donorpilot/donorpilot/pkg/persistence"
)

// SubjectRepository stores subjects, their donations and communication log
// as JSON files. The scan queries load everything and filter in memory,
// which is fine at file-store scale.
type SubjectRepository struct {
	subjectsDir  string
	donationsDir string
	commsDir     string
	mu           sync.Mutex // serializes tag and communication updates
}

// NewSubjectRepository creates a subject repository under root.
func NewSubjectRepository(root string) *SubjectRepository {
	return &SubjectRepository{
		subjectsDir:  filepath.Join(root, "subjects"),
		donationsDir: filepath.Join(root, "donations"),
		commsDir:     filepath.Join(root, "communications"),
	}
}

func (sr *SubjectRepository) GetByID(_ context.Context, id string) (*models.Subject, error) {
	subject := &models.Subject{}

	found, err := readRecord(sr.subjectsDir, id, subject)
	if err != nil {
		return nil, fmt.Errorf("failed to load subject %s: %w", id, err)
	}

	if !found {
		return nil, fmt.Errorf("subject %s: %w", id, persistence.ErrSubjectNotFound)
	}

	return subject, nil
}

func (sr *SubjectRepository) Save(_ context.Context, subject *models.Subject) error {
	if err := validateID(subject.ID); err != nil {
		return fmt.Errorf("invalid subject id: %w", err)
	}

	toSave := *subject
	if toSave.Tags == nil {
		toSave.Tags = []string{}
	}

	return writeRecord(sr.subjectsDir, subject.ID, &toSave)
}

func (sr *SubjectRepository) UpdateTags(ctx context.Context, id string, tags []string) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	subject, err := sr.GetByID(ctx, id)
	if err != nil {
		return err
	}

	subject.Tags = tags

	return sr.Save(ctx, subject)
}

func (sr *SubjectRepository) RecordCommunication(ctx context.Context, id string, entry models.CommunicationEntry) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	// Communications are keyed by subject: one file holding the log.
	log := make([]models.CommunicationEntry, 0)

	_, err := readRecord(sr.commsDir, id, &log)
	if err != nil {
		return fmt.Errorf("failed to load communications for subject %s: %w", id, err)
	}

	log = append(log, entry)

	return writeRecord(sr.commsDir, id, log)
}

func (sr *SubjectRepository) SaveDonation(_ context.Context, donation *models.Donation) error {
	if err := validateID(donation.ID); err != nil {
		return fmt.Errorf("invalid donation id: %w", err)
	}

	return writeRecord(sr.donationsDir, donation.ID, donation)
}

func (sr *SubjectRepository) InactiveSince(ctx context.Context, cutoff time.Time) ([]*models.Subject, error) {
	subjects, err := sr.listSubjects(ctx)
	if err != nil {
		return nil, err
	}

	matching := make([]*models.Subject, 0)

	for _, subject := range subjects {
		if subject.Status != models.SubjectStatusActive {
			continue
		}

		if subject.LastActivityAt != nil && subject.LastActivityAt.Before(cutoff) {
			matching = append(matching, subject)
		}
	}

	return matching, nil
}

func (sr *SubjectRepository) WithBirthdayOn(ctx context.Context, month time.Month, day int) ([]*models.Subject, error) {
	subjects, err := sr.listSubjects(ctx)
	if err != nil {
		return nil, err
	}

	matching := make([]*models.Subject, 0)

	for _, subject := range subjects {
		if subject.BirthDate == nil {
			continue
		}

		if subject.BirthDate.Month() == month && subject.BirthDate.Day() == day {
			matching = append(matching, subject)
		}
	}

	return matching, nil
}

func (sr *SubjectRepository) CompletedDonationsOn(_ context.Context, day time.Time) ([]*models.Donation, error) {
	ids, err := listIDs(sr.donationsDir)
	if err != nil {
		return nil, err
	}

	year, month, dayOfMonth := day.Date()
	matching := make([]*models.Donation, 0)

	for _, id := range ids {
		donation := &models.Donation{}

		found, err := readRecord(sr.donationsDir, id, donation)
		if err != nil {
			return nil, fmt.Errorf("failed to load donation %s: %w", id, err)
		}

		if !found || donation.Status != models.DonationStatusCompleted {
			continue
		}

		dYear, dMonth, dDay := donation.ReceivedAt.Date()
		if dYear == year && dMonth == month && dDay == dayOfMonth {
			matching = append(matching, donation)
		}
	}

	return matching, nil
}

func (sr *SubjectRepository) UpgradeCandidates(ctx context.Context, minDonations int) ([]*models.Subject, error) {
	subjects, err := sr.listSubjects(ctx)
	if err != nil {
		return nil, err
	}

	matching := make([]*models.Subject, 0)

	for _, subject := range subjects {
		if subject.DonationCount >= minDonations && !subject.RecurringDonor {
			matching = append(matching, subject)
		}
	}

	return matching, nil
}

func (sr *SubjectRepository) listSubjects(ctx context.Context) ([]*models.Subject, error) {
	ids, err := listIDs(sr.subjectsDir)
	if err != nil {
		return nil, err
	}

	subjects := make([]*models.Subject, 0, len(ids))

	for _, id := range ids {
		subject, err := sr.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		subjects = append(subjects, subject)
	}

	return subjects, nil
}
