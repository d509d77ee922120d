package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/donorpilot/donorpilot/pkg/models"
	"github.com/donorpilot/donorpilot/pkg/persistence"
)

// SubjectRepository handles subject, donation and communication records.
type SubjectRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSubjectRepository creates a new subject repository.
func NewSubjectRepository(db *sql.DB, logger *slog.Logger) *SubjectRepository {
	return &SubjectRepository{db: db, logger: logger}
}

const subjectColumns = `
	id, first_name, last_name, email, tags, status,
	total_donations, donation_count, recurring_donor,
	last_activity_at, last_donation_at, birth_date, owner_id
`

func (sr *SubjectRepository) GetByID(ctx context.Context, id string) (*models.Subject, error) {
	query := "SELECT " + subjectColumns + " FROM subjects WHERE id = $1"

	subject, err := scanSubject(sr.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrSubjectNotFound
		}

		return nil, fmt.Errorf("failed to get subject %s: %w", id, err)
	}

	return subject, nil
}

func (sr *SubjectRepository) Save(ctx context.Context, subject *models.Subject) error {
	tagsJSON, err := json.Marshal(subject.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	query := `
		INSERT INTO subjects (
			id, first_name, last_name, email, tags, status,
			total_donations, donation_count, recurring_donor,
			last_activity_at, last_donation_at, birth_date, owner_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			email = EXCLUDED.email,
			tags = EXCLUDED.tags,
			status = EXCLUDED.status,
			total_donations = EXCLUDED.total_donations,
			donation_count = EXCLUDED.donation_count,
			recurring_donor = EXCLUDED.recurring_donor,
			last_activity_at = EXCLUDED.last_activity_at,
			last_donation_at = EXCLUDED.last_donation_at,
			birth_date = EXCLUDED.birth_date,
			owner_id = EXCLUDED.owner_id
	`

	_, err = sr.db.ExecContext(ctx, query,
		subject.ID,
		subject.FirstName,
		subject.LastName,
		nullString(subject.Email),
		tagsJSON,
		subject.Status,
		subject.TotalDonations,
		subject.DonationCount,
		subject.RecurringDonor,
		subject.LastActivityAt,
		subject.LastDonationAt,
		subject.BirthDate,
		nullString(subject.OwnerID),
	)
	if err != nil {
		return fmt.Errorf("failed to save subject %s: %w", subject.ID, err)
	}

	return nil
}

func (sr *SubjectRepository) UpdateTags(ctx context.Context, id string, tags []string) error {
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	result, err := sr.db.ExecContext(ctx, "UPDATE subjects SET tags = $2 WHERE id = $1", id, tagsJSON)
	if err != nil {
		return fmt.Errorf("failed to update tags for subject %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update tags for subject %s: %w", id, err)
	}

	if affected == 0 {
		return persistence.ErrSubjectNotFound
	}

	return nil
}

func (sr *SubjectRepository) RecordCommunication(ctx context.Context, id string, entry models.CommunicationEntry) error {
	query := `
		INSERT INTO communications (subject_id, channel, status, subject_line, automation_id, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := sr.db.ExecContext(ctx, query,
		id,
		entry.Channel,
		entry.Status,
		nullString(entry.Subject),
		nullString(entry.AutomationID),
		entry.SentAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record communication for subject %s: %w", id, err)
	}

	return nil
}

func (sr *SubjectRepository) SaveDonation(ctx context.Context, donation *models.Donation) error {
	query := `
		INSERT INTO donations (id, subject_id, amount, status, recurring, received_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			amount = EXCLUDED.amount,
			status = EXCLUDED.status,
			recurring = EXCLUDED.recurring,
			received_at = EXCLUDED.received_at
	`

	_, err := sr.db.ExecContext(ctx, query,
		donation.ID,
		donation.SubjectID,
		donation.Amount,
		donation.Status,
		donation.Recurring,
		donation.ReceivedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save donation %s: %w", donation.ID, err)
	}

	return nil
}

func (sr *SubjectRepository) InactiveSince(ctx context.Context, cutoff time.Time) ([]*models.Subject, error) {
	query := "SELECT " + subjectColumns + ` FROM subjects
		WHERE status = 'active' AND last_activity_at IS NOT NULL AND last_activity_at < $1
		ORDER BY last_activity_at`

	rows, err := sr.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query inactive subjects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanSubjects(rows)
}

func (sr *SubjectRepository) WithBirthdayOn(ctx context.Context, month time.Month, day int) ([]*models.Subject, error) {
	query := "SELECT " + subjectColumns + ` FROM subjects
		WHERE status = 'active'
			AND birth_date IS NOT NULL
			AND EXTRACT(MONTH FROM birth_date) = $1
			AND EXTRACT(DAY FROM birth_date) = $2`

	rows, err := sr.db.QueryContext(ctx, query, int(month), day)
	if err != nil {
		return nil, fmt.Errorf("failed to query birthday subjects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanSubjects(rows)
}

func (sr *SubjectRepository) CompletedDonationsOn(ctx context.Context, day time.Time) ([]*models.Donation, error) {
	query := `
		SELECT id, subject_id, amount, status, recurring, received_at
		FROM donations
		WHERE status = 'completed' AND received_at::date = $1::date
		ORDER BY received_at
	`

	rows, err := sr.db.QueryContext(ctx, query, day)
	if err != nil {
		return nil, fmt.Errorf("failed to query donations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	donations := make([]*models.Donation, 0)

	for rows.Next() {
		var donation models.Donation

		err = rows.Scan(
			&donation.ID,
			&donation.SubjectID,
			&donation.Amount,
			&donation.Status,
			&donation.Recurring,
			&donation.ReceivedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan donation: %w", err)
		}

		donations = append(donations, &donation)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate donations: %w", err)
	}

	return donations, nil
}

func (sr *SubjectRepository) UpgradeCandidates(ctx context.Context, minDonations int) ([]*models.Subject, error) {
	query := "SELECT " + subjectColumns + ` FROM subjects
		WHERE status = 'active' AND donation_count >= $1 AND NOT recurring_donor
		ORDER BY donation_count DESC`

	rows, err := sr.db.QueryContext(ctx, query, minDonations)
	if err != nil {
		return nil, fmt.Errorf("failed to query upgrade candidates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanSubjects(rows)
}

func scanSubject(row rowScanner) (*models.Subject, error) {
	var (
		subject        models.Subject
		email          sql.NullString
		tagsJSON       []byte
		lastActivityAt sql.NullTime
		lastDonationAt sql.NullTime
		birthDate      sql.NullTime
		ownerID        sql.NullString
	)

	err := row.Scan(
		&subject.ID,
		&subject.FirstName,
		&subject.LastName,
		&email,
		&tagsJSON,
		&subject.Status,
		&subject.TotalDonations,
		&subject.DonationCount,
		&subject.RecurringDonor,
		&lastActivityAt,
		&lastDonationAt,
		&birthDate,
		&ownerID,
	)
	if err != nil {
		return nil, err
	}

	subject.Email = email.String
	subject.OwnerID = ownerID.String

	if len(tagsJSON) > 0 {
		err = json.Unmarshal(tagsJSON, &subject.Tags)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}

	if lastActivityAt.Valid {
		subject.LastActivityAt = &lastActivityAt.Time
	}

	if lastDonationAt.Valid {
		subject.LastDonationAt = &lastDonationAt.Time
	}

	if birthDate.Valid {
		subject.BirthDate = &birthDate.Time
	}

	return &subject, nil
}

func scanSubjects(rows *sql.Rows) ([]*models.Subject, error) {
	subjects := make([]*models.Subject, 0)

	for rows.Next() {
		subject, err := scanSubject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subject: %w", err)
		}

		subjects = append(subjects, subject)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subjects: %w", err)
	}

	return subjects, nil
}
