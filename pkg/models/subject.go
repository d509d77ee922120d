package models

import (
	"slices"
	"strings"
	"time"
)

// SubjectStatus represents the lifecycle state of a subject record.
type SubjectStatus string

const (
	SubjectStatusActive   SubjectStatus = "active"
	SubjectStatusArchived SubjectStatus = "archived"
)

// Subject is the entity an automation acts on, typically a donor record.
// The subject store owns the schema; this is the engine's view of it.
type Subject struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email,omitempty"`

	Tags   []string      `json:"tags"`
	Status SubjectStatus `json:"status"`

	TotalDonations float64 `json:"total_donations"`
	DonationCount  int     `json:"donation_count"`
	RecurringDonor bool    `json:"recurring_donor"`

	LastActivityAt *time.Time `json:"last_activity_at,omitempty"`
	LastDonationAt *time.Time `json:"last_donation_at,omitempty"`
	BirthDate      *time.Time `json:"birth_date,omitempty"`

	OwnerID string `json:"owner_id,omitempty"`
}

// FullName joins first and last name, tolerating either being empty.
func (s *Subject) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// HasTag reports whether the subject carries the given tag.
func (s *Subject) HasTag(tag string) bool {
	return slices.Contains(s.Tags, tag)
}

// DonationStatus represents the settlement state of a donation.
type DonationStatus string

const (
	DonationStatusPending   DonationStatus = "pending"
	DonationStatusCompleted DonationStatus = "completed"
	DonationStatusRefunded  DonationStatus = "refunded"
)

// Donation is the engine's view of one donation record, used by the
// anniversary scan and by donation.received trigger contexts.
type Donation struct {
	ID         string         `json:"id"`
	SubjectID  string         `json:"subject_id"`
	Amount     float64        `json:"amount"`
	Status     DonationStatus `json:"status"`
	Recurring  bool           `json:"recurring"`
	ReceivedAt time.Time      `json:"received_at"`
}

// Communication channels and statuses recorded on a subject after an
// outbound send.
const (
	CommunicationChannelEmail = "email"
	CommunicationStatusSent   = "sent"
)

// CommunicationEntry is one outbound communication logged on a subject.
type CommunicationEntry struct {
	Channel      string    `json:"channel"`
	Status       string    `json:"status"`
	Subject      string    `json:"subject,omitempty"`
	AutomationID string    `json:"automation_id,omitempty"`
	SentAt       time.Time `json:"sent_at"`
}
