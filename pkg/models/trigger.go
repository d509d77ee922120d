package models

const (
	// DefaultInactiveDays is the donor.inactive cutoff when the trigger
	// config does not set one.
	DefaultInactiveDays = 180

	// DefaultMinDonations is the donor.upgrade_opportunity threshold when
	// the trigger config does not set one.
	DefaultMinDonations = 3
)

// InactiveDonorConfig configures a donor.inactive trigger.
type InactiveDonorConfig struct {
	InactiveDays int `json:"inactive_days,omitempty"`
}

func (c *InactiveDonorConfig) ApplyDefaults() {
	if c.InactiveDays <= 0 {
		c.InactiveDays = DefaultInactiveDays
	}
}

// UpgradeOpportunityConfig configures a donor.upgrade_opportunity trigger.
type UpgradeOpportunityConfig struct {
	MinDonations int `json:"min_donations,omitempty"`
}

func (c *UpgradeOpportunityConfig) ApplyDefaults() {
	if c.MinDonations <= 0 {
		c.MinDonations = DefaultMinDonations
	}
}

// TriggerContext carries the subject references a trigger hands to the
// engine when it fires.
type TriggerContext struct {
	SubjectID  string `json:"subject_id"`
	DonationID string `json:"donation_id,omitempty"`
}
