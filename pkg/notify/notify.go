// Package notify abstracts the outbound side effects actions produce:
// donor-facing emails and internal team alerts. The engine only talks to
// the Sink interface; delivery is someone else's job.
package notify

import "context"

// Email is one rendered outbound email.
type Email struct {
	To           string
	FromName     string
	Subject      string
	Body         string
	SubjectID    string
	AutomationID string
}

// Alert is one internal team notification.
type Alert struct {
	Message      string
	SubjectID    string
	AutomationID string
}

type Sink interface {
	SendEmail(ctx context.Context, email Email) error
	RaiseAlert(ctx context.Context, alert Alert) error
}
