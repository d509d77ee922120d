package notify

import (
	"context"
	"log/slog"
)

// SlogSink writes emails and alerts to the structured log. It is the
// default sink for development and the fallback when no event bus is
// configured.
type SlogSink struct {
	logger *slog.Logger
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	return &SlogSink{logger: logger}
}

func (s *SlogSink) SendEmail(ctx context.Context, email Email) error {
	s.logger.InfoContext(ctx, "Email requested",
		"to", email.To,
		"subject", email.Subject,
		"from_name", email.FromName,
		"subject_id", email.SubjectID,
		"automation_id", email.AutomationID,
	)

	return nil
}

func (s *SlogSink) RaiseAlert(ctx context.Context, alert Alert) error {
	s.logger.InfoContext(ctx, "Team notification raised",
		"message", alert.Message,
		"subject_id", alert.SubjectID,
		"automation_id", alert.AutomationID,
	)

	return nil
}
