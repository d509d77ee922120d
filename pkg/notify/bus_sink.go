package notify

import (
	"context"
	"time"

	"github.com/donorpilot/donorpilot/pkg/eventbus"
	"github.com/donorpilot/donorpilot/pkg/events"
)

// BusSink publishes emails and alerts onto the event bus for downstream
// senders to pick up.
type BusSink struct {
	bus eventbus.EventPublisher
}

func NewBusSink(bus eventbus.EventPublisher) *BusSink {
	return &BusSink{bus: bus}
}

func (s *BusSink) SendEmail(ctx context.Context, email Email) error {
	return s.bus.Publish(ctx, email.SubjectID, events.EmailRequested{
		BaseEvent: events.BaseEvent{
			Type:      events.EmailRequestedEvent,
			Timestamp: time.Now().UTC(),
		},
		SubjectID:    email.SubjectID,
		AutomationID: email.AutomationID,
		To:           email.To,
		FromName:     email.FromName,
		EmailSubject: email.Subject,
		Body:         email.Body,
	})
}

func (s *BusSink) RaiseAlert(ctx context.Context, alert Alert) error {
	return s.bus.Publish(ctx, alert.SubjectID, events.NotificationRaised{
		BaseEvent: events.BaseEvent{
			Type:      events.NotificationRaisedEvent,
			Timestamp: time.Now().UTC(),
		},
		SubjectID:    alert.SubjectID,
		AutomationID: alert.AutomationID,
		Message:      alert.Message,
	})
}
