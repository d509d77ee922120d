// Package triggers decides when automations fire. The event half reacts to
// CRM events from the bus; the periodic half scans the subject store for
// condition-based triggers.
package triggers

import (
	"context"
	"time"

	"github.com/donorpilot/donorpilot/pkg/eventbus"
	"github.com/donorpilot/donorpilot/pkg/events"
	"github.com/donorpilot/donorpilot/pkg/models"
)

// Launcher starts an execution of an automation for a trigger context.
// Evaluators only decide that an automation should fire; how the execution
// actually starts (directly or through the bus) is the launcher's concern.
type Launcher interface {
	Launch(ctx context.Context, automation *models.Automation, trigger models.TriggerContext) error
}

// BusLauncher publishes automation.triggered events for workers to consume.
type BusLauncher struct {
	bus eventbus.EventPublisher
}

func NewBusLauncher(bus eventbus.EventPublisher) *BusLauncher {
	return &BusLauncher{bus: bus}
}

func (l *BusLauncher) Launch(ctx context.Context, automation *models.Automation, trigger models.TriggerContext) error {
	return l.bus.Publish(ctx, trigger.SubjectID, events.AutomationTriggered{
		BaseEvent: events.BaseEvent{
			Type:      events.AutomationTriggeredEvent,
			Timestamp: time.Now().UTC(),
		},
		AutomationID: automation.ID,
		Trigger:      trigger,
	})
}
