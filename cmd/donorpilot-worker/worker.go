package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/donorpilot/donorpilot/pkg/actions"
	"github.com/donorpilot/donorpilot/pkg/engine"
	"github.com/donorpilot/donorpilot/pkg/eventbus"
	"github.com/donorpilot/donorpilot/pkg/events"
	"github.com/donorpilot/donorpilot/pkg/notify"
	"github.com/donorpilot/donorpilot/pkg/persistence"
	"github.com/donorpilot/donorpilot/pkg/triggers"
)

// Worker consumes automation events from the bus. CRM facts fan out to the
// matching automations, automation.triggered events run executions.
type Worker struct {
	id          string
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	engine      *engine.Engine
	evaluator   *triggers.EventEvaluator
}

func NewWorker(
	id string,
	p persistence.Persistence,
	eventBus eventbus.EventBus,
	logger *slog.Logger,
) *Worker {
	logger = logger.With("module", "donorpilot-worker", "worker_id", id)

	sink := notify.NewBusSink(eventBus)
	executor := actions.NewExecutor(p.Subjects(), sink, logger)

	return &Worker{
		id:          id,
		logger:      logger,
		persistence: p,
		eventBus:    eventBus,
		engine:      engine.New(p, executor, logger, engine.WithPublisher(eventBus)),
		evaluator:   triggers.NewEventEvaluator(p.Automations(), triggers.NewBusLauncher(eventBus), logger),
	}
}

func (w *Worker) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting worker", "worker_id", w.id)

	err := w.eventBus.Handle(events.AutomationTriggeredEvent, w.handleAutomationTriggered)
	if err != nil {
		return err
	}

	err = w.eventBus.Handle(events.SubjectCreatedEvent, w.handleSubjectCreated)
	if err != nil {
		return err
	}

	err = w.eventBus.Handle(events.DonationReceivedEvent, w.handleDonationReceived)
	if err != nil {
		return err
	}

	err = w.eventBus.Subscribe(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	w.logger.InfoContext(ctx, "Worker started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	w.logger.InfoContext(ctx, "Shutting down worker...")

	return nil
}

func (w *Worker) handleAutomationTriggered(ctx context.Context, event any) error {
	triggeredEvent, ok := event.(*events.AutomationTriggered)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for AutomationTriggered")

		return nil
	}

	logger := w.logger.With(
		"automation_id", triggeredEvent.AutomationID,
		"subject_id", triggeredEvent.Trigger.SubjectID,
		"event_id", triggeredEvent.ID,
	)
	logger.InfoContext(ctx, "Processing automation triggered event")

	_, err := w.engine.Run(ctx, triggeredEvent.AutomationID, triggeredEvent.Trigger)
	if err != nil {
		// The automation may have been paused or deleted between the
		// trigger firing and the worker picking it up.
		logger.ErrorContext(ctx, "Failed to run automation", "error", err)

		return nil
	}

	return nil
}

func (w *Worker) handleSubjectCreated(ctx context.Context, event any) error {
	subjectEvent, ok := event.(*events.SubjectCreated)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for SubjectCreated")

		return nil
	}

	w.logger.InfoContext(ctx, "Processing subject created event",
		"subject_id", subjectEvent.SubjectID)

	return w.evaluator.HandleSubjectCreated(ctx, subjectEvent)
}

func (w *Worker) handleDonationReceived(ctx context.Context, event any) error {
	donationEvent, ok := event.(*events.DonationReceived)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for DonationReceived")

		return nil
	}

	w.logger.InfoContext(ctx, "Processing donation received event",
		"subject_id", donationEvent.SubjectID,
		"donation_id", donationEvent.DonationID)

	return w.evaluator.HandleDonationReceived(ctx, donationEvent)
}
