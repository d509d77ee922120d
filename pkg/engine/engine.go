// Package engine drives executions through their action sequence. An
// execution is a persisted continuation: the engine saves after every
// action, suspends on wait actions by returning, and resumes later from
// the stored cursor with no in-memory state in between.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/donorpilot/donorpilot/pkg/eventbus"
	"github.com/donorpilot/donorpilot/pkg/events"
	"github.com/donorpilot/donorpilot/pkg/models"
	"github.com/donorpilot/donorpilot/pkg/otelhelper"
	"github.com/donorpilot/donorpilot/pkg/persistence"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

var ErrAutomationNotActive = errors.New("automation is not active")

// ActionExecutor runs one action. An error is fatal for the execution; a
// result with Success false is recorded and the sequence continues.
type ActionExecutor interface {
	Execute(
		ctx context.Context,
		automation *models.Automation,
		subject *models.Subject,
		action models.ActionSpec,
	) (models.ActionResult, error)
}

type Engine struct {
	persistence persistence.Persistence
	executor    ActionExecutor
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

type Option func(*Engine)

// WithPublisher makes the engine announce terminal executions on the bus.
func WithPublisher(publisher eventbus.EventPublisher) Option {
	return func(e *Engine) {
		e.publisher = publisher
	}
}

// WithClock overrides the engine's clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithTracer enables a span per execution and per action.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

func New(p persistence.Persistence, executor ActionExecutor, logger *slog.Logger, opts ...Option) *Engine {
	engine := &Engine{
		persistence: p,
		executor:    executor,
		logger:      logger.With("module", "engine"),
		tracer:      noop.NewTracerProvider().Tracer("engine"),
		now:         func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(engine)
	}

	return engine
}

// Run starts a new execution of the automation for the given trigger
// context and advances it until it completes, fails or suspends on a wait.
func (e *Engine) Run(ctx context.Context, automationID string, trigger models.TriggerContext) (*models.Execution, error) {
	automation, err := e.persistence.Automations().GetByID(ctx, automationID)
	if err != nil {
		return nil, err
	}

	if automation.Status != models.AutomationStatusActive {
		return nil, ErrAutomationNotActive
	}

	execution := models.NewExecution(automation.ID, trigger)
	execution.CreatedAt = e.now()

	err = e.persistence.Executions().Save(ctx, execution)
	if err != nil {
		return nil, err
	}

	e.logger.InfoContext(ctx, "Execution started",
		"execution_id", execution.ID,
		"automation_id", automation.ID,
		"subject_id", execution.SubjectID,
	)

	err = e.advance(ctx, automation, execution)
	if err != nil {
		return nil, err
	}

	return execution, nil
}

// Resume picks a claimed execution back up after its wait elapsed. The
// caller must have flipped it to running via ClaimWaiting first.
func (e *Engine) Resume(ctx context.Context, execution *models.Execution) error {
	automation, err := e.persistence.Automations().GetByID(ctx, execution.AutomationID)
	if err != nil {
		if persistence.IsAutomationNotFound(err) {
			return e.fail(ctx, nil, execution, "automation no longer exists")
		}

		return err
	}

	// Pausing freezes waiting executions. The scanner filters paused
	// automations before claiming, but the status can change in between.
	if automation.Status == models.AutomationStatusPaused {
		wake := e.now()
		if execution.ScheduledFor != nil {
			wake = *execution.ScheduledFor
		}

		execution.Suspend(wake)

		return e.persistence.Executions().Save(ctx, execution)
	}

	e.logger.InfoContext(ctx, "Execution resumed",
		"execution_id", execution.ID,
		"automation_id", automation.ID,
		"subject_id", execution.SubjectID,
	)

	return e.advance(ctx, automation, execution)
}

// advance walks the actions past the execution's cursor. It returns a
// non-nil error only for infrastructure problems; domain failures land in
// the execution's own status.
func (e *Engine) advance(ctx context.Context, automation *models.Automation, execution *models.Execution) error {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "execution.advance",
		attribute.String(otelhelper.AutomationIDKey, automation.ID),
		attribute.String(otelhelper.ExecutionIDKey, execution.ID),
		attribute.String(otelhelper.SubjectIDKey, execution.SubjectID),
	)
	defer span.End()

	subject, err := e.persistence.Subjects().GetByID(ctx, execution.SubjectID)
	if err != nil {
		if persistence.IsSubjectNotFound(err) {
			return e.fail(ctx, automation, execution, "subject no longer exists")
		}

		return err
	}

	for _, action := range automation.ActionsAfter(execution.CurrentActionOrder) {
		if action.Type == models.ActionWait {
			suspended, err := e.applyWait(ctx, execution, action)
			if err != nil {
				return e.fail(ctx, automation, execution, err.Error())
			}

			if suspended {
				return nil
			}

			continue
		}

		actionCtx, actionSpan := otelhelper.StartSpan(ctx, e.tracer, "action.execute",
			attribute.String(otelhelper.ActionIDKey, action.ID),
			attribute.String(otelhelper.ActionTypeKey, string(action.Type)),
		)

		result, err := e.executor.Execute(actionCtx, automation, subject, action)
		if err != nil {
			otelhelper.SetError(actionSpan, err)
			actionSpan.End()

			return e.fail(ctx, automation, execution, err.Error())
		}

		actionSpan.End()

		execution.RecordResult(action, result)

		err = e.persistence.Executions().Save(ctx, execution)
		if err != nil {
			return err
		}

		if !result.Success {
			e.logger.WarnContext(ctx, "Action did not succeed",
				"execution_id", execution.ID,
				"action_id", action.ID,
				"action_type", action.Type,
				"message", result.Message,
			)
		}
	}

	return e.complete(ctx, automation, execution)
}

// applyWait records the wait step and suspends the execution when the
// configured delay is positive. A zero delay degrades to a no-op step.
func (e *Engine) applyWait(ctx context.Context, execution *models.Execution, action models.ActionSpec) (bool, error) {
	var config models.WaitConfig

	err := models.DecodeConfig(action.Config, &config)
	if err != nil {
		return false, err
	}

	execution.RecordResult(action, models.ActionResult{
		ActionID:   action.ID,
		ActionType: action.Type,
		Success:    true,
	})

	delay := config.Delay()
	if delay <= 0 {
		return false, e.persistence.Executions().Save(ctx, execution)
	}

	wake := e.now().Add(delay)
	execution.Suspend(wake)

	err = e.persistence.Executions().Save(ctx, execution)
	if err != nil {
		return false, err
	}

	e.logger.InfoContext(ctx, "Execution suspended",
		"execution_id", execution.ID,
		"scheduled_for", wake,
	)

	return true, nil
}

func (e *Engine) complete(ctx context.Context, automation *models.Automation, execution *models.Execution) error {
	completedAt := e.now()
	execution.Complete(completedAt)

	err := e.persistence.Executions().Save(ctx, execution)
	if err != nil {
		return err
	}

	err = e.persistence.Automations().IncrementCounters(ctx, automation.ID, true, completedAt)
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to update automation counters",
			"automation_id", automation.ID, "error", err)
	}

	e.logger.InfoContext(ctx, "Execution completed",
		"execution_id", execution.ID,
		"automation_id", automation.ID,
		"actions_executed", execution.ActionsExecuted,
	)

	e.publish(ctx, execution.SubjectID, events.ExecutionCompleted{
		BaseEvent: events.BaseEvent{
			Type:      events.ExecutionCompletedEvent,
			Timestamp: completedAt,
		},
		AutomationID:    automation.ID,
		ExecutionID:     execution.ID,
		SubjectID:       execution.SubjectID,
		ActionsExecuted: execution.ActionsExecuted,
		Duration:        completedAt.Sub(execution.CreatedAt),
	})

	return nil
}

func (e *Engine) fail(ctx context.Context, automation *models.Automation, execution *models.Execution, message string) error {
	failedAt := e.now()
	execution.Fail(message, failedAt)

	err := e.persistence.Executions().Save(ctx, execution)
	if err != nil {
		return err
	}

	automationID := execution.AutomationID
	if automation != nil {
		err = e.persistence.Automations().IncrementCounters(ctx, automation.ID, false, failedAt)
		if err != nil {
			e.logger.ErrorContext(ctx, "Failed to update automation counters",
				"automation_id", automation.ID, "error", err)
		}
	}

	e.logger.ErrorContext(ctx, "Execution failed",
		"execution_id", execution.ID,
		"automation_id", automationID,
		"error", message,
	)

	e.publish(ctx, execution.SubjectID, events.ExecutionFailed{
		BaseEvent: events.BaseEvent{
			Type:      events.ExecutionFailedEvent,
			Timestamp: failedAt,
		},
		AutomationID: automationID,
		ExecutionID:  execution.ID,
		SubjectID:    execution.SubjectID,
		Error:        message,
	})

	return nil
}

func (e *Engine) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.publisher == nil {
		return
	}

	err := e.publisher.Publish(ctx, key, event)
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to publish event",
			"event_type", string(event.GetType()), "error", err)
	}
}
