// Package actions executes the individual steps of an automation against a
// subject. The executor is a closed dispatch over the action types; adding
// a type means adding a case here and nowhere else.
package actions

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/donorpilot/donorpilot/pkg/models"
	"github.com/donorpilot/donorpilot/pkg/notify"
	"github.com/donorpilot/donorpilot/pkg/persistence"
	"github.com/donorpilot/donorpilot/pkg/template"
)

// Executor runs single actions. A returned error is fatal and fails the
// whole execution; a result with Success false records the problem and
// lets the execution continue.
type Executor struct {
	subjects persistence.SubjectRepository
	sink     notify.Sink
	logger   *slog.Logger
}

func NewExecutor(subjects persistence.SubjectRepository, sink notify.Sink, logger *slog.Logger) *Executor {
	return &Executor{
		subjects: subjects,
		sink:     sink,
		logger:   logger.With("module", "actions"),
	}
}

func (e *Executor) Execute(
	ctx context.Context,
	automation *models.Automation,
	subject *models.Subject,
	action models.ActionSpec,
) (models.ActionResult, error) {
	result := models.ActionResult{
		ActionID:   action.ID,
		ActionType: action.Type,
	}

	e.logger.InfoContext(ctx, "Executing action",
		"automation_id", automation.ID,
		"subject_id", subject.ID,
		"action_id", action.ID,
		"action_type", action.Type,
	)

	switch action.Type {
	case models.ActionSendEmail:
		return e.sendEmail(ctx, automation, subject, action, result)
	case models.ActionAddTag:
		return e.addTag(ctx, subject, action, result)
	case models.ActionRemoveTag:
		return e.removeTag(ctx, subject, action, result)
	case models.ActionNotifyTeam:
		return e.notifyTeam(ctx, automation, subject, action, result)
	case models.ActionWait:
		// Suspension is the engine's job; by the time the executor sees a
		// wait action the delay has already elapsed.
		result.Success = true

		return result, nil
	default:
		// Unknown types no-op successfully so definitions written by a
		// newer version still run on an older worker.
		e.logger.WarnContext(ctx, "Skipping unknown action type", "action_type", action.Type)

		result.Success = true
		result.Message = fmt.Sprintf("unknown action type %q skipped", action.Type)

		return result, nil
	}
}

func (e *Executor) sendEmail(
	ctx context.Context,
	automation *models.Automation,
	subject *models.Subject,
	action models.ActionSpec,
	result models.ActionResult,
) (models.ActionResult, error) {
	var config models.EmailConfig

	err := models.DecodeConfig(action.Config, &config)
	if err != nil {
		return result, err
	}

	if subject.Email == "" {
		result.Message = "subject has no email address"

		return result, nil
	}

	subjectLine := template.Render(config.Subject, subject)
	body := template.Render(config.Body, subject)

	err = e.sink.SendEmail(ctx, notify.Email{
		To:           subject.Email,
		FromName:     config.FromName,
		Subject:      subjectLine,
		Body:         body,
		SubjectID:    subject.ID,
		AutomationID: automation.ID,
	})
	if err != nil {
		return result, fmt.Errorf("failed to send email: %w", err)
	}

	err = e.subjects.RecordCommunication(ctx, subject.ID, models.CommunicationEntry{
		Channel:      models.CommunicationChannelEmail,
		Status:       models.CommunicationStatusSent,
		Subject:      subjectLine,
		AutomationID: automation.ID,
		SentAt:       time.Now().UTC(),
	})
	if err != nil {
		return result, fmt.Errorf("failed to record communication: %w", err)
	}

	result.Success = true

	return result, nil
}

func (e *Executor) addTag(
	ctx context.Context,
	subject *models.Subject,
	action models.ActionSpec,
	result models.ActionResult,
) (models.ActionResult, error) {
	var config models.TagConfig

	err := models.DecodeConfig(action.Config, &config)
	if err != nil {
		return result, err
	}

	if config.Tag == "" {
		result.Message = "no tag configured"

		return result, nil
	}

	if subject.HasTag(config.Tag) {
		result.Success = true

		return result, nil
	}

	tags := append(slices.Clone(subject.Tags), config.Tag)

	err = e.subjects.UpdateTags(ctx, subject.ID, tags)
	if err != nil {
		return result, fmt.Errorf("failed to add tag: %w", err)
	}

	subject.Tags = tags
	result.Success = true

	return result, nil
}

func (e *Executor) removeTag(
	ctx context.Context,
	subject *models.Subject,
	action models.ActionSpec,
	result models.ActionResult,
) (models.ActionResult, error) {
	var config models.TagConfig

	err := models.DecodeConfig(action.Config, &config)
	if err != nil {
		return result, err
	}

	if config.Tag == "" {
		result.Message = "no tag configured"

		return result, nil
	}

	if !subject.HasTag(config.Tag) {
		result.Success = true

		return result, nil
	}

	tags := slices.DeleteFunc(slices.Clone(subject.Tags), func(tag string) bool {
		return tag == config.Tag
	})

	err = e.subjects.UpdateTags(ctx, subject.ID, tags)
	if err != nil {
		return result, fmt.Errorf("failed to remove tag: %w", err)
	}

	subject.Tags = tags
	result.Success = true

	return result, nil
}

func (e *Executor) notifyTeam(
	ctx context.Context,
	automation *models.Automation,
	subject *models.Subject,
	action models.ActionSpec,
	result models.ActionResult,
) (models.ActionResult, error) {
	var config models.NotifyConfig

	err := models.DecodeConfig(action.Config, &config)
	if err != nil {
		return result, err
	}

	if config.Message == "" {
		result.Message = "no message configured"

		return result, nil
	}

	alert := notify.Alert{
		Message:      template.Render(config.Message, subject),
		SubjectID:    subject.ID,
		AutomationID: automation.ID,
	}

	if config.NotifyOwner && subject.OwnerID != "" {
		alert.Message = fmt.Sprintf("[owner %s] %s", subject.OwnerID, alert.Message)
	}

	err = e.sink.RaiseAlert(ctx, alert)
	if err != nil {
		return result, fmt.Errorf("failed to raise alert: %w", err)
	}

	result.Success = true

	return result, nil
}
