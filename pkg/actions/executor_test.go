package actions

import (
	"context"
	"log/slog"
	"testing"

	"github.com/donorpilot/donorpilot/pkg/models"
	"github.com/donorpilot/donorpilot/pkg/notify"
	"github.com/donorpilot/donorpilot/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	emails []notify.Email
	alerts []notify.Alert
}

func (s *recordingSink) SendEmail(_ context.Context, email notify.Email) error {
	s.emails = append(s.emails, email)

	return nil
}

func (s *recordingSink) RaiseAlert(_ context.Context, alert notify.Alert) error {
	s.alerts = append(s.alerts, alert)

	return nil
}

func newTestExecutor(t *testing.T) (*Executor, *file.Persistence, *recordingSink) {
	t.Helper()

	p := file.NewPersistence(t.TempDir())
	sink := &recordingSink{}
	executor := NewExecutor(p.Subjects(), sink, slog.Default())

	return executor, p, sink
}

func TestExecutorSendEmail(t *testing.T) {
	ctx := context.Background()
	executor, p, sink := newTestExecutor(t)

	subject := &models.Subject{
		ID:        "donor-1",
		FirstName: "Marie",
		Email:     "marie@example.org",
		Status:    models.SubjectStatusActive,
	}
	require.NoError(t, p.Subjects().Save(ctx, subject))

	automation := &models.Automation{ID: "atm-1", Name: "Birthday wishes"}
	action := models.ActionSpec{
		ID:    "a1",
		Order: 1,
		Type:  models.ActionSendEmail,
		Config: map[string]any{
			"subject": "Happy Birthday {{firstName}}!",
			"body":    "Dear {{firstName}}, thank you.",
		},
	}

	result, err := executor.Execute(ctx, automation, subject, action)
	require.NoError(t, err)
	assert.True(t, result.Success)

	require.Len(t, sink.emails, 1)
	assert.Equal(t, "marie@example.org", sink.emails[0].To)
	assert.Equal(t, "Happy Birthday Marie!", sink.emails[0].Subject)
}

func TestExecutorSendEmailNoAddress(t *testing.T) {
	ctx := context.Background()
	executor, p, sink := newTestExecutor(t)

	subject := &models.Subject{ID: "donor-1", Status: models.SubjectStatusActive}
	require.NoError(t, p.Subjects().Save(ctx, subject))

	action := models.ActionSpec{
		ID:     "a1",
		Order:  1,
		Type:   models.ActionSendEmail,
		Config: map[string]any{"subject": "Hi", "body": "Hello"},
	}

	// A missing address is recorded as a failed step, not a fatal error.
	result, err := executor.Execute(ctx, &models.Automation{ID: "atm-1"}, subject, action)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "subject has no email address", result.Message)
	assert.Empty(t, sink.emails)
}

func TestExecutorTags(t *testing.T) {
	ctx := context.Background()
	executor, p, _ := newTestExecutor(t)

	subject := &models.Subject{ID: "donor-1", Status: models.SubjectStatusActive, Tags: []string{"vip"}}
	require.NoError(t, p.Subjects().Save(ctx, subject))

	automation := &models.Automation{ID: "atm-1"}

	addLapsed := models.ActionSpec{ID: "a1", Order: 1, Type: models.ActionAddTag, Config: map[string]any{"tag": "lapsed"}}
	result, err := executor.Execute(ctx, automation, subject, addLapsed)
	require.NoError(t, err)
	assert.True(t, result.Success)

	// Adding an existing tag is a no-op success.
	result, err = executor.Execute(ctx, automation, subject, addLapsed)
	require.NoError(t, err)
	assert.True(t, result.Success)

	removeVIP := models.ActionSpec{ID: "a2", Order: 2, Type: models.ActionRemoveTag, Config: map[string]any{"tag": "vip"}}
	result, err = executor.Execute(ctx, automation, subject, removeVIP)
	require.NoError(t, err)
	assert.True(t, result.Success)

	stored, err := p.Subjects().GetByID(ctx, "donor-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"lapsed"}, stored.Tags)
}

func TestExecutorNotifyTeam(t *testing.T) {
	ctx := context.Background()
	executor, p, sink := newTestExecutor(t)

	subject := &models.Subject{ID: "donor-1", FirstName: "Ana", OwnerID: "user-7", Status: models.SubjectStatusActive}
	require.NoError(t, p.Subjects().Save(ctx, subject))

	action := models.ActionSpec{
		ID:    "a1",
		Order: 1,
		Type:  models.ActionNotifyTeam,
		Config: map[string]any{
			"message":      "{{firstName}} may be ready for a recurring gift",
			"notify_owner": true,
		},
	}

	result, err := executor.Execute(ctx, &models.Automation{ID: "atm-1"}, subject, action)
	require.NoError(t, err)
	assert.True(t, result.Success)

	require.Len(t, sink.alerts, 1)
	assert.Equal(t, "[owner user-7] Ana may be ready for a recurring gift", sink.alerts[0].Message)
}

func TestExecutorUnknownType(t *testing.T) {
	ctx := context.Background()
	executor, p, _ := newTestExecutor(t)

	subject := &models.Subject{ID: "donor-1", Status: models.SubjectStatusActive}
	require.NoError(t, p.Subjects().Save(ctx, subject))

	action := models.ActionSpec{ID: "a1", Order: 1, Type: "send_sms"}

	result, err := executor.Execute(ctx, &models.Automation{ID: "atm-1"}, subject, action)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Contains(t, result.Message, "send_sms")
}
