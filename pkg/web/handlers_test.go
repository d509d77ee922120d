package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/donorpilot/donorpilot/pkg/models"
	"github.com/donorpilot/donorpilot/pkg/persistence/file"
	"github.com/donorpilot/donorpilot/pkg/services"
	"github.com/donorpilot/donorpilot/pkg/web"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T) (*fiber.App, *services.Automation, *file.Persistence) {
	t.Helper()

	p := file.NewPersistence(t.TempDir())
	automationService := services.NewAutomation(p)
	app := web.NewApp(automationService)

	return app, automationService, p
}

func postJSON(t *testing.T, app *fiber.App, path string, payload any) *http.Response {
	t.Helper()

	var body []byte

	if str, ok := payload.(string); ok {
		body = []byte(str)
	} else {
		var err error

		body, err = json.Marshal(payload)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	return resp
}

func TestCreateAutomation(t *testing.T) {
	app, _, _ := setupTestApp(t)

	resp := postJSON(t, app, "/automations/", web.CreateAutomationRequest{
		Name:        "Welcome new donors",
		TriggerType: models.TriggerSubjectCreated,
		Actions: []models.ActionSpec{
			{ID: "a1", Order: 1, Type: models.ActionAddTag, Config: map[string]any{"tag": "new"}},
		},
	})
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var automation models.Automation
	require.NoError(t, json.Unmarshal(body, &automation))
	assert.NotEmpty(t, automation.ID)
	assert.Equal(t, models.AutomationStatusDraft, automation.Status)
}

func TestCreateAutomationInvalid(t *testing.T) {
	tests := []struct {
		name    string
		payload any
	}{
		{
			name:    "invalid JSON",
			payload: "not-json",
		},
		{
			name: "name too short",
			payload: web.CreateAutomationRequest{
				Name:        "ab",
				TriggerType: models.TriggerSubjectCreated,
			},
		},
		{
			name: "unknown trigger type",
			payload: web.CreateAutomationRequest{
				Name:        "Bad trigger",
				TriggerType: "donor.sneezed",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _, _ := setupTestApp(t)

			resp := postJSON(t, app, "/automations/", tt.payload)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestGetAutomation(t *testing.T) {
	app, automationService, _ := setupTestApp(t)
	ctx := context.Background()

	created, err := automationService.Create(ctx, &models.Automation{
		Name:        "Birthday wishes",
		TriggerType: models.TriggerDonorBirthday,
	})
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/automations/"+created.ID, nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/automations/atm-missing", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestActivateAndPauseAutomation(t *testing.T) {
	app, automationService, _ := setupTestApp(t)
	ctx := context.Background()

	created, err := automationService.Create(ctx, &models.Automation{
		Name:        "Win back",
		TriggerType: models.TriggerInactiveDonor,
	})
	require.NoError(t, err)

	// Pausing a draft is a conflict.
	resp := postJSON(t, app, "/automations/"+created.ID+"/pause", nil)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = postJSON(t, app, "/automations/"+created.ID+"/activate", nil)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, app, "/automations/"+created.ID+"/pause", nil)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDeleteAutomationConflict(t *testing.T) {
	app, automationService, p := setupTestApp(t)
	ctx := context.Background()

	created, err := automationService.Create(ctx, &models.Automation{
		Name:        "In flight",
		TriggerType: models.TriggerDonationReceived,
	})
	require.NoError(t, err)

	waiting := models.NewExecution(created.ID, models.TriggerContext{SubjectID: "donor-1"})
	waiting.Suspend(time.Now().UTC().Add(time.Hour))
	require.NoError(t, p.Executions().Save(ctx, waiting))

	req := httptest.NewRequest(http.MethodDelete, "/automations/"+created.ID, nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestListAutomationExecutions(t *testing.T) {
	app, automationService, p := setupTestApp(t)
	ctx := context.Background()

	created, err := automationService.Create(ctx, &models.Automation{
		Name:        "With history",
		TriggerType: models.TriggerSubjectCreated,
	})
	require.NoError(t, err)

	execution := models.NewExecution(created.ID, models.TriggerContext{SubjectID: "donor-1"})
	execution.Complete(time.Now().UTC())
	require.NoError(t, p.Executions().Save(ctx, execution))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/automations/"+created.ID+"/executions", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload struct {
		Executions []*models.Execution `json:"executions"`
		TotalCount int                 `json:"total_count"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, 1, payload.TotalCount)
}
