package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apicourse/internal/config"
	"apicourse/internal/tasks"
)

func newTasksApp(t *testing.T) (*fiber.App, *tasks.Manager) {
	t.Helper()
	m := tasks.NewManager(2, 16, zerolog.Nop())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = m.Shutdown(ctx)
	})
	cfg := &config.AppConfig{}
	cfg.Tasks.RetentionHours = 1
	return newLessonApp(t, "tasks", &Deps{Config: cfg, Tasks: m}), m
}

func waitFor(t *testing.T, m *tasks.Manager, id string, want tasks.Status) {
	t.Helper()
	assert.Eventually(t, func() bool {
		task, ok := m.Get(id)
		return ok && task.Status == want
	}, 2*time.Second, 10*time.Millisecond)
}

func TestQueueEmail(t *testing.T) {
	app, m := newTasksApp(t)

	resp, _ := app.Test(jsonRequest(http.MethodPost, "/send-email", tasks.EmailRequest{
		To: "someone@example.com", Subject: "Hi", Body: "Hello there",
	}))
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	id := decode[map[string]any](t, resp)["task_id"].(string)
	waitFor(t, m, id, tasks.StatusCompleted)

	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/task-status/"+id, nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	task := decode[tasks.Task](t, resp)
	assert.Equal(t, 1.0, task.Progress)
	assert.NotNil(t, task.Result)

	resp, _ = app.Test(httptest.NewRequest(http.MethodDelete, "/task/"+id, nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "completed", decode[map[string]any](t, resp)["previous_status"])

	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/task-status/"+id, nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "TASK_NOT_FOUND", errorCode(t, resp))

	t.Run("invalid recipient", func(t *testing.T) {
		resp, _ := app.Test(jsonRequest(http.MethodPost, "/send-email", map[string]any{
			"to": "not-an-email", "subject": "Hi", "body": "x",
		}))
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})
}

func TestBatchProcess(t *testing.T) {
	app, m := newTasksApp(t)

	resp, _ := app.Test(jsonRequest(http.MethodPost, "/batch-process", map[string]any{
		"file_paths": []string{"a.png", "b.png"},
		"operation":  "compress",
	}))
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	ids := body["individual_tasks"].([]any)
	require.Len(t, ids, 2)
	for _, id := range ids {
		waitFor(t, m, id.(string), tasks.StatusCompleted)
	}

	batch, ok := m.Get(body["batch_task_id"].(string))
	require.True(t, ok)
	assert.Len(t, batch.Metadata["individual_tasks"], 2)

	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/tasks?status=completed", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), decode[map[string]any](t, resp)["filtered"])

	resp, _ = app.Test(jsonRequest(http.MethodPost, "/batch-process", map[string]any{"file_paths": []string{}, "operation": "compress"}))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestCleanupWithoutDatabase(t *testing.T) {
	app, m := newTasksApp(t)

	resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/cleanup-database", nil))
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	id := decode[map[string]any](t, resp)["task_id"].(string)
	waitFor(t, m, id, tasks.StatusCompleted)
}

func TestReportNeedsStorage(t *testing.T) {
	app, m := newTasksApp(t)

	resp, _ := app.Test(jsonRequest(http.MethodPost, "/generate-report", tasks.ReportRequest{
		ReportType: "sales", DateRange: map[string]string{"start": "2024-01-01", "end": "2024-01-31"},
	}))
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	id := decode[map[string]any](t, resp)["task_id"].(string)
	waitFor(t, m, id, tasks.StatusFailed)
}

func TestRemoveUnknownTask(t *testing.T) {
	app, _ := newTasksApp(t)

	resp, _ := app.Test(httptest.NewRequest(http.MethodDelete, "/task/missing", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "TASK_NOT_FOUND", errorCode(t, resp))
}

func TestAsyncDemo(t *testing.T) {
	prev := asyncUnit
	asyncUnit = 20 * time.Millisecond
	t.Cleanup(func() { asyncUnit = prev })

	app, _ := newTasksApp(t)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/async-demo", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []any{
		"Task 1 completed in 1 seconds",
		"Task 2 completed in 2 seconds",
		"Task 3 completed in 0.5 seconds",
	}, decode[map[string]any](t, resp)["results"])
}

func TestTasksHealth(t *testing.T) {
	app, _ := newTasksApp(t)

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, false, body["scheduler_active"])
	assert.Contains(t, body, "task_statistics")
}
