package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apicourse/internal/config"
	"apicourse/internal/health"
	"apicourse/internal/http/middleware"
)

func testConfig() *config.AppConfig {
	cfg := &config.AppConfig{AppName: "apicourse", Version: "test", Environment: "test"}
	cfg.Auth.Secret = "test-secret"
	cfg.Auth.AccessTTLMin = 5
	cfg.Auth.RefreshTTLDays = 1
	cfg.Tasks.Workers = 1
	cfg.Tasks.QueueSize = 8
	return cfg
}

func newTestApp(t *testing.T, lessons ...string) *App {
	t.Helper()
	a, err := New(context.Background(), testConfig(), zerolog.Nop(), Options{
		Lessons: lessons,
		Sampler: health.SamplerFunc(func(context.Context) (health.SystemMetrics, error) {
			return health.SystemMetrics{CPUUsage: 1, MemoryUsage: 1}, nil
		}),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		assert.NoError(t, a.Shutdown(ctx))
	})
	return a
}

func TestIndex(t *testing.T) {
	a := newTestApp(t, "intro", "db", "tasks", "ops", "testing")

	resp, err := a.Fiber.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Lessons []indexEntry `json:"lessons"`
		Skipped []Skipped    `json:"skipped"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	var slugs []string
	for _, l := range body.Lessons {
		slugs = append(slugs, l.Slug)
	}
	assert.Equal(t, []string{"intro", "tasks", "ops"}, slugs)
	assert.Equal(t, "/", body.Lessons[2].Prefix)
	require.Len(t, body.Skipped, 1)
	assert.Equal(t, "db", body.Skipped[0].Slug)
	assert.Contains(t, body.Skipped[0].Reason, "user service is not configured")
}

func TestLessonsMountedUnderPrefix(t *testing.T) {
	a := newTestApp(t, "intro", "ops")

	resp, err := a.Fiber.Test(httptest.NewRequest(http.MethodGet, "/intro/items/5", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = a.Fiber.Test(httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = a.Fiber.Test(httptest.NewRequest(http.MethodGet, "/methods/items", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGlobalMiddleware(t *testing.T) {
	a := newTestApp(t, "intro", "ops")

	resp, err := a.Fiber.Test(httptest.NewRequest(http.MethodGet, "/intro", nil))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	resp, err = a.Fiber.Test(httptest.NewRequest(http.MethodGet, middleware.MetricsPath, nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), "http_requests_total")
	assert.Contains(t, string(raw), "app_uptime_seconds")
}

func TestUnknownLesson(t *testing.T) {
	_, err := New(context.Background(), testConfig(), zerolog.Nop(), Options{Lessons: []string{"nope"}})
	assert.ErrorContains(t, err, `unknown lesson "nope"`)
}

func TestMountedAndSkipped(t *testing.T) {
	a := newTestApp(t, "security", "deps")

	require.Len(t, a.Mounted(), 1)
	assert.Equal(t, "deps", a.Mounted()[0].Slug)
	require.Len(t, a.SkippedLessons(), 1)
	assert.Equal(t, "security", a.SkippedLessons()[0].Slug)
}
