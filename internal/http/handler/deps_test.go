package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apicourse/internal/cache"
)

func withKey(req *http.Request, key string) *http.Request {
	req.Header.Set(apiKeyHeader, key)
	return req
}

func TestAPIKeyDependency(t *testing.T) {
	app := newLessonApp(t, "deps", &Deps{Cache: cache.NewMemory()})

	t.Run("missing key", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/protected", nil))
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "UNAUTHORIZED", errorCode(t, resp))
	})

	t.Run("unknown key", func(t *testing.T) {
		resp, _ := app.Test(withKey(httptest.NewRequest(http.MethodGet, "/protected", nil), "nope"))
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("valid key", func(t *testing.T) {
		resp, _ := app.Test(withKey(httptest.NewRequest(http.MethodGet, "/protected", nil), "user-key-789"))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, []any{"read"}, decode[map[string]any](t, resp)["permissions"])
	})

	levels := []struct {
		key   string
		level string
		admin bool
	}{
		{"admin-key-456", "admin", true},
		{"secret-key-123", "editor", false},
		{"user-key-789", "viewer", false},
	}
	for _, tt := range levels {
		t.Run("dashboard "+tt.level, func(t *testing.T) {
			resp, err := app.Test(withKey(httptest.NewRequest(http.MethodGet, "/user-dashboard", nil), tt.key), -1)
			require.NoError(t, err)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			body := decode[map[string]any](t, resp)
			assert.Equal(t, tt.level, body["user_context"].(map[string]any)["user_level"])
			_, hasAdmin := body["admin_section"]
			assert.Equal(t, tt.admin, hasAdmin)
		})
	}
}

func TestSettingsLoadOnce(t *testing.T) {
	app := newLessonApp(t, "deps", &Deps{})

	first, err := app.Test(httptest.NewRequest(http.MethodGet, "/settings", nil), -1)
	require.NoError(t, err)
	second, err := app.Test(httptest.NewRequest(http.MethodGet, "/settings", nil), -1)
	require.NoError(t, err)

	a := decode[map[string]any](t, first)["settings"].(map[string]any)
	b := decode[map[string]any](t, second)["settings"].(map[string]any)
	assert.Equal(t, a["loaded_at"], b["loaded_at"])
}

func TestPagedUsersDependency(t *testing.T) {
	app := newLessonApp(t, "deps", &Deps{})

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/users?skip=5&limit=3", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	users := body["users"].([]any)
	require.Len(t, users, 3)
	assert.Equal(t, float64(6), users[0].(map[string]any)["id"])

	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/users?limit=101", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestCacheDependency(t *testing.T) {
	app := newLessonApp(t, "deps", &Deps{Cache: cache.NewMemory()})

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/cached-data/greeting", nil))
	assert.Equal(t, false, decode[map[string]any](t, resp)["cached"])
	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/cached-data/greeting", nil))
	assert.Equal(t, true, decode[map[string]any](t, resp)["cached"])

	resp, _ = app.Test(jsonRequest(http.MethodPost, "/cache/color?ttl=60", map[string]any{"value": "blue"}))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(60), decode[map[string]any](t, resp)["ttl"])

	resp, _ = app.Test(httptest.NewRequest(http.MethodDelete, "/cache/color", nil))
	assert.Equal(t, true, decode[map[string]any](t, resp)["existed"])
	resp, _ = app.Test(httptest.NewRequest(http.MethodDelete, "/cache/color", nil))
	assert.Equal(t, false, decode[map[string]any](t, resp)["existed"])

	t.Run("body must be an object", func(t *testing.T) {
		resp, _ := app.Test(jsonRequest(http.MethodPost, "/cache/color", []string{"blue"}))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_BODY", errorCode(t, resp))
	})
}

func TestRateLimitedDependency(t *testing.T) {
	app := newLessonApp(t, "deps", &Deps{})

	for i := range 30 {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/rate-limited", nil))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode, "request %d", i+1)
		body := decode[struct {
			RateLimit struct {
				Count     int `json:"count"`
				Remaining int `json:"remaining"`
			} `json:"rate_limit"`
		}](t, resp)
		assert.Equal(t, i+1, body.RateLimit.Count)
		assert.Equal(t, 29-i, body.RateLimit.Remaining)
	}
	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/rate-limited", nil))
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", errorCode(t, resp))
}
