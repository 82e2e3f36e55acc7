package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apicourse/internal/apperr"
)

func newMetricsApp(t *testing.T) (*PrometheusMiddleware, *prometheus.Registry, *fiber.App) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m, err := NewPrometheusMiddleware(reg)
	require.NoError(t, err)

	app := newTestApp()
	app.Use(m.Handler())
	app.Get(MetricsPath, Metrics(reg))
	app.Get("/items/:item_id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Delete("/items/:item_id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })
	app.Get("/bank/accounts/:id", func(c *fiber.Ctx) error {
		return apperr.BusinessRule("account is inactive")
	})
	return m, reg, app
}

func TestPrometheusCountsByRoute(t *testing.T) {
	m, _, app := newMetricsApp(t)

	tests := []struct {
		method string
		target string
		route  string
		status string
	}{
		{http.MethodGet, "/items/1", "/items/:item_id", "200"},
		{http.MethodDelete, "/items/2", "/items/:item_id", "204"},
		{http.MethodGet, "/bank/accounts/3", "/bank/accounts/:id", "422"},
		{http.MethodGet, "/nowhere", "/nowhere", "404"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			_, err := app.Test(httptest.NewRequest(tt.method, tt.target, nil))
			require.NoError(t, err)
			assert.Equal(t, 1.0, testutil.ToFloat64(m.requestCount.WithLabelValues(tt.method, tt.route, tt.status)))
		})
	}
	assert.Positive(t, testutil.CollectAndCount(m.requestDuration))
}

func TestPrometheusSkipsMetricsPath(t *testing.T) {
	_, reg, app := newMetricsApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, MetricsPath, nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() == "http_requests_total" {
			assert.Empty(t, mf.GetMetric())
		}
	}
}

func TestMetricsExposition(t *testing.T) {
	_, _, app := newMetricsApp(t)

	_, err := app.Test(httptest.NewRequest(http.MethodGet, "/items/7", nil))
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, MetricsPath, nil))
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `http_requests_total{method="GET",path="/items/:item_id",status="200"} 1`)
}

func TestPrometheusDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheusMiddleware(reg)
	require.NoError(t, err)

	_, err = NewPrometheusMiddleware(reg)
	assert.Error(t, err)
}
