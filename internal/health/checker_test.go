package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func fixedSampler(cpu, mem float64) Sampler {
	return SamplerFunc(func(context.Context) (SystemMetrics, error) {
		return SystemMetrics{CPUUsage: cpu, MemoryUsage: mem, DiskUsage: 40, ProcessCount: 12}, nil
	})
}

func newMockDB(t *testing.T) (DB, sqlmock.Sqlmock) {
	t.Helper()
	db, m, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, m
}

func TestChecker_Check(t *testing.T) {
	tests := []struct {
		name    string
		dbErr   error
		cache   Pinger
		cpu     float64
		mem     float64
		want    Status
		checked []string
	}{
		{name: "all healthy", cache: pinger{}, cpu: 10, mem: 20, want: StatusHealthy, checked: []string{"database", "cache"}},
		{name: "database down", dbErr: errors.New("refused"), cache: pinger{}, cpu: 10, mem: 20, want: StatusUnhealthy},
		{name: "cache down", cache: pinger{err: errors.New("timeout")}, cpu: 10, mem: 20, want: StatusDegraded},
		{name: "database and cache down", dbErr: errors.New("refused"), cache: pinger{err: errors.New("timeout")}, want: StatusUnhealthy},
		{name: "cpu pressure", cpu: 95, mem: 20, want: StatusDegraded},
		{name: "memory pressure", cpu: 10, mem: 91, want: StatusDegraded},
		{name: "at threshold", cpu: 90, mem: 90, want: StatusHealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, dbMock := newMockDB(t)
			if tt.dbErr != nil {
				dbMock.ExpectPing().WillReturnError(tt.dbErr)
			} else {
				dbMock.ExpectPing()
			}

			c := NewChecker(Options{
				DB:          db,
				Cache:       tt.cache,
				Sampler:     fixedSampler(tt.cpu, tt.mem),
				Version:     "1.2.3",
				Environment: "test",
			})
			rep := c.Check(context.Background())

			assert.Equal(t, tt.want, rep.Status)
			assert.Equal(t, "1.2.3", rep.Version)
			assert.Equal(t, "test", rep.Environment)
			assert.Contains(t, rep.Checks, "system_metrics")
			for _, name := range tt.checked {
				assert.Contains(t, rep.Checks, name)
			}
			assert.NoError(t, dbMock.ExpectationsWereMet())
		})
	}
}

func TestChecker_OmitsUnconfigured(t *testing.T) {
	c := NewChecker(Options{Sampler: fixedSampler(1, 1)})
	rep := c.Check(context.Background())

	assert.Equal(t, StatusHealthy, rep.Status)
	assert.NotContains(t, rep.Checks, "database")
	assert.NotContains(t, rep.Checks, "cache")
	assert.NotContains(t, rep.Checks, "external_services")
	assert.True(t, c.Ready(context.Background()))
}

func TestChecker_Database(t *testing.T) {
	db, dbMock := newMockDB(t)
	dbMock.ExpectPing().WillReturnError(errors.New("boom"))

	c := NewChecker(Options{DB: db, Sampler: fixedSampler(1, 1)})
	chk, ok := c.Database(context.Background())

	require.True(t, ok)
	assert.Equal(t, StatusUnhealthy, chk.Status)
	assert.Equal(t, "boom", chk.Error)
	assert.Contains(t, chk.Details, "connections")
}

func TestChecker_Ready(t *testing.T) {
	db, dbMock := newMockDB(t)
	dbMock.ExpectPing()
	dbMock.ExpectPing().WillReturnError(errors.New("down"))

	c := NewChecker(Options{DB: db, Sampler: fixedSampler(1, 1)})
	assert.True(t, c.Ready(context.Background()))
	assert.False(t, c.Ready(context.Background()))
}

func TestChecker_External(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer up.Close()
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer down.Close()

	t.Run("up", func(t *testing.T) {
		c := NewChecker(Options{ExternalURL: up.URL, Sampler: fixedSampler(1, 1)})
		chk, ok := c.External(context.Background())
		require.True(t, ok)
		assert.Equal(t, StatusHealthy, chk.Status)
	})

	t.Run("down degrades", func(t *testing.T) {
		c := NewChecker(Options{ExternalURL: down.URL, Sampler: fixedSampler(1, 1)})
		rep := c.Check(context.Background())
		assert.Equal(t, StatusDegraded, rep.Status)
		chk := rep.Checks["external_services"].(Check)
		assert.Contains(t, chk.Error, "502")
	})
}

func TestChecker_SamplerFailure(t *testing.T) {
	c := NewChecker(Options{Sampler: SamplerFunc(func(context.Context) (SystemMetrics, error) {
		return SystemMetrics{}, errors.New("no procfs")
	})})
	m := c.System(context.Background())
	assert.Equal(t, "no procfs", m.Error)
	assert.Zero(t, m.CPUUsage)
}

func TestChecker_RegisterMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewChecker(Options{Sampler: fixedSampler(33, 44)})
	require.NoError(t, c.RegisterMetrics(reg))

	n, err := testutil.GatherAndCount(reg, "cpu_usage_percent", "memory_usage_percent", "disk_usage_percent", "process_count", "app_uptime_seconds")
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	assert.Error(t, c.RegisterMetrics(reg), "registering twice must fail")
}
