// Package health aggregates dependency pings and host metrics into a single report.
package health

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Thresholds above which host usage degrades the report.
const (
	CPUThreshold    = 90.0
	MemoryThreshold = 90.0
)

// DB is the part of *sql.DB the checker uses.
type DB interface {
	PingContext(ctx context.Context) error
	Stats() sql.DBStats
}

// Pinger is anything that can prove it is reachable, such as a cache or bucket.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Check is the outcome of probing one dependency.
type Check struct {
	Status         Status         `json:"status"`
	ResponseTimeMs float64        `json:"response_time_ms"`
	Error          string         `json:"error,omitempty"`
	Details        map[string]any `json:"details,omitempty"`
}

// Report is the body of the aggregate health endpoint.
type Report struct {
	Status      Status         `json:"status"`
	Timestamp   time.Time      `json:"timestamp"`
	Version     string         `json:"version"`
	Environment string         `json:"environment"`
	Uptime      float64        `json:"uptime"`
	Checks      map[string]any `json:"checks"`
}

// Options configures a Checker. Nil dependencies are left out of the report.
type Options struct {
	DB          DB
	Cache       Pinger
	Storage     Pinger
	ExternalURL string
	Timeout     time.Duration
	Sampler     Sampler
	Version     string
	Environment string
}

type Checker struct {
	db       DB
	cache    Pinger
	storage  Pinger
	external string
	client   *http.Client
	timeout  time.Duration
	sampler  Sampler
	version  string
	env      string

	start time.Time
	now   func() time.Time

	mu       sync.Mutex
	last     SystemMetrics
	lastTime time.Time
}

func NewChecker(opts Options) *Checker {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	sampler := opts.Sampler
	if sampler == nil {
		sampler = NewHostSampler(200 * time.Millisecond)
	}
	return &Checker{
		db:       opts.DB,
		cache:    opts.Cache,
		storage:  opts.Storage,
		external: opts.ExternalURL,
		client:   &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport), Timeout: timeout},
		timeout:  timeout,
		sampler:  sampler,
		version:  opts.Version,
		env:      opts.Environment,
		start:    time.Now(),
		now:      time.Now,
	}
}

// Uptime is the time since the checker was built.
func (c *Checker) Uptime() time.Duration { return c.now().Sub(c.start) }

func (c *Checker) timed(ctx context.Context, probe func(context.Context) error) Check {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := probe(ctx)
	chk := Check{Status: StatusHealthy, ResponseTimeMs: float64(time.Since(start).Microseconds()) / 1000}
	if err != nil {
		chk.Status = StatusUnhealthy
		chk.Error = err.Error()
	}
	return chk
}

// Database pings the pool and reports its connection counts.
func (c *Checker) Database(ctx context.Context) (Check, bool) {
	if c.db == nil {
		return Check{}, false
	}
	chk := c.timed(ctx, c.db.PingContext)
	st := c.db.Stats()
	chk.Details = map[string]any{
		"connections": map[string]int{
			"active": st.InUse,
			"idle":   st.Idle,
			"total":  st.OpenConnections,
		},
	}
	return chk, true
}

func (c *Checker) Cache(ctx context.Context) (Check, bool) {
	if c.cache == nil {
		return Check{}, false
	}
	return c.timed(ctx, c.cache.Ping), true
}

func (c *Checker) Storage(ctx context.Context) (Check, bool) {
	if c.storage == nil {
		return Check{}, false
	}
	return c.timed(ctx, c.storage.Ping), true
}

// External issues a GET against the configured upstream. Any status below 500 counts as up.
func (c *Checker) External(ctx context.Context) (Check, bool) {
	if c.external == "" {
		return Check{}, false
	}
	chk := c.timed(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.external, nil)
		if err != nil {
			return err
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("upstream returned %d", resp.StatusCode)
		}
		return nil
	})
	chk.Details = map[string]any{"url": c.external}
	return chk, true
}

// System samples host usage. Failures yield zero values so the report still renders.
func (c *Checker) System(ctx context.Context) SystemMetrics {
	m, err := c.sampler.Sample(ctx)
	if err != nil {
		m = SystemMetrics{Error: err.Error()}
	}
	c.mu.Lock()
	c.last, c.lastTime = m, c.now()
	c.mu.Unlock()
	return m
}

// recent returns the last sample when it is younger than maxAge, sampling otherwise.
func (c *Checker) recent(maxAge time.Duration) SystemMetrics {
	c.mu.Lock()
	m, at := c.last, c.lastTime
	c.mu.Unlock()
	if !at.IsZero() && c.now().Sub(at) < maxAge {
		return m
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	return c.System(ctx)
}

// Check probes every configured dependency concurrently and folds the results.
// A failing database makes the service unhealthy; any other failure, or cpu or
// memory usage over the thresholds, degrades it.
func (c *Checker) Check(ctx context.Context) Report {
	var (
		mu     sync.Mutex
		checks = make(map[string]any)
		status = StatusHealthy
	)
	record := func(name string, chk Check, ok bool, critical bool) {
		if !ok {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		checks[name] = chk
		if chk.Status == StatusHealthy {
			return
		}
		if critical {
			status = StatusUnhealthy
		} else if status == StatusHealthy {
			status = StatusDegraded
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { chk, ok := c.Database(gctx); record("database", chk, ok, true); return nil })
	g.Go(func() error { chk, ok := c.Cache(gctx); record("cache", chk, ok, false); return nil })
	g.Go(func() error { chk, ok := c.Storage(gctx); record("storage", chk, ok, false); return nil })
	g.Go(func() error { chk, ok := c.External(gctx); record("external_services", chk, ok, false); return nil })
	var sys SystemMetrics
	g.Go(func() error { sys = c.System(gctx); return nil })
	_ = g.Wait()

	checks["system_metrics"] = sys
	if (sys.CPUUsage > CPUThreshold || sys.MemoryUsage > MemoryThreshold) && status == StatusHealthy {
		status = StatusDegraded
	}

	return Report{
		Status:      status,
		Timestamp:   c.now().UTC(),
		Version:     c.version,
		Environment: c.env,
		Uptime:      c.Uptime().Seconds(),
		Checks:      checks,
	}
}

// Ready reports whether the service can take traffic: the database, when configured, must answer.
func (c *Checker) Ready(ctx context.Context) bool {
	chk, ok := c.Database(ctx)
	return !ok || chk.Status == StatusHealthy
}
