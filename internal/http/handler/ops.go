package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"apicourse/internal/config"
	"apicourse/internal/health"
	"apicourse/internal/http/middleware"
)

// HealthCheck reports every dependency. An unhealthy service answers 503 with the same report.
//
// @Summary Aggregate health report
// @Description Probes every configured dependency and the host.
// @Tags ops
// @Produce json
// @Success 200 {object} health.Report
// @Failure 503 {object} health.Report
// @Router /health [get]
func HealthCheck(checker *health.Checker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		report := checker.Check(c.UserContext())
		status := fiber.StatusOK
		if report.Status == health.StatusUnhealthy {
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(report)
	}
}

// LivenessProbe answers as long as the process serves requests.
//
// @Summary Liveness probe
// @Tags ops
// @Produce json
// @Success 200
// @Router /health/live [get]
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "alive", "timestamp": time.Now().UTC()})
	}
}

// ReadinessProbe answers 503 until the database responds.
//
// @Summary Readiness probe
// @Tags ops
// @Produce json
// @Success 200
// @Failure 503
// @Router /health/ready [get]
func ReadinessProbe(checker *health.Checker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !checker.Ready(c.UserContext()) {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "service not ready")
		}
		return c.JSON(fiber.Map{"status": "ready", "timestamp": time.Now().UTC()})
	}
}

// ShowConfig exposes the non-sensitive configuration.
//
// @Summary Non-sensitive configuration
// @Tags ops
// @Produce json
// @Success 200
// @Router /config [get]
func ShowConfig(cfg *config.AppConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(cfg.Sanitized())
	}
}

// ShowVersion reports build information.
//
// @Summary Build information
// @Tags ops
// @Produce json
// @Success 200
// @Router /version [get]
func ShowVersion(cfg *config.AppConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"version":     cfg.Version,
			"environment": cfg.Environment,
			"build_time":  BuildTime,
			"git_commit":  GitCommit,
		})
	}
}

// Build metadata, set with -ldflags "-X apicourse/internal/http/handler.GitCommit=...".
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func registerOps(r fiber.Router, d *Deps) error {
	checker := d.Health
	if checker == nil {
		checker = health.NewChecker(health.Options{})
	}
	r.Get("/health", HealthCheck(checker))
	r.Get("/health/live", LivenessProbe())
	r.Get("/health/ready", ReadinessProbe(checker))
	if d.Gatherer != nil {
		r.Get(middleware.MetricsPath, middleware.Metrics(d.Gatherer))
	}
	r.Get("/config", ShowConfig(d.Config))
	r.Get("/version", ShowVersion(d.Config))
	return nil
}
