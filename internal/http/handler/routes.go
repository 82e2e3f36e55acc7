package handler

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"apicourse/internal/auth"
	"apicourse/internal/cache"
	"apicourse/internal/config"
	"apicourse/internal/health"
	"apicourse/internal/realtime"
	"apicourse/internal/service"
	"apicourse/internal/storage"
	"apicourse/internal/tasks"
)

// Deps carries everything lesson routes may use. Lessons that need a nil
// dependency fail to register instead of failing per request.
type Deps struct {
	Config *config.AppConfig
	Log    zerolog.Logger
	DB     *sql.DB

	Users     service.UserService
	Blog      service.BlogService
	Documents service.DocumentService
	Tokens    *auth.TokenManager

	Cache   cache.Cache
	Storage storage.Storage

	Tasks     *tasks.Manager
	Scheduler *tasks.Scheduler
	Hub       *realtime.Hub
	Health    *health.Checker
	Gatherer  prometheus.Gatherer
}

type registerFunc func(r fiber.Router, d *Deps) error

// registrars maps lesson slugs to their route sets.
var registrars = map[string]registerFunc{
	"intro":      registerIntro,
	"methods":    registerMethods,
	"paths":      registerPaths,
	"queries":    registerQueries,
	"bodies":     registerBodies,
	"responses":  registerResponses,
	"errors":     registerErrors,
	"deps":       registerDeps,
	"security":   registerSecurity,
	"db":         registerDB,
	"middleware": registerMiddleware,
	"tasks":      registerTasks,
	"ops":        registerOps,
	"advanced":   registerAdvanced,
}

// HasRoutes reports whether a lesson slug mounts any routes.
func HasRoutes(slug string) bool {
	_, ok := registrars[slug]
	return ok
}

// RegisterLesson attaches the routes of one lesson to r.
func RegisterLesson(r fiber.Router, slug string, d *Deps) error {
	reg, ok := registrars[slug]
	if !ok {
		return fmt.Errorf("lesson %q has no routes", slug)
	}
	if d.Config == nil {
		d.Config = &config.AppConfig{}
	}
	if err := reg(r, d); err != nil {
		return fmt.Errorf("register lesson %s: %w", slug, err)
	}
	return nil
}

// ErrNotConfigured is wrapped by RegisterLesson when a lesson lacks a dependency.
var ErrNotConfigured = errors.New("is not configured")

func missing(dep string) error {
	return fmt.Errorf("%s %w", dep, ErrNotConfigured)
}
