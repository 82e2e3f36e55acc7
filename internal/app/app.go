// Package app assembles the fiber application: shared middleware, the
// dependencies the selected lessons need and the lesson routes themselves.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"apicourse/docs"
	"apicourse/internal/auth"
	"apicourse/internal/cache"
	"apicourse/internal/config"
	"apicourse/internal/database"
	"apicourse/internal/database/migration"
	"apicourse/internal/health"
	"apicourse/internal/http/handler"
	"apicourse/internal/http/middleware"
	"apicourse/internal/lesson"
	"apicourse/internal/logger"
	"apicourse/internal/realtime"
	"apicourse/internal/repository/postgres"
	"apicourse/internal/service"
	"apicourse/internal/storage"
	"apicourse/internal/tasks"
)

const (
	cachePrefix   = "apicourse:"
	hubQueueSize  = 64
	cleanupTask   = "database_cleanup"
	uploadHeadway = 1 << 20
)

// Options tunes New. The zero value serves the lessons listed in the configuration.
type Options struct {
	// Lessons overrides cfg.Lessons. Empty selects every lesson.
	Lessons []string
	// Sampler replaces the host metrics sampler of the health checker.
	Sampler health.Sampler
}

// Skipped is a selected lesson that could not be mounted.
type Skipped struct {
	Slug   string `json:"slug"`
	Reason string `json:"reason"`
}

// App is the assembled server together with the resources it owns.
type App struct {
	Fiber *fiber.App

	cfg      *config.AppConfig
	log      zerolog.Logger
	selected []lesson.Lesson
	mounted  []lesson.Lesson
	skipped  []Skipped

	db        *sql.DB
	cache     cache.Cache
	tasks     *tasks.Manager
	scheduler *tasks.Scheduler
	hub       *realtime.Hub

	releaseOnce sync.Once
	releaseErr  error
}

// New connects what the selected lessons need and mounts their routes.
// Dependencies without configuration are left out; lessons that cannot run
// without them are skipped and reported by the root index.
func New(ctx context.Context, cfg *config.AppConfig, log zerolog.Logger, opts Options) (*App, error) {
	ids := opts.Lessons
	if len(ids) == 0 {
		ids = cfg.Lessons
	}
	selected, err := lesson.Select(ids)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, log: logger.Component(log, "app"), selected: selected}
	d, err := a.connect(ctx, log, opts)
	if err != nil {
		a.release(ctx)
		return nil, err
	}

	a.Fiber = fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ErrorHandler: handler.ErrorHandler(),
		BodyLimit:    bodyLimit(cfg.Upload.MaxFileSize),
	})
	if err := a.use(log, d); err != nil {
		a.release(ctx)
		return nil, err
	}
	if err := a.mount(d); err != nil {
		a.release(ctx)
		return nil, err
	}
	a.Fiber.Get("/", a.index)
	a.Fiber.Get("/swagger/*", swaggerUI)

	if a.scheduler != nil {
		a.scheduler.Start()
	}
	a.log.Info().
		Str("event", "app_ready").
		Int("lessons_mounted", len(a.mounted)).
		Int("lessons_skipped", len(a.skipped)).
		Send()
	return a, nil
}

func bodyLimit(maxUpload int64) int {
	if maxUpload <= 0 {
		return fiber.DefaultBodyLimit
	}
	return int(maxUpload) + uploadHeadway
}

func selects(lessons []lesson.Lesson, slug string) bool {
	for _, l := range lessons {
		if l.Slug == slug {
			return true
		}
	}
	return false
}

// connect builds the lesson dependencies.
func (a *App) connect(ctx context.Context, log zerolog.Logger, opts Options) (*handler.Deps, error) {
	cfg := a.cfg
	needs := lesson.Needs(a.selected)
	d := &handler.Deps{Config: cfg, Log: log}

	if needs[lesson.NeedDatabase] {
		if cfg.Database.Host == "" {
			a.log.Warn().Str("event", "dependency_not_configured").Str("dependency", "database").Send()
		} else {
			db, err := database.NewPostgres(ctx, cfg.Database)
			if err != nil {
				return nil, fmt.Errorf("connect database: %w", err)
			}
			a.db = db
			if err := migration.EnsureMigrated(ctx, db, log, cfg.Database.Host); err != nil {
				return nil, fmt.Errorf("migrate database: %w", err)
			}
			d.DB = db
		}
	}

	if needs[lesson.NeedStorage] {
		if cfg.MinIO.Endpoint == "" {
			a.log.Warn().Str("event", "dependency_not_configured").Str("dependency", "storage").Send()
		} else {
			store, err := storage.NewMinIO(ctx, cfg.MinIO)
			if err != nil {
				return nil, fmt.Errorf("connect storage: %w", err)
			}
			d.Storage = store
		}
	}

	if cfg.Redis.Addr != "" {
		r, err := cache.NewRedis(ctx, cfg.Redis, cachePrefix)
		if err != nil {
			return nil, fmt.Errorf("connect cache: %w", err)
		}
		a.cache = r
	} else {
		a.cache = cache.NewMemory()
	}
	d.Cache = a.cache

	d.Tokens = auth.NewTokenManager(cfg.Auth.Secret, cfg.AppName, cfg.Auth.AccessTTL(), cfg.Auth.RefreshTTL(),
		auth.WithRevoker(auth.NewCacheRevoker(a.cache)))

	if d.DB != nil {
		users := postgres.NewUserPostgres(d.DB)
		d.Users = service.NewUserService(users, postgres.NewAPIKeyPostgres(d.DB),
			auth.NewHasher(cfg.Auth.BcryptCost), d.Tokens, log)
		x := database.NewSQLX(d.DB)
		d.Blog = service.NewBlogService(users,
			postgres.NewPostSQLX(x), postgres.NewCommentSQLX(x), postgres.NewTagSQLX(x), postgres.NewStatsSQLX(x))
		if d.Storage != nil {
			d.Documents = service.NewDocumentService(d.Storage, postgres.NewDocumentPostgres(d.DB))
		}
		if cfg.Auth.SeedDemoUsers {
			if err := d.Users.SeedDemoUsers(ctx); err != nil {
				return nil, fmt.Errorf("seed demo users: %w", err)
			}
		}
	}

	if selects(a.selected, "tasks") {
		a.tasks = tasks.NewManager(cfg.Tasks.Workers, cfg.Tasks.QueueSize, log)
		a.scheduler = tasks.NewScheduler(a.tasks, log)
		d.Tasks, d.Scheduler = a.tasks, a.scheduler
		if err := a.scheduleCleanup(d); err != nil {
			return nil, err
		}
	}
	if selects(a.selected, "advanced") {
		a.hub = realtime.NewHub(hubQueueSize, log)
		d.Hub = a.hub
	}

	hopts := health.Options{
		Cache:       a.cache,
		ExternalURL: cfg.Health.ExternalURL,
		Timeout:     time.Duration(cfg.Health.ExternalTimeoutSec) * time.Second,
		Sampler:     opts.Sampler,
		Version:     cfg.Version,
		Environment: cfg.Environment,
	}
	if d.DB != nil {
		hopts.DB = d.DB
	}
	if d.Storage != nil {
		hopts.Storage = d.Storage
	}
	d.Health = health.NewChecker(hopts)
	return d, nil
}

func (a *App) scheduleCleanup(d *handler.Deps) error {
	spec := a.cfg.Tasks.CleanupSchedule
	if spec == "" {
		return nil
	}
	retention := time.Duration(a.cfg.Tasks.RetentionHours) * time.Hour
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	delay := time.Duration(a.cfg.Tasks.StepDelayMs) * time.Millisecond
	var purger tasks.KeyPurger
	if d.Users != nil {
		purger = d.Users
	}
	return a.scheduler.Schedule(cleanupTask, spec, func() tasks.Job {
		return tasks.CleanupJob(purger, a.tasks, retention, delay)
	})
}

// use installs the middleware every request goes through.
func (a *App) use(log zerolog.Logger, d *handler.Deps) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return fmt.Errorf("register http metrics: %w", err)
	}
	if err := d.Health.RegisterMetrics(reg); err != nil {
		return fmt.Errorf("register health metrics: %w", err)
	}
	d.Gatherer = reg

	a.Fiber.Use(
		otelfiber.Middleware(),
		middleware.RequestID(),
		middleware.Logger(log),
		recover.New(),
		prom.Handler(),
		middleware.SecurityHeaders(),
		cors.New(cors.Config{
			AllowOrigins:  strings.Join(a.cfg.CORSOrigins, ","),
			AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-API-Key, X-Request-ID",
			ExposeHeaders: "X-Request-ID, " + middleware.ProcessTimeHeader,
		}),
		compress.New(),
	)
	return nil
}

// mount registers the selected lessons under their prefixes.
func (a *App) mount(d *handler.Deps) error {
	for _, l := range a.selected {
		if !l.Routes {
			continue
		}
		var r fiber.Router = a.Fiber
		if l.Prefix != "" {
			r = a.Fiber.Group(l.Prefix)
		}
		if err := handler.RegisterLesson(r, l.Slug, d); err != nil {
			if errors.Is(err, handler.ErrNotConfigured) {
				a.skipped = append(a.skipped, Skipped{Slug: l.Slug, Reason: err.Error()})
				a.log.Warn().Str("event", "lesson_skipped").Str("lesson", l.Slug).Err(err).Send()
				continue
			}
			return err
		}
		a.mounted = append(a.mounted, l)
	}
	return nil
}

type indexEntry struct {
	Number int          `json:"number"`
	Slug   string       `json:"slug"`
	Title  string       `json:"title"`
	Level  lesson.Level `json:"level"`
	Prefix string       `json:"prefix"`
}

func (a *App) index(c *fiber.Ctx) error {
	lessons := make([]indexEntry, 0, len(a.mounted))
	for _, l := range a.mounted {
		prefix := l.Prefix
		if prefix == "" {
			prefix = "/"
		}
		lessons = append(lessons, indexEntry{Number: l.Number, Slug: l.Slug, Title: l.Title, Level: l.Level, Prefix: prefix})
	}
	return c.JSON(fiber.Map{
		"message": "Welcome to " + a.cfg.AppName,
		"version": a.cfg.Version,
		"docs":    "/swagger/index.html",
		"lessons": lessons,
		"skipped": a.skipped,
	})
}

// swaggerUI serves the API docs with the host and scheme of the request.
func swaggerUI(c *fiber.Ctx) error {
	scheme := c.Protocol()
	if proto := c.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.Split(proto, ",")[0]
	}
	docs.SwaggerInfo.Host = c.Get("Host")
	docs.SwaggerInfo.Schemes = []string{scheme}
	return swagger.HandlerDefault(c)
}

// Mounted lists the lessons whose routes are being served.
func (a *App) Mounted() []lesson.Lesson { return a.mounted }

// SkippedLessons lists the selected lessons left out for lack of a dependency.
func (a *App) SkippedLessons() []Skipped { return a.skipped }

// Run serves on addr until ctx is done, then shuts down within timeout.
func (a *App) Run(ctx context.Context, addr string, timeout time.Duration) error {
	errc := make(chan error, 1)
	go func() {
		a.log.Info().Str("event", "server_listening").Str("addr", addr).Send()
		errc <- a.Fiber.Listen(addr)
	}()

	select {
	case err := <-errc:
		a.release(context.Background())
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return a.Shutdown(sctx)
}

// Shutdown stops accepting requests and releases every resource the app owns.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if a.Fiber != nil {
		if err := a.Fiber.ShutdownWithContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	if err := a.release(ctx); err != nil {
		errs = append(errs, err)
	}
	a.log.Info().Str("event", "app_stopped").Send()
	return errors.Join(errs...)
}

func (a *App) release(ctx context.Context) error {
	a.releaseOnce.Do(func() { a.releaseErr = a.closeAll(ctx) })
	return a.releaseErr
}

func (a *App) closeAll(ctx context.Context) error {
	var errs []error
	if a.scheduler != nil {
		a.scheduler.Stop(ctx)
	}
	if a.tasks != nil {
		if err := a.tasks.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("task shutdown: %w", err))
		}
	}
	if a.hub != nil {
		a.hub.Close()
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cache: %w", err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}
