package handler

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/session"

	"apicourse/internal/http/middleware"
)

// slowDelay is how long /slow-endpoint works before answering.
var slowDelay = time.Second

var middlewareLayers = []string{
	"otelfiber",
	"requestid",
	"logger",
	"recover",
	"prometheus",
	"security headers",
	"cors",
	"compress",
	"trusted hosts",
	"timing",
	"rate limit",
	"session",
	"bearer auth",
}

// PipelineRoutes demonstrates middleware applied to a group of routes.
type PipelineRoutes struct {
	sessions *session.Store
}

func NewPipelineRoutes(sessions *session.Store) *PipelineRoutes {
	return &PipelineRoutes{sessions: sessions}
}

func registerMiddleware(r fiber.Router, d *Deps) error {
	if d.Tokens == nil {
		return missing("token manager")
	}
	requests, period := d.Config.RateLimit.Requests, d.Config.RateLimit.Period()
	if requests <= 0 {
		requests, period = 100, time.Minute
	}
	limiter := middleware.NewRateLimiter(requests, period)
	h := NewPipelineRoutes(session.New(session.Config{
		Expiration:     24 * time.Hour,
		KeyLookup:      "cookie:session_id",
		CookieHTTPOnly: true,
		CookieSameSite: fiber.CookieSameSiteLaxMode,
	}))

	r.Use(
		recover.New(),
		middleware.TrustedHosts(d.Config.TrustedHosts),
		middleware.Timing(),
		middleware.RateLimit(limiter, nil),
	)

	r.Get("/", h.Root)
	r.Get("/large-data", LargeData)
	r.Get("/test-compression", CompressionTest)
	r.Get("/slow-endpoint", SlowEndpoint)
	r.Post("/session-demo", h.SessionDemo)
	r.Get("/rate-limit-test", RateLimitTest)
	r.Get("/error-test", ErrorTest)
	r.Get("/middleware-info", MiddlewareInfo)
	r.Get("/test-cors", CORSTest)

	authed := middleware.Authenticate(d.Tokens)
	protected := r.Group("/protected", authed)
	protected.Get("/data", ProtectedData)
	admin := r.Group("/admin", authed, middleware.RequireRoles("admin"))
	admin.Get("/dashboard", AdminDashboard)
	return nil
}

func (h *PipelineRoutes) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message":   "Hello World!",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"note":      "This response went through all middleware layers",
	})
}

func LargeData(c *fiber.Ctx) error {
	items := make([]fiber.Map, 0, 100)
	for i := range 100 {
		items = append(items, fiber.Map{
			"id":   i,
			"data": strings.Repeat(fmt.Sprintf("Large data item %d", i), 10),
		})
	}
	return c.JSON(fiber.Map{"message": "Large data response", "data": items, "size": len(items)})
}

func CompressionTest(c *fiber.Ctx) error {
	data := strings.Repeat("This is a test string that will be repeated many times. ", 1000)
	return c.JSON(fiber.Map{
		"message": "Compression test",
		"data":    data,
		"size":    len(data),
	})
}

// SlowEndpoint holds the request for slowDelay. fasthttp does not cancel the
// request context when a client goes away, so the wait always runs to the end.
func SlowEndpoint(c *fiber.Ctx) error {
	time.Sleep(slowDelay)
	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("This endpoint took %s to process", slowDelay),
		"note":    "Check the " + middleware.ProcessTimeHeader + " header",
	})
}

// SessionDemo counts visits in a cookie backed session.
func (h *PipelineRoutes) SessionDemo(c *fiber.Ctx) error {
	sess, err := h.sessions.Get(c)
	if err != nil {
		return fail(c, err)
	}
	visits, _ := sess.Get("visits").(int)
	visits++
	sess.Set("visits", visits)
	id := sess.ID()
	fresh := sess.Fresh()
	if err := sess.Save(); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"message":    "Session demo",
		"visits":     visits,
		"session_id": id,
		"new":        fresh,
	})
}

func ProtectedData(c *fiber.Ctx) error {
	p, _ := middleware.PrincipalFrom(c)
	return c.JSON(fiber.Map{
		"message": "Protected data accessed successfully",
		"user":    p,
		"data":    "This is sensitive information",
	})
}

func AdminDashboard(c *fiber.Ctx) error {
	p, _ := middleware.PrincipalFrom(c)
	return c.JSON(fiber.Map{
		"message":    "Admin dashboard",
		"user":       p,
		"admin_data": []string{"User management", "System stats", "Configuration"},
	})
}

func RateLimitTest(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message":   "Rate limit test",
		"note":      "Call this endpoint repeatedly to test rate limiting",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// ErrorTest panics; the recover middleware turns it into a 500.
func ErrorTest(c *fiber.Ctx) error {
	panic("this is a test error")
}

func MiddlewareInfo(c *fiber.Ctx) error {
	headers := make(map[string]string)
	c.Request().Header.VisitAll(func(k, v []byte) {
		headers[string(k)] = string(v)
	})
	rid := middleware.RequestIDFrom(c)
	if rid == "" {
		rid = "not available"
	}
	return c.JSON(fiber.Map{
		"message":           "Middleware information",
		"request_id":        rid,
		"client_ip":         c.IP(),
		"user_agent":        c.Get(fiber.HeaderUserAgent),
		"headers":           headers,
		"middleware_layers": middlewareLayers,
	})
}

func CORSTest(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "CORS test",
		"origin":  c.Get(fiber.HeaderOrigin),
		"cors_headers": []string{
			fiber.HeaderAccessControlAllowOrigin,
			fiber.HeaderAccessControlAllowMethods,
			fiber.HeaderAccessControlAllowHeaders,
		},
	})
}
