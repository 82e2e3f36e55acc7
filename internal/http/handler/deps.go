package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"

	"apicourse/internal/apperr"
	"apicourse/internal/cache"
	"apicourse/internal/http/middleware"
)

const (
	apiKeyHeader       = "X-API-Key"
	permissionsKey     = "permissions"
	existingUsers      = 100
	cachedDataTTL      = time.Minute
	defaultCacheTTLSec = 300
)

// keyPermissions maps the demo API keys to what they may do.
var keyPermissions = map[string][]string{
	"secret-key-123": {"read", "write", "delete"},
	"admin-key-456":  {"read", "write", "delete", "admin"},
	"user-key-789":   {"read"},
}

type pageQuery struct {
	Skip  int `query:"skip" validate:"gte=0"`
	Limit int `query:"limit" validate:"gte=1,lte=100"`
}

type cacheSetQuery struct {
	TTL int `query:"ttl" validate:"gte=0"`
}

// connectionPool hands out numbered connections and counts them.
type connectionPool struct {
	count atomic.Int64
}

type connection struct {
	ID          string    `json:"connection_id"`
	ConnectedAt time.Time `json:"connected_at"`
	Status      string    `json:"status"`
}

func (p *connectionPool) acquire() connection {
	n := p.count.Add(1)
	return connection{ID: fmt.Sprintf("conn_%d", n), ConnectedAt: time.Now().UTC(), Status: "active"}
}

// directory serves generated users, remembering the ones it has produced.
type directory struct {
	mu   sync.Mutex
	seen map[int]fiber.Map
}

func (d *directory) user(id int, conn connection) fiber.Map {
	d.mu.Lock()
	defer d.mu.Unlock()
	if u, ok := d.seen[id]; ok {
		return u
	}
	u := fiber.Map{
		"id":            id,
		"name":          fmt.Sprintf("User %d", id),
		"email":         fmt.Sprintf("user%d@example.com", id),
		"created_at":    time.Now().UTC(),
		"connection_id": conn.ID,
	}
	d.seen[id] = u
	return u
}

func (d *directory) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen) + existingUsers
}

// DepsRoutes shows request scoped values resolved by middleware and shared services
// captured by the handlers.
type DepsRoutes struct {
	pool     *connectionPool
	users    *directory
	cache    cache.Cache
	limiter  *middleware.SlidingWindow
	settings func() fiber.Map
	appName  string
}

func NewDepsRoutes(c cache.Cache, appName string) *DepsRoutes {
	h := &DepsRoutes{
		pool:    &connectionPool{},
		users:   &directory{seen: make(map[int]fiber.Map)},
		cache:   c,
		limiter: middleware.NewSlidingWindow(30, time.Minute),
		appName: appName,
	}
	h.settings = sync.OnceValue(h.loadSettings)
	return h
}

func registerDeps(r fiber.Router, d *Deps) error {
	c := d.Cache
	if c == nil {
		c = cache.NewMemory()
	}
	h := NewDepsRoutes(c, d.Config.AppName)
	r.Get("/timestamp", h.Timestamp)
	r.Get("/users", h.Users)
	r.Get("/settings", h.Settings)
	r.Get("/protected", RequireAPIKey, h.Protected)
	r.Get("/rate-limited", h.RateLimited)
	r.Get("/cached-data/:key", h.CachedData)
	r.Post("/cache/:key", h.SetCache)
	r.Delete("/cache/:key", h.DeleteCache)
	r.Get("/user-dashboard", RequireAPIKey, h.Dashboard)
	return nil
}

// RequireAPIKey resolves the X-API-Key header into a permission list stored in locals.
func RequireAPIKey(c *fiber.Ctx) error {
	key := c.Get(apiKeyHeader)
	if key == "" {
		return apperr.Unauthorized("API key is required")
	}
	perms, ok := keyPermissions[key]
	if !ok {
		return apperr.Unauthorized("invalid API key")
	}
	c.Locals(permissionsKey, perms)
	return c.Next()
}

func permissionsFrom(c *fiber.Ctx) []string {
	p, _ := c.Locals(permissionsKey).([]string)
	return p
}

// loadSettings runs once per DepsRoutes; the delay stands in for reading a file.
func (h *DepsRoutes) loadSettings() fiber.Map {
	time.Sleep(100 * time.Millisecond)
	name := h.appName
	if name == "" {
		name = "apicourse"
	}
	return fiber.Map{
		"app_name":        name,
		"version":         "1.0.0",
		"debug":           true,
		"max_file_size":   10 << 20,
		"allowed_origins": []string{"localhost", "127.0.0.1"},
		"cache_ttl":       defaultCacheTTLSec,
		"loaded_at":       time.Now().UTC(),
	}
}

func (h *DepsRoutes) Timestamp(c *fiber.Ctx) error {
	var ua any
	if v := c.Get(fiber.HeaderUserAgent); v != "" {
		ua = v
	}
	return c.JSON(fiber.Map{
		"message":    "Current timestamp with dependencies",
		"timestamp":  time.Now().UTC(),
		"user_agent": ua,
		"request_id": middleware.RequestIDFrom(c),
	})
}

func (h *DepsRoutes) Users(c *fiber.Ctx) error {
	q := pageQuery{Limit: 10}
	if err := bindQuery(c, &q); err != nil {
		return fail(c, err)
	}
	conn := h.pool.acquire()
	total := h.users.count()
	users := make([]fiber.Map, 0, q.Limit)
	for i := q.Skip; i < min(q.Skip+q.Limit, total); i++ {
		users = append(users, h.users.user(i+1, conn))
	}
	return c.JSON(fiber.Map{
		"users":      users,
		"pagination": fiber.Map{"skip": q.Skip, "limit": q.Limit, "total": total},
		"connection": conn,
	})
}

func (h *DepsRoutes) Settings(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message":    "Application settings (cached)",
		"settings":   h.settings(),
		"request_id": middleware.RequestIDFrom(c),
	})
}

func (h *DepsRoutes) Protected(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message":     "Access granted to protected resource",
		"api_key":     c.Get(apiKeyHeader),
		"permissions": permissionsFrom(c),
		"accessed_at": time.Now().UTC(),
		"data":        "This is protected data",
	})
}

func (h *DepsRoutes) RateLimited(c *fiber.Ctx) error {
	d := h.limiter.Take(c.IP())
	c.Set("X-RateLimit-Limit", fmt.Sprint(d.Limit))
	c.Set("X-RateLimit-Remaining", fmt.Sprint(d.Remaining))
	c.Set("X-RateLimit-Reset", fmt.Sprint(d.Reset.Unix()))
	if !d.Allowed {
		return fail(c, apperr.RateLimited(d.Limit, h.limiter.Period(), d.RetryAfter))
	}
	return c.JSON(fiber.Map{
		"message": "Rate limited endpoint accessed successfully",
		"rate_limit": fiber.Map{
			"client_ip":    c.IP(),
			"max_requests": d.Limit,
			"count":        d.Count,
			"remaining":    d.Remaining,
			"reset_time":   d.Reset.Unix(),
		},
		"request_id": middleware.RequestIDFrom(c),
	})
}

func (h *DepsRoutes) lookup(ctx context.Context, key string) (any, bool, error) {
	raw, err := h.cache.Get(ctx, "deps:"+key)
	if errors.Is(err, cache.ErrMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (h *DepsRoutes) store(ctx context.Context, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return h.cache.Set(ctx, "deps:"+key, raw, ttl)
}

// CachedData generates a value on a miss and keeps it for a minute.
func (h *DepsRoutes) CachedData(c *fiber.Ctx) error {
	key := c.Params("key")
	v, hit, err := h.lookup(c.UserContext(), key)
	if err != nil {
		return fail(c, err)
	}
	if hit {
		return c.JSON(fiber.Map{"message": "Data retrieved from cache", "data": v, "cached": true})
	}
	data := fiber.Map{
		"key":          key,
		"value":        "Generated value for " + key,
		"generated_at": time.Now().UTC().Format(time.RFC3339),
	}
	if err := h.store(c.UserContext(), key, data, cachedDataTTL); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Data generated and cached", "data": data, "cached": false})
}

func (h *DepsRoutes) SetCache(c *fiber.Ctx) error {
	q := cacheSetQuery{TTL: defaultCacheTTLSec}
	if err := bindQuery(c, &q); err != nil {
		return fail(c, err)
	}
	var value map[string]any
	if err := c.BodyParser(&value); err != nil {
		return fail(c, apperr.BadRequest("INVALID_BODY", "body must be a JSON object"))
	}
	key := c.Params("key")
	if err := h.store(c.UserContext(), key, value, time.Duration(q.TTL)*time.Second); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Data cached successfully", "key": key, "ttl": q.TTL})
}

func (h *DepsRoutes) DeleteCache(c *fiber.Ctx) error {
	key := c.Params("key")
	existed, err := h.cache.Delete(c.UserContext(), "deps:"+key)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Cache entry deleted", "key": key, "existed": existed})
}

// userLevel ranks a permission set.
func userLevel(perms []string) string {
	switch {
	case slices.Contains(perms, "admin"):
		return "admin"
	case slices.Contains(perms, "write"):
		return "editor"
	}
	return "viewer"
}

// Dashboard combines the API key, permissions, settings and the user service.
func (h *DepsRoutes) Dashboard(c *fiber.Ctx) error {
	perms := permissionsFrom(c)
	settings := h.settings()
	res := fiber.Map{
		"message": "User dashboard data",
		"user_context": fiber.Map{
			"api_key":            c.Get(apiKeyHeader),
			"permissions":        perms,
			"user_level":         userLevel(perms),
			"user_count":         h.users.count(),
			"app_name":           settings["app_name"],
			"debug_mode":         settings["debug"],
			"context_created_at": time.Now().UTC(),
		},
		"dashboard_data": fiber.Map{
			"widgets": []string{"stats", "recent_activity", "notifications"},
			"theme":   "default",
			"layout":  "grid",
		},
	}
	if slices.Contains(perms, "admin") {
		res["admin_section"] = fiber.Map{
			"connections_opened": h.pool.count.Load(),
			"settings":           settings,
		}
	}
	return c.JSON(res)
}
