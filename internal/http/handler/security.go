package handler

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"apicourse/internal/apperr"
	"apicourse/internal/auth"
	"apicourse/internal/http/middleware"
	"apicourse/internal/model"
	"apicourse/internal/service"
)

type loginRequest struct {
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password" validate:"required"`
	Scopes   []string `json:"scopes"`
}

// tokenForm is the OAuth2 password grant form.
type tokenForm struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
	Scope    string `form:"scope"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type adminListQuery struct {
	Skip  int `query:"skip" validate:"gte=0"`
	Limit int `query:"limit" validate:"gte=1,lte=100"`
}

type apiKeyView struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	Key        string     `json:"key"`
	Scopes     []string   `json:"scopes"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at"`
	LastUsedAt *time.Time `json:"last_used_at"`
}

// AuthRoutes exposes registration, token issuance and the guarded sample resources.
type AuthRoutes struct {
	users service.UserService
}

func NewAuthRoutes(users service.UserService) *AuthRoutes {
	return &AuthRoutes{users: users}
}

func registerSecurity(r fiber.Router, d *Deps) error {
	if d.Users == nil {
		return missing("user service")
	}
	h := NewAuthRoutes(d.Users)
	authed := middleware.Authenticate(d.Users)

	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)
	r.Post("/auth/token", h.Token)
	r.Post("/auth/refresh", h.Refresh)
	r.Post("/auth/logout", authed, h.Logout)
	r.Get("/auth/me", authed, h.Me)
	r.Get("/auth/profile", authed, h.Profile)
	r.Post("/auth/api-keys", authed, h.CreateAPIKey)
	r.Get("/auth/api-keys", authed, h.ListAPIKeys)
	r.Delete("/auth/api-keys/:key_id", authed, h.RevokeAPIKey)

	admin := r.Group("/admin", authed, middleware.RequireRoles("admin"))
	admin.Get("/users", h.AdminListUsers)
	admin.Delete("/users/:user_id", h.AdminDeleteUser)

	r.Post("/data/create", authed, middleware.RequireScopes("write"), h.CreateData)
	r.Get("/data/sensitive", authed, middleware.RequireScopes("admin"), h.SensitiveData)
	return nil
}

func (h *AuthRoutes) Register(c *fiber.Ctx) error {
	var in model.UserCreate
	if err := bindBody(c, &in); err != nil {
		return fail(c, err)
	}
	u, err := h.users.Register(c.UserContext(), in)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(u)
}

func (h *AuthRoutes) Login(c *fiber.Ctx) error {
	var in loginRequest
	if err := bindBody(c, &in); err != nil {
		return fail(c, err)
	}
	return h.issue(c, in.Email, in.Password, in.Scopes)
}

// Token implements the password grant. scope is space separated.
func (h *AuthRoutes) Token(c *fiber.Ctx) error {
	var f tokenForm
	if err := bindBody(c, &f); err != nil {
		return fail(c, err)
	}
	return h.issue(c, f.Username, f.Password, strings.Fields(f.Scope))
}

func (h *AuthRoutes) issue(c *fiber.Ctx, email, password string, scopes []string) error {
	pair, err := h.users.Login(c.UserContext(), email, password, scopes)
	if err != nil {
		return fail(c, challenge(err))
	}
	return c.JSON(pair)
}

// challenge adds the bearer challenge to credential failures.
func challenge(err error) error {
	e := toAppError(err)
	if e.Status == fiber.StatusUnauthorized {
		return e.WithHeader(fiber.HeaderWWWAuthenticate, "Bearer").Wrap(err)
	}
	return err
}

func (h *AuthRoutes) Refresh(c *fiber.Ctx) error {
	var in refreshRequest
	if err := bindBody(c, &in); err != nil {
		return fail(c, err)
	}
	pair, err := h.users.Refresh(c.UserContext(), in.RefreshToken)
	if err != nil {
		return fail(c, challenge(err))
	}
	return c.JSON(pair)
}

func (h *AuthRoutes) Logout(c *fiber.Ctx) error {
	p, _ := middleware.PrincipalFrom(c)
	if p.Claims == nil {
		return fail(c, apperr.BadRequest("NOT_A_TOKEN", "only access tokens can be logged out"))
	}
	if err := h.users.Logout(c.UserContext(), p.Claims); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Successfully logged out"})
}

func (h *AuthRoutes) Me(c *fiber.Ctx) error {
	p, _ := middleware.PrincipalFrom(c)
	u, err := h.users.Get(c.UserContext(), p.UserID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(u)
}

// Profile accepts either credential kind and reports which one was used.
func (h *AuthRoutes) Profile(c *fiber.Ctx) error {
	p, _ := middleware.PrincipalFrom(c)
	u, err := h.users.Get(c.UserContext(), p.UserID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"user":           u,
		"auth_method":    p.Method,
		"granted_scopes": p.Scopes,
	})
}

func (h *AuthRoutes) AdminListUsers(c *fiber.Ctx) error {
	q := adminListQuery{Limit: 100}
	if err := bindQuery(c, &q); err != nil {
		return fail(c, err)
	}
	page, err := h.users.List(c.UserContext(), q.Skip, q.Limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(page)
}

func (h *AuthRoutes) AdminDeleteUser(c *fiber.Ctx) error {
	id, err := paramInt(c, "user_id")
	if err != nil {
		return fail(c, err)
	}
	p, _ := middleware.PrincipalFrom(c)
	if p.UserID == id {
		return fail(c, apperr.BadRequest("SELF_DELETE", "cannot delete your own account"))
	}
	if err := h.users.Delete(c.UserContext(), id); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "User deleted successfully", "user_id": id})
}

func (h *AuthRoutes) CreateData(c *fiber.Ctx) error {
	p, _ := middleware.PrincipalFrom(c)
	var body map[string]any
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return fail(c, apperr.BadRequest("INVALID_BODY", "body must be a JSON object"))
		}
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":    "Data created successfully",
		"created_by": p.Email,
		"data":       body,
	})
}

func (h *AuthRoutes) SensitiveData(c *fiber.Ctx) error {
	p, _ := middleware.PrincipalFrom(c)
	return c.JSON(fiber.Map{
		"message":     "Sensitive data accessed",
		"accessed_by": p.Email,
		"data": fiber.Map{
			"secret_value":   "top-secret",
			"classification": "restricted",
		},
	})
}

func (h *AuthRoutes) CreateAPIKey(c *fiber.Ctx) error {
	var in model.APIKeyCreate
	if err := bindBody(c, &in); err != nil {
		return fail(c, err)
	}
	p, _ := middleware.PrincipalFrom(c)
	k, err := h.users.CreateAPIKey(c.UserContext(), p.UserID, in)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(apiKeyView{
		ID:        k.ID,
		Name:      k.Name,
		Key:       k.Key,
		Scopes:    k.Scopes,
		CreatedAt: k.CreatedAt,
		ExpiresAt: k.ExpiresAt,
	})
}

func (h *AuthRoutes) ListAPIKeys(c *fiber.Ctx) error {
	p, _ := middleware.PrincipalFrom(c)
	keys, err := h.users.ListAPIKeys(c.UserContext(), p.UserID)
	if err != nil {
		return fail(c, err)
	}
	out := make([]apiKeyView, 0, len(keys))
	for _, k := range keys {
		out = append(out, apiKeyView{
			ID:         k.ID,
			Name:       k.Name,
			Key:        auth.MaskKey(k.KeyPrefix),
			Scopes:     k.Scopes,
			CreatedAt:  k.CreatedAt,
			ExpiresAt:  k.ExpiresAt,
			LastUsedAt: k.LastUsedAt,
		})
	}
	return c.JSON(out)
}

func (h *AuthRoutes) RevokeAPIKey(c *fiber.Ctx) error {
	id, err := paramInt(c, "key_id")
	if err != nil {
		return fail(c, err)
	}
	p, _ := middleware.PrincipalFrom(c)
	if err := h.users.RevokeAPIKey(c.UserContext(), p.UserID, id); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "API key revoked", "key_id": id})
}
