package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"apicourse/internal/auth"
	"apicourse/internal/model"
	serviceMocks "apicourse/internal/service/mocks"
)

func bearer(req *http.Request, token string) *http.Request {
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	return req
}

func newSecurityApp(t *testing.T) (*fiber.App, *serviceMocks.MockUserService) {
	t.Helper()
	users := new(serviceMocks.MockUserService)
	users.On("Authenticate", mock.Anything, "user-token").Return(&auth.Principal{
		UserID: 2, Email: "user@example.com", Roles: []string{"user"}, Scopes: []string{"read", "write"},
		Method: auth.MethodJWT, Claims: &auth.Claims{},
	}, nil).Maybe()
	users.On("Authenticate", mock.Anything, "admin-token").Return(&auth.Principal{
		UserID: 1, Email: "admin@example.com", Roles: []string{"admin"}, Scopes: []string{"read", "write", "admin"},
		Method: auth.MethodJWT, Claims: &auth.Claims{},
	}, nil).Maybe()
	users.On("Authenticate", mock.Anything, "sk_live_key").Return(&auth.Principal{
		UserID: 2, Email: "user@example.com", Roles: []string{"user"}, Scopes: []string{"read"},
		Method: auth.MethodAPIKey,
	}, nil).Maybe()
	users.On("Authenticate", mock.Anything, "expired").Return(nil, auth.ErrExpiredToken).Maybe()
	return newLessonApp(t, "security", &Deps{Users: users}), users
}

func TestRegisterAndLogin(t *testing.T) {
	app, users := newSecurityApp(t)

	in := model.UserCreate{Email: "new@example.com", FullName: "New User", Password: "secret1"}
	users.On("Register", mock.Anything, in).Return(&model.User{ID: 3, Email: in.Email, IsActive: true}, nil).Once()
	resp, _ := app.Test(jsonRequest(http.MethodPost, "/auth/register", in))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	t.Run("short password", func(t *testing.T) {
		resp, _ := app.Test(jsonRequest(http.MethodPost, "/auth/register", map[string]any{"email": "x@example.com", "password": "123"}))
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})

	t.Run("json login", func(t *testing.T) {
		users.On("Login", mock.Anything, "user@example.com", "secret1", []string{"read"}).
			Return(&auth.TokenPair{AccessToken: "a", RefreshToken: "r", TokenType: "bearer", Scopes: []string{"read"}}, nil).Once()
		resp, _ := app.Test(jsonRequest(http.MethodPost, "/auth/login", map[string]any{
			"email": "user@example.com", "password": "secret1", "scopes": []string{"read"},
		}))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "bearer", decode[auth.TokenPair](t, resp).TokenType)
	})

	t.Run("password grant form", func(t *testing.T) {
		users.On("Login", mock.Anything, "user@example.com", "secret1", []string{"read", "write"}).
			Return(&auth.TokenPair{AccessToken: "a", TokenType: "bearer"}, nil).Once()
		req := httptest.NewRequest(http.MethodPost, "/auth/token",
			strings.NewReader("username=user%40example.com&password=secret1&scope=read+write"))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
		resp, _ := app.Test(req)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("wrong password", func(t *testing.T) {
		users.On("Login", mock.Anything, "user@example.com", "nope", []string(nil)).
			Return(nil, auth.ErrInvalidCredentials).Once()
		resp, _ := app.Test(jsonRequest(http.MethodPost, "/auth/login", map[string]any{
			"email": "user@example.com", "password": "nope",
		}))
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Bearer", resp.Header.Get(fiber.HeaderWWWAuthenticate))
	})
	users.AssertExpectations(t)
}

func TestAuthenticatedRoutes(t *testing.T) {
	app, users := newSecurityApp(t)
	users.On("Get", mock.Anything, int64(2)).Return(&model.User{ID: 2, Email: "user@example.com"}, nil)

	tests := []struct {
		name   string
		req    *http.Request
		status int
		code   string
	}{
		{"no credential", httptest.NewRequest(http.MethodGet, "/auth/me", nil), http.StatusUnauthorized, "UNAUTHORIZED"},
		{"expired token", bearer(httptest.NewRequest(http.MethodGet, "/auth/me", nil), "expired"), http.StatusUnauthorized, "UNAUTHORIZED"},
		{"me", bearer(httptest.NewRequest(http.MethodGet, "/auth/me", nil), "user-token"), http.StatusOK, ""},
		{"admin only", bearer(httptest.NewRequest(http.MethodGet, "/admin/users", nil), "user-token"),
			http.StatusForbidden, "INSUFFICIENT_PERMISSIONS"},
		{"write scope", bearer(jsonRequest(http.MethodPost, "/data/create", map[string]any{"k": "v"}), "user-token"),
			http.StatusCreated, ""},
		{"api key lacks write", bearer(jsonRequest(http.MethodPost, "/data/create", map[string]any{"k": "v"}), "sk_live_key"),
			http.StatusForbidden, "INSUFFICIENT_PERMISSIONS"},
		{"admin scope", bearer(httptest.NewRequest(http.MethodGet, "/data/sensitive", nil), "user-token"),
			http.StatusForbidden, "INSUFFICIENT_PERMISSIONS"},
		{"logout needs a token", bearer(httptest.NewRequest(http.MethodPost, "/auth/logout", nil), "sk_live_key"),
			http.StatusBadRequest, "NOT_A_TOKEN"},
		{"self delete", bearer(httptest.NewRequest(http.MethodDelete, "/admin/users/1", nil), "admin-token"),
			http.StatusBadRequest, "SELF_DELETE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.code != "" {
				assert.Equal(t, tt.code, errorCode(t, resp))
			}
		})
	}

	t.Run("profile reports method", func(t *testing.T) {
		resp, _ := app.Test(bearer(httptest.NewRequest(http.MethodGet, "/auth/profile", nil), "sk_live_key"))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "api_key", decode[map[string]any](t, resp)["auth_method"])
	})
}

func TestAPIKeyRoutes(t *testing.T) {
	app, users := newSecurityApp(t)

	users.On("ListAPIKeys", mock.Anything, int64(2)).
		Return([]model.APIKey{{ID: 7, Name: "ci", KeyPrefix: "sk_live_ab12"}}, nil).Once()
	resp, _ := app.Test(bearer(httptest.NewRequest(http.MethodGet, "/auth/api-keys", nil), "user-token"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	keys := decode[[]apiKeyView](t, resp)
	require.Len(t, keys, 1)
	assert.Equal(t, auth.MaskKey("sk_live_ab12"), keys[0].Key)

	users.On("RevokeAPIKey", mock.Anything, int64(2), int64(7)).Return(nil).Once()
	resp, _ = app.Test(bearer(httptest.NewRequest(http.MethodDelete, "/auth/api-keys/7", nil), "user-token"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	users.AssertExpectations(t)
}
