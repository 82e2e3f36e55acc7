package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"apicourse/internal/apperr"
	"apicourse/internal/auth"
)

// PrincipalLocalKey holds the *auth.Principal set by Authenticate.
const PrincipalLocalKey = "principal"

// BearerToken extracts the credential from an "Authorization: Bearer ..." header.
func BearerToken(c *fiber.Ctx) (string, bool) {
	h := c.Get(fiber.HeaderAuthorization)
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Authenticate resolves the bearer credential through a and stores the principal.
// Requests without a valid credential get 401.
func Authenticate(a auth.Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := BearerToken(c)
		if !ok {
			return apperr.Unauthorized("not authenticated")
		}
		p, err := a.Authenticate(c.UserContext(), token)
		if err != nil {
			return authError(err)
		}
		c.Locals(PrincipalLocalKey, p)
		return c.Next()
	}
}

// authError turns credential failures into 401s. Anything else, such as an inactive
// account or a storage failure, is left for the error handler.
func authError(err error) error {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return apperr.Unauthorized("token has expired").Wrap(err)
	case errors.Is(err, auth.ErrRevokedToken):
		return apperr.Unauthorized("token has been revoked").Wrap(err)
	case errors.Is(err, auth.ErrWrongTokenType):
		return apperr.Unauthorized("invalid token type").Wrap(err)
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrInvalidCredentials):
		return apperr.Unauthorized("could not validate credentials").Wrap(err)
	}
	return err
}

// PrincipalFrom returns the principal stored by Authenticate.
func PrincipalFrom(c *fiber.Ctx) (*auth.Principal, bool) {
	p, ok := c.Locals(PrincipalLocalKey).(*auth.Principal)
	return p, ok && p != nil
}

// RequireRoles admits principals holding any of roles. It must run after Authenticate.
func RequireRoles(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := PrincipalFrom(c)
		if !ok {
			return apperr.Unauthorized("not authenticated")
		}
		for _, r := range roles {
			if p.HasRole(r) {
				return c.Next()
			}
		}
		return apperr.Forbidden("role " + strings.Join(roles, " or "))
	}
}

// RequireScopes admits principals holding every scope.
func RequireScopes(scopes ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := PrincipalFrom(c)
		if !ok {
			return apperr.Unauthorized("not authenticated")
		}
		for _, s := range scopes {
			if !p.HasScope(s) {
				return apperr.Forbidden("scope " + s).
					WithHeader(fiber.HeaderWWWAuthenticate, `Bearer scope="`+strings.Join(scopes, " ")+`"`)
			}
		}
		return c.Next()
	}
}
