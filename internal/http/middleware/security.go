package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"apicourse/internal/apperr"
)

var securityHeaders = map[string]string{
	"X-Content-Type-Options":    "nosniff",
	"X-Frame-Options":           "DENY",
	"X-XSS-Protection":          "1; mode=block",
	"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
	"Referrer-Policy":           "strict-origin-when-cross-origin",
}

// SecurityHeaders sets the hardening headers on every response.
func SecurityHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		for k, v := range securityHeaders {
			c.Set(k, v)
		}
		return c.Next()
	}
}

// TrustedHosts rejects requests whose Host header is not listed. An empty list admits every host.
// Entries may start with "*." to match any subdomain.
func TrustedHosts(hosts []string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if len(hosts) == 0 {
			return c.Next()
		}
		host := c.Hostname()
		if i := strings.LastIndexByte(host, ':'); i >= 0 && !strings.Contains(host[i:], "]") {
			host = host[:i]
		}
		for _, h := range hosts {
			if h == "*" || strings.EqualFold(h, host) {
				return c.Next()
			}
			if suffix, ok := strings.CutPrefix(h, "*"); ok && strings.HasSuffix(host, suffix) {
				return c.Next()
			}
		}
		return apperr.BadRequest("INVALID_HOST", "invalid host header")
	}
}
