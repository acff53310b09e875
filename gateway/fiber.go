// Package gateway is the fiber-native edge of the session engine, for
// apps mounted directly on fiber rather than behind go-router.
package gateway

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	session "github.com/DotRed108/go-session"
)

// Config mirrors the authgate middleware for fiber handlers.
type Config struct {
	// Verifier validates raw tokens, usually the TokenCodec.
	Verifier interface {
		Classify(tokenString string) (*session.Claims, error)
	}

	// AllowedPaths lists non-GET paths that stay open.
	AllowedPaths []string

	ContextKey string
	AuthScheme string
}

// New builds the fiber middleware. Read requests pass through with
// claims parked in locals when a valid token rides along; mutating
// requests without a valid Auth token are answered 404.
func New(cfg Config) fiber.Handler {
	if cfg.Verifier == nil {
		panic("SESSION: gateway configuration: Verifier is required.")
	}
	if cfg.ContextKey == "" {
		cfg.ContextKey = "user"
	}
	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	return func(c *fiber.Ctx) error {
		raw := rawToken(c, cfg.AuthScheme)

		if raw != "" {
			if claims, err := cfg.Verifier.Classify(raw); err == nil && claims.Purpose() == session.PurposeAuth {
				c.Locals(cfg.ContextKey, claims)
				return c.Next()
			}
		}

		if readOnly(c.Method()) || allowed(cfg.AllowedPaths, c.Path()) {
			return c.Next()
		}

		return c.Status(fiber.StatusNotFound).SendString("Not Found")
	}
}

// ClaimsFromCtx retrieves gate-verified claims from fiber locals.
func ClaimsFromCtx(c *fiber.Ctx, key string) (*session.Claims, bool) {
	claims, ok := c.Locals(key).(*session.Claims)
	return claims, ok
}

func rawToken(c *fiber.Ctx, authScheme string) string {
	header := c.Get(fiber.HeaderAuthorization)
	if header != "" {
		if len(header) > len(authScheme)+1 && strings.EqualFold(header[:len(authScheme)], authScheme) {
			return strings.TrimSpace(header[len(authScheme):])
		}
	}
	if token := c.Query(session.AuthTokenKey); token != "" {
		return token
	}
	return c.Cookies(session.AuthTokenKey)
}

func readOnly(method string) bool {
	switch method {
	case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
		return true
	}
	return false
}

func allowed(paths []string, path string) bool {
	for _, p := range paths {
		if p == path {
			return true
		}
	}
	return false
}
