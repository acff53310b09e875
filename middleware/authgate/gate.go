// Package authgate guards mutating routes behind a verified Auth token.
// Unauthenticated non-GET requests are answered with 404 rather than
// 401 so the gate never confirms that a mutating endpoint exists.
package authgate

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"

	session "github.com/DotRed108/go-session"
)

var (
	defaultTokenLookup = "header:" + router.HeaderAuthorization

	// ErrTokenMissing is returned by extractors that find nothing.
	ErrTokenMissing = errors.New("missing or malformed token", errors.CategoryAuth).
			WithCode(errors.CodeUnauthorized)
)

// TokenVerifier checks a raw token and returns its claims. The root
// package's TokenCodec satisfies it.
type TokenVerifier interface {
	Classify(tokenString string) (*session.Claims, error)
}

type Config struct {
	// Filter skips the gate entirely when it returns true.
	Filter func(router.Context) bool

	SuccessHandler router.HandlerFunc
	ErrorHandler   router.ErrorHandler

	// Verifier validates tokens against the local key pair.
	Verifier TokenVerifier

	// JWKSetURLs switches verification to remote JWK sets. Used when
	// the gate runs apart from the service that mints tokens.
	JWKSetURLs []string

	// AllowedPaths lists non-GET paths that stay open, e.g. the
	// sign-up and resolve endpoints.
	AllowedPaths []string

	ContextKey  string
	TokenLookup string
	AuthScheme  string
}

// New builds the gate middleware. Read requests always pass, picking up
// claims into locals when a valid token rides along. Mutating requests
// without a valid Auth token get 404.
func New(config ...Config) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		cfg := GetDefaultConfig(config...)
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return ctx.Next()
			}

			readOnly := isReadOnly(ctx.Method())

			raw, err := extractRawToken(ctx, cfg.getExtractors())
			if err == nil {
				claims, verr := cfg.verify(raw)
				if verr == nil && claims.Purpose() == session.PurposeAuth {
					ctx.Locals(cfg.ContextKey, claims)
					return cfg.SuccessHandler(ctx)
				}
				err = verr
				if err == nil {
					err = session.ErrWrongPurpose
				}
			}

			if readOnly || cfg.allowed(ctx.Path()) {
				return cfg.SuccessHandler(ctx)
			}

			return cfg.ErrorHandler(ctx, err)
		}
	}
}

// ClaimsFromContext retrieves gate-verified claims from locals.
func ClaimsFromContext(ctx router.Context, contextKey string) (*session.Claims, bool) {
	claims, ok := ctx.Locals(contextKey).(*session.Claims)
	return claims, ok
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(ctx router.Context) error {
			return ctx.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c router.Context, err error) error {
			return c.Status(router.StatusNotFound).SendString("Not Found")
		}
	}

	if cfg.Verifier == nil && len(cfg.JWKSetURLs) == 0 {
		panic("SESSION: auth gate configuration: one of Verifier or JWKSetURLs is required.")
	}

	if cfg.Verifier == nil {
		kf, err := multiKeyfunc(cfg.JWKSetURLs)
		if err != nil {
			panic("Failed to create keyfunc from JWK Set URL: " + err.Error())
		}
		cfg.Verifier = jwksVerifier{keyFunc: kf}
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "user"
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	return cfg
}

func (cfg *Config) verify(raw string) (*session.Claims, error) {
	return cfg.Verifier.Classify(raw)
}

func (cfg *Config) allowed(path string) bool {
	for _, p := range cfg.AllowedPaths {
		if p == path {
			return true
		}
	}
	return false
}

func isReadOnly(method string) bool {
	switch method {
	case string(router.GET), "HEAD", "OPTIONS":
		return true
	}
	return false
}

// jwksVerifier validates against remote JWK sets instead of local keys.
// Expiry still goes through the claims since the wire format keeps exp
// as an ISO-8601 string.
type jwksVerifier struct {
	keyFunc jwt.Keyfunc
}

func (v jwksVerifier) Classify(tokenString string) (*session.Claims, error) {
	if tokenString == "" {
		return nil, session.ErrEmptyToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &session.Claims{}, v.keyFunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, session.ErrBadSignature
		}
		return nil, errors.Wrap(err, session.ErrTokenMalformed.Category, session.ErrTokenMalformed.Message).
			WithTextCode(session.ErrTokenMalformed.TextCode)
	}

	claims, ok := token.Claims.(*session.Claims)
	if !ok || !claims.Purpose().Valid() {
		return nil, session.ErrTokenMalformed
	}

	if !claims.HasExpiry() {
		return nil, session.ErrMissingExpiry
	}

	deadline := claims.ExpiresAt()
	if claims.Purpose() == session.PurposeAuth {
		deadline = deadline.Add(session.AuthExpiryLeeway)
	}
	if time.Now().After(deadline) {
		return nil, session.ErrTokenExpired
	}

	return claims, nil
}

func multiKeyfunc(jwtSetUrls []string) (jwt.Keyfunc, error) {
	opts := keyfunc.Options{
		RefreshErrorHandler: func(err error) {
			log.Printf("failed to do a background refresh of JWT set: %s", err)
		},
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  time.Minute * 5,
		RefreshTimeout:    time.Second * 10,
		RefreshUnknownKID: true,
	}

	m := make(map[string]keyfunc.Options, len(jwtSetUrls))
	for _, url := range jwtSetUrls {
		m[url] = opts
	}

	multi, err := keyfunc.GetMultiple(m, keyfunc.MultipleOptions{
		KeySelector: keyfunc.KeySelectorFirst,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get JWT URLs: %w", err)
	}

	return multi.Keyfunc, nil
}

func (cfg *Config) getExtractors() []tokenExtractor {
	extractors := make([]tokenExtractor, 0)

	// header:Authorization,cookie:auth-token,query:auth-token
	rootParts := strings.Split(cfg.TokenLookup, ",")
	for _, rootPart := range rootParts {
		parts := strings.Split(strings.TrimSpace(rootPart), ":")
		for i, el := range parts {
			parts[i] = strings.TrimSpace(el)
		}
		if len(parts) < 2 {
			continue
		}

		switch parts[0] {
		case "header":
			extractors = append(extractors, tokenFromHeader(parts[1], cfg.AuthScheme))
		case "query":
			extractors = append(extractors, tokenFromQuery(parts[1]))
		case "cookie":
			extractors = append(extractors, tokenFromCookie(parts[1]))
		}
	}

	return extractors
}

func extractRawToken(ctx router.Context, extractors []tokenExtractor) (string, error) {
	var raw string
	var err error

	for _, extractor := range extractors {
		raw, err = extractor(ctx)
		if raw != "" && err == nil {
			break
		}
	}

	return raw, err
}

type tokenExtractor func(c router.Context) (string, error)

// tokenFromHeader returns a function that extracts the token from the request header.
func tokenFromHeader(header string, authScheme string) tokenExtractor {
	return func(c router.Context) (string, error) {
		a := c.GetString(header, "")
		l := len(authScheme)
		if l == 0 {
			return strings.TrimSpace(a), nil
		}
		authScheme = strings.TrimSpace(authScheme)
		if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) {
			return strings.TrimSpace(a[l:]), nil
		}
		return "", ErrTokenMissing
	}
}

// tokenFromQuery returns a function that extracts the token from the query string.
func tokenFromQuery(param string) tokenExtractor {
	return func(c router.Context) (string, error) {
		token := c.Query(param, "")
		if token == "" {
			return "", ErrTokenMissing
		}
		return token, nil
	}
}

// tokenFromCookie returns a function that extracts the token from the named cookie.
func tokenFromCookie(name string) tokenExtractor {
	return func(c router.Context) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", ErrTokenMissing
		}
		return token, nil
	}
}
