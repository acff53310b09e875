package session

import (
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds session engine options
type Config interface {
	GetSigningKeyJSON() string
	GetIssuer() string
	GetCookiePath() string
	GetContextKey() string
	GetTokenLookup() string
	GetAuthScheme() string
	GetCacheWindow() time.Duration
}

// SimpleConfig is a literal Config for wiring without a config container.
type SimpleConfig struct {
	SigningKeyJSON string
	Issuer         string
	CookiePath     string
	ContextKey     string
	TokenLookup    string
	AuthScheme     string
	CacheWindow    time.Duration
}

func (c SimpleConfig) GetSigningKeyJSON() string { return c.SigningKeyJSON }
func (c SimpleConfig) GetIssuer() string         { return c.Issuer }

func (c SimpleConfig) GetCookiePath() string {
	if c.CookiePath == "" {
		return "/"
	}
	return c.CookiePath
}

func (c SimpleConfig) GetContextKey() string {
	if c.ContextKey == "" {
		return AuthTokenKey
	}
	return c.ContextKey
}

func (c SimpleConfig) GetTokenLookup() string { return c.TokenLookup }
func (c SimpleConfig) GetAuthScheme() string  { return c.AuthScheme }

func (c SimpleConfig) GetCacheWindow() time.Duration {
	if c.CacheWindow <= 0 {
		return DefaultCacheWindow
	}
	return c.CacheWindow
}

// DefaultLogger returns the built-in printf logger used when callers
// do not supply one.
func DefaultLogger() Logger {
	return defLogger{}
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] SESSION "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] SESSION "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] SESSION "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
