package session

import (
	"sync"
	"time"

	"github.com/goliatone/go-router"
)

// Storage item names shared by the persistence surfaces: cookies and
// the local storage mirror. Magic-link query params use the claim keys
// instead.
const (
	AuthTokenKey    = "auth-token"
	RefreshTokenKey = "refresh-token"
	UserInfoKey     = "user-info"
	CacheStatusKey  = "cache-status"
)

// Storage is a flat string store for token and cache material. Both a
// browser local-storage mirror and server side session state satisfy it.
type Storage interface {
	Get(name string) string
	Set(name, value string) error
	Remove(name string) error
}

// MemoryStorage is an in-process Storage, safe for concurrent use.
type MemoryStorage struct {
	mu    sync.RWMutex
	items map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{items: map[string]string{}}
}

func (m *MemoryStorage) Get(name string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.items[name]
}

func (m *MemoryStorage) Set(name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[name] = value
	return nil
}

func (m *MemoryStorage) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, name)
	return nil
}

// CookieWriter persists tokens onto HTTP responses.
type CookieWriter struct {
	path   string
	logger Logger
	now    func() time.Time
}

func NewCookieWriter(cfg Config, logger Logger) *CookieWriter {
	if logger == nil {
		logger = defLogger{}
	}
	path := "/"
	if cfg != nil && cfg.GetCookiePath() != "" {
		path = cfg.GetCookiePath()
	}
	return &CookieWriter{path: path, logger: logger, now: time.Now}
}

// Write sets a cookie that lives exactly as long as the value it carries.
func (w *CookieWriter) Write(ctx router.Context, name, value string, expiry time.Time) {
	maxAge := int(expiry.Sub(w.now()).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}

	ctx.Cookie(&router.Cookie{
		Name:     name,
		Value:    value,
		Path:     w.path,
		Expires:  expiry,
		MaxAge:   maxAge,
		Secure:   true,
		SameSite: "Strict",
	})
}

// Clear expires a cookie immediately.
func (w *CookieWriter) Clear(ctx router.Context, name string) {
	ctx.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Path:     w.path,
		Expires:  w.now().Add(-time.Hour * 24 * 365),
		MaxAge:   0,
		Secure:   true,
		SameSite: "Strict",
	})
}

// PersistTokens lands a pair on both the cookie surface and the storage
// mirror. Persistence is best effort: the session stands as long as at
// least one surface took the tokens, so storage errors are logged and
// not returned.
func PersistTokens(ctx router.Context, w *CookieWriter, storage Storage, pair TokenPair, codec *TokenCodec, logger Logger) {
	if logger == nil {
		logger = defLogger{}
	}

	persist := func(name, token string, purpose Purpose) {
		if token == "" {
			return
		}
		expiry := time.Now().Add(Lifetime(purpose, false))
		if claims, err := codec.Verify(token, purpose); err == nil {
			expiry = claims.ExpiresAt()
		}
		if ctx != nil && w != nil {
			w.Write(ctx, name, token, expiry)
		}
		if storage != nil {
			if err := storage.Set(name, token); err != nil {
				logger.Error("storage mirror rejected %s: %v", name, err)
			}
		}
	}

	persist(AuthTokenKey, pair.Auth, PurposeAuth)
	persist(RefreshTokenKey, pair.Refresh, PurposeRefresh)
}

// DropTokens removes every session artifact from both surfaces.
func DropTokens(ctx router.Context, w *CookieWriter, storage Storage) {
	for _, name := range []string{AuthTokenKey, RefreshTokenKey, UserInfoKey, CacheStatusKey} {
		if ctx != nil && w != nil {
			w.Clear(ctx, name)
		}
		if storage != nil {
			_ = storage.Remove(name)
		}
	}
}
