package session

import "github.com/goliatone/go-router"

// CredentialSource is anywhere tokens may be waiting: request query
// params, cookies, or a storage mirror.
type CredentialSource interface {
	QueryParam(name string) string
	Cookie(name string) string
	StorageItem(name string) string
}

// Query parameter names for magic-link delivery. Links reuse the claim
// keys as parameter names, so the purpose of an inbound token is
// visible before it is even verified. Cookies and the storage mirror
// keep using the storage key names.
const (
	AuthTokenParam    = string(PurposeAuth)
	RefreshTokenParam = string(PurposeRefresh)
	SignUpTokenParam  = string(PurposeSignUp)
)

// LocatedCredentials is what the locator found, slot by slot. The
// slots hold raw token text; classification happens during resolution.
type LocatedCredentials struct {
	Pair   TokenPair
	SignUp string

	// LinkDelivered marks a pair that arrived whole on the URL, the
	// magic-link sign-in case. Such a pair still needs persisting.
	LinkDelivered bool

	// CacheStatus is the raw cache-status marker, when mirrored.
	CacheStatus string
}

// Empty reports whether no token material was found anywhere.
func (l LocatedCredentials) Empty() bool {
	return l.Pair.Empty() && l.SignUp == ""
}

// LocateCredentials fills each token slot from the source, checking
// query params first, then cookies, then the storage mirror. A slot
// stops at the first surface that has a value; surfaces never merge.
// Sign-up tokens only ever arrive on the URL, never from cookies or
// storage.
func LocateCredentials(src CredentialSource) LocatedCredentials {
	if src == nil {
		return LocatedCredentials{}
	}

	auth, authFromQuery := locateSlot(src, AuthTokenParam, AuthTokenKey)
	refresh, refreshFromQuery := locateSlot(src, RefreshTokenParam, RefreshTokenKey)

	return LocatedCredentials{
		Pair:          TokenPair{Auth: auth, Refresh: refresh},
		SignUp:        src.QueryParam(SignUpTokenParam),
		LinkDelivered: authFromQuery && refreshFromQuery,
		CacheStatus:   src.StorageItem(CacheStatusKey),
	}
}

func locateSlot(src CredentialSource, param, key string) (string, bool) {
	if v := src.QueryParam(param); v != "" {
		return v, true
	}
	if v := src.Cookie(key); v != "" {
		return v, false
	}
	return src.StorageItem(key), false
}

// RouterSource adapts an HTTP request context, optionally backed by a
// storage mirror, into a CredentialSource.
type RouterSource struct {
	ctx     router.Context
	storage Storage
}

func NewRouterSource(ctx router.Context, storage Storage) RouterSource {
	return RouterSource{ctx: ctx, storage: storage}
}

func (s RouterSource) QueryParam(name string) string {
	if s.ctx == nil {
		return ""
	}
	return s.ctx.Query(name, "")
}

func (s RouterSource) Cookie(name string) string {
	if s.ctx == nil {
		return ""
	}
	return s.ctx.Cookies(name)
}

func (s RouterSource) StorageItem(name string) string {
	if s.storage == nil {
		return ""
	}
	return s.storage.Get(name)
}

// MirrorSource is a storage-only source for ambient resolution, where
// no request is in flight.
type MirrorSource struct {
	storage Storage
}

func NewMirrorSource(storage Storage) MirrorSource {
	return MirrorSource{storage: storage}
}

func (s MirrorSource) QueryParam(string) string { return "" }
func (s MirrorSource) Cookie(string) string     { return "" }

func (s MirrorSource) StorageItem(name string) string {
	if s.storage == nil {
		return ""
	}
	return s.storage.Get(name)
}
