package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// Token lifetimes per purpose. Trusted sessions asked to be remembered
// at sign in; untrusted ones fall back to a single day.
const (
	SignUpTokenLifetime      = time.Hour
	RefreshTrustedLifetime   = 365 * 24 * time.Hour
	RefreshUntrustedLifetime = 24 * time.Hour
	AuthTrustedLifetime      = 30 * 24 * time.Hour
	AuthUntrustedLifetime    = 24 * time.Hour

	// AuthExpiryLeeway keeps Auth tokens usable for a grace period past
	// their expiry so a slow refresh exchange does not bounce the user.
	// Only Auth gets leeway; SignUp and Refresh expire on the dot.
	AuthExpiryLeeway = 5 * time.Hour
)

// Lifetime returns how long a freshly minted token of the given purpose lives.
func Lifetime(purpose Purpose, trusted bool) time.Duration {
	switch purpose {
	case PurposeSignUp:
		return SignUpTokenLifetime
	case PurposeRefresh:
		if trusted {
			return RefreshTrustedLifetime
		}
		return RefreshUntrustedLifetime
	default:
		if trusted {
			return AuthTrustedLifetime
		}
		return AuthUntrustedLifetime
	}
}

// TokenCodec mints and verifies purpose-scoped Ed25519 tokens.
type TokenCodec struct {
	keys   *Keys
	issuer string
	logger Logger
	now    func() time.Time
}

// NewTokenCodec creates a codec around the given key pair. A verify-only
// key set can still verify, Issue will fail.
func NewTokenCodec(keys *Keys, issuer string, logger Logger) *TokenCodec {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenCodec{
		keys:   keys,
		issuer: issuer,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the codec clock, mainly for tests.
func (tc *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	if now != nil {
		tc.now = now
	}
	return tc
}

// Issue mints a token for the purpose with its standard lifetime.
func (tc *TokenCodec) Issue(purpose Purpose, subject string, trusted bool) (string, error) {
	return tc.IssueWithExpiry(purpose, subject, trusted, tc.now().Add(Lifetime(purpose, trusted)))
}

// IssueWithExpiry mints a token with an explicit expiry instant.
func (tc *TokenCodec) IssueWithExpiry(purpose Purpose, subject string, trusted bool, expiry time.Time) (string, error) {
	if !tc.keys.CanSign() {
		return "", ErrKeyUnavailable
	}
	if !purpose.Valid() {
		return "", errors.New("unknown token purpose", errors.CategoryInternal).
			WithMetadata(map[string]any{"purpose": string(purpose)})
	}
	if subject == "" {
		return "", errors.New("token subject must not be empty", errors.CategoryBadInput)
	}

	claims := NewClaims(purpose, subject, trusted, expiry)
	if tc.issuer != "" {
		claims.WithIssuer(tc.issuer)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	signed, err := token.SignedString(tc.keys.Private)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign token")
	}

	return signed, nil
}

// IssuePair mints a matched Auth and Refresh token for the subject.
func (tc *TokenCodec) IssuePair(subject string, trusted bool) (TokenPair, error) {
	auth, err := tc.Issue(PurposeAuth, subject, trusted)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := tc.Issue(PurposeRefresh, subject, trusted)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Auth: auth, Refresh: refresh}, nil
}

// Verify checks the signature and expiry of a token and requires it to
// have been minted for the given purpose.
func (tc *TokenCodec) Verify(tokenString string, purpose Purpose) (*Claims, error) {
	claims, err := tc.Classify(tokenString)
	if err != nil {
		return nil, err
	}

	if claims.Purpose() != purpose {
		return nil, ErrWrongPurpose
	}

	return claims, nil
}

// Classify checks the signature and expiry of a token and returns its
// claims without constraining the purpose. Callers that care which
// purpose the token carries should use Verify.
func (tc *TokenCodec) Classify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrEmptyToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			tc.logger.Error("token codec rejected signing method %v", t.Header["alg"])
			return nil, ErrBadSignature
		}
		return tc.keys.Public, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, ErrBadSignature
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !claims.Purpose().Valid() {
		return nil, ErrTokenMalformed
	}

	if !claims.HasExpiry() {
		return nil, ErrMissingExpiry
	}

	deadline := claims.ExpiresAt()
	if claims.Purpose() == PurposeAuth {
		deadline = deadline.Add(AuthExpiryLeeway)
	}
	if tc.now().After(deadline) {
		return nil, ErrTokenExpired
	}

	return claims, nil
}
