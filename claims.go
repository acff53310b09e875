package session

import (
	"encoding/json"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// Purpose is the scope a token was minted for. The purpose doubles as
// the claim key that carries the subject, so a token can never be
// replayed against a different purpose.
type Purpose string

const (
	// PurposeSignUp tokens are minted into magic links for accounts
	// that do not exist yet.
	PurposeSignUp Purpose = "wannabe_user"
	// PurposeRefresh tokens are long lived and exchanged for fresh pairs.
	PurposeRefresh Purpose = "refresh_user"
	// PurposeAuth tokens are short lived and accompany every request.
	PurposeAuth Purpose = "user"
)

// purposeOrder is the probe order when classifying a token of unknown purpose.
var purposeOrder = []Purpose{PurposeAuth, PurposeRefresh, PurposeSignUp}

func (p Purpose) Valid() bool {
	switch p {
	case PurposeSignUp, PurposeRefresh, PurposeAuth:
		return true
	}
	return false
}

const (
	claimTrusted = "trusted"
	claimExpiry  = "exp"
	claimIssuer  = "iss"
)

// expiryLayout is RFC 3339 in UTC with a literal Z.
const expiryLayout = "2006-01-02T15:04:05Z"

// Claims is the token payload. The subject lives under the purpose key,
// trusted is the strings "true"/"false", and exp is an ISO-8601 UTC
// timestamp rather than a numeric date.
type Claims struct {
	subject string
	purpose Purpose
	trusted bool
	issuer  string
	expiry  time.Time
	extra   map[string]string
}

var _ jwt.Claims = (*Claims)(nil)

// NewClaims builds a claim set for the given purpose and subject.
func NewClaims(purpose Purpose, subject string, trusted bool, expiry time.Time) *Claims {
	return &Claims{
		subject: subject,
		purpose: purpose,
		trusted: trusted,
		expiry:  expiry,
	}
}

// Subject returns the email the token was minted for.
func (c *Claims) Subject() string { return c.subject }

// Purpose returns the purpose whose claim key carried the subject.
func (c *Claims) Purpose() Purpose { return c.purpose }

// Trusted reports whether the session asked to be remembered.
func (c *Claims) Trusted() bool { return c.trusted }

// Issuer returns the iss claim, if any.
func (c *Claims) Issuer() string { return c.issuer }

// ExpiresAt returns the expiry instant, zero when the claim is absent.
func (c *Claims) ExpiresAt() time.Time { return c.expiry }

// HasExpiry reports whether the token carried an exp claim.
func (c *Claims) HasExpiry() bool { return !c.expiry.IsZero() }

// Get returns a non-standard claim by key.
func (c *Claims) Get(key string) (string, bool) {
	v, ok := c.extra[key]
	return v, ok
}

// WithIssuer sets the iss claim.
func (c *Claims) WithIssuer(issuer string) *Claims {
	c.issuer = issuer
	return c
}

// WithClaim attaches a non-standard claim.
func (c *Claims) WithClaim(key, value string) *Claims {
	if c.extra == nil {
		c.extra = map[string]string{}
	}
	c.extra[key] = value
	return c
}

// MarshalJSON writes the wire shape: subject under the purpose key,
// trusted as a string, exp as ISO-8601 UTC.
func (c *Claims) MarshalJSON() ([]byte, error) {
	if !c.purpose.Valid() {
		return nil, errors.New("claims have no valid purpose", errors.CategoryInternal)
	}

	m := make(map[string]string, len(c.extra)+4)
	for k, v := range c.extra {
		m[k] = v
	}

	m[string(c.purpose)] = c.subject
	m[claimTrusted] = formatTrusted(c.trusted)
	if !c.expiry.IsZero() {
		m[claimExpiry] = c.expiry.UTC().Format(expiryLayout)
	}
	if c.issuer != "" {
		m[claimIssuer] = c.issuer
	}

	return json.Marshal(m)
}

// UnmarshalJSON decodes the wire shape, classifying the purpose by
// which claim key is present.
func (c *Claims) UnmarshalJSON(data []byte) error {
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}

	*c = Claims{}

	for _, p := range purposeOrder {
		if subject, ok := m[string(p)]; ok {
			c.purpose = p
			c.subject = subject
			delete(m, string(p))
			break
		}
	}

	if v, ok := m[claimTrusted]; ok {
		c.trusted = v == "true"
		delete(m, claimTrusted)
	}

	if v, ok := m[claimExpiry]; ok {
		exp, err := time.Parse(expiryLayout, v)
		if err != nil {
			// tolerate offsets, the mint path always writes Z
			exp, err = time.Parse(time.RFC3339, v)
		}
		if err != nil {
			return errors.Wrap(err, errors.CategoryAuth, "exp claim is not an ISO-8601 timestamp")
		}
		c.expiry = exp.UTC()
		delete(m, claimExpiry)
	}

	if v, ok := m[claimIssuer]; ok {
		c.issuer = v
		delete(m, claimIssuer)
	}

	if len(m) > 0 {
		c.extra = m
	}

	return nil
}

// jwt.Claims implementation. Expiry validation stays out of the
// library so the resolver can apply purpose-dependent leeway.

func (c *Claims) GetExpirationTime() (*jwt.NumericDate, error) { return nil, nil }
func (c *Claims) GetIssuedAt() (*jwt.NumericDate, error)       { return nil, nil }
func (c *Claims) GetNotBefore() (*jwt.NumericDate, error)      { return nil, nil }
func (c *Claims) GetIssuer() (string, error)                   { return c.issuer, nil }
func (c *Claims) GetSubject() (string, error)                  { return c.subject, nil }
func (c *Claims) GetAudience() (jwt.ClaimStrings, error)       { return nil, nil }

func formatTrusted(trusted bool) string {
	if trusted {
		return "true"
	}
	return "false"
}
