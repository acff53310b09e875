package session

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// pairSeparator joins the two tokens on the wire. U+001F never appears
// in base64url token text so a plain split is unambiguous.
const pairSeparator = "\x1f"

// TokenPair bundles the short lived Auth token with its Refresh token.
// Either side may be empty; a pair with only a Refresh token is still
// exchangeable.
type TokenPair struct {
	Auth    string
	Refresh string
}

// ParseTokenPair splits the joined wire form back into a pair. A
// single segment is a bare refresh token, the exchangeable half.
func ParseTokenPair(joined string) (TokenPair, error) {
	if joined == "" {
		return TokenPair{}, nil
	}

	parts := strings.Split(joined, pairSeparator)
	switch len(parts) {
	case 1:
		return TokenPair{Refresh: parts[0]}, nil
	case 2:
		return TokenPair{Refresh: parts[0], Auth: parts[1]}, nil
	default:
		return TokenPair{}, errors.New("token pair has too many segments", errors.CategoryBadInput).
			WithMetadata(map[string]any{"segments": len(parts)})
	}
}

// String returns the joined wire form: refresh, U+001F, auth.
func (p TokenPair) String() string {
	if p.Empty() {
		return ""
	}
	return p.Refresh + pairSeparator + p.Auth
}

// Complete reports whether both tokens are present.
func (p TokenPair) Complete() bool {
	return p.Auth != "" && p.Refresh != ""
}

// Empty reports whether neither token is present.
func (p TokenPair) Empty() bool {
	return p.Auth == "" && p.Refresh == ""
}

// RefreshOnly reports whether only the refresh half survived.
func (p TokenPair) RefreshOnly() bool {
	return p.Auth == "" && p.Refresh != ""
}

// MarshalText emits the joined wire form so the pair travels as a
// single JSON string.
func (p TokenPair) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses the joined wire form.
func (p *TokenPair) UnmarshalText(data []byte) error {
	parsed, err := ParseTokenPair(string(data))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
