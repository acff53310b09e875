package session

import (
	"crypto/ed25519"
	"encoding/json"
	"os"

	"github.com/goliatone/go-errors"
)

// EnvSigningKey names the environment variable holding the Ed25519
// private key as a JSON array of 64 bytes.
const EnvSigningKey = "SESSION_SIGNING_KEY"

// Keys carries the Ed25519 key pair used to sign and verify tokens.
// Private may be nil for verify-only deployments.
type Keys struct {
	Private ed25519.PrivateKey
	Public  ed25519.PublicKey
}

// LoadKeys reads the signing key from the environment. A missing or
// unparsable key is fatal for issuance, so callers should fail fast.
func LoadKeys() (*Keys, error) {
	raw := os.Getenv(EnvSigningKey)
	if raw == "" {
		return nil, errors.Wrap(ErrKeyUnavailable, errors.CategoryInternal, EnvSigningKey+" is not set")
	}
	return KeysFromJSON(raw)
}

// KeysFromJSON parses an Ed25519 private key encoded as a JSON array of
// byte values.
func KeysFromJSON(raw string) (*Keys, error) {
	var values []int
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, errors.Wrap(err, ErrKeyUnavailable.Category, "signing key is not a JSON byte array").
			WithTextCode(ErrKeyUnavailable.TextCode)
	}

	if len(values) != ed25519.PrivateKeySize {
		return nil, errors.New("signing key must be 64 bytes", errors.CategoryInternal).
			WithTextCode(ErrKeyUnavailable.TextCode).
			WithMetadata(map[string]any{"length": len(values)})
	}

	key := make([]byte, len(values))
	for i, v := range values {
		if v < 0 || v > 255 {
			return nil, errors.New("signing key holds a value outside the byte range", errors.CategoryInternal).
				WithTextCode(ErrKeyUnavailable.TextCode)
		}
		key[i] = byte(v)
	}

	private := ed25519.PrivateKey(key)
	return &Keys{
		Private: private,
		Public:  private.Public().(ed25519.PublicKey),
	}, nil
}

// VerifyOnlyKeys wraps a standalone public key for deployments that
// only ever verify tokens minted elsewhere.
func VerifyOnlyKeys(public ed25519.PublicKey) *Keys {
	return &Keys{Public: public}
}

// CanSign reports whether this key set can mint tokens.
func (k *Keys) CanSign() bool {
	return k != nil && len(k.Private) == ed25519.PrivateKeySize
}
