package session

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/goliatone/go-errors"
	"golang.org/x/crypto/bcrypt"
)

// FingerprintToken derives a storable fingerprint of a refresh token.
// Tokens exceed bcrypt's input limit, so they are reduced to a sha256
// digest first and the digest is what gets cost-hashed.
func FingerprintToken(token string) (string, error) {
	if token == "" {
		return "", ErrEmptyToken
	}

	digest := sha256.Sum256([]byte(token))
	h, err := bcrypt.GenerateFromPassword([]byte(hex.EncodeToString(digest[:])), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to fingerprint token")
	}

	return string(h), nil
}

// MatchFingerprint reports whether the token produced the fingerprint.
func MatchFingerprint(token, fingerprint string) bool {
	if token == "" || fingerprint == "" {
		return false
	}

	digest := sha256.Sum256([]byte(token))
	err := bcrypt.CompareHashAndPassword([]byte(fingerprint), []byte(hex.EncodeToString(digest[:])))
	return err == nil
}
