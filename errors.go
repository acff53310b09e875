package session

import "github.com/goliatone/go-errors"

const (
	TextCodeBadSignature     = "token_bad_signature"
	TextCodeTokenMalformed   = "token_malformed"
	TextCodeMissingExpiry    = "token_missing_expiry"
	TextCodeTokenExpired     = "token_expired"
	TextCodeWrongPurpose     = "token_wrong_purpose"
	TextCodeKeyUnavailable   = "signing_key_unavailable"
	TextCodeEmailTaken       = "email_already_in_use"
	TextCodeUserNotFound     = "user_not_found"
	TextCodeStoreUnavailable = "identity_store_unavailable"
	TextCodeUserSuspended    = "user_suspended"
	TextCodeEmptyToken       = "token_empty"
)

// ErrBadSignature is returned when a token signature does not verify
// against the configured public key.
var ErrBadSignature = errors.New("token signature verification failed", errors.CategoryAuth).
	WithTextCode(TextCodeBadSignature).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned when a token cannot be parsed at all.
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrMissingExpiry is returned when a token carries no expiry claim.
// Tokens without an expiry are never accepted.
var ErrMissingExpiry = errors.New("token has no expiry claim", errors.CategoryAuth).
	WithTextCode(TextCodeMissingExpiry).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired is returned when a token verified correctly but its
// expiry is in the past.
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrWrongPurpose is returned when a token verifies but does not carry
// the claim key for the requested purpose.
var ErrWrongPurpose = errors.New("token issued for a different purpose", errors.CategoryAuth).
	WithTextCode(TextCodeWrongPurpose).
	WithCode(errors.CodeUnauthorized)

// ErrEmptyToken is returned when an empty string is offered for verification.
var ErrEmptyToken = errors.New("token is empty", errors.CategoryBadInput).
	WithTextCode(TextCodeEmptyToken).
	WithCode(errors.CodeBadRequest)

// ErrKeyUnavailable is returned when the signing key cannot be loaded.
// This is fatal for token issuance; verification can still run against
// a standalone public key.
var ErrKeyUnavailable = errors.New("signing key unavailable", errors.CategoryInternal).
	WithTextCode(TextCodeKeyUnavailable).
	WithCode(errors.CodeInternal)

// ErrEmailTaken is returned when account creation finds the email already registered.
var ErrEmailTaken = errors.New("email already in use", errors.CategoryConflict).
	WithTextCode(TextCodeEmailTaken).
	WithCode(errors.CodeConflict)

// ErrUserNotFound is returned when the identity store has no record for the email.
var ErrUserNotFound = errors.New("user not found", errors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(errors.CodeNotFound)

// ErrStoreUnavailable is returned when the identity store cannot be reached.
var ErrStoreUnavailable = errors.New("identity store unavailable", errors.CategoryExternal).
	WithTextCode(TextCodeStoreUnavailable).
	WithCode(errors.CodeInternal)

// ErrUserSuspended is returned when a refresh exchange finds the account suspended.
var ErrUserSuspended = errors.New("user is suspended", errors.CategoryAuth).
	WithTextCode(TextCodeUserSuspended).
	WithCode(errors.CodeForbidden)

// IsTokenExpiredError checks for expired tokens across wrapped errors.
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.TextCode == TextCodeTokenExpired
	}
	return false
}

// IsVerificationError reports whether the error means the token itself
// was unusable, as opposed to merely expired.
func IsVerificationError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return false
	}
	switch richErr.TextCode {
	case TextCodeBadSignature, TextCodeTokenMalformed, TextCodeMissingExpiry, TextCodeWrongPurpose, TextCodeEmptyToken:
		return true
	}
	return false
}
