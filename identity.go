package session

import (
	"context"
	"time"
)

// IdentityStore is the account backend the resolver talks to. The
// refresh exchange calls GetUser exactly once per attempt; everything
// else on the exchange path is fire and forget.
type IdentityStore interface {
	// GetUser fetches a profile, optionally projecting only the named
	// fields. Returns ErrUserNotFound when the email has no record.
	GetUser(ctx context.Context, email string, fields ...string) (*UserProfile, error)

	// PutUserIfAbsent creates the profile only when the email is not
	// yet registered, returning ErrEmailTaken otherwise. This is the
	// idempotency guard for sign-up finalization.
	PutUserIfAbsent(ctx context.Context, profile *UserProfile) error

	// TouchLastLogin stamps the last login instant.
	TouchLastLogin(ctx context.Context, email string, at time.Time) error

	// RecordRefreshFingerprint stores the fingerprint of the most
	// recently exchanged refresh token.
	RecordRefreshFingerprint(ctx context.Context, email, fingerprint string) error
}
