package session_test

import (
	"crypto/ed25519"
	"crypto/rand"
	"strings"
	"testing"
	"time"

	session "github.com/DotRed108/go-session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKeys(t *testing.T) *session.Keys {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return &session.Keys{Private: priv, Public: pub}
}

func newTestCodec(t *testing.T) *session.TokenCodec {
	t.Helper()
	return session.NewTokenCodec(newTestKeys(t), "test-issuer", nil)
}

func TestTokenCodec_IssueAndVerify(t *testing.T) {
	codec := newTestCodec(t)

	purposes := []session.Purpose{
		session.PurposeAuth,
		session.PurposeRefresh,
		session.PurposeSignUp,
	}

	for _, purpose := range purposes {
		t.Run(string(purpose), func(t *testing.T) {
			token, err := codec.Issue(purpose, "user@example.com", true)
			require.NoError(t, err)
			require.NotEmpty(t, token)

			claims, err := codec.Verify(token, purpose)
			require.NoError(t, err)
			assert.Equal(t, "user@example.com", claims.Subject())
			assert.Equal(t, purpose, claims.Purpose())
			assert.True(t, claims.Trusted())
			assert.Equal(t, "test-issuer", claims.Issuer())
			assert.True(t, claims.HasExpiry())
		})
	}
}

func TestTokenCodec_WrongPurpose(t *testing.T) {
	codec := newTestCodec(t)

	token, err := codec.Issue(session.PurposeRefresh, "user@example.com", false)
	require.NoError(t, err)

	_, err = codec.Verify(token, session.PurposeAuth)
	assert.ErrorIs(t, err, session.ErrWrongPurpose)

	// Classify accepts any purpose
	claims, err := codec.Classify(token)
	require.NoError(t, err)
	assert.Equal(t, session.PurposeRefresh, claims.Purpose())
}

func TestTokenCodec_Lifetimes(t *testing.T) {
	minted := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	codec := session.NewTokenCodec(newTestKeys(t), "", nil).
		WithClock(func() time.Time { return minted })

	cases := []struct {
		name    string
		purpose session.Purpose
		trusted bool
		want    time.Duration
	}{
		{"sign-up", session.PurposeSignUp, false, time.Hour},
		{"sign-up trusted", session.PurposeSignUp, true, time.Hour},
		{"refresh trusted", session.PurposeRefresh, true, 365 * 24 * time.Hour},
		{"refresh untrusted", session.PurposeRefresh, false, 24 * time.Hour},
		{"auth trusted", session.PurposeAuth, true, 30 * 24 * time.Hour},
		{"auth untrusted", session.PurposeAuth, false, 24 * time.Hour},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			token, err := codec.Issue(tc.purpose, "user@example.com", tc.trusted)
			require.NoError(t, err)

			claims, err := codec.Verify(token, tc.purpose)
			require.NoError(t, err)
			assert.Equal(t, minted.Add(tc.want), claims.ExpiresAt())
		})
	}
}

func TestTokenCodec_Expiry(t *testing.T) {
	minted := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	keys := newTestKeys(t)

	issue := func(t *testing.T, purpose session.Purpose, expiry time.Time) string {
		t.Helper()
		codec := session.NewTokenCodec(keys, "", nil)
		token, err := codec.IssueWithExpiry(purpose, "user@example.com", false, expiry)
		require.NoError(t, err)
		return token
	}

	verifyAt := func(token string, purpose session.Purpose, at time.Time) error {
		codec := session.NewTokenCodec(keys, "", nil).
			WithClock(func() time.Time { return at })
		_, err := codec.Verify(token, purpose)
		return err
	}

	t.Run("refresh expires on the dot", func(t *testing.T) {
		token := issue(t, session.PurposeRefresh, minted)
		assert.ErrorIs(t, verifyAt(token, session.PurposeRefresh, minted.Add(time.Minute)), session.ErrTokenExpired)
	})

	t.Run("sign-up gets no leeway", func(t *testing.T) {
		token := issue(t, session.PurposeSignUp, minted)
		assert.ErrorIs(t, verifyAt(token, session.PurposeSignUp, minted.Add(time.Minute)), session.ErrTokenExpired)
	})

	t.Run("auth survives inside the leeway", func(t *testing.T) {
		token := issue(t, session.PurposeAuth, minted)
		assert.NoError(t, verifyAt(token, session.PurposeAuth, minted.Add(4*time.Hour)))
	})

	t.Run("auth dies past the leeway", func(t *testing.T) {
		token := issue(t, session.PurposeAuth, minted)
		assert.ErrorIs(t, verifyAt(token, session.PurposeAuth, minted.Add(6*time.Hour)), session.ErrTokenExpired)
	})
}

func TestTokenCodec_BadInput(t *testing.T) {
	codec := newTestCodec(t)

	t.Run("empty token", func(t *testing.T) {
		_, err := codec.Classify("")
		assert.ErrorIs(t, err, session.ErrEmptyToken)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := codec.Classify("not.a.token")
		require.Error(t, err)
		assert.True(t, session.IsVerificationError(err))
	})

	t.Run("foreign signature", func(t *testing.T) {
		foreign := newTestCodec(t)
		token, err := foreign.Issue(session.PurposeAuth, "user@example.com", false)
		require.NoError(t, err)

		_, err = codec.Classify(token)
		assert.ErrorIs(t, err, session.ErrBadSignature)
	})

	t.Run("tampered signature", func(t *testing.T) {
		token, err := codec.Issue(session.PurposeAuth, "user@example.com", false)
		require.NoError(t, err)

		parts := strings.Split(token, ".")
		require.Len(t, parts, 3)
		sig := []byte(parts[2])
		if sig[0] == 'A' {
			sig[0] = 'B'
		} else {
			sig[0] = 'A'
		}
		parts[2] = string(sig)

		_, err = codec.Verify(strings.Join(parts, "."), session.PurposeAuth)
		assert.ErrorIs(t, err, session.ErrBadSignature)
	})

	t.Run("empty subject", func(t *testing.T) {
		_, err := codec.Issue(session.PurposeAuth, "", false)
		assert.Error(t, err)
	})

	t.Run("unknown purpose", func(t *testing.T) {
		_, err := codec.Issue(session.Purpose("bogus"), "user@example.com", false)
		assert.Error(t, err)
	})
}

func TestTokenCodec_VerifyOnlyKeys(t *testing.T) {
	keys := newTestKeys(t)
	signer := session.NewTokenCodec(keys, "", nil)
	verifier := session.NewTokenCodec(session.VerifyOnlyKeys(keys.Public), "", nil)

	token, err := signer.Issue(session.PurposeAuth, "user@example.com", true)
	require.NoError(t, err)

	claims, err := verifier.Verify(token, session.PurposeAuth)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", claims.Subject())

	_, err = verifier.Issue(session.PurposeAuth, "user@example.com", true)
	assert.ErrorIs(t, err, session.ErrKeyUnavailable)
}

func TestTokenCodec_IssuePair(t *testing.T) {
	codec := newTestCodec(t)

	pair, err := codec.IssuePair("user@example.com", true)
	require.NoError(t, err)
	require.True(t, pair.Complete())

	auth, err := codec.Verify(pair.Auth, session.PurposeAuth)
	require.NoError(t, err)
	refresh, err := codec.Verify(pair.Refresh, session.PurposeRefresh)
	require.NoError(t, err)

	assert.Equal(t, auth.Subject(), refresh.Subject())
	assert.True(t, refresh.ExpiresAt().After(auth.ExpiresAt()))
}
