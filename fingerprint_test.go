package session_test

import (
	"strings"
	"testing"

	session "github.com/DotRed108/go-session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintToken(t *testing.T) {
	// longer than bcrypt's 72 byte input limit
	token := strings.Repeat("x", 512)

	fingerprint, err := session.FingerprintToken(token)
	require.NoError(t, err)
	require.NotEmpty(t, fingerprint)

	assert.True(t, session.MatchFingerprint(token, fingerprint))
	assert.False(t, session.MatchFingerprint("other-token", fingerprint))
}

func TestFingerprintToken_Empty(t *testing.T) {
	_, err := session.FingerprintToken("")
	assert.ErrorIs(t, err, session.ErrEmptyToken)

	assert.False(t, session.MatchFingerprint("", "whatever"))
	assert.False(t, session.MatchFingerprint("token", ""))
}

func TestFingerprintToken_Salted(t *testing.T) {
	a, err := session.FingerprintToken("token")
	require.NoError(t, err)
	b, err := session.FingerprintToken("token")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, session.MatchFingerprint("token", a))
	assert.True(t, session.MatchFingerprint("token", b))
}
