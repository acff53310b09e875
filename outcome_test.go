package session_test

import (
	"encoding/json"
	"testing"

	session "github.com/DotRed108/go-session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutcome_Predicates(t *testing.T) {
	signedIn := []session.OutcomeKind{
		session.OutcomeAlreadySignedIn,
		session.OutcomeSignedIn,
		session.OutcomeAccountCreated,
	}
	for _, kind := range signedIn {
		assert.True(t, session.Outcome{Kind: kind}.SignedIn(), string(kind))
		assert.False(t, session.Outcome{Kind: kind}.Failed(), string(kind))
	}

	failed := []session.OutcomeKind{
		session.OutcomeVerificationFailure,
		session.OutcomeRefreshExchangeFailed,
		session.OutcomeAccountCreationFailed,
		session.OutcomeEmailAlreadyInUse,
		session.OutcomeUserSuspended,
	}
	for _, kind := range failed {
		assert.True(t, session.Outcome{Kind: kind}.Failed(), string(kind))
		assert.False(t, session.Outcome{Kind: kind}.SignedIn(), string(kind))
	}

	neither := []session.OutcomeKind{
		session.OutcomeNotSignedIn,
		session.OutcomeSignedInRefreshOnly,
		session.OutcomeTokenExpired,
		session.OutcomeUnresolved,
	}
	for _, kind := range neither {
		assert.False(t, session.Outcome{Kind: kind}.SignedIn(), string(kind))
		assert.False(t, session.Outcome{Kind: kind}.Failed(), string(kind))
	}
}

func TestOutcome_Resolved(t *testing.T) {
	assert.False(t, session.Outcome{}.Resolved())
	assert.False(t, session.Outcome{Kind: session.OutcomeUnresolved}.Resolved())
	assert.True(t, session.Outcome{Kind: session.OutcomeNotSignedIn}.Resolved())
	assert.True(t, session.Outcome{Kind: session.OutcomeSignedIn}.Resolved())
}

func TestOutcome_JSON(t *testing.T) {
	outcome := session.Outcome{
		Kind:    session.OutcomeSignedIn,
		Tokens:  session.TokenPair{Auth: "aaa", Refresh: "bbb"},
		Subject: "user@example.com",
	}

	raw, err := json.Marshal(outcome)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, "signed_in", m["kind"])
	assert.Equal(t, "user@example.com", m["subject"])
	assert.Equal(t, "bbb\x1faaa", m["tokens"])
	assert.NotContains(t, m, "reason")
	assert.NotContains(t, m, "suspended_until")
}
