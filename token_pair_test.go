package session_test

import (
	"encoding/json"
	"testing"

	session "github.com/DotRed108/go-session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTokenPair(t *testing.T) {
	t.Run("both halves", func(t *testing.T) {
		pair, err := session.ParseTokenPair("rrr\x1faaa")
		require.NoError(t, err)
		assert.Equal(t, "rrr", pair.Refresh)
		assert.Equal(t, "aaa", pair.Auth)
		assert.True(t, pair.Complete())
	})

	t.Run("single segment is refresh only", func(t *testing.T) {
		pair, err := session.ParseTokenPair("rrr")
		require.NoError(t, err)
		assert.Equal(t, "rrr", pair.Refresh)
		assert.Empty(t, pair.Auth)
		assert.True(t, pair.RefreshOnly())
	})

	t.Run("empty string is an empty pair", func(t *testing.T) {
		pair, err := session.ParseTokenPair("")
		require.NoError(t, err)
		assert.True(t, pair.Empty())
	})

	t.Run("too many segments", func(t *testing.T) {
		_, err := session.ParseTokenPair("a\x1fb\x1fc")
		assert.Error(t, err)
	})
}

func TestTokenPair_String(t *testing.T) {
	assert.Equal(t, "rrr\x1faaa", session.TokenPair{Auth: "aaa", Refresh: "rrr"}.String())
	assert.Equal(t, "rrr\x1f", session.TokenPair{Refresh: "rrr"}.String())
	assert.Empty(t, session.TokenPair{}.String())
}

func TestTokenPair_Predicates(t *testing.T) {
	full := session.TokenPair{Auth: "a", Refresh: "r"}
	refreshOnly := session.TokenPair{Refresh: "r"}
	empty := session.TokenPair{}

	assert.True(t, full.Complete())
	assert.False(t, full.RefreshOnly())

	assert.True(t, refreshOnly.RefreshOnly())
	assert.False(t, refreshOnly.Complete())
	assert.False(t, refreshOnly.Empty())

	assert.True(t, empty.Empty())
	assert.False(t, empty.Complete())
}

func TestTokenPair_TextRoundTrip(t *testing.T) {
	in := session.TokenPair{Auth: "aaa", Refresh: "rrr"}

	raw, err := json.Marshal(in)
	require.NoError(t, err)
	// json escapes the unit separator
	assert.Equal(t, "\"rrr\\u001faaa\"", string(raw))

	var out session.TokenPair
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, out)
}
