package session_test

import (
	"sync"
	"testing"

	session "github.com/DotRed108/go-session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorage(t *testing.T) {
	storage := session.NewMemoryStorage()

	assert.Empty(t, storage.Get("missing"))

	require.NoError(t, storage.Set("key", "value"))
	assert.Equal(t, "value", storage.Get("key"))

	require.NoError(t, storage.Set("key", "newer"))
	assert.Equal(t, "newer", storage.Get("key"))

	require.NoError(t, storage.Remove("key"))
	assert.Empty(t, storage.Get("key"))
}

func TestMemoryStorage_ConcurrentAccess(t *testing.T) {
	storage := session.NewMemoryStorage()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = storage.Set(session.AuthTokenKey, "token")
			_ = storage.Get(session.AuthTokenKey)
			_ = storage.Remove(session.RefreshTokenKey)
		}()
	}
	wg.Wait()
}

func TestPersistTokens_StorageMirror(t *testing.T) {
	codec := newTestCodec(t)
	storage := session.NewMemoryStorage()

	pair, err := codec.IssuePair("user@example.com", true)
	require.NoError(t, err)

	session.PersistTokens(nil, nil, storage, pair, codec, nil)

	assert.Equal(t, pair.Auth, storage.Get(session.AuthTokenKey))
	assert.Equal(t, pair.Refresh, storage.Get(session.RefreshTokenKey))
}

func TestPersistTokens_SkipsEmptySlots(t *testing.T) {
	codec := newTestCodec(t)
	storage := session.NewMemoryStorage()

	refresh, err := codec.Issue(session.PurposeRefresh, "user@example.com", false)
	require.NoError(t, err)

	session.PersistTokens(nil, nil, storage, session.TokenPair{Refresh: refresh}, codec, nil)

	assert.Empty(t, storage.Get(session.AuthTokenKey))
	assert.Equal(t, refresh, storage.Get(session.RefreshTokenKey))
}

func TestDropTokens(t *testing.T) {
	storage := session.NewMemoryStorage()
	for _, key := range []string{
		session.AuthTokenKey,
		session.RefreshTokenKey,
		session.UserInfoKey,
		session.CacheStatusKey,
	} {
		require.NoError(t, storage.Set(key, "value"))
	}

	session.DropTokens(nil, nil, storage)

	assert.Empty(t, storage.Get(session.AuthTokenKey))
	assert.Empty(t, storage.Get(session.RefreshTokenKey))
	assert.Empty(t, storage.Get(session.UserInfoKey))
	assert.Empty(t, storage.Get(session.CacheStatusKey))
}
