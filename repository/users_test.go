package repository_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	session "github.com/DotRed108/go-session"
	"github.com/DotRed108/go-session/repository"
)

var testDBSeq atomic.Int64

func newTestStore(t *testing.T) *repository.Store {
	t.Helper()

	dsn := fmt.Sprintf("file:users_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := repository.OpenSQLite(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.NewCreateTable().
		Model((*session.UserProfile)(nil)).
		IfNotExists().
		Exec(context.Background())
	require.NoError(t, err)

	return repository.NewStore(db, nil)
}

func TestStore_PutAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	profile := session.NewDefaultProfile("alice@example.com")
	require.NoError(t, store.PutUserIfAbsent(ctx, profile))

	got, err := store.GetUser(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, session.StandingActive, got.Standing)
}

func TestStore_PutUserIfAbsent_Conflict(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutUserIfAbsent(ctx, session.NewDefaultProfile("alice@example.com")))

	err := store.PutUserIfAbsent(ctx, session.NewDefaultProfile("alice@example.com"))
	assert.ErrorIs(t, err, session.ErrEmailTaken)

	// the original record is untouched
	got, err := store.GetUser(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
}

func TestStore_GetUser_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetUser(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, session.ErrUserNotFound)
}

func TestStore_GetUser_Projection(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutUserIfAbsent(ctx, session.NewDefaultProfile("alice@example.com")))

	got, err := store.GetUser(ctx, "alice@example.com", session.FieldStanding)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, session.StandingActive, got.Standing)
	assert.Empty(t, got.Username, "unprojected fields stay zero")
}

func TestStore_TouchLastLogin(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutUserIfAbsent(ctx, session.NewDefaultProfile("alice@example.com")))

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.TouchLastLogin(ctx, "alice@example.com", at))

	got, err := store.GetUser(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, got.LastLoginAt)
	assert.True(t, got.LastLoginAt.Equal(at))

	assert.ErrorIs(t, store.TouchLastLogin(ctx, "nobody@example.com", at), session.ErrUserNotFound)
}

func TestStore_RecordRefreshFingerprint(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutUserIfAbsent(ctx, session.NewDefaultProfile("alice@example.com")))

	fingerprint, err := session.FingerprintToken("some-refresh-token")
	require.NoError(t, err)

	require.NoError(t, store.RecordRefreshFingerprint(ctx, "alice@example.com", fingerprint))

	got, err := store.GetUser(ctx, "alice@example.com", session.FieldRefreshFingerprint)
	require.NoError(t, err)
	assert.True(t, session.MatchFingerprint("some-refresh-token", got.RefreshFingerprint))

	assert.ErrorIs(t, store.RecordRefreshFingerprint(ctx, "nobody@example.com", fingerprint), session.ErrUserNotFound)
}
