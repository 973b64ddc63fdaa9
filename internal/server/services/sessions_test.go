package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionManager_CreateLookupDestroy(t *testing.T) {
	ctx := context.Background()
	store := sessions.NewMemoryRepository()
	sm := NewSessionManager(store, time.Hour)

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	sm.now = func() time.Time { return now }

	sid, err := sm.Create(ctx, "u1")
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9a-f]{64}$`, sid)

	stored, err := store.Find(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), stored.ExpiresAt)

	uid, err := sm.Lookup(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, "u1", uid)

	require.NoError(t, sm.Destroy(ctx, sid))
	require.NoError(t, sm.Destroy(ctx, sid))

	_, err = sm.Lookup(ctx, sid)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSessionManager_LookupExpired(t *testing.T) {
	ctx := context.Background()
	store := sessions.NewMemoryRepository()
	sm := NewSessionManager(store, time.Minute)

	sid, err := sm.Create(ctx, "u1")
	require.NoError(t, err)

	sm.now = func() time.Time { return time.Now().Add(time.Minute) }
	_, err = sm.Lookup(ctx, sid)
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.Equal(t, 0, store.Len())
}

func TestSessionManager_CreateIDFailure(t *testing.T) {
	sm := NewSessionManager(sessions.NewMemoryRepository(), time.Minute)
	sm.newID = func() (string, error) { return "", errors.New("no entropy") }

	_, err := sm.Create(context.Background(), "u1")
	assert.Error(t, err)
}

func TestSessionManager_DestroyOthers(t *testing.T) {
	ctx := context.Background()
	store := sessions.NewMemoryRepository()
	sm := NewSessionManager(store, time.Hour)

	a, _ := sm.Create(ctx, "alice")
	b, _ := sm.Create(ctx, "alice")
	c, _ := sm.Create(ctx, "bob")

	require.NoError(t, sm.DestroyOthers(ctx, "alice", a))

	_, err := sm.Lookup(ctx, a)
	assert.NoError(t, err)
	_, err = sm.Lookup(ctx, b)
	assert.ErrorIs(t, err, common.ErrorNotFound)
	_, err = sm.Lookup(ctx, c)
	assert.NoError(t, err)
}

type plainStore struct{ sessions.Repository }

func TestSessionManager_PurgeExpired(t *testing.T) {
	ctx := context.Background()
	store := sessions.NewMemoryRepository()
	require.NoError(t, store.Create(ctx, &models.Session{ID: "old", UserID: "u", ExpiresAt: time.Now().Add(-time.Second)}))

	n, err := NewSessionManager(store, time.Hour).PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = NewSessionManager(plainStore{store}, time.Hour).PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
