package data

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	apperrors "github.com/lk2023060901/filestore-backend/internal/pkg/errors"
	"github.com/lk2023060901/filestore-backend/internal/pkg/logger"
	pkgredis "github.com/lk2023060901/filestore-backend/internal/pkg/redis"
	"github.com/lk2023060901/filestore-backend/internal/registry/biz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessionStore(t *testing.T) (biz.SessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	cfg := pkgredis.DefaultConfig()
	cfg.MasterAddr = mr.Addr()
	client, err := pkgredis.New(cfg, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return NewSessionStore(client, time.Hour), mr
}

func session(userID int64, id string, at time.Time) *biz.UploadSession {
	return &biz.UploadSession{
		ID:             id,
		UserID:         userID,
		State:          biz.StateActive,
		Mode:           biz.ModeBulk,
		GroupID:        3,
		GroupName:      "Movies",
		StartedAt:      at,
		LastActivityAt: at,
	}
}

func TestSessionStore_PutGetReplace(t *testing.T) {
	store, mr := newTestSessionStore(t)
	ctx := context.Background()
	t0 := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	got, err := store.Get(ctx, 1001)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, store.Put(ctx, session(1001, "s1", t0)))
	got, err = store.Get(ctx, 1001)
	require.NoError(t, err)
	assert.Equal(t, session(1001, "s1", t0), got)
	assert.Equal(t, time.Hour, mr.TTL(sessionKey(1001)))

	replacement := session(1001, "s2", t0.Add(time.Minute))
	replacement.State = biz.StateAwaitingGroup
	replacement.GroupID = 0
	replacement.GroupName = ""
	require.NoError(t, store.Put(ctx, replacement))

	got, err = store.Get(ctx, 1001)
	require.NoError(t, err)
	assert.Equal(t, replacement, got)
}

func TestSessionStore_IncrementMatchesSession(t *testing.T) {
	store, _ := newTestSessionStore(t)
	ctx := context.Background()
	t0 := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.Put(ctx, session(1001, "s1", t0)))

	got, err := store.Increment(ctx, 1001, "s1", t0.Add(time.Second))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1, got.FileCount)
	assert.Equal(t, t0.Add(time.Second), got.LastActivityAt)

	got, err = store.Increment(ctx, 1001, "stale", t0.Add(2*time.Second))
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = store.Increment(ctx, 2002, "s1", t0)
	require.NoError(t, err)
	assert.Nil(t, got)

	cur, err := store.Get(ctx, 1001)
	require.NoError(t, err)
	assert.Equal(t, 1, cur.FileCount)
}

func TestSessionStore_Delete(t *testing.T) {
	store, mr := newTestSessionStore(t)
	ctx := context.Background()
	t0 := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.Put(ctx, session(1001, "s1", t0)))

	deleted, err := store.Delete(ctx, 1001, "other")
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = store.Delete(ctx, 1001, "s1")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.False(t, mr.Exists(sessionKey(1001)))

	deleted, err = store.Delete(ctx, 1001, "")
	require.NoError(t, err)
	assert.False(t, deleted)

	require.NoError(t, store.Put(ctx, session(1001, "s3", t0)))
	deleted, err = store.Delete(ctx, 1001, "")
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestSessionStore_ListIdle(t *testing.T) {
	store, mr := newTestSessionStore(t)
	ctx := context.Background()
	t0 := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.Put(ctx, session(1, "a", t0)))
	require.NoError(t, store.Put(ctx, session(2, "b", t0.Add(10*time.Minute))))
	require.NoError(t, store.Put(ctx, session(3, "c", t0.Add(time.Minute))))
	mr.Del(sessionKey(3))

	idle, err := store.ListIdle(ctx, t0.Add(5*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, idle, 1)
	assert.Equal(t, "a", idle[0].ID)

	members, err := mr.ZMembers(sessionActivityKey)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1", "2"}, members)

	_, err = store.Increment(ctx, 1, "a", t0.Add(20*time.Minute))
	require.NoError(t, err)
	idle, err = store.ListIdle(ctx, t0.Add(5*time.Minute), 10)
	require.NoError(t, err)
	assert.Empty(t, idle)
}

func TestSessionStore_Unavailable(t *testing.T) {
	store, mr := newTestSessionStore(t)
	mr.SetError("LOADING server is loading")

	_, err := store.Get(context.Background(), 1)
	assert.True(t, apperrors.IsKind(err, apperrors.KindTransientStore))
	_, err = store.Delete(context.Background(), 1, "")
	assert.True(t, apperrors.IsKind(err, apperrors.KindTransientStore))
}

func TestSessionStore_CorruptHash(t *testing.T) {
	t0 := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		field string
		value string
	}{
		{field: "user_id", value: "abc"},
		{field: "group_id", value: ""},
		{field: "file_count", value: "1.5"},
		{field: "started_at", value: "yesterday"},
		{field: "last_activity_at", value: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			store, mr := newTestSessionStore(t)
			ctx := context.Background()

			require.NoError(t, store.Put(ctx, session(1001, "s1", t0)))
			mr.HSet(sessionKey(1001), tt.field, tt.value)

			_, err := store.Get(ctx, 1001)
			require.Error(t, err)
			assert.Equal(t, apperrors.ErrInternalServer, apperrors.ExtractCode(err))
			assert.Contains(t, apperrors.GetDetails(err), tt.field)
		})
	}
}
