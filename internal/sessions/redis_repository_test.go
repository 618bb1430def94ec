package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisRepository_CreateGetDelete(t *testing.T) {
	_, client := newTestRedis(t)
	repo := NewRedisRepository(client, "session:")
	ctx := context.Background()

	s := &Session{
		RefreshToken: "tok-1",
		UID:          "u1",
		ExpiresAt:    time.Now().UTC().Add(time.Hour),
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, s))

	got, err := repo.GetByRefresh(ctx, "tok-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, s.UID, got.UID)
	require.Equal(t, s.RefreshToken, got.RefreshToken)

	require.NoError(t, repo.DeleteByRefresh(ctx, "tok-1"))
	got, err = repo.GetByRefresh(ctx, "tok-1")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestRedisRepository_MissingIsNilNotError(t *testing.T) {
	_, client := newTestRedis(t)
	repo := NewRedisRepository(client, "")

	got, err := repo.GetByRefresh(context.Background(), "missing")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestRedisRepository_KeyTTLTracksExpiry(t *testing.T) {
	mr, client := newTestRedis(t)
	repo := NewRedisRepository(client, "session:")
	ctx := context.Background()

	s := &Session{
		RefreshToken: "tok-ttl",
		UID:          "u1",
		ExpiresAt:    time.Now().UTC().Add(time.Minute),
	}
	require.NoError(t, repo.Create(ctx, s))
	require.True(t, mr.Exists("session:tok-ttl"))

	// redis expires the key once the TTL elapses
	mr.FastForward(2 * time.Minute)
	got, err := repo.GetByRefresh(ctx, "tok-ttl")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestRedisRepository_StaleValueTreatedAsMissing(t *testing.T) {
	mr, client := newTestRedis(t)
	repo := NewRedisRepository(client, "session:")
	ctx := context.Background()

	// stored value claims an expiry in the past even though the key lives
	s := &Session{
		RefreshToken: "tok-stale",
		UID:          "u1",
		ExpiresAt:    time.Now().UTC().Add(-time.Minute),
	}
	require.NoError(t, repo.Create(ctx, s))
	mr.SetTTL("session:tok-stale", 100*time.Hour)

	got, err := repo.GetByRefresh(ctx, "tok-stale")
	require.NoError(t, err)
	require.Nil(t, got)
	require.False(t, mr.Exists("session:tok-stale"))
}
