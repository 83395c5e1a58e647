package storage

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a RedisStore instance
func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis, func()) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	store := NewRedisStore(client)

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return store, mr, cleanup
}

func TestRedisStore_SetGetDelete(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, KeyAccessToken, []byte("token-1")))

	// Values land under the namespaced key
	assert.True(t, mr.Exists("storefront:access_token"))

	value, err := store.Get(ctx, KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, []byte("token-1"), value)

	require.NoError(t, store.Delete(ctx, KeyAccessToken))
	_, err = store.Get(ctx, KeyAccessToken)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestRedisStore_MissingKey(t *testing.T) {
	store, _, cleanup := setupTestRedis(t)
	defer cleanup()

	_, err := store.Get(context.Background(), KeyUser)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestRedisStore_NoExpiry(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, KeyRefreshToken, []byte("refresh-1")))

	// Session state has no TTL; it survives until an explicit delete.
	ttl := mr.TTL(storeKey(KeyRefreshToken))
	assert.Zero(t, ttl)
}

func TestRedisStore_ServerDown(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	cleanup()
	_ = mr

	ctx := context.Background()
	_, err := store.Get(ctx, KeyUser)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrKeyNotFound)

	assert.Error(t, store.Set(ctx, KeyUser, []byte("v")))
	assert.Error(t, store.Delete(ctx, KeyUser))
}
