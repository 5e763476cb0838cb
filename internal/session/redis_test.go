package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client, time.Hour), mr
}

func TestRedisStore_GetMissing(t *testing.T) {
	store, _ := setupStore(t)

	_, err := store.Get(context.Background(), "1", KeyCart)
	assert.ErrorIs(t, err, ErrMissing)
}

func TestRedisStore_SetGetDelete(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "1", KeyCart, []byte(`{"3":2}`)))
	require.NoError(t, store.Set(ctx, "1", KeyUserName, []byte("Asha")))

	got, err := store.Get(ctx, "1", KeyCart)
	require.NoError(t, err)
	assert.Equal(t, `{"3":2}`, string(got))
	assert.Equal(t, `{"3":2}`, mr.HGet("session:1", KeyCart))
	assert.Equal(t, time.Hour, mr.TTL("session:1"))

	require.NoError(t, store.Delete(ctx, "1", KeyCart))
	_, err = store.Get(ctx, "1", KeyCart)
	assert.ErrorIs(t, err, ErrMissing)

	name, err := store.Get(ctx, "1", KeyUserName)
	require.NoError(t, err)
	assert.Equal(t, "Asha", string(name))
}

func TestRedisStore_SetNX_FirstWriterWins(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	ok, err := store.SetNX(ctx, "9", KeyCheckoutKey, []byte("first"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.SetNX(ctx, "9", KeyCheckoutKey, []byte("second"))
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := store.Get(ctx, "9", KeyCheckoutKey)
	require.NoError(t, err)
	assert.Equal(t, "first", string(got))
}

func TestRedisStore_Destroy(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "5", KeyCart, []byte(`{}`)))
	require.NoError(t, store.Destroy(ctx, "5"))
	assert.False(t, mr.Exists("session:5"))

	// sessions are independent
	require.NoError(t, store.Set(ctx, "6", KeyCart, []byte(`{}`)))
	require.NoError(t, store.Destroy(ctx, "5"))
	assert.True(t, mr.Exists("session:6"))
}

func TestID(t *testing.T) {
	assert.Equal(t, "42", ID(42))
}
