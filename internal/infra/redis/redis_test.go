//go:build !integration

package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"billing-user/internal/config"
	"billing-user/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	c, err := NewClient(context.Background(), &config.RedisConfig{URL: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestClient_RedisURL(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	c, err := NewClient(context.Background(), &config.RedisConfig{URL: "redis://" + mr.Addr() + "/0"})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Set(context.Background(), "k", "v", time.Minute))
	got, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	_, err = c.Get(context.Background(), "missing")
	assert.True(t, IsNil(err))
}

func TestRedisLocker(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestClient(t)
	locker := NewLocker(c)
	locker.backoff = time.Millisecond
	key := "lock:agreement:user@example.com"

	token, err := locker.TryLock(ctx, key, time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	t.Run("second lock attempt fails while held", func(t *testing.T) {
		_, err := locker.TryLock(ctx, key, time.Minute)
		assert.True(t, errors.Is(err, domain.ErrLockNotAcquired))
	})

	t.Run("unlock with a foreign token keeps the lock", func(t *testing.T) {
		require.NoError(t, locker.Unlock(ctx, key, "not-the-owner"))
		assert.True(t, mr.Exists(key))
	})

	t.Run("owner unlock releases the key", func(t *testing.T) {
		require.NoError(t, locker.Unlock(ctx, key, token))
		assert.False(t, mr.Exists(key))

		_, err := locker.TryLock(ctx, key, time.Minute)
		assert.NoError(t, err)
	})

	t.Run("lock expires after ttl", func(t *testing.T) {
		other := "lock:agreement:other@example.com"
		_, err := locker.TryLock(ctx, other, time.Second)
		require.NoError(t, err)
		mr.FastForward(2 * time.Second)
		_, err = locker.TryLock(ctx, other, time.Second)
		assert.NoError(t, err)
	})
}

func TestRateLimiter_Take(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestClient(t)
	rl := NewRateLimiter(c)
	key := AccountRouteKey("User@Example.com", "agreements")
	assert.Equal(t, "ratelimit:agreements:user@example.com", key)

	for i := 0; i < 3; i++ {
		q, err := rl.Take(ctx, key, 3, time.Minute)
		require.NoError(t, err)
		assert.False(t, q.Exceeded(), "request %d should pass", i+1)
		assert.Equal(t, 2-i, q.Remaining())
	}

	mr.FastForward(15 * time.Second)
	q, err := rl.Take(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, q.Exceeded())
	assert.Equal(t, 0, q.Remaining())
	assert.Equal(t, 45*time.Second, q.ResetIn)
	assert.Equal(t, 45, q.RetryAfterSeconds())

	mr.FastForward(time.Minute)
	q, err = rl.Take(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, q.Exceeded(), "window should reset")
	assert.Equal(t, time.Minute, q.ResetIn)
}

func TestRateLimiter_RearmsCounterWithoutExpiry(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestClient(t)
	rl := NewRateLimiter(c)
	key := AccountRouteKey("jane@example.com", "agreements")
	require.NoError(t, mr.Set(key, "7"))

	q, err := rl.Take(ctx, key, 3, time.Minute)

	require.NoError(t, err)
	assert.True(t, q.Exceeded())
	assert.Equal(t, time.Minute, mr.TTL(key), "stale counter must expire again")
}

func TestQuota_RetryAfterRoundsUp(t *testing.T) {
	assert.Equal(t, 2, Quota{ResetIn: 1500 * time.Millisecond}.RetryAfterSeconds())
	assert.Equal(t, 1, Quota{}.RetryAfterSeconds())
	assert.Equal(t, 0, Quota{Limit: 1, Used: 4}.Remaining())
}

func TestIdempotencyStore(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestClient(t)
	store := NewIdempotencyStore(c, time.Hour)

	ok, err := store.Reserve(ctx, "jane@example.com", "abc")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Reserve(ctx, "jane@example.com", "abc")
	require.NoError(t, err)
	assert.False(t, ok, "replayed key must not be reserved twice")

	require.NoError(t, store.Release(ctx, "jane@example.com", "abc"))
	ok, err = store.Reserve(ctx, "jane@example.com", "abc")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, time.Hour, mr.TTL("idem:agreement:jane@example.com:abc"))
}

func TestIdempotencyStore_KeysAreScopedPerAccount(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestClient(t)
	store := NewIdempotencyStore(c, time.Hour)

	ok, err := store.Reserve(ctx, "jane@example.com", "order-1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = store.Reserve(ctx, "john@example.com", "order-1")
	require.NoError(t, err)
	assert.True(t, ok, "another account may use the same key")

	ok, err = store.Reserve(ctx, "JANE@example.com", "order-1")
	require.NoError(t, err)
	assert.False(t, ok, "account names compare case-insensitively")

	require.NoError(t, store.Release(ctx, "john@example.com", "order-1"))
	assert.True(t, mr.Exists("idem:agreement:jane@example.com:order-1"), "releasing one account keeps the other's reservation")
	assert.False(t, mr.Exists("idem:agreement:john@example.com:order-1"))
}
