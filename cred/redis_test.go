package cred

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisChecker(t *testing.T) {
	mr := miniredis.RunT(t)
	h := testHasher(t)
	mr.HSet(DefaultRedisPrefix+"alice", "hash", mustHash(t, h, "pw"), "name", "Alice")
	mr.HSet(DefaultRedisPrefix+"broken", "hash", "not-a-hash")

	chk, err := DialRedis(mr.Addr(), DefaultRedisPrefix, h)
	require.NoError(t, err)
	defer chk.Close()

	name, ok, err := chk.Check(t.Context(), "alice", "pw")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Alice", name)

	_, ok, err = chk.Check(t.Context(), "alice", "nope")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = chk.Check(t.Context(), "nobody", "pw")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = chk.Check(t.Context(), "broken", "pw")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestRedisCheckerBackendError(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	chk := NewRedis(client, "p:", testHasher(t))
	mr.Close()

	_, ok, err := chk.Check(t.Context(), "alice", "pw")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.NoError(t, chk.Close(), "borrowed client is not closed")
}

func TestDialRedisURL(t *testing.T) {
	mr := miniredis.RunT(t)
	chk, err := DialRedis("redis://"+mr.Addr()+"/0", "u:", testHasher(t))
	require.NoError(t, err)
	defer chk.Close()

	_, ok, err := chk.Check(t.Context(), "x", "y")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = DialRedis("redis://[bad", "u:", testHasher(t))
	assert.ErrorIs(t, err, ErrArgs)
}
