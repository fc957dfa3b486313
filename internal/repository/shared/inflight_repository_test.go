package shared

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInflightRepository(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx := context.Background()
	r := NewInflightRepository(rdb, time.Minute)

	ok, err := r.Acquire(ctx, "prompt:abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, mr.Exists("blueprint:inflight:prompt:abc"))

	ok, err = r.Acquire(ctx, "prompt:abc")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.Release(ctx, "prompt:abc"))
	assert.False(t, mr.Exists("blueprint:inflight:prompt:abc"))

	ok, err = r.Acquire(ctx, "prompt:abc")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestInflightRepositoryExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx := context.Background()
	r := NewInflightRepository(rdb, time.Minute)

	ok, err := r.Acquire(ctx, "journey:1")
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)

	ok, err = r.Acquire(ctx, "journey:1")
	require.NoError(t, err)
	assert.True(t, ok, "abandoned keys expire")
}
