package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMemory(t *testing.T, maxKeys int) Cache {
	t.Helper()
	c := NewMemoryCache(&Config{TTL: time.Minute, MaxKeys: maxKeys, CleanupInterval: time.Hour}, zap.NewNop())
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestMemoryCache_SetGetExpire(t *testing.T) {
	c := newMemory(t, 10)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	v, ok := c.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, "1", string(v))

	require.NoError(t, c.Set(ctx, "short", []byte("x"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	_, ok = c.Get(ctx, "short")
	assert.False(t, ok)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := newMemory(t, 2)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "old", []byte("1"), 0))
	time.Sleep(time.Millisecond)
	require.NoError(t, c.Set(ctx, "new", []byte("2"), 0))
	time.Sleep(time.Millisecond)
	require.NoError(t, c.Set(ctx, "newest", []byte("3"), 0))

	_, ok := c.Get(ctx, "old")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "newest")
	assert.True(t, ok)
}

func TestMemoryCache_DeletePattern(t *testing.T) {
	c := newMemory(t, 0)
	ctx := context.Background()

	for _, k := range []string{"leaderboard:GLOBAL", "leaderboard:ORGANIZATION:1", "tiers"} {
		require.NoError(t, c.Set(ctx, k, []byte("v"), 0))
	}
	require.NoError(t, c.DeletePattern(ctx, "leaderboard:*"))

	_, ok := c.Get(ctx, "leaderboard:GLOBAL")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "tiers")
	assert.True(t, ok)
}

func TestRemember(t *testing.T) {
	c := newMemory(t, 0)
	ctx := context.Background()
	calls := 0
	compute := func() ([]int, error) {
		calls++
		return []int{3, 2, 1}, nil
	}

	v, err := Remember(ctx, c, zap.NewNop(), "k", 0, compute)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2, 1}, v)

	v, err = Remember(ctx, c, zap.NewNop(), "k", 0, compute)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2, 1}, v)
	assert.Equal(t, 1, calls)

	_, err = Remember(ctx, c, nil, "failing", 0, func() (int, error) { return 0, errors.New("db down") })
	assert.Error(t, err)
	_, ok := c.Get(ctx, "failing")
	assert.False(t, ok)

	v, err = Remember(ctx, nil, nil, "k", 0, compute)
	require.NoError(t, err)
	assert.Len(t, v, 3)
	assert.Equal(t, 2, calls)
}

func TestNewCache_UnknownProvider(t *testing.T) {
	_, err := NewCache(&Config{Provider: "memcached"}, nil)
	assert.Error(t, err)
}
