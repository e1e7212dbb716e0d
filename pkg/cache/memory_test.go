package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMemory(t *testing.T, maxEntries int, ttl time.Duration) (*Memory, *time.Time) {
	c, err := NewMemory(maxEntries, ttl)
	require.NoError(t, err)

	now := time.Now()
	c.now = func() time.Time { return now }
	return c, &now
}

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestMemory(t, 16, time.Minute)

	_, ok, err := c.Get(ctx, 1, KeyMetrics)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, 1, KeyMetrics, []byte("v1")))

	payload, ok, err := c.Get(ctx, 1, KeyMetrics)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v1"), payload)
}

func TestMemoryUserIsolation(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestMemory(t, 16, time.Minute)

	require.NoError(t, c.Set(ctx, 1, KeyMetrics, []byte("user1")))

	_, ok, err := c.Get(ctx, 2, KeyMetrics)
	require.NoError(t, err)
	assert.False(t, ok, "one user's entry must not serve another user")
}

func TestMemoryTTLExpiry(t *testing.T) {
	ctx := context.Background()
	c, now := newTestMemory(t, 16, 5*time.Minute)

	require.NoError(t, c.Set(ctx, 1, KeyPlants, []byte("fresh")))

	*now = now.Add(5*time.Minute - time.Second)
	_, ok, err := c.Get(ctx, 1, KeyPlants)
	require.NoError(t, err)
	assert.True(t, ok, "entry just inside the TTL must be served")

	*now = now.Add(2 * time.Second)
	_, ok, err = c.Get(ctx, 1, KeyPlants)
	require.NoError(t, err)
	assert.False(t, ok, "entry past the TTL must expire")
}

func TestMemoryOverwriteResetsTTL(t *testing.T) {
	ctx := context.Background()
	c, now := newTestMemory(t, 16, 5*time.Minute)

	require.NoError(t, c.Set(ctx, 1, KeyPlants, []byte("old")))

	*now = now.Add(4 * time.Minute)
	require.NoError(t, c.Set(ctx, 1, KeyPlants, []byte("new")))

	// 6 minutes after the first write but 2 after the second.
	*now = now.Add(2 * time.Minute)
	payload, ok, err := c.Get(ctx, 1, KeyPlants)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("new"), payload, "last writer wins")
}

func TestMemoryInvalidateUser(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestMemory(t, 16, time.Minute)

	require.NoError(t, c.Set(ctx, 1, KeyMetrics, []byte("a")))
	require.NoError(t, c.Set(ctx, 1, KeyPlants, []byte("b")))
	require.NoError(t, c.Set(ctx, 2, KeyMetrics, []byte("c")))

	require.NoError(t, c.InvalidateUser(ctx, 1))

	_, ok, _ := c.Get(ctx, 1, KeyMetrics)
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, 1, KeyPlants)
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, 2, KeyMetrics)
	assert.True(t, ok, "other users' entries survive a user invalidation")
}

func TestMemoryInvalidateAll(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestMemory(t, 16, time.Minute)

	require.NoError(t, c.Set(ctx, 1, KeyMetrics, []byte("a")))
	require.NoError(t, c.Set(ctx, 2, KeyMetrics, []byte("b")))

	require.NoError(t, c.InvalidateAll(ctx))

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Entries)
}

func TestMemoryBoundedByLRU(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestMemory(t, 2, time.Minute)

	require.NoError(t, c.Set(ctx, 1, KeyMetrics, []byte("a")))
	require.NoError(t, c.Set(ctx, 2, KeyMetrics, []byte("b")))
	require.NoError(t, c.Set(ctx, 3, KeyMetrics, []byte("c")))

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.Entries)

	// The oldest entry was evicted.
	_, ok, _ := c.Get(ctx, 1, KeyMetrics)
	assert.False(t, ok)
}

func TestMemorySweep(t *testing.T) {
	ctx := context.Background()
	c, now := newTestMemory(t, 16, time.Minute)

	require.NoError(t, c.Set(ctx, 1, KeyMetrics, []byte("stale")))
	*now = now.Add(time.Minute)
	require.NoError(t, c.Set(ctx, 2, KeyMetrics, []byte("fresh")))

	removed := c.Sweep()
	assert.Equal(t, 1, removed)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Entries)
}

func TestMemoryStatsCounters(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestMemory(t, 16, time.Minute)

	c.Get(ctx, 1, KeyMetrics)
	require.NoError(t, c.Set(ctx, 1, KeyMetrics, []byte("a")))
	c.Get(ctx, 1, KeyMetrics)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Hits)
	assert.EqualValues(t, 1, stats.Misses)
}
