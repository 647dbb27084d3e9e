package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newSlidingWindow(t *testing.T) (SlidingWindow, *fakeClock, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	clock := &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
	return SlidingWindow{Client: client, Prefix: "ratelimit:", Now: clock.Now}, clock, mr
}

func TestSlidingWindowAllow(t *testing.T) {
	limiter, clock, _ := newSlidingWindow(t)
	ctx := context.Background()
	window := 2 * time.Second

	for i := 0; i < 2; i++ {
		allowed, remaining, reset, err := limiter.Allow(ctx, "quote:203.0.113.9", window, 2)
		require.NoError(t, err)
		require.True(t, allowed, "request %d", i)
		require.Equal(t, 1-i, remaining)
		require.WithinDuration(t, clock.now.Add(window-time.Duration(i)*500*time.Millisecond), reset, 0)
		clock.Advance(500 * time.Millisecond)
	}

	allowed, remaining, reset, err := limiter.Allow(ctx, "quote:203.0.113.9", window, 2)
	require.NoError(t, err)
	require.False(t, allowed)
	require.Zero(t, remaining)
	// The first request was admitted one second ago.
	require.WithinDuration(t, clock.now.Add(time.Second), reset, 0)
}

func TestSlidingWindowRejectionsDoNotConsume(t *testing.T) {
	limiter, clock, mr := newSlidingWindow(t)
	ctx := context.Background()
	window := time.Second

	allowed, _, _, err := limiter.Allow(ctx, "quote:a", window, 1)
	require.NoError(t, err)
	require.True(t, allowed)

	for i := 0; i < 5; i++ {
		clock.Advance(100 * time.Millisecond)
		allowed, _, _, err = limiter.Allow(ctx, "quote:a", window, 1)
		require.NoError(t, err)
		require.False(t, allowed)
	}
	members, err := mr.ZMembers("ratelimit:quote:a")
	require.NoError(t, err)
	require.Len(t, members, 1)

	clock.Advance(600 * time.Millisecond)
	allowed, _, _, err = limiter.Allow(ctx, "quote:a", window, 1)
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestSlidingWindowKeysAreIndependent(t *testing.T) {
	limiter, _, _ := newSlidingWindow(t)
	ctx := context.Background()

	allowed, _, _, err := limiter.Allow(ctx, "quote:a", time.Minute, 1)
	require.NoError(t, err)
	require.True(t, allowed)
	allowed, _, _, err = limiter.Allow(ctx, "quote:b", time.Minute, 1)
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestSlidingWindowWithoutClient(t *testing.T) {
	_, _, _, err := SlidingWindow{}.Allow(context.Background(), "quote:a", time.Minute, 1)
	require.Error(t, err)

	allowed, _, _, err := SlidingWindow{}.Allow(context.Background(), "quote:a", time.Minute, 0)
	require.NoError(t, err)
	require.True(t, allowed)
}
