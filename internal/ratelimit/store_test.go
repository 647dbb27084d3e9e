package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiterAllow(t *testing.T) {
	lim := NewMemoryLimiter("test")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, remaining, reset, err := lim.Allow(ctx, "client", time.Minute, 3)
		require.NoError(t, err)
		require.True(t, allowed, "request %d", i)
		require.Equal(t, 3-(i+1), remaining)
		require.True(t, reset.After(time.Now()))
	}

	allowed, remaining, _, err := lim.Allow(ctx, "client", time.Minute, 3)
	require.NoError(t, err)
	require.False(t, allowed)
	require.Zero(t, remaining)

	allowed, _, _, err = lim.Allow(ctx, "other", time.Minute, 3)
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestRedisLimiterThroughMiddleware(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	lim, err := NewRedisLimiter(client, "quote")
	require.NoError(t, err)

	handler := Handler{
		Limiter: lim,
		Config:  Config{Key: KeyByClientIP(""), Window: time.Minute, Max: 2},
	}
	counted := handler.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices/quote", nil)
		req.RemoteAddr = "192.0.2.10:1234"
		rr := httptest.NewRecorder()
		counted.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestStoreLimiterWithoutStore(t *testing.T) {
	allowed, remaining, _, err := StoreLimiter{}.Allow(context.Background(), "k", time.Second, 4)
	require.NoError(t, err)
	require.True(t, allowed)
	require.Equal(t, 4, remaining)
}
