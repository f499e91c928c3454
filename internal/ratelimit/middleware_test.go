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

	"github.com/noah-isme/toko-billing/internal/common"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func ok() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func TestMiddlewareRejectsOverLimit(t *testing.T) {
	clk := &fakeClock{t: time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)}
	h := Handler{
		Limiter: Sliding{Client: newRedis(t), Prefix: "rl:", Window: 10 * time.Second, Max: 1, Now: clk.Now},
		Key:     func(*http.Request) string { return "till-1" },
		Now:     clk.Now,
	}.Middleware(ok())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/items", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "0", rr.Header().Get("X-RateLimit-Remaining"))

	clk.t = clk.t.Add(4 * time.Second)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/items", nil))
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	require.Equal(t, "1", rr.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "6", rr.Header().Get("Retry-After"))
	require.Contains(t, rr.Body.String(), `"code":"RATE_LIMITED"`)
}

func TestMiddlewareFixedWindow(t *testing.T) {
	fixed, err := NewFixed(newRedis(t), "fixed", time.Minute, 2)
	require.NoError(t, err)
	h := Handler{Limiter: fixed}.Middleware(ok())

	var codes []int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestMiddlewareFailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0", MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	var reported error
	h := Handler{
		Limiter: Sliding{Client: client, Window: time.Second, Max: 1},
		OnError: func(err error) { reported = err },
	}.Middleware(ok())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/bills", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Error(t, reported)
}

func TestByStaffOrIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.9:5555"
	require.Equal(t, "ip:"+common.ClientIP(req), ByStaffOrIP(req))

	req = req.WithContext(common.WithStaffUser(req.Context(), "admin"))
	require.Equal(t, "staff:admin", ByStaffOrIP(req))
}

func TestSlidingWindow(t *testing.T) {
	clk := &fakeClock{t: time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)}
	l := Sliding{Client: newRedis(t), Prefix: "rl:", Window: 2 * time.Second, Max: 2, Now: clk.Now}
	ctx := context.Background()

	for want := 1; want >= 0; want-- {
		res, err := l.Allow(ctx, "admin")
		require.NoError(t, err)
		require.True(t, res.Allowed)
		require.Equal(t, want, res.Remaining)
		clk.t = clk.t.Add(500 * time.Millisecond)
	}

	// rejected hits do not count against the window
	for i := 0; i < 5; i++ {
		res, err := l.Allow(ctx, "admin")
		require.NoError(t, err)
		require.False(t, res.Allowed)
	}

	clk.t = clk.t.Add(time.Second + time.Millisecond)
	res, err := l.Allow(ctx, "admin")
	require.NoError(t, err)
	require.True(t, res.Allowed, "first hit aged out")
	require.Equal(t, 0, res.Remaining)

	res, err = l.Allow(ctx, "other")
	require.NoError(t, err)
	require.Equal(t, 1, res.Remaining)
}
