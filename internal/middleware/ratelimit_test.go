package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestMemoryRateLimiter(t *testing.T) {
	ctx := context.Background()

	t.Run("allows requests under limit", func(t *testing.T) {
		limiter := NewMemoryRateLimiter()

		for i := 0; i < 5; i++ {
			allowed, remaining, _ := limiter.Check(ctx, "ip-1", 10)
			assert.True(t, allowed)
			assert.Equal(t, 10-i-1, remaining)
		}
	})

	t.Run("blocks requests over limit", func(t *testing.T) {
		limiter := NewMemoryRateLimiter()

		for i := 0; i < 5; i++ {
			limiter.Check(ctx, "ip-2", 5)
		}

		allowed, remaining, _ := limiter.Check(ctx, "ip-2", 5)
		assert.False(t, allowed)
		assert.Equal(t, 0, remaining)
	})

	t.Run("tracks keys separately", func(t *testing.T) {
		limiter := NewMemoryRateLimiter()

		for i := 0; i < 5; i++ {
			limiter.Check(ctx, "ip-a", 5)
		}

		allowed, _, _ := limiter.Check(ctx, "ip-b", 5)
		assert.True(t, allowed)
	})

	t.Run("window slides", func(t *testing.T) {
		limiter := NewMemoryRateLimiter()
		now := time.Now()
		limiter.now = func() time.Time { return now }

		for i := 0; i < 3; i++ {
			limiter.Check(ctx, "ip-c", 3)
		}
		allowed, _, resetAt := limiter.Check(ctx, "ip-c", 3)
		assert.False(t, allowed)
		assert.Equal(t, now.Add(windowDuration).Unix(), resetAt)

		now = now.Add(windowDuration + time.Second)
		allowed, _, _ = limiter.Check(ctx, "ip-c", 3)
		assert.True(t, allowed)
	})
}

func TestRedisRateLimiter_FailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	allowed, remaining, _ := NewRedisRateLimiter(client).Check(context.Background(), "k", 10)
	assert.True(t, allowed)
	assert.Equal(t, 9, remaining)
}

func TestIPRateLimitMiddleware(t *testing.T) {
	keyFn := func(scope, ip string) string { return scope + ":" + ip }
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	send := func(h http.Handler, ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/voting/vote", nil)
		req.RemoteAddr = ip
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	t.Run("limits per ip", func(t *testing.T) {
		h := NewIPRateLimitMiddleware(NewMemoryRateLimiter(), 2, "vote", keyFn).Handler(ok)

		assert.Equal(t, http.StatusOK, send(h, "10.0.0.1").Code)
		rec := send(h, "10.0.0.1")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

		rec = send(h, "10.0.0.1")
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("Retry-After"))
		assert.Contains(t, rec.Body.String(), "RATE_LIMIT_EXCEEDED")

		assert.Equal(t, http.StatusOK, send(h, "10.0.0.2").Code)
	})

	t.Run("ignores the client port", func(t *testing.T) {
		h := NewIPRateLimitMiddleware(NewMemoryRateLimiter(), 1, "vote", keyFn).Handler(ok)

		assert.Equal(t, http.StatusOK, send(h, "10.0.0.3:50000").Code)
		assert.Equal(t, http.StatusTooManyRequests, send(h, "10.0.0.3:50001").Code)
	})

	t.Run("zero limit disables", func(t *testing.T) {
		h := NewIPRateLimitMiddleware(NewMemoryRateLimiter(), 0, "vote", keyFn).Handler(ok)
		for i := 0; i < 10; i++ {
			assert.Equal(t, http.StatusOK, send(h, "10.0.0.1").Code)
		}
	})
}
