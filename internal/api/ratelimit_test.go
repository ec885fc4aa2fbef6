package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_Window(t *testing.T) {
	now := time.Unix(0, 0)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"), "buckets are per IP")
	assert.Equal(t, 60, rl.RetryAfter("a"))

	now = now.Add(time.Minute)
	assert.True(t, rl.Allow("a"))
	assert.Zero(t, rl.RetryAfter("nobody"))
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)
	h := RateLimitMiddleware(rl, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		assert.Equal(t, want, rec.Code, "request %d", i)
	}
}

func TestConnLimiter(t *testing.T) {
	cl := NewConnLimiter(2)

	assert.True(t, cl.Acquire("a"))
	assert.True(t, cl.Acquire("a"))
	assert.False(t, cl.Acquire("a"))
	assert.True(t, cl.Acquire("b"))
	assert.Equal(t, 2, cl.Active("a"))

	cl.Release("a")
	assert.True(t, cl.Acquire("a"))
	cl.Release("b")
	assert.Zero(t, cl.Active("b"))

	unlimited := NewConnLimiter(0)
	for i := 0; i < 10; i++ {
		require.True(t, unlimited.Acquire("a"))
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.1.2.3:5555"
	assert.Equal(t, "10.1.2.3", clientIP(r))

	r.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")
	assert.Equal(t, "198.51.100.7", clientIP(r))
}

func TestIsLoopbackRemote(t *testing.T) {
	assert.True(t, isLoopbackRemote("127.0.0.1:9000"))
	assert.True(t, isLoopbackRemote("[::1]:9000"))
	assert.False(t, isLoopbackRemote("192.0.2.1:1234"))
	assert.False(t, isLoopbackRemote("not-an-addr"))
}
