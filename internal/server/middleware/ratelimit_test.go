package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Allow(t *testing.T) {
	logger := zerolog.Nop()

	tests := []struct {
		name          string
		limit         int
		requests      int
		expectedAllow int
	}{
		{name: "under limit", limit: 10, requests: 5, expectedAllow: 5},
		{name: "at limit", limit: 10, requests: 10, expectedAllow: 10},
		{name: "over limit", limit: 5, requests: 8, expectedAllow: 5},
		{name: "zero limit is clamped to one", limit: 0, requests: 3, expectedAllow: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := NewRateLimiter(tt.limit, &logger)
			allowed := 0
			for i := 0; i < tt.requests; i++ {
				if rl.Allow("192.0.2.1") {
					allowed++
				}
			}
			assert.Equal(t, tt.expectedAllow, allowed)
		})
	}
}

func TestRateLimiter_PerClient(t *testing.T) {
	logger := zerolog.Nop()
	rl := NewRateLimiter(2, &logger)

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))
	assert.Equal(t, 2, rl.Visitors())
}

func TestRateLimiter_Concurrent(t *testing.T) {
	logger := zerolog.Nop()
	rl := NewRateLimiter(50, &logger)

	var (
		mu      sync.Mutex
		allowed int
		wg      sync.WaitGroup
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rl.Allow("shared") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// Refill over the test's lifetime is negligible at 50/minute.
	assert.InDelta(t, 50, allowed, 1)
}

func TestRateLimiter_Evict(t *testing.T) {
	logger := zerolog.Nop()
	rl := NewRateLimiter(10, &logger)
	rl.Allow("stale")

	rl.evict(time.Now().Add(time.Hour))
	assert.Equal(t, 0, rl.Visitors())
}

func TestRateLimiter_RunStopsWithContext(t *testing.T) {
	logger := zerolog.Nop()
	rl := NewRateLimiter(10, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rl.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	logger := zerolog.Nop()
	rl := NewRateLimiter(1, &logger)
	handler := RateLimit(rl)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/items", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, send().Code)

	w := send()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), `"code":"RATE_LIMITED"`)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.7:5555"
	assert.Equal(t, "198.51.100.7", clientIP(req))

	req.Header.Set("X-Forwarded-For", " 203.0.113.1 , 10.0.0.2")
	assert.Equal(t, "203.0.113.1", clientIP(req))
}
