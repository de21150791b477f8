package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(1, 2)

	assert.True(t, rl.Allow("alice"))
	assert.True(t, rl.Allow("alice"))
	assert.False(t, rl.Allow("alice"))
	// Each key has its own budget.
	assert.True(t, rl.Allow("bob"))
}

func TestRateLimiterMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	e := echo.New()
	handler := rl.Middleware(func(c echo.Context) string { return c.RealIP() })(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusOK, rec.Code)

	err := handler(e.NewContext(req, httptest.NewRecorder()))
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusTooManyRequests, httpErr.Code)
}

func TestRateLimiterCleanupStale(t *testing.T) {
	rl := NewRateLimiter(0.01, 1)

	// "idle" has its full burst available, "busy" is drained.
	rl.getLimiter("idle")
	require.True(t, rl.Allow("busy"))

	rl.CleanupStale()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.limits, "idle")
	assert.Contains(t, rl.limits, "busy")
}

func TestRateLimiterStartCleanup(t *testing.T) {
	rl := NewRateLimiter(1000, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.True(t, rl.Allow("burst"))
	rl.StartCleanup(ctx, 5*time.Millisecond)

	// The key refills within a millisecond at this rate, so the periodic
	// cleanup must drop it instead of letting the map grow forever.
	require.Eventually(t, func() bool {
		rl.mu.Lock()
		defer rl.mu.Unlock()
		return len(rl.limits) == 0
	}, time.Second, 10*time.Millisecond)
}
