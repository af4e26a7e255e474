package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func get(r *gin.Engine, key string) int {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if key != "" {
		req.Header.Set(APIKeyHeader, key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestInternalAuthMiddleware(t *testing.T) {
	r := newRouter(InternalAuthMiddleware("s3cret"))
	assert.Equal(t, http.StatusOK, get(r, "s3cret"))
	assert.Equal(t, http.StatusUnauthorized, get(r, "wrong"))
	assert.Equal(t, http.StatusUnauthorized, get(r, ""))
}

func TestInternalAuthMiddleware_Misconfigured(t *testing.T) {
	r := newRouter(InternalAuthMiddleware(""))
	assert.Equal(t, http.StatusInternalServerError, get(r, "anything"))
}

func TestServiceRateLimitMiddleware(t *testing.T) {
	r := newRouter(ServiceRateLimitMiddleware(0.001, 2))
	assert.Equal(t, http.StatusOK, get(r, ""))
	assert.Equal(t, http.StatusOK, get(r, ""))
	assert.Equal(t, http.StatusTooManyRequests, get(r, ""))
}

func TestRateLimitMiddleware_PerClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := newRouter(RateLimitMiddleware(ctx, RateLimiterConfig{RequestsPerSecond: 0.001, BurstSize: 1}))

	from := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	assert.Equal(t, http.StatusOK, from("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, from("10.0.0.1"))
	assert.Equal(t, http.StatusOK, from("10.0.0.2"))
}

func TestIPRateLimiter_CleanupDropsIdleClients(t *testing.T) {
	rl := NewIPRateLimiter(RateLimiterConfig{RequestsPerSecond: 1, BurstSize: 1, IdleTTL: time.Minute})
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.GetLimiter("a")
	now = now.Add(2 * time.Minute)
	rl.GetLimiter("b")

	assert.Equal(t, 1, rl.CleanupOldLimiters())
	assert.Equal(t, 1, rl.Len())
}
