package middleware

import (
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedisLimitedRouter(t *testing.T, rps float64, burst int, window time.Duration) (*gin.Engine, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ping", RedisRateLimitMiddleware(client, rps, burst, window), func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	return r, mr
}

func TestRedisRateLimit_FixedWindow(t *testing.T) {
	// 1 rps, burst 1, 1s window: 2 allowed per window
	r, _ := newRedisLimitedRouter(t, 1, 1, time.Second)

	require.Equal(t, http.StatusOK, doGet(r, "10.0.1.1:1111").Code)
	require.Equal(t, http.StatusOK, doGet(r, "10.0.1.1:1111").Code)

	w := doGet(r, "10.0.1.1:1111")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestRedisRateLimit_WindowRollsOver(t *testing.T) {
	r, _ := newRedisLimitedRouter(t, 0, 1, time.Second)

	require.Equal(t, http.StatusOK, doGet(r, "10.0.1.2:2222").Code)
	require.Equal(t, http.StatusTooManyRequests, doGet(r, "10.0.1.2:2222").Code)

	// the bucket key is derived from wall-clock seconds
	time.Sleep(1100 * time.Millisecond)
	require.Equal(t, http.StatusOK, doGet(r, "10.0.1.2:2222").Code)
}

func TestRedisRateLimit_IndependentClients(t *testing.T) {
	r, _ := newRedisLimitedRouter(t, 0, 1, time.Minute)

	require.Equal(t, http.StatusOK, doGet(r, "10.0.1.3:3333").Code)
	require.Equal(t, http.StatusTooManyRequests, doGet(r, "10.0.1.3:3333").Code)
	require.Equal(t, http.StatusOK, doGet(r, "10.0.1.4:4444").Code)
}

// With no client the middleware degrades to the in-memory limiter.
func TestRedisRateLimit_NilClientFallsBack(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ping", RedisRateLimitMiddleware(nil, 10, 2, time.Second), func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	require.Equal(t, http.StatusOK, doGet(r, "10.0.1.5:5555").Code)
}
