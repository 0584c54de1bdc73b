package middleware

import (
	"net/http"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisRateLimit_Basic(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})

	r := gin.New()
	// one hit per hour-long window, so the test never straddles a boundary
	r.Use(RedisRateLimit(client, "chat", 0, 1, time.Hour))
	r.GET("/r", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	require.Equal(t, http.StatusOK, hit(r, "/r"))
	require.Equal(t, http.StatusTooManyRequests, hit(r, "/r"))

	// advance miniredis clock past the key TTL and the counter is gone
	m.FastForward(2 * time.Hour)
	require.Equal(t, http.StatusOK, hit(r, "/r"))
}

func TestRedisRateLimit_NilClientFallsBack(t *testing.T) {
	r := gin.New()
	r.Use(RedisRateLimit(nil, "fallback", 0.01, 1, time.Second))
	r.GET("/r", func(c *gin.Context) { c.Status(200) })
	require.Equal(t, http.StatusOK, hit(r, "/r"))
	require.Equal(t, http.StatusTooManyRequests, hit(r, "/r"))
}
