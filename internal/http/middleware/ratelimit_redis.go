package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"voxelhunt/internal/logger"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

// InitRedisRateLimiter initializes a shared Redis client used by the middleware.
// Provide addr (host:port), password and db index. If connection fails, redisClient remains nil
// and RateLimit falls back to the in-process limiter. Reports whether Redis is in use.
func InitRedisRateLimiter(addr, password string, db int) bool {
	if addr == "" {
		return false
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, using in-process rate limiter", "addr", addr, "error", err)
		_ = client.Close()
		return false
	}
	redisClient = client
	logger.Info("redis rate limiter enabled", "addr", addr)
	return true
}

// RedisPing reports Redis health; nil when Redis is not configured.
func RedisPing(ctx context.Context) error {
	if redisClient == nil {
		return nil
	}
	return redisClient.Ping(ctx).Err()
}

// RedisRateLimit implements a simple fixed-window rate limiter using Redis INCR/EXPIRE.
// key format: rl:<window_seconds>:<identifier>
func RedisRateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	return RedisRateLimitBy(maxRequests, window, ByIP)
}

func RedisRateLimitBy(maxRequests int, window time.Duration, keyOf KeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if redisClient == nil {
			c.Next()
			return
		}

		key := "rl:" + strconv.FormatInt(int64(window.Seconds()), 10) + ":" + keyOf(c)
		ctx := c.Request.Context()

		val, err := redisClient.Incr(ctx, key).Result()
		if err != nil {
			// fail-open
			c.Header("X-RateLimit-Error", "redis-error")
			c.Next()
			return
		}

		if val == 1 {
			redisClient.Expire(ctx, key, window)
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(max(0, int64(maxRequests)-val), 10))

		if val > int64(maxRequests) {
			RLBlocked.WithLabelValues(c.FullPath(), "redis").Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": int(window.Seconds()),
			})
			return
		}

		RLRequests.WithLabelValues(c.FullPath(), "redis").Inc()
		c.Next()
	}
}

// RateLimit uses Redis when InitRedisRateLimiter succeeded, otherwise a
// per-IP token bucket held in memory.
func RateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	return RateLimitBy(maxRequests, window, ByIP)
}

// RateLimitBy is RateLimit with a custom bucket key.
func RateLimitBy(maxRequests int, window time.Duration, key KeyFunc) gin.HandlerFunc {
	local := LocalRateLimitBy(maxRequests, window, key)
	remote := RedisRateLimitBy(maxRequests, window, key)
	return func(c *gin.Context) {
		if redisClient != nil {
			remote(c)
			return
		}
		local(c)
	}
}
