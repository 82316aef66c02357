package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// KeyFunc picks the bucket a request is counted against.
type KeyFunc func(c *gin.Context) string

// ByIP counts every request from one client IP together.
func ByIP(c *gin.Context) string {
	return c.ClientIP()
}

// ByPlayer counts each playerAddress behind a client IP on its own, so two
// players sharing a NAT keep separate budgets. The body is put back for the
// handler; unreadable bodies fall back to the IP bucket.
func ByPlayer(c *gin.Context) string {
	ip := c.ClientIP()
	if c.Request.Body == nil {
		return ip
	}
	raw, err := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return ip
	}

	var req struct {
		PlayerAddress string `json:"playerAddress"`
	}
	if json.Unmarshal(raw, &req) != nil || req.PlayerAddress == "" {
		return ip
	}
	return ip + "|" + strings.ToLower(strings.TrimSpace(req.PlayerAddress))
}

type keyLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	every    rate.Limit
	burst    int
}

func (l *keyLimiters) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.every, l.burst)
		l.limiters[key] = lim
	}
	return lim
}

// LocalRateLimit allows maxRequests per window per client IP, refilled
// continuously. Used when Redis is not configured.
func LocalRateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	return LocalRateLimitBy(maxRequests, window, ByIP)
}

func LocalRateLimitBy(maxRequests int, window time.Duration, key KeyFunc) gin.HandlerFunc {
	if maxRequests <= 0 || window <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	l := &keyLimiters{
		limiters: make(map[string]*rate.Limiter),
		every:    rate.Every(window / time.Duration(maxRequests)),
		burst:    maxRequests,
	}

	return func(c *gin.Context) {
		if !l.get(key(c)).Allow() {
			RLBlocked.WithLabelValues(c.FullPath(), "local").Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		RLRequests.WithLabelValues(c.FullPath(), "local").Inc()
		c.Next()
	}
}
