package http

import (
	"net/http"
	"time"

	"voxelhunt/internal/http/handlers"
	"voxelhunt/internal/http/middleware"
	"voxelhunt/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps bundles what the routes need; optional parts may be nil.
type Deps struct {
	Handler       *handlers.Handler
	Health        *handlers.HealthHandler
	Feed          *ws.Hub
	AllowedOrigin string
	RateLimit     int
	RateWindow    time.Duration
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.Use(middleware.RequestID(), cors(d.AllowedOrigin))

	// Health checks (no rate limiting)
	r.GET("/health", d.Health.Health)
	r.GET("/healthz", d.Health.Liveness)
	r.GET("/readyz", d.Health.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limit := middleware.RateLimit(d.RateLimit, d.RateWindow)
	// game actions are counted per player so polling clients behind one NAT
	// do not share a budget; both paths use the same buckets
	perPlayer := middleware.RateLimitBy(d.RateLimit, d.RateWindow, middleware.ByPlayer)

	// API v1 routes
	v1 := r.Group("/api/v1")
	v1.POST("/game", perPlayer, d.Handler.Game)
	v1.GET("/history/:address", limit, d.Handler.MatchHistory)
	v1.GET("/matches/:gameId", limit, d.Handler.GameHistory)
	v1.GET("/challenge/:gameId", limit, d.Handler.Challenge)
	v1.GET("/balance/:address", limit, d.Handler.Balance)
	v1.GET("/invite/:gameId", limit, d.Handler.Invite)

	// Unversioned path used by existing browser clients
	r.POST("/api/game", perPlayer, d.Handler.Game)

	if d.Feed != nil {
		r.GET("/ws/game", ws.HandleFeed(d.Feed, d.AllowedOrigin))
	}
}

// cors lets a browser frontend on another domain call the API.
func cors(allowedOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigin != "" && origin != allowedOrigin {
			origin = ""
		}
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+middleware.RequestIDHeader)
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
