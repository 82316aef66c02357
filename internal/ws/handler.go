package ws

import (
	"net/http"

	"voxelhunt/internal/gameid"
	"voxelhunt/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// HandleFeed upgrades GET /ws/game?gameId=..&playerAddress=.. into a state feed.
func HandleFeed(hub *Hub, allowedOrigin string) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if allowedOrigin == "" {
				return true
			}
			return r.Header.Get("Origin") == allowedOrigin
		},
	}

	return func(c *gin.Context) {
		gameID := gameid.Normalize(c.Query("gameId"))
		if !gameid.IsValid(gameID) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "gameId required"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("ws upgrade error", "error", err)
			return
		}

		NewClient(gameID, c.Query("playerAddress"), conn, hub).Run()
	}
}
