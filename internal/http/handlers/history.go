package handlers

import (
	"net/http"
	"strconv"

	"voxelhunt/internal/domain"
	"voxelhunt/internal/gameid"
	"voxelhunt/internal/logger"

	"github.com/gin-gonic/gin"
)

const maxHistoryLimit = 50

// MatchHistory serves GET /api/v1/history/:address?limit=N.
func (h *Handler) MatchHistory(c *gin.Context) {
	if h.History == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "match history disabled"})
		return
	}

	address := c.Param("address")
	limit := maxHistoryLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	matches, err := h.History.GetByAddress(c.Request.Context(), address, limit)
	if err != nil {
		logger.Error("failed to load match history", "error", err, "player", address)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}
	if matches == nil {
		matches = []*domain.MatchRecord{}
	}

	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

// GameHistory serves GET /api/v1/matches/:gameId, every finished match
// recorded under that id, newest first.
func (h *Handler) GameHistory(c *gin.Context) {
	if h.History == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "match history disabled"})
		return
	}

	id := gameid.Normalize(c.Param("gameId"))
	matches, err := h.History.GetByGameID(c.Request.Context(), id)
	if err != nil {
		logger.Error("failed to load match history", "error", err, "game_id", id)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}
	if matches == nil {
		matches = []*domain.MatchRecord{}
	}

	c.JSON(http.StatusOK, gin.H{"matches": matches})
}
