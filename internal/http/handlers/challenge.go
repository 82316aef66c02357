package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"voxelhunt/internal/chain"
	"voxelhunt/internal/gameid"
	"voxelhunt/internal/logger"

	"github.com/gin-gonic/gin"
)

// Challenge serves GET /api/v1/challenge/:gameId from the escrow contract.
// With ?player=0x.. the answer also says whether that wallet may accept.
func (h *Handler) Challenge(c *gin.Context) {
	if h.Escrow == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "escrow lookups disabled"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	id := gameid.Normalize(c.Param("gameId"))
	ch, err := h.Escrow.GetChallenge(ctx, id)
	if err != nil {
		h.chainError(c, err, "game_id", id)
		return
	}
	if player := c.Query("player"); player != "" {
		c.JSON(http.StatusOK, ch.ViewFor(player))
		return
	}
	c.JSON(http.StatusOK, ch.View())
}

// Balance serves GET /api/v1/balance/:address (withdrawable escrow balance, wei).
func (h *Handler) Balance(c *gin.Context) {
	if h.Escrow == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "escrow lookups disabled"})
		return
	}

	address := c.Param("address")
	if !chain.ValidAddress(address) {
		c.JSON(http.StatusBadRequest, gin.H{"error": chain.CategoryInvalidAddress.Message()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	bal, err := h.Escrow.PlayerBalance(ctx, address)
	if err != nil {
		h.chainError(c, err, "player", address)
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": address, "balance": bal.String()})
}

func (h *Handler) chainError(c *gin.Context, err error, attrs ...any) {
	cat := chain.Classify(err)
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, chain.ErrChallengeNotFound), cat == chain.CategoryGameNotFound:
		status = http.StatusNotFound
	case cat == chain.CategoryInvalidAddress:
		status = http.StatusBadRequest
	default:
		logger.Warn("escrow call failed", append(attrs, "error", err, "category", cat)...)
	}
	c.JSON(status, gin.H{"error": cat.Message(), "category": cat})
}
