package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"voxelhunt/internal/gameid"
	"voxelhunt/internal/logger"
	"voxelhunt/internal/protocol"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"
)

const inviteQRSize = 256

// inviteContent is what the QR code encodes: a join link when a frontend URL
// is configured, the bare game id otherwise.
func (h *Handler) inviteContent(id string) string {
	if h.InviteBaseURL == "" {
		return id
	}
	return strings.TrimRight(h.InviteBaseURL, "/") + "/?join=" + url.QueryEscape(id)
}

// Invite serves GET /api/v1/invite/:gameId as a PNG QR code for player 2.
func (h *Handler) Invite(c *gin.Context) {
	id := gameid.Normalize(c.Param("gameId"))
	if _, err := h.Matches.Store().Get(id); err != nil {
		c.JSON(http.StatusNotFound, protocol.ErrorResponse{Error: protocol.MsgGameNotFound})
		return
	}

	png, err := qrcode.Encode(h.inviteContent(id), qrcode.Medium, inviteQRSize)
	if err != nil {
		logger.Error("failed to render invite", "error", err, "game_id", id)
		c.JSON(http.StatusInternalServerError, protocol.ErrorResponse{Error: protocol.MsgInternal})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}
