package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"voxelhunt/internal/logger"
	"voxelhunt/internal/match"
	"voxelhunt/internal/protocol"
	"voxelhunt/internal/store"

	"github.com/gin-gonic/gin"
)

// Game serves POST /api/game: every action goes through this one endpoint.
func (h *Handler) Game(c *gin.Context) {
	var req protocol.Request

	defer func() {
		if r := recover(); r != nil {
			logger.ForGame(req.GameID, req.PlayerAddress).Error("panic in game action",
				"action", req.Action,
				"panic", fmt.Sprint(r),
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError, protocol.ErrorResponse{Error: protocol.MsgInternal})
		}
	}()

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, protocol.ErrorResponse{Error: protocol.MsgBadRequest})
		return
	}

	logger.ForGame(req.GameID, req.PlayerAddress).Debug("game action", "action", req.Action)

	resp, err := h.Matches.Handle(c.Request.Context(), req)
	if err != nil {
		status, msg := errorStatus(req.Action, err)
		if status == http.StatusInternalServerError {
			logger.ForGame(req.GameID, req.PlayerAddress).Error("game action failed",
				"action", req.Action,
				"error", err,
			)
		}
		c.JSON(status, protocol.ErrorResponse{Error: msg})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func errorStatus(action string, err error) (int, string) {
	switch {
	case errors.Is(err, store.ErrGameNotFound):
		if action == protocol.ActionJoinGame {
			return http.StatusNotFound, protocol.MsgJoinGameNotFound
		}
		return http.StatusNotFound, protocol.MsgGameNotFound
	case errors.Is(err, protocol.ErrUnknownAction):
		return http.StatusBadRequest, protocol.MsgUnknownAction
	case errors.Is(err, protocol.ErrBadPayload):
		return http.StatusBadRequest, protocol.MsgBadRequest
	case errors.Is(err, match.ErrNotAPlayer):
		return http.StatusForbidden, protocol.MsgNotAPlayer
	default:
		return http.StatusInternalServerError, protocol.MsgInternal
	}
}
