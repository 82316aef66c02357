package handlers

import (
	"context"

	"voxelhunt/internal/chain"
	"voxelhunt/internal/domain"
	"voxelhunt/internal/service"
)

// HistoryReader lists recorded matches.
type HistoryReader interface {
	GetByAddress(ctx context.Context, address string, limit int) ([]*domain.MatchRecord, error)
	GetByGameID(ctx context.Context, gameID string) ([]*domain.MatchRecord, error)
}

type Handler struct {
	Matches *service.MatchService
	History HistoryReader // nil when DATABASE_URL is unset
	Escrow  chain.Escrow  // nil when no contract is configured

	// InviteBaseURL prefixes invite QR codes with a frontend join link.
	InviteBaseURL string
}

func NewHandler(matches *service.MatchService, history HistoryReader, escrow chain.Escrow) *Handler {
	return &Handler{
		Matches: matches,
		History: history,
		Escrow:  escrow,
	}
}
