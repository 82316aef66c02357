package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"voxelhunt/internal/domain"
	"voxelhunt/internal/gameid"
	"voxelhunt/internal/logger"
	"voxelhunt/internal/match"
	"voxelhunt/internal/protocol"
	"voxelhunt/internal/store"
)

// HistoryRecorder persists finished matches.
type HistoryRecorder interface {
	Create(ctx context.Context, rec *domain.MatchRecord) error
}

// MatchService executes protocol actions against the session store.
type MatchService struct {
	store   store.Store
	history HistoryRecorder

	pending sync.WaitGroup
}

// NewMatchService wires a store and an optional history recorder (nil disables it).
func NewMatchService(st store.Store, history HistoryRecorder) *MatchService {
	return &MatchService{store: st, history: history}
}

// Store exposes the underlying session store.
func (s *MatchService) Store() store.Store {
	return s.store
}

// Handle dispatches one request and returns the response body.
func (s *MatchService) Handle(ctx context.Context, req protocol.Request) (resp any, err error) {
	start := time.Now()
	defer func() {
		observeAction(req.Action, err, time.Since(start))
	}()

	switch req.Action {
	case protocol.ActionCreateGame:
		return s.CreateGame(req.GameID, req.PlayerAddress), nil

	case protocol.ActionJoinGame:
		return s.JoinGame(req.GameID, req.PlayerAddress)

	case protocol.ActionUpdateGrid:
		var data protocol.UpdateGridData
		if err := req.Decode(&data); err != nil {
			return nil, err
		}
		return s.UpdateGrid(req.GameID, req.PlayerAddress, data.Blocks)

	case protocol.ActionSetTreasures:
		var data protocol.SetTreasuresData
		if err := req.Decode(&data); err != nil {
			return nil, err
		}
		return s.SetTreasures(req.GameID, req.PlayerAddress, data.Treasures)

	case protocol.ActionGetGameState:
		return s.GameState(req.GameID, req.PlayerAddress)

	case protocol.ActionFindTreasure:
		var data protocol.FindTreasureData
		if err := req.Decode(&data); err != nil {
			return nil, err
		}
		return s.FindTreasure(req.GameID, req.PlayerAddress, data.Location)

	case protocol.ActionEndPhase:
		var data protocol.EndPhaseData
		if err := req.Decode(&data); err != nil {
			return nil, err
		}
		return s.EndPhase(req.GameID, req.PlayerAddress, data.Phase)

	default:
		return nil, protocol.ErrUnknownAction
	}
}

func (s *MatchService) CreateGame(gameID, address string) protocol.CreateGameResponse {
	session := s.store.Create(gameID, address)
	logger.ForGame(session.ID, address).Info("game created",
		"generated_id", gameID == "",
		"id_shape", gameid.IsGenerated(session.ID),
		"total_games", s.store.Len(),
	)
	return protocol.CreateGameResponse{GameID: session.ID, Success: true}
}

func (s *MatchService) JoinGame(gameID, address string) (protocol.JoinGameResponse, error) {
	if !gameid.IsValid(gameid.Normalize(gameID)) {
		logger.Warn("join without a game id", "player", address)
		return protocol.JoinGameResponse{}, store.ErrGameNotFound
	}
	session, err := s.store.Get(gameID)
	if err != nil {
		logger.ForGame(gameid.Normalize(gameID), address).Warn("join of unknown game", "total_games", s.store.Len())
		return protocol.JoinGameResponse{}, err
	}
	session.Join(address)
	logger.ForGame(session.ID, address).Info("player 2 joined")
	return protocol.JoinGameResponse{Success: true, GameID: session.ID}, nil
}

func (s *MatchService) UpdateGrid(gameID, address string, blocks []domain.Block) (protocol.UpdateGridResponse, error) {
	session, err := s.store.Get(gameID)
	if err != nil {
		return protocol.UpdateGridResponse{}, err
	}
	opponent, err := session.UpdateGrid(address, blocks)
	if err != nil {
		return protocol.UpdateGridResponse{}, err
	}
	logger.ForGame(session.ID, address).Debug("grid merged", "blocks", len(blocks), "opponent_blocks", len(opponent))
	return protocol.UpdateGridResponse{Success: true, OpponentGrid: opponent}, nil
}

func (s *MatchService) SetTreasures(gameID, address string, keys []string) (protocol.SuccessResponse, error) {
	session, err := s.store.Get(gameID)
	if err != nil {
		return protocol.SuccessResponse{}, err
	}
	if err := session.SetTreasures(address, keys); err != nil {
		return protocol.SuccessResponse{}, err
	}
	logger.ForGame(session.ID, address).Debug("treasures set", "count", len(keys))
	return protocol.SuccessResponse{Success: true}, nil
}

func (s *MatchService) GameState(gameID, address string) (protocol.StateResponse, error) {
	session, err := s.store.Get(gameID)
	if err != nil {
		return protocol.StateResponse{}, err
	}
	return session.State(address)
}

func (s *MatchService) FindTreasure(gameID, address, location string) (protocol.FindTreasureResponse, error) {
	session, err := s.store.Get(gameID)
	if err != nil {
		return protocol.FindTreasureResponse{}, err
	}
	res, err := session.FindTreasure(address, location)
	if err != nil {
		return protocol.FindTreasureResponse{}, err
	}
	TreasureGuesses.WithLabelValues(boolLabel(res.Found)).Inc()
	logger.ForGame(session.ID, address).Debug("treasure guess", "location", location, "found", res.Found, "score", res.Score)
	return res, nil
}

// EndPhase advances the match; a non-empty from makes the call a no-op once
// the session has left that phase.
func (s *MatchService) EndPhase(gameID, address string, from domain.Phase) (protocol.EndPhaseResponse, error) {
	session, err := s.store.Get(gameID)
	if err != nil {
		return protocol.EndPhaseResponse{}, err
	}
	res, changed := session.EndPhaseFrom(from)
	if changed {
		PhaseTransitions.WithLabelValues(string(res.Phase)).Inc()
		logger.ForGame(session.ID, address).Info("phase advanced",
			"phase", res.Phase,
			"player1_score", res.Player1Score,
			"player2_score", res.Player2Score,
		)
	}
	if res.Phase == domain.PhaseResults {
		s.recordFinished(session)
	}
	return res, nil
}

// recordFinished stores the match once, off the request path.
func (s *MatchService) recordFinished(session *match.Session) {
	if s.history == nil || !session.MarkRecorded() {
		return
	}
	rec := session.Snapshot().Record()

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.history.Create(ctx, rec); err != nil {
			logger.Error("failed to record match history", "error", err, "game_id", rec.GameID)
		}
	}()
}

// Wait blocks until queued history writes have finished.
func (s *MatchService) Wait() {
	s.pending.Wait()
}

// outcome classifies an action error for metrics and status mapping.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, store.ErrGameNotFound):
		return "not_found"
	case errors.Is(err, protocol.ErrUnknownAction), errors.Is(err, protocol.ErrBadPayload):
		return "bad_request"
	case errors.Is(err, match.ErrNotAPlayer):
		return "forbidden"
	default:
		return "error"
	}
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
