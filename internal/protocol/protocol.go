package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"voxelhunt/internal/domain"
	"voxelhunt/internal/match"
)

// client -> server actions
const (
	ActionCreateGame   = "create-game"
	ActionJoinGame     = "join-game"
	ActionUpdateGrid   = "update-grid"
	ActionSetTreasures = "set-treasures"
	ActionGetGameState = "get-game-state"
	ActionFindTreasure = "find-treasure"
	ActionEndPhase     = "end-phase"
)

// Actions lists every known action (used for metrics labels).
var Actions = []string{
	ActionCreateGame,
	ActionJoinGame,
	ActionUpdateGrid,
	ActionSetTreasures,
	ActionGetGameState,
	ActionFindTreasure,
	ActionEndPhase,
}

// Known reports whether action is part of the protocol.
func Known(action string) bool {
	for _, a := range Actions {
		if a == action {
			return true
		}
	}
	return false
}

var (
	ErrUnknownAction = errors.New("unknown action")
	ErrBadPayload    = errors.New("malformed request")
)

// User-facing error texts
const (
	MsgGameNotFound     = "Game not found"
	MsgJoinGameNotFound = "Game not found. Please check the game ID and try again."
	MsgUnknownAction    = "Unknown action"
	MsgBadRequest       = "Malformed request"
	MsgNotAPlayer       = "Address is not a player in this game"
	MsgInternal         = "Internal server error"
)

// Request is the single envelope every action is sent in.
type Request struct {
	Action        string          `json:"action"`
	GameID        string          `json:"gameId"`
	PlayerAddress string          `json:"playerAddress"`
	Data          json.RawMessage `json:"data,omitempty"`
}

// Decode unmarshals Data into v. A missing or null payload leaves v untouched.
func (r Request) Decode(v any) error {
	if len(r.Data) == 0 || bytes.Equal(bytes.TrimSpace(r.Data), []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("%w: data for %s: %v", ErrBadPayload, r.Action, err)
	}
	return nil
}

// NewRequest builds an envelope, marshalling data when non-nil.
func NewRequest(action, gameID, address string, data any) (Request, error) {
	req := Request{Action: action, GameID: gameID, PlayerAddress: address}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return Request{}, err
		}
		req.Data = raw
	}
	return req, nil
}

// request payloads

type UpdateGridData struct {
	Blocks []domain.Block `json:"blocks"`
}

type SetTreasuresData struct {
	Treasures []string `json:"treasures"`
}

type FindTreasureData struct {
	Location string `json:"location"`
}

// EndPhaseData is optional. With Phase set, end-phase only advances a
// session that is still in that phase.
type EndPhaseData struct {
	Phase domain.Phase `json:"phase,omitempty"`
}

// responses

type CreateGameResponse struct {
	GameID  string `json:"gameId"`
	Success bool   `json:"success"`
}

type JoinGameResponse struct {
	Success bool   `json:"success"`
	GameID  string `json:"gameId"`
}

type UpdateGridResponse struct {
	Success      bool           `json:"success"`
	OpponentGrid []domain.Block `json:"opponentGrid"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

type (
	StateResponse        = match.State
	FindTreasureResponse = match.FindResult
	EndPhaseResponse     = match.PhaseResult
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// APIError is a non-2xx response as seen by a client.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("game api: %d %s", e.Status, e.Message)
}
