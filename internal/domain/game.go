package domain

import "time"

// Phase - stage of a match
type Phase string

const (
	PhaseBuilding Phase = "building"
	PhaseHunting  Phase = "hunting"
	PhaseResults  Phase = "results"
)

// Next returns the phase that follows p. Results is terminal.
func (p Phase) Next() Phase {
	switch p {
	case PhaseBuilding:
		return PhaseHunting
	case PhaseHunting:
		return PhaseResults
	default:
		return PhaseResults
	}
}

// Role - which slot of a match a wallet address occupies
type Role int

const (
	RoleUnrecognized Role = iota
	RolePlayer1
	RolePlayer2
)

func (r Role) String() string {
	switch r {
	case RolePlayer1:
		return "player1"
	case RolePlayer2:
		return "player2"
	default:
		return "unrecognized"
	}
}

// MatchResult - outcome from one player's point of view
type MatchResult string

const (
	MatchResultWin  MatchResult = "win"
	MatchResultLose MatchResult = "lose"
	MatchResultDraw MatchResult = "draw"
)

// Outcome compares two treasure counts. Only a strictly higher score wins.
func Outcome(own, opponent int) MatchResult {
	switch {
	case own > opponent:
		return MatchResultWin
	case own < opponent:
		return MatchResultLose
	default:
		return MatchResultDraw
	}
}

// MatchRecord - finished match as stored in match_history
type MatchRecord struct {
	ID              int64     `db:"id" json:"id"`
	GameID          string    `db:"game_id" json:"game_id"`
	Player1         string    `db:"player1_address" json:"player1_address"`
	Player2         string    `db:"player2_address" json:"player2_address"`
	Player1Score    int       `db:"player1_score" json:"player1_score"`
	Player2Score    int       `db:"player2_score" json:"player2_score"`
	Winner          *string   `db:"winner_address" json:"winner_address,omitempty"`
	Player1Blocks   int       `db:"player1_blocks" json:"player1_blocks"`
	Player2Blocks   int       `db:"player2_blocks" json:"player2_blocks"`
	Player1Treasure int       `db:"player1_treasures" json:"player1_treasures"`
	Player2Treasure int       `db:"player2_treasures" json:"player2_treasures"`
	StartedAt       time.Time `db:"started_at" json:"started_at"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// WinnerAddress picks the address with the higher score, nil on a draw.
func WinnerAddress(p1, p2 string, s1, s2 int) *string {
	switch Outcome(s1, s2) {
	case MatchResultWin:
		return &p1
	case MatchResultLose:
		return &p2
	default:
		return nil
	}
}
