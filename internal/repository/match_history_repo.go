package repository

import (
	"context"

	"voxelhunt/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MatchHistoryRepository struct {
	db *pgxpool.Pool
}

func NewMatchHistoryRepository(db *pgxpool.Pool) *MatchHistoryRepository {
	return &MatchHistoryRepository{db: db}
}

// Create stores a finished match and fills in ID and CreatedAt.
func (r *MatchHistoryRepository) Create(ctx context.Context, m *domain.MatchRecord) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO match_history
			(game_id, player1_address, player2_address, player1_score, player2_score, winner_address,
			 player1_blocks, player2_blocks, player1_treasures, player2_treasures, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, created_at`,
		m.GameID,
		m.Player1,
		m.Player2,
		m.Player1Score,
		m.Player2Score,
		m.Winner,
		m.Player1Blocks,
		m.Player2Blocks,
		m.Player1Treasure,
		m.Player2Treasure,
		m.StartedAt,
	).Scan(&m.ID, &m.CreatedAt)
}

// GetByAddress returns the most recent matches an address played in either slot.
func (r *MatchHistoryRepository) GetByAddress(ctx context.Context, address string, limit int) ([]*domain.MatchRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, game_id, player1_address, player2_address, player1_score, player2_score,
				winner_address, player1_blocks, player2_blocks, player1_treasures, player2_treasures,
				started_at, created_at
		 FROM match_history
		 WHERE player1_address = $1 OR player2_address = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		address, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMatches(rows)
}

// GetByGameID returns every stored match for a game id (ids are reused).
func (r *MatchHistoryRepository) GetByGameID(ctx context.Context, gameID string) ([]*domain.MatchRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, game_id, player1_address, player2_address, player1_score, player2_score,
				winner_address, player1_blocks, player2_blocks, player1_treasures, player2_treasures,
				started_at, created_at
		 FROM match_history
		 WHERE game_id = $1
		 ORDER BY created_at DESC`,
		gameID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMatches(rows)
}

func scanMatches(rows pgx.Rows) ([]*domain.MatchRecord, error) {
	result := []*domain.MatchRecord{}

	for rows.Next() {
		var m domain.MatchRecord
		if err := rows.Scan(
			&m.ID, &m.GameID, &m.Player1, &m.Player2, &m.Player1Score, &m.Player2Score,
			&m.Winner, &m.Player1Blocks, &m.Player2Blocks, &m.Player1Treasure, &m.Player2Treasure,
			&m.StartedAt, &m.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, &m)
	}

	return result, rows.Err()
}
