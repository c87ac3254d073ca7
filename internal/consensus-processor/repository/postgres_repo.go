package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/masmi9/FourTenMarkets/internal/domain"
)

// PostgresRepo persiste a odd de consenso corrente e o histórico de movimento
type PostgresRepo struct {
	DB *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{DB: db}
}

// UpsertCurrent grava a odd corrente da seleção.
// Updates fora de ordem (updated_at mais antigo) não sobrescrevem; devolve false nesse caso.
func (r *PostgresRepo) UpsertCurrent(ctx context.Context, co domain.ConsensusOdds) (bool, error) {
	const q = `
		INSERT INTO consensus_odds
		  (selection_id, american_odds, implied_prob, line_movement, updated_at)
		VALUES
		  ($1,$2,$3,$4,$5)
		ON CONFLICT (selection_id) DO UPDATE SET
		  american_odds = EXCLUDED.american_odds,
		  implied_prob  = EXCLUDED.implied_prob,
		  line_movement = EXCLUDED.line_movement,
		  updated_at    = EXCLUDED.updated_at
		WHERE consensus_odds.updated_at <= EXCLUDED.updated_at
	`
	res, err := r.DB.ExecContext(ctx, q,
		co.SelectionID, co.AmericanOdds, co.ImpliedProb, co.LineMovement, co.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("upsert consensus odds: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// InsertHistory registra o ponto no histórico (consensus_odds_history)
func (r *PostgresRepo) InsertHistory(ctx context.Context, co domain.ConsensusOdds) error {
	const q = `
		INSERT INTO consensus_odds_history
		  (selection_id, american_odds, implied_prob, line_movement, updated_at)
		VALUES
		  ($1,$2,$3,$4,$5)
	`
	if _, err := r.DB.ExecContext(ctx, q,
		co.SelectionID, co.AmericanOdds, co.ImpliedProb, co.LineMovement, co.UpdatedAt); err != nil {
		return fmt.Errorf("insert consensus history: %w", err)
	}
	return nil
}
