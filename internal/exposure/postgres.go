package exposure

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/masmi9/FourTenMarkets/internal/domain"
)

// PostgresStore é a fonte durável: consensus_odds, positions e daily_stakes
type PostgresStore struct {
	DB *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{DB: db}
}

func (p *PostgresStore) ConsensusOdds(ctx context.Context, selectionID string) (domain.ConsensusOdds, bool, error) {
	co := domain.ConsensusOdds{SelectionID: selectionID}
	err := p.DB.QueryRowContext(ctx, `
		SELECT american_odds, implied_prob, line_movement, updated_at
		FROM consensus_odds WHERE selection_id = $1
	`, selectionID).Scan(&co.AmericanOdds, &co.ImpliedProb, &co.LineMovement, &co.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return co, false, nil
	}
	if err != nil {
		return co, false, fmt.Errorf("select consensus odds: %w", err)
	}
	return co, true, nil
}

func (p *PostgresStore) Exposure(ctx context.Context, selectionID string) (decimal.Decimal, error) {
	var v decimal.Decimal
	err := p.DB.QueryRowContext(ctx,
		`SELECT exposure FROM positions WHERE selection_id = $1`, selectionID).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("select position: %w", err)
	}
	return v, nil
}

func (p *PostgresStore) DailyStake(ctx context.Context, userID string, day time.Time) (decimal.Decimal, error) {
	var v decimal.Decimal
	err := p.DB.QueryRowContext(ctx,
		`SELECT amount FROM daily_stakes WHERE user_id = $1 AND day = $2`, userID, dayKey(day)).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("select daily stake: %w", err)
	}
	return v, nil
}

// AddExposure soma no agregado e devolve o novo total (upsert atômico no banco)
func (p *PostgresStore) AddExposure(ctx context.Context, selectionID string, delta decimal.Decimal) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := p.DB.QueryRowContext(ctx, `
		INSERT INTO positions (selection_id, exposure, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (selection_id) DO UPDATE SET
		  exposure   = positions.exposure + EXCLUDED.exposure,
		  updated_at = now()
		RETURNING exposure
	`, selectionID, delta).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("upsert position: %w", err)
	}
	return total, nil
}

func (p *PostgresStore) AddDailyStake(ctx context.Context, userID string, day time.Time, amount decimal.Decimal) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := p.DB.QueryRowContext(ctx, `
		INSERT INTO daily_stakes (user_id, day, amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, day) DO UPDATE SET
		  amount = daily_stakes.amount + EXCLUDED.amount
		RETURNING amount
	`, userID, dayKey(day), amount).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("upsert daily stake: %w", err)
	}
	return total, nil
}

// ResetExposure zera a posição da seleção (após liquidação)
func (p *PostgresStore) ResetExposure(ctx context.Context, selectionID string) error {
	_, err := p.DB.ExecContext(ctx,
		`UPDATE positions SET exposure = 0, updated_at = now() WHERE selection_id = $1`, selectionID)
	if err != nil {
		return fmt.Errorf("reset position: %w", err)
	}
	return nil
}
