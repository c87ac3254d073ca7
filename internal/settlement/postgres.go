package settlement

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/masmi9/FourTenMarkets/internal/domain"
	"github.com/masmi9/FourTenMarkets/internal/shared/db"
)

// WalletReleaser é o movimento de carteira feito na mesma transação da liquidação
type WalletReleaser interface {
	Release(ctx context.Context, tx *sql.Tx, userID string, stake, credit decimal.Decimal, kind domain.TransactionType, ref string) (domain.Wallet, error)
}

type PostgresStore struct {
	db     *sql.DB
	wallet WalletReleaser
}

func NewPostgresStore(db *sql.DB, wallet WalletReleaser) *PostgresStore {
	return &PostgresStore{db: db, wallet: wallet}
}

// CloseEvent marca o evento como SETTLED e fecha todos os mercados dele
func (s *PostgresStore) CloseEvent(ctx context.Context, eventID string) error {
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE events SET status = 'SETTLED', updated_at = now() WHERE id = $1`, eventID)
		if err != nil {
			return fmt.Errorf("update event: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("event %s not found", eventID)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE markets SET status = 'CLOSED' WHERE event_id = $1`, eventID); err != nil {
			return fmt.Errorf("close markets: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) ActiveBets(ctx context.Context, selectionID string) ([]domain.Bet, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, selection_id, request_id, odds, stake, potential_payout, status, created_at
		FROM bets
		WHERE selection_id = $1 AND status = 'ACTIVE'
		ORDER BY created_at
	`, selectionID)
	if err != nil {
		return nil, fmt.Errorf("select active bets: %w", err)
	}
	defer rows.Close()

	var out []domain.Bet
	for rows.Next() {
		var b domain.Bet
		var status string
		if err := rows.Scan(&b.ID, &b.UserID, &b.SelectionID, &b.RequestID, &b.Odds,
			&b.Stake, &b.PotentialPayout, &status, &b.CreatedAt); err != nil {
			return nil, err
		}
		b.Status = domain.BetStatus(status)
		out = append(out, b)
	}
	return out, rows.Err()
}

// SettleBet grava status, Settlement e movimento de carteira em um único commit
func (s *PostgresStore) SettleBet(ctx context.Context, o BetOutcome) error {
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE bets SET status = $1, settled_at = now() WHERE id = $2 AND status = 'ACTIVE'`,
			string(o.Status), o.Bet.ID)
		if err != nil {
			return fmt.Errorf("update bet: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrAlreadySettled
		}

		if _, err := s.wallet.Release(ctx, tx, o.Bet.UserID, o.Bet.Stake, o.Payout, o.TxType, o.Bet.ID); err != nil {
			return fmt.Errorf("release stake: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO settlements (id, bet_id, result, payout, settled_at)
			VALUES ($1, $2, $3, $4, now())
		`, uuid.New().String(), o.Bet.ID, string(o.Result), o.Payout); err != nil {
			return fmt.Errorf("insert settlement: %w", err)
		}
		return nil
	})
}

// ResolveLegs preenche o resultado das pernas ainda PENDING da seleção e
// devolve os parlays afetados.
func (s *PostgresStore) ResolveLegs(ctx context.Context, selectionID string, result domain.LegResult) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		UPDATE parlay_legs SET result = $2
		WHERE selection_id = $1 AND result = 'PENDING'
		RETURNING parlay_id
	`, selectionID, string(result))
	if err != nil {
		return nil, fmt.Errorf("update parlay legs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PostgresStore) ResolvedParlays(ctx context.Context, selectionIDs []string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id FROM parlays p
		WHERE p.status = 'ACTIVE'
		  AND EXISTS (SELECT 1 FROM parlay_legs l WHERE l.parlay_id = p.id AND l.selection_id = ANY($1))
		  AND NOT EXISTS (SELECT 1 FROM parlay_legs l WHERE l.parlay_id = p.id AND l.result = 'PENDING')
		ORDER BY p.id
	`, pq.Array(selectionIDs))
	if err != nil {
		return nil, fmt.Errorf("select resolved parlays: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PostgresStore) Parlay(ctx context.Context, parlayID string) (domain.Parlay, error) {
	return LoadParlay(ctx, s.db, parlayID)
}

// SettleParlay grava status e movimento de carteira do parlay em um único commit
func (s *PostgresStore) SettleParlay(ctx context.Context, o ParlayOutcome) error {
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE parlays SET status = $1, payout = $2, settled_at = now() WHERE id = $3 AND status = 'ACTIVE'`,
			string(o.Status), o.Payout, o.Parlay.ID)
		if err != nil {
			return fmt.Errorf("update parlay: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrAlreadySettled
		}
		if _, err := s.wallet.Release(ctx, tx, o.Parlay.UserID, o.Parlay.Stake, o.Payout, o.TxType, o.Parlay.ID); err != nil {
			return fmt.Errorf("release parlay stake: %w", err)
		}
		return nil
	})
}

// Queryer é satisfeito por *sql.DB e *sql.Tx
type Queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// LoadParlay lê o parlay e suas pernas. Devolve ErrParlayNotFound se não existir.
func LoadParlay(ctx context.Context, q Queryer, parlayID string) (domain.Parlay, error) {
	var p domain.Parlay
	var status string
	var expires sql.NullTime
	err := q.QueryRowContext(ctx, `
		SELECT id, user_id, stake, combined_odds, potential_payout, status, expires_at, created_at
		FROM parlays WHERE id = $1
	`, parlayID).Scan(&p.ID, &p.UserID, &p.Stake, &p.CombinedOdds, &p.PotentialPayout, &status, &expires, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return p, fmt.Errorf("%w: %s", ErrParlayNotFound, parlayID)
	}
	if err != nil {
		return p, fmt.Errorf("select parlay: %w", err)
	}
	p.Status = domain.BetStatus(status)
	if expires.Valid {
		t := expires.Time
		p.ExpiresAt = &t
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id, selection_id, requested_odds, accepted_odds, result
		FROM parlay_legs WHERE parlay_id = $1 ORDER BY position
	`, parlayID)
	if err != nil {
		return p, fmt.Errorf("select parlay legs: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		l := domain.ParlayLeg{ParlayID: p.ID}
		var result string
		if err := rows.Scan(&l.ID, &l.SelectionID, &l.RequestedOdds, &l.AcceptedOdds, &result); err != nil {
			return p, err
		}
		l.Result = domain.LegResult(result)
		p.Legs = append(p.Legs, l)
	}
	return p, rows.Err()
}
