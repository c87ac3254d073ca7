package betting

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/masmi9/FourTenMarkets/internal/domain"
	"github.com/masmi9/FourTenMarkets/internal/settlement"
	"github.com/masmi9/FourTenMarkets/internal/shared/db"
)

// StakeLocker trava o stake dentro da transação da colocação
type StakeLocker interface {
	LockStake(ctx context.Context, tx *sql.Tx, userID string, stake decimal.Decimal, ref string) (domain.Wallet, error)
}

type PostgresStore struct {
	db     *sql.DB
	wallet StakeLocker
}

func NewPostgresStore(db *sql.DB, wallet StakeLocker) *PostgresStore {
	return &PostgresStore{db: db, wallet: wallet}
}

// SelectionOpen: mercado OPEN e evento ainda não encerrado
func (s *PostgresStore) SelectionOpen(ctx context.Context, selectionID string) (bool, error) {
	var marketStatus, eventStatus string
	err := s.db.QueryRowContext(ctx, `
		SELECT m.status, e.status
		FROM selections s
		JOIN markets m ON m.id = s.market_id
		JOIN events e ON e.id = m.event_id
		WHERE s.id = $1
	`, selectionID).Scan(&marketStatus, &eventStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrSelectionNotFound
	}
	if err != nil {
		return false, fmt.Errorf("select selection: %w", err)
	}
	return isOpen(marketStatus, eventStatus), nil
}

func isOpen(marketStatus, eventStatus string) bool {
	ev := domain.EventStatus(eventStatus)
	return domain.MarketStatus(marketStatus) == domain.MarketOpen &&
		(ev == domain.EventUpcoming || ev == domain.EventLive)
}

// lockOpenSelection trava mercado e evento da seleção (FOR SHARE) até o commit,
// então o fechamento do evento não corre em paralelo com a colocação
func lockOpenSelection(ctx context.Context, tx *sql.Tx, selectionID string) error {
	var marketStatus, eventStatus string
	err := tx.QueryRowContext(ctx, `
		SELECT m.status, e.status
		FROM selections s
		JOIN markets m ON m.id = s.market_id
		JOIN events e ON e.id = m.event_id
		WHERE s.id = $1
		FOR SHARE OF m, e
	`, selectionID).Scan(&marketStatus, &eventStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrSelectionNotFound
	}
	if err != nil {
		return fmt.Errorf("lock selection: %w", err)
	}
	if !isOpen(marketStatus, eventStatus) {
		return ErrMarketClosed
	}
	return nil
}

func (s *PostgresStore) SaveRequest(ctx context.Context, r domain.BetRequest) error {
	var counter sql.NullInt64
	if r.CounterOdds != nil {
		counter = sql.NullInt64{Int64: int64(*r.CounterOdds), Valid: true}
	}
	var expires sql.NullTime
	if r.ExpiresAt != nil {
		expires = sql.NullTime{Time: *r.ExpiresAt, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bet_requests (id, user_id, selection_id, requested_odds, stake, decision, counter_odds, expires_at, status, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, r.ID, r.UserID, r.SelectionID, r.RequestedOdds, r.Stake, string(r.Decision),
		counter, expires, string(r.Status), r.Reason, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert bet request: %w", err)
	}
	return nil
}

func (s *PostgresStore) Request(ctx context.Context, id string) (domain.BetRequest, error) {
	var (
		r                domain.BetRequest
		decision, status string
		counter          sql.NullInt64
		expires          sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, selection_id, requested_odds, stake, decision, counter_odds, expires_at, status, reason, created_at
		FROM bet_requests WHERE id = $1
	`, id).Scan(&r.ID, &r.UserID, &r.SelectionID, &r.RequestedOdds, &r.Stake, &decision,
		&counter, &expires, &status, &r.Reason, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrRequestNotFound
	}
	if err != nil {
		return r, fmt.Errorf("select bet request: %w", err)
	}
	r.Decision = domain.Decision(decision)
	r.Status = domain.RequestStatus(status)
	if counter.Valid {
		v := int(counter.Int64)
		r.CounterOdds = &v
	}
	if expires.Valid {
		t := expires.Time
		r.ExpiresAt = &t
	}
	return r, nil
}

func (s *PostgresStore) CloseRequest(ctx context.Context, id string, status domain.RequestStatus, reason string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE bet_requests SET status = $2, reason = $3 WHERE id = $1 AND status = 'PENDING'`,
		id, string(status), reason)
	if err != nil {
		return fmt.Errorf("update bet request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRequestNotPending
	}
	return nil
}

// PlaceBet confirma o pedido, trava o stake e grava a aposta em um único commit
func (s *PostgresStore) PlaceBet(ctx context.Context, b domain.Bet) error {
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := lockOpenSelection(ctx, tx, b.SelectionID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE bet_requests SET status = 'CONFIRMED' WHERE id = $1 AND status = 'PENDING'`, b.RequestID)
		if err != nil {
			return fmt.Errorf("confirm bet request: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrRequestNotPending
		}
		if _, err := s.wallet.LockStake(ctx, tx, b.UserID, b.Stake, b.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO bets (id, user_id, selection_id, request_id, odds, stake, potential_payout, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, b.ID, b.UserID, b.SelectionID, b.RequestID, b.Odds, b.Stake, b.PotentialPayout, string(b.Status), b.CreatedAt); err != nil {
			return fmt.Errorf("insert bet: %w", err)
		}
		return nil
	})
}

// SaveParlay grava o parlay PENDING com as pernas
func (s *PostgresStore) SaveParlay(ctx context.Context, p domain.Parlay) error {
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var expires sql.NullTime
		if p.ExpiresAt != nil {
			expires = sql.NullTime{Time: *p.ExpiresAt, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO parlays (id, user_id, stake, combined_odds, potential_payout, status, expires_at, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, p.ID, p.UserID, p.Stake, p.CombinedOdds, p.PotentialPayout, string(p.Status), expires, p.CreatedAt); err != nil {
			return fmt.Errorf("insert parlay: %w", err)
		}
		for i, l := range p.Legs {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO parlay_legs (id, parlay_id, position, selection_id, requested_odds, accepted_odds, result)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, l.ID, p.ID, i, l.SelectionID, l.RequestedOdds, l.AcceptedOdds, string(l.Result)); err != nil {
				return fmt.Errorf("insert parlay leg %d: %w", i, err)
			}
		}
		return nil
	})
}

func (s *PostgresStore) Parlay(ctx context.Context, id string) (domain.Parlay, error) {
	p, err := settlement.LoadParlay(ctx, s.db, id)
	if errors.Is(err, settlement.ErrParlayNotFound) {
		return p, ErrParlayNotFound
	}
	return p, err
}

func (s *PostgresStore) CloseParlay(ctx context.Context, id string, status domain.BetStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE parlays SET status = $2 WHERE id = $1 AND status = 'PENDING'`, id, string(status))
	if err != nil {
		return fmt.Errorf("update parlay: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRequestNotPending
	}
	return nil
}

// PlaceParlay confere as pernas, ativa o parlay e trava o stake em um único commit
func (s *PostgresStore) PlaceParlay(ctx context.Context, p domain.Parlay) error {
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, l := range p.Legs {
			if err := lockOpenSelection(ctx, tx, l.SelectionID); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE parlays SET status = 'ACTIVE', expires_at = NULL WHERE id = $1 AND status = 'PENDING'`, p.ID)
		if err != nil {
			return fmt.Errorf("activate parlay: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrRequestNotPending
		}
		if _, err := s.wallet.LockStake(ctx, tx, p.UserID, p.Stake, p.ID); err != nil {
			return err
		}
		return nil
	})
}
