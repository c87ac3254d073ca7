// Package wallet mantém saldo e saldo travado das carteiras e o ledger
// append-only de transações.
//
// LockStake e Release recebem a *sql.Tx de quem chama para que o movimento de
// saldo faça commit junto com a aposta/liquidação correspondente.
package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/masmi9/FourTenMarkets/internal/domain"
	"github.com/masmi9/FourTenMarkets/internal/shared/db"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrLockedMismatch    = errors.New("locked balance below stake")
)

// Postgres implementa operações de carteira em banco
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// GetOrCreateWallet retorna a carteira do usuário, criando se não existir
func (p *Postgres) GetOrCreateWallet(ctx context.Context, userID string) (domain.Wallet, error) {
	var w domain.Wallet
	err := db.WithTx(ctx, p.db, func(tx *sql.Tx) error {
		if err := ensureWallet(ctx, tx, userID); err != nil {
			return err
		}
		var err error
		w, err = selectWallet(ctx, tx, userID, false)
		return err
	})
	return w, err
}

// Deposit credita o saldo e registra DEPOSIT no ledger.
// Garante lock pessimista na linha da carteira.
func (p *Postgres) Deposit(ctx context.Context, userID string, amount decimal.Decimal, externalRef string) (domain.Wallet, error) {
	if !amount.IsPositive() {
		return domain.Wallet{}, ErrInvalidAmount
	}
	var w domain.Wallet
	err := db.WithTx(ctx, p.db, func(tx *sql.Tx) error {
		if err := ensureWallet(ctx, tx, userID); err != nil {
			return err
		}
		var err error
		if w, err = selectWallet(ctx, tx, userID, true); err != nil {
			return err
		}
		w.Balance = w.Balance.Add(amount)
		if err = updateBalances(ctx, tx, w); err != nil {
			return err
		}
		return insertTransaction(ctx, tx, w, domain.TxDeposit, amount, "deposit:"+externalRef)
	})
	return w, err
}

// Withdraw debita o saldo disponível; valores travados em apostas não saem
func (p *Postgres) Withdraw(ctx context.Context, userID string, amount decimal.Decimal, externalRef string) (domain.Wallet, error) {
	if !amount.IsPositive() {
		return domain.Wallet{}, ErrInvalidAmount
	}
	var w domain.Wallet
	err := db.WithTx(ctx, p.db, func(tx *sql.Tx) error {
		var err error
		if w, err = selectWallet(ctx, tx, userID, true); err != nil {
			return err
		}
		if w.Available().LessThan(amount) {
			return ErrInsufficientFunds
		}
		w.Balance = w.Balance.Sub(amount)
		if err = updateBalances(ctx, tx, w); err != nil {
			return err
		}
		return insertTransaction(ctx, tx, w, domain.TxWithdrawal, amount, "withdraw:"+externalRef)
	})
	return w, err
}

// LockStake move o stake do saldo para o saldo travado e registra BET_STAKE.
// Roda dentro da transação de quem chama.
func (p *Postgres) LockStake(ctx context.Context, tx *sql.Tx, userID string, stake decimal.Decimal, ref string) (domain.Wallet, error) {
	w, err := selectWallet(ctx, tx, userID, true)
	if err != nil {
		return w, err
	}
	if w.Available().LessThan(stake) {
		return w, ErrInsufficientFunds
	}
	w.Balance = w.Balance.Sub(stake)
	w.LockedBalance = w.LockedBalance.Add(stake)
	if err := updateBalances(ctx, tx, w); err != nil {
		return w, err
	}
	return w, insertTransaction(ctx, tx, w, domain.TxBetStake, stake, ref)
}

// Release libera o stake travado e credita credit no saldo (payout, refund ou
// zero em aposta perdida). Só gera transação quando há crédito.
func (p *Postgres) Release(ctx context.Context, tx *sql.Tx, userID string, stake, credit decimal.Decimal, kind domain.TransactionType, ref string) (domain.Wallet, error) {
	w, err := selectWallet(ctx, tx, userID, true)
	if err != nil {
		return w, err
	}
	if w.LockedBalance.LessThan(stake) {
		return w, fmt.Errorf("%w: locked=%s stake=%s", ErrLockedMismatch, w.LockedBalance, stake)
	}
	w.LockedBalance = w.LockedBalance.Sub(stake)
	w.Balance = w.Balance.Add(credit)
	if err := updateBalances(ctx, tx, w); err != nil {
		return w, err
	}
	if credit.IsPositive() {
		return w, insertTransaction(ctx, tx, w, kind, credit, ref)
	}
	return w, nil
}

func ensureWallet(ctx context.Context, tx *sql.Tx, userID string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO wallets (id, user_id, balance, locked_balance)
		VALUES ($1, $2, 0, 0)
		ON CONFLICT (user_id) DO NOTHING
	`, uuid.New().String(), userID)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

func selectWallet(ctx context.Context, tx *sql.Tx, userID string, forUpdate bool) (domain.Wallet, error) {
	q := `SELECT id, user_id, balance, locked_balance FROM wallets WHERE user_id = $1`
	if forUpdate {
		q += ` FOR UPDATE`
	}
	var w domain.Wallet
	err := tx.QueryRowContext(ctx, q, userID).Scan(&w.ID, &w.UserID, &w.Balance, &w.LockedBalance)
	if errors.Is(err, sql.ErrNoRows) {
		return w, ErrWalletNotFound
	}
	if err != nil {
		return w, fmt.Errorf("select wallet: %w", err)
	}
	return w, nil
}

func updateBalances(ctx context.Context, tx *sql.Tx, w domain.Wallet) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE wallets SET balance = $1, locked_balance = $2, updated_at = now() WHERE id = $3`,
		w.Balance, w.LockedBalance, w.ID)
	if err != nil {
		return fmt.Errorf("update wallet: %w", err)
	}
	return nil
}

func insertTransaction(ctx context.Context, tx *sql.Tx, w domain.Wallet, kind domain.TransactionType, amount decimal.Decimal, ref string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (id, wallet_id, type, amount, balance_after, reference)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.New().String(), w.ID, string(kind), amount, w.Balance, ref)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}
