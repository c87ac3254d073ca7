package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet guarda o saldo disponível e o valor em custódia de apostas abertas.
// O stake sai de Balance e entra em LockedBalance na confirmação da aposta;
// a liquidação libera LockedBalance e credita Balance conforme o resultado.
type Wallet struct {
	ID            string          `json:"walletId"`
	UserID        string          `json:"userId"`
	Balance       decimal.Decimal `json:"balance"`
	LockedBalance decimal.Decimal `json:"lockedBalance"`
}

// Available é o valor que pode ser usado em novos stakes ou saques
func (w Wallet) Available() decimal.Decimal {
	return w.Balance
}

// TransactionType classifica as entradas do ledger da carteira
type TransactionType string

const (
	TxDeposit    TransactionType = "DEPOSIT"
	TxWithdrawal TransactionType = "WITHDRAWAL"
	TxBetStake   TransactionType = "BET_STAKE"
	TxBetPayout  TransactionType = "BET_PAYOUT"
	TxBetRefund  TransactionType = "BET_REFUND"
)

// Transaction é uma entrada append-only do ledger
type Transaction struct {
	ID           string
	WalletID     string
	Type         TransactionType
	Amount       decimal.Decimal
	BalanceAfter decimal.Decimal
	Reference    string // bet/parlay id ou referência externa
	CreatedAt    time.Time
}
