package settlement

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/masmi9/FourTenMarkets/internal/domain"
)

// ErrAlreadySettled: a aposta/parlay já saiu de ACTIVE (liquidação repetida)
var ErrAlreadySettled = errors.New("already settled")

var ErrParlayNotFound = errors.New("parlay not found")

// BetOutcome é o que precisa ser gravado atomicamente para uma aposta simples:
// status, registro de Settlement, liberação do stake e crédito no saldo.
type BetOutcome struct {
	Bet    domain.Bet
	Result domain.Outcome
	Status domain.BetStatus
	Payout decimal.Decimal // valor creditado no saldo (zero em LOST)
	TxType domain.TransactionType
}

type ParlayOutcome struct {
	Parlay domain.Parlay
	Status domain.BetStatus
	Payout decimal.Decimal
	TxType domain.TransactionType
}

// Store é a persistência usada pelo engine. SettleBet e SettleParlay devem ser
// atômicas (carteira + aposta + ledger no mesmo commit) e devolver
// ErrAlreadySettled se o registro não estiver mais ACTIVE.
type Store interface {
	CloseEvent(ctx context.Context, eventID string) error
	ActiveBets(ctx context.Context, selectionID string) ([]domain.Bet, error)
	SettleBet(ctx context.Context, o BetOutcome) error
	ResolveLegs(ctx context.Context, selectionID string, result domain.LegResult) ([]string, error)
	// ResolvedParlays devolve parlays ainda ACTIVE, sem pernas PENDING, com
	// alguma perna nas seleções dadas (retentativa de liquidações que falharam)
	ResolvedParlays(ctx context.Context, selectionIDs []string) ([]string, error)
	Parlay(ctx context.Context, parlayID string) (domain.Parlay, error)
	SettleParlay(ctx context.Context, o ParlayOutcome) error
}

// ExposureWriter é a parte do ledger de exposição que a liquidação usa
type ExposureWriter interface {
	AddExposure(ctx context.Context, selectionID string, delta decimal.Decimal) (decimal.Decimal, error)
	ResetExposure(ctx context.Context, selectionID string) error
}

// Publisher publica eventos de liquidação (Kafka)
type Publisher interface {
	Publish(ctx context.Context, key string, v any) error
}
