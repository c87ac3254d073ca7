// Package exposure guarda as três leituras de risco do motor (odds de consenso,
// passivo por seleção e volume diário por usuário) e aplica deltas atômicos.
//
// Há dois backends (Redis, volátil e rápido; Postgres, durável) atrás da mesma
// interface Store, e o Ledger compõe os dois: tenta o cache, cai para o banco
// e nunca perde uma escrita durável quando o Redis está fora.
package exposure

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/masmi9/FourTenMarkets/internal/domain"
)

// ErrCacheMiss indica que a chave não está no cache (não é falha de infraestrutura)
var ErrCacheMiss = errors.New("exposure: cache miss")

// Store é implementado pelo RedisStore, pelo PostgresStore e pelo Ledger.
//
// ConsensusOdds devolve ok=false quando a seleção ainda não tem preço.
// AddExposure/AddDailyStake devolvem o total após o delta.
type Store interface {
	ConsensusOdds(ctx context.Context, selectionID string) (domain.ConsensusOdds, bool, error)
	Exposure(ctx context.Context, selectionID string) (decimal.Decimal, error)
	DailyStake(ctx context.Context, userID string, day time.Time) (decimal.Decimal, error)
	AddExposure(ctx context.Context, selectionID string, delta decimal.Decimal) (decimal.Decimal, error)
	AddDailyStake(ctx context.Context, userID string, day time.Time, amount decimal.Decimal) (decimal.Decimal, error)
	ResetExposure(ctx context.Context, selectionID string) error
}

// Cache é o Store volátil: além das operações comuns, aceita ser populado
// a partir do valor durável.
type Cache interface {
	Store
	SetConsensusOdds(ctx context.Context, co domain.ConsensusOdds) error
	SeedExposure(ctx context.Context, selectionID string, total decimal.Decimal) error
	SeedDailyStake(ctx context.Context, userID string, day time.Time, total decimal.Decimal) error
	DropDailyStake(ctx context.Context, userID string, day time.Time) error
}

// dayKey normaliza o dia para o calendário UTC
func dayKey(day time.Time) string {
	return day.UTC().Format("2006-01-02")
}

// untilDayRollover é o tempo até a meia-noite UTC seguinte mais uma hora de folga
func untilDayRollover(now time.Time) time.Duration {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(25 * time.Hour)
	return next.Sub(now)
}

func toCents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

func fromCents(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}
