package exposure

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/masmi9/FourTenMarkets/internal/domain"
)

// Ledger compõe o cache e o banco.
//
// Leituras: cache primeiro; miss lê o banco e repopula o cache; erro do cache
// cai para o banco sem falhar quem chamou.
// Escritas: banco primeiro (fonte da verdade), depois INCR no cache apenas se
// a chave existir. Chave ausente fica para a próxima leitura popular.
// Depois de popular, o banco é relido; se mudou nesse meio tempo (escrita
// concorrente que pulou o cache), a chave é descartada.
type Ledger struct {
	fast    Cache // pode ser nil (sem Redis)
	durable Store
	log     *zap.Logger

	OnFallback func(op string) // métricas
}

func NewLedger(fast Cache, durable Store, log *zap.Logger) *Ledger {
	return &Ledger{fast: fast, durable: durable, log: log.Named("exposure")}
}

func (l *Ledger) ConsensusOdds(ctx context.Context, selectionID string) (domain.ConsensusOdds, bool, error) {
	healthy := l.fast != nil
	if healthy {
		co, ok, err := l.fast.ConsensusOdds(ctx, selectionID)
		switch {
		case err == nil && ok:
			return co, true, nil
		case err != nil && !errors.Is(err, ErrCacheMiss):
			l.fallback("consensus_get", err, zap.String("selection_id", selectionID))
			healthy = false
		}
	}

	co, ok, err := l.durable.ConsensusOdds(ctx, selectionID)
	if err != nil || !ok {
		return co, ok, err
	}
	if healthy {
		if err := l.fast.SetConsensusOdds(ctx, co); err != nil {
			l.fallback("consensus_set", err, zap.String("selection_id", selectionID))
		}
	}
	return co, true, nil
}

func (l *Ledger) Exposure(ctx context.Context, selectionID string) (decimal.Decimal, error) {
	return l.read(ctx, "exposure_get",
		func(s Store) (decimal.Decimal, error) { return s.Exposure(ctx, selectionID) },
		func(total decimal.Decimal) error { return l.fast.SeedExposure(ctx, selectionID, total) },
		func() error { return l.fast.ResetExposure(ctx, selectionID) },
		zap.String("selection_id", selectionID))
}

func (l *Ledger) DailyStake(ctx context.Context, userID string, day time.Time) (decimal.Decimal, error) {
	return l.read(ctx, "daily_get",
		func(s Store) (decimal.Decimal, error) { return s.DailyStake(ctx, userID, day) },
		func(total decimal.Decimal) error { return l.fast.SeedDailyStake(ctx, userID, day, total) },
		func() error { return l.fast.DropDailyStake(ctx, userID, day) },
		zap.String("user_id", userID))
}

// AddExposure aplica delta (positivo ou negativo) ao passivo da seleção
func (l *Ledger) AddExposure(ctx context.Context, selectionID string, delta decimal.Decimal) (decimal.Decimal, error) {
	return l.write(ctx, "exposure_add",
		func(s Store) (decimal.Decimal, error) { return s.AddExposure(ctx, selectionID, delta) },
		zap.String("selection_id", selectionID))
}

func (l *Ledger) AddDailyStake(ctx context.Context, userID string, day time.Time, amount decimal.Decimal) (decimal.Decimal, error) {
	return l.write(ctx, "daily_add",
		func(s Store) (decimal.Decimal, error) { return s.AddDailyStake(ctx, userID, day, amount) },
		zap.String("user_id", userID))
}

func (l *Ledger) ResetExposure(ctx context.Context, selectionID string) error {
	if err := l.durable.ResetExposure(ctx, selectionID); err != nil {
		return err
	}
	if l.fast != nil {
		if err := l.fast.ResetExposure(ctx, selectionID); err != nil {
			l.fallback("exposure_reset", err, zap.String("selection_id", selectionID))
		}
	}
	return nil
}

func (l *Ledger) read(
	ctx context.Context,
	op string,
	get func(Store) (decimal.Decimal, error),
	seed func(decimal.Decimal) error,
	drop func() error,
	fields ...zap.Field,
) (decimal.Decimal, error) {
	healthy := l.fast != nil
	if healthy {
		v, err := get(l.fast)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			l.fallback(op, err, fields...)
			healthy = false
		}
	}

	v, err := get(l.durable)
	if err != nil {
		return decimal.Zero, err
	}
	if !healthy {
		return v, nil
	}
	if err := seed(v); err != nil {
		l.fallback(op+"_seed", err, fields...)
		return v, nil
	}
	// SETNX pode ter gravado um valor que já ficou velho
	if cur, err := get(l.durable); err == nil && !cur.Equal(v) {
		if err := drop(); err != nil {
			l.fallback(op+"_drop", err, fields...)
		}
		return cur, nil
	}
	return v, nil
}

func (l *Ledger) write(
	ctx context.Context,
	op string,
	add func(Store) (decimal.Decimal, error),
	fields ...zap.Field,
) (decimal.Decimal, error) {
	total, err := add(l.durable)
	if err != nil {
		return decimal.Zero, err
	}
	if l.fast != nil {
		if _, err := add(l.fast); err != nil && !errors.Is(err, ErrCacheMiss) {
			l.fallback(op, err, fields...)
		}
	}
	return total, nil
}

func (l *Ledger) fallback(op string, err error, fields ...zap.Field) {
	l.log.Warn("cache unavailable, using durable store",
		append(fields, zap.String("op", op), zap.Error(err))...)
	if l.OnFallback != nil {
		l.OnFallback(op)
	}
}
