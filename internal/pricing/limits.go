package pricing

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/masmi9/FourTenMarkets/internal/shared/config"
)

// Limits são os parâmetros de risco do motor. Edge é expresso em pontos de
// probabilidade (0.02 = 2%).
type Limits struct {
	MaxSingleStake       decimal.Decimal
	MaxDailyStake        decimal.Decimal
	MaxSelectionExposure decimal.Decimal

	AcceptThreshold      float64 // edge mínimo para aceitar a odd pedida
	CounterThreshold     float64 // abaixo disso rejeita
	PlatformMargin       float64 // margem aplicada na contraproposta
	ExposureWarnFraction float64 // fração do teto que força contraproposta

	FallbackOdds int           // contraproposta quando não há consenso
	CounterTTL   time.Duration // validade da contraproposta
}

func DefaultLimits() Limits {
	return Limits{
		MaxSingleStake:       decimal.NewFromInt(5000),
		MaxDailyStake:        decimal.NewFromInt(25000),
		MaxSelectionExposure: decimal.NewFromInt(100000),
		AcceptThreshold:      0.02,
		CounterThreshold:     -0.05,
		PlatformMargin:       0.04,
		ExposureWarnFraction: 0.9,
		FallbackOdds:         -110,
		CounterTTL:           2 * time.Minute,
	}
}

// LimitsFromConfig lê os limites do config; valores incoerentes caem no default
func LimitsFromConfig(cfg config.Config, log *zap.Logger) Limits {
	l := Limits{
		MaxSingleStake:       cfg.MaxSingleStake,
		MaxDailyStake:        cfg.MaxDailyStake,
		MaxSelectionExposure: cfg.MaxSelectionExposure,
		AcceptThreshold:      cfg.AcceptThreshold,
		CounterThreshold:     cfg.CounterThreshold,
		PlatformMargin:       cfg.PlatformMargin,
		ExposureWarnFraction: cfg.ExposureWarnFraction,
		FallbackOdds:         cfg.FallbackOdds,
		CounterTTL:           cfg.CounterTTL,
	}
	def := DefaultLimits()
	if l.AcceptThreshold <= l.CounterThreshold {
		log.Warn("accept threshold must be above counter threshold, using defaults",
			zap.Float64("accept", l.AcceptThreshold), zap.Float64("counter", l.CounterThreshold))
		l.AcceptThreshold, l.CounterThreshold = def.AcceptThreshold, def.CounterThreshold
	}
	if l.FallbackOdds > -100 && l.FallbackOdds < 100 {
		log.Warn("invalid fallback odds, using default", zap.Int("fallback", l.FallbackOdds))
		l.FallbackOdds = def.FallbackOdds
	}
	if l.CounterTTL <= 0 {
		l.CounterTTL = def.CounterTTL
	}
	return l
}
