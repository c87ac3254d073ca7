// Package pricing decide ACCEPT / COUNTER / REJECT para pedidos de odds de
// apostas simples (Engine) e parlays (ParlayEngine).
//
// Avaliar não muta nada: exposição e volume diário só mudam quando a aposta
// é efetivamente colocada (ver package betting).
package pricing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/masmi9/FourTenMarkets/internal/domain"
	"github.com/masmi9/FourTenMarkets/internal/oddsmath"
)

// Motivos expostos ao apostador
const (
	ReasonInvalidStake      = "stake must be positive"
	ReasonInvalidOdds       = "odds must be at least +100 or at most -100"
	ReasonStakeLimit        = "stake exceeds maximum single bet"
	ReasonDailyLimit        = "daily stake limit exceeded"
	ReasonExposureLimit     = "selection exposure limit reached"
	ReasonRiskUnavailable   = "risk data unavailable"
	ReasonNoConsensus       = "no consensus available"
	ReasonNearExposureLimit = "near exposure limit"
	ReasonBestAvailable     = "best available odds"
	ReasonTooFarAboveMarket = "requested odds too far above market"
)

// RiskReader é a visão somente-leitura do ledger de exposição
type RiskReader interface {
	ConsensusOdds(ctx context.Context, selectionID string) (domain.ConsensusOdds, bool, error)
	Exposure(ctx context.Context, selectionID string) (decimal.Decimal, error)
	DailyStake(ctx context.Context, userID string, day time.Time) (decimal.Decimal, error)
}

type Request struct {
	UserID        string
	SelectionID   string
	RequestedOdds int
	Stake         decimal.Decimal
}

// Result é a resposta do motor. AcceptedOdds e PotentialPayout só têm valor
// em ACCEPT e COUNTER; ExpiresAt só em COUNTER.
type Result struct {
	Decision        domain.Decision
	AcceptedOdds    int
	PotentialPayout decimal.Decimal
	RejectReason    string
	CounterReason   string
	ExpiresAt       *time.Time
	Edge            float64
}

func reject(reason string) Result {
	return Result{Decision: domain.DecisionReject, RejectReason: reason}
}

// Engine precifica apostas simples
type Engine struct {
	risk   RiskReader
	limits Limits
	log    *zap.Logger
	now    func() time.Time

	OnDecision func(kind string, d domain.Decision, elapsed time.Duration) // métricas
}

func NewEngine(risk RiskReader, limits Limits, log *zap.Logger) *Engine {
	return &Engine{risk: risk, limits: limits, log: log.Named("pricing"), now: time.Now}
}

// Limits devolve os limites em uso
func (e *Engine) Limits() Limits { return e.limits }

// Evaluate roda uma única passada determinística sobre o pedido
func (e *Engine) Evaluate(ctx context.Context, req Request) Result {
	t0 := time.Now()
	res := e.evaluate(ctx, req, e.now())

	e.log.Debug("single priced",
		zap.String("user_id", req.UserID),
		zap.String("selection_id", req.SelectionID),
		zap.Int("requested_odds", req.RequestedOdds),
		zap.String("stake", req.Stake.String()),
		zap.String("decision", string(res.Decision)),
		zap.Int("accepted_odds", res.AcceptedOdds),
		zap.Float64("edge", res.Edge),
	)
	if e.OnDecision != nil {
		e.OnDecision("single", res.Decision, time.Since(t0))
	}
	return res
}

func (e *Engine) evaluate(ctx context.Context, req Request, now time.Time) Result {
	if !req.Stake.IsPositive() {
		return reject(ReasonInvalidStake)
	}
	if !oddsmath.Valid(req.RequestedOdds) {
		return reject(ReasonInvalidOdds)
	}
	if req.Stake.GreaterThan(e.limits.MaxSingleStake) {
		return reject(ReasonStakeLimit)
	}

	daily, err := e.risk.DailyStake(ctx, req.UserID, now)
	if err != nil {
		e.log.Error("daily stake lookup failed", zap.String("user_id", req.UserID), zap.Error(err))
		return reject(ReasonRiskUnavailable)
	}
	if daily.Add(req.Stake).GreaterThan(e.limits.MaxDailyStake) {
		return reject(ReasonDailyLimit)
	}

	exposure, err := e.risk.Exposure(ctx, req.SelectionID)
	if err != nil {
		e.log.Error("exposure lookup failed", zap.String("selection_id", req.SelectionID), zap.Error(err))
		return reject(ReasonRiskUnavailable)
	}

	cons, ok, err := e.risk.ConsensusOdds(ctx, req.SelectionID)
	if err != nil {
		e.log.Error("consensus lookup failed", zap.String("selection_id", req.SelectionID), zap.Error(err))
		return reject(ReasonRiskUnavailable)
	}
	if !ok {
		return e.counter(req, exposure, e.limits.FallbackOdds, ReasonNoConsensus, 0, now)
	}

	edge := oddsmath.ImpliedProbability(req.RequestedOdds) - oddsmath.ImpliedProbability(cons.AmericanOdds)

	payout := oddsmath.Payout(req.Stake, req.RequestedOdds)
	projected := exposure.Add(payout.Sub(req.Stake))
	if projected.GreaterThan(e.limits.MaxSelectionExposure) {
		res := reject(ReasonExposureLimit)
		res.Edge = edge
		return res
	}

	warnAt := e.limits.MaxSelectionExposure.Mul(decimal.NewFromFloat(e.limits.ExposureWarnFraction))
	nearCap := projected.GreaterThanOrEqual(warnAt)

	switch {
	case edge >= e.limits.AcceptThreshold && !nearCap:
		return Result{
			Decision:        domain.DecisionAccept,
			AcceptedOdds:    req.RequestedOdds,
			PotentialPayout: payout,
			Edge:            edge,
		}
	case edge >= e.limits.CounterThreshold || nearCap:
		odds := oddsmath.RoundToNearest5(oddsmath.ApplyMargin(cons.AmericanOdds, e.limits.PlatformMargin))
		reason := ReasonBestAvailable
		if nearCap {
			reason = ReasonNearExposureLimit
		}
		return e.counter(req, exposure, odds, reason, edge, now)
	default:
		res := reject(ReasonTooFarAboveMarket)
		res.Edge = edge
		return res
	}
}

// counter monta a contraproposta, rejeitando se ela mesma estourar o teto
func (e *Engine) counter(req Request, exposure decimal.Decimal, odds int, reason string, edge float64, now time.Time) Result {
	payout := oddsmath.Payout(req.Stake, odds)
	if exposure.Add(payout.Sub(req.Stake)).GreaterThan(e.limits.MaxSelectionExposure) {
		res := reject(ReasonExposureLimit)
		res.Edge = edge
		return res
	}
	exp := now.Add(e.limits.CounterTTL)
	return Result{
		Decision:        domain.DecisionCounter,
		AcceptedOdds:    odds,
		PotentialPayout: payout,
		CounterReason:   reason,
		ExpiresAt:       &exp,
		Edge:            edge,
	}
}
