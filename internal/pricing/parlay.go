package pricing

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/masmi9/FourTenMarkets/internal/domain"
	"github.com/masmi9/FourTenMarkets/internal/oddsmath"
)

const (
	MinParlayLegs = 2
	MaxParlayLegs = 12
)

type LegRequest struct {
	SelectionID   string
	RequestedOdds int
}

type ParlayRequest struct {
	UserID string
	Legs   []LegRequest
	Stake  decimal.Decimal
}

type LegResult struct {
	SelectionID   string
	RequestedOdds int
	AcceptedOdds  int
	Decision      domain.Decision
	Reason        string
}

// ParlayResult: em REJECT não há odds combinadas nem payout
type ParlayResult struct {
	Decision        domain.Decision
	Legs            []LegResult
	CombinedOdds    int
	CombinedDecimal decimal.Decimal
	PotentialPayout decimal.Decimal
	RejectReason    string
	ExpiresAt       *time.Time
}

// ParlayEngine precifica cada perna de forma contínua (interpolação entre a
// probabilidade de consenso e a pedida) e compõe o preço final.
type ParlayEngine struct {
	risk   RiskReader
	limits Limits
	log    *zap.Logger
	now    func() time.Time

	OnDecision func(kind string, d domain.Decision, elapsed time.Duration)
}

func NewParlayEngine(risk RiskReader, limits Limits, log *zap.Logger) *ParlayEngine {
	return &ParlayEngine{risk: risk, limits: limits, log: log.Named("parlay_pricing"), now: time.Now}
}

func (p *ParlayEngine) Evaluate(ctx context.Context, req ParlayRequest) ParlayResult {
	t0 := time.Now()
	res := p.evaluate(ctx, req, p.now())

	p.log.Debug("parlay priced",
		zap.String("user_id", req.UserID),
		zap.Int("legs", len(req.Legs)),
		zap.String("stake", req.Stake.String()),
		zap.String("decision", string(res.Decision)),
		zap.Int("combined_odds", res.CombinedOdds),
	)
	if p.OnDecision != nil {
		p.OnDecision("parlay", res.Decision, time.Since(t0))
	}
	return res
}

func parlayReject(reason string, legs []LegResult) ParlayResult {
	return ParlayResult{Decision: domain.DecisionReject, RejectReason: reason, Legs: legs}
}

func (p *ParlayEngine) evaluate(ctx context.Context, req ParlayRequest, now time.Time) ParlayResult {
	if n := len(req.Legs); n < MinParlayLegs {
		return parlayReject(fmt.Sprintf("parlay requires at least %d legs", MinParlayLegs), nil)
	} else if n > MaxParlayLegs {
		return parlayReject(fmt.Sprintf("parlay allows at most %d legs", MaxParlayLegs), nil)
	}
	seen := make(map[string]struct{}, len(req.Legs))
	for _, l := range req.Legs {
		if _, dup := seen[l.SelectionID]; dup {
			return parlayReject("duplicate selection in parlay", nil)
		}
		seen[l.SelectionID] = struct{}{}
	}
	if !req.Stake.IsPositive() {
		return parlayReject(ReasonInvalidStake, nil)
	}
	if req.Stake.GreaterThan(p.limits.MaxSingleStake) {
		return parlayReject(ReasonStakeLimit, nil)
	}
	daily, err := p.risk.DailyStake(ctx, req.UserID, now)
	if err != nil {
		p.log.Error("daily stake lookup failed", zap.String("user_id", req.UserID), zap.Error(err))
		return parlayReject(ReasonRiskUnavailable, nil)
	}
	if daily.Add(req.Stake).GreaterThan(p.limits.MaxDailyStake) {
		return parlayReject(ReasonDailyLimit, nil)
	}

	legs := make([]LegResult, 0, len(req.Legs))
	countered := false
	for _, l := range req.Legs {
		lr := p.priceLeg(ctx, l)
		legs = append(legs, lr)
		switch lr.Decision {
		case domain.DecisionReject:
			return parlayReject(lr.Reason, legs)
		case domain.DecisionCounter:
			countered = true
		}
	}

	combined := decimal.NewFromInt(1)
	for _, l := range legs {
		combined = combined.Mul(oddsmath.DecimalOdds(l.AcceptedOdds))
	}
	f, _ := combined.Float64()

	res := ParlayResult{
		Decision:        domain.DecisionAccept,
		Legs:            legs,
		CombinedDecimal: combined,
		CombinedOdds:    oddsmath.DecimalToAmerican(f),
		PotentialPayout: oddsmath.PayoutAt(req.Stake, combined),
	}
	if countered {
		exp := now.Add(p.limits.CounterTTL)
		res.Decision = domain.DecisionCounter
		res.ExpiresAt = &exp
	}
	return res
}

func (p *ParlayEngine) priceLeg(ctx context.Context, l LegRequest) LegResult {
	lr := LegResult{SelectionID: l.SelectionID, RequestedOdds: l.RequestedOdds}
	if !oddsmath.Valid(l.RequestedOdds) {
		lr.Decision, lr.Reason = domain.DecisionReject, ReasonInvalidOdds
		return lr
	}

	cons, ok, err := p.risk.ConsensusOdds(ctx, l.SelectionID)
	if err != nil {
		p.log.Error("consensus lookup failed", zap.String("selection_id", l.SelectionID), zap.Error(err))
		lr.Decision, lr.Reason = domain.DecisionReject, ReasonRiskUnavailable
		return lr
	}
	if !ok {
		lr.Decision, lr.AcceptedOdds, lr.Reason = domain.DecisionCounter, p.limits.FallbackOdds, ReasonNoConsensus
		return lr
	}

	reqP := oddsmath.ImpliedProbability(l.RequestedOdds)
	consP := oddsmath.ImpliedProbability(cons.AmericanOdds)
	edge := reqP - consP

	switch {
	case edge >= p.limits.AcceptThreshold:
		lr.Decision, lr.AcceptedOdds = domain.DecisionAccept, l.RequestedOdds
	case edge < p.limits.CounterThreshold:
		lr.Decision, lr.Reason = domain.DecisionReject, ReasonTooFarAboveMarket
	default:
		lr.Decision, lr.Reason = domain.DecisionCounter, ReasonBestAvailable
		lr.AcceptedOdds = interpolate(cons.AmericanOdds, consP, reqP, edge, p.limits)
	}
	return lr
}

// interpolate move a probabilidade do consenso em direção à pedida conforme a
// posição do edge entre os thresholds. Nunca fica abaixo do consenso.
func interpolate(consOdds int, consP, reqP, edge float64, lim Limits) int {
	pos := (edge - lim.CounterThreshold) / (lim.AcceptThreshold - lim.CounterThreshold)
	pos = math.Max(0, math.Min(1, pos))

	odds := oddsmath.RoundToNearest5(oddsmath.ProbabilityToAmerican(consP + pos*(reqP-consP)))
	if oddsmath.AmericanToDecimal(odds) < oddsmath.AmericanToDecimal(consOdds) {
		return consOdds
	}
	return odds
}
