// Package settlement resolve apostas simples e parlays a partir do mapa de
// resultados por seleção de um evento.
//
// Cada aposta e cada parlay é gravado de forma independente: uma falha entra na
// lista de erros do Summary e o lote continua.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/masmi9/FourTenMarkets/internal/domain"
	"github.com/masmi9/FourTenMarkets/internal/oddsmath"
	"github.com/masmi9/FourTenMarkets/pkg/contracts/events"
)

// Summary é o retorno de SettleEvent; nunca há erro "global"
type Summary struct {
	EventID        string          `json:"eventId"`
	Settled        int             `json:"settled"`
	BetsSettled    int             `json:"betsSettled"`
	ParlaysSettled int             `json:"parlaysSettled"`
	TotalPaid      decimal.Decimal `json:"totalPaid"` // payouts + reembolsos creditados
	Errors         []string        `json:"errors"`
}

func (s *Summary) fail(format string, args ...any) {
	s.Errors = append(s.Errors, fmt.Sprintf(format, args...))
}

type Engine struct {
	store    Store
	exposure ExposureWriter
	bets     Publisher // bet_settled; opcional
	parlays  Publisher // parlay_settled; opcional
	log      *zap.Logger
	now      func() time.Time

	OnBet    func(result string) // métricas
	OnParlay func(status string)
	OnError  func()
}

func NewEngine(store Store, exposure ExposureWriter, bets, parlays Publisher, log *zap.Logger) *Engine {
	return &Engine{
		store:    store,
		exposure: exposure,
		bets:     bets,
		parlays:  parlays,
		log:      log.Named("settlement"),
		now:      time.Now,
	}
}

// SettleEvent fecha o evento e resolve todas as apostas afetadas por outcomes
// (selectionId -> WON/LOST/VOID).
func (e *Engine) SettleEvent(ctx context.Context, eventID string, outcomes map[string]domain.Outcome) Summary {
	sum := Summary{EventID: eventID, TotalPaid: decimal.Zero, Errors: []string{}}
	log := e.log.With(zap.String("event_id", eventID))

	if err := e.store.CloseEvent(ctx, eventID); err != nil {
		e.recordError(log, &sum, err, "close event %s: %v", eventID, err)
	}

	// ordem estável para logs e testes
	selections := make([]string, 0, len(outcomes))
	for sel := range outcomes {
		selections = append(selections, sel)
	}
	sort.Strings(selections)

	touched := map[string]struct{}{}
	valid := make([]string, 0, len(selections))
	for _, sel := range selections {
		result := outcomes[sel]
		if !result.Valid() {
			e.recordError(log, &sum, nil, "selection %s: invalid result %q", sel, result)
			continue
		}
		valid = append(valid, sel)
		e.settleSelection(ctx, log, &sum, eventID, sel, result)

		ids, err := e.store.ResolveLegs(ctx, sel, domain.LegResultFor(result))
		if err != nil {
			e.recordError(log, &sum, err, "selection %s: resolve parlay legs: %v", sel, err)
			continue
		}
		for _, id := range ids {
			touched[id] = struct{}{}
		}
	}

	// parlays cujas pernas já foram resolvidas numa execução anterior mas que
	// falharam na gravação
	if len(valid) > 0 {
		ids, err := e.store.ResolvedParlays(ctx, valid)
		if err != nil {
			e.recordError(log, &sum, err, "load resolved parlays: %v", err)
		}
		for _, id := range ids {
			touched[id] = struct{}{}
		}
	}

	parlayIDs := make([]string, 0, len(touched))
	for id := range touched {
		parlayIDs = append(parlayIDs, id)
	}
	sort.Strings(parlayIDs)
	for _, id := range parlayIDs {
		e.settleParlay(ctx, log, &sum, id)
	}

	sum.Settled = sum.BetsSettled + sum.ParlaysSettled
	log.Info("event settled",
		zap.Int("bets", sum.BetsSettled),
		zap.Int("parlays", sum.ParlaysSettled),
		zap.String("total_paid", sum.TotalPaid.String()),
		zap.Int("errors", len(sum.Errors)),
	)
	return sum
}

func (e *Engine) settleSelection(ctx context.Context, log *zap.Logger, sum *Summary, eventID, sel string, result domain.Outcome) {
	bets, err := e.store.ActiveBets(ctx, sel)
	if err != nil {
		e.recordError(log, sum, err, "selection %s: load bets: %v", sel, err)
		return
	}

	for _, b := range bets {
		o := betOutcome(b, result)
		if err := e.store.SettleBet(ctx, o); err != nil {
			if errors.Is(err, ErrAlreadySettled) {
				log.Info("bet already settled", zap.String("bet_id", b.ID))
				continue
			}
			e.recordError(log, sum, err, "bet %s: %v", b.ID, err)
			continue
		}
		sum.BetsSettled++
		sum.TotalPaid = sum.TotalPaid.Add(o.Payout)
		if e.OnBet != nil {
			e.OnBet(string(result))
		}

		// o passivo deixa de existir qualquer que seja o resultado
		if _, err := e.exposure.AddExposure(ctx, sel, b.Liability().Neg()); err != nil {
			log.Warn("exposure decrement failed", zap.String("bet_id", b.ID), zap.Error(err))
		}

		if e.bets != nil {
			ev := events.BetSettled{
				BetID:       b.ID,
				UserID:      b.UserID,
				SelectionID: sel,
				EventID:     eventID,
				Result:      string(result),
				Payout:      o.Payout.StringFixed(2),
				Ts:          e.now().UTC(),
			}
			if err := e.bets.Publish(ctx, b.ID, ev); err != nil {
				log.Warn("publish bet_settled failed", zap.String("bet_id", b.ID), zap.Error(err))
			}
		}
	}

	if err := e.exposure.ResetExposure(ctx, sel); err != nil {
		log.Warn("position reset failed", zap.String("selection_id", sel), zap.Error(err))
	}
}

func (e *Engine) settleParlay(ctx context.Context, log *zap.Logger, sum *Summary, id string) {
	p, err := e.store.Parlay(ctx, id)
	if err != nil {
		e.recordError(log, sum, err, "parlay %s: load: %v", id, err)
		return
	}
	if p.Status != domain.BetActive || !p.Resolved() {
		return
	}

	o := parlayOutcome(p)
	if err := e.store.SettleParlay(ctx, o); err != nil {
		if errors.Is(err, ErrAlreadySettled) {
			log.Info("parlay already settled", zap.String("parlay_id", id))
			return
		}
		e.recordError(log, sum, err, "parlay %s: %v", id, err)
		return
	}
	sum.ParlaysSettled++
	sum.TotalPaid = sum.TotalPaid.Add(o.Payout)
	if e.OnParlay != nil {
		e.OnParlay(string(o.Status))
	}

	if e.parlays != nil {
		ev := events.ParlaySettled{
			ParlayID: p.ID,
			UserID:   p.UserID,
			Status:   string(o.Status),
			Payout:   o.Payout.StringFixed(2),
			Ts:       e.now().UTC(),
		}
		if err := e.parlays.Publish(ctx, p.ID, ev); err != nil {
			log.Warn("publish parlay_settled failed", zap.String("parlay_id", p.ID), zap.Error(err))
		}
	}
}

func (e *Engine) recordError(log *zap.Logger, sum *Summary, err error, format string, args ...any) {
	sum.fail(format, args...)
	log.Error("settlement failure", zap.String("detail", sum.Errors[len(sum.Errors)-1]), zap.Error(err))
	if e.OnError != nil {
		e.OnError()
	}
}

// betOutcome aplica a regra WON/LOST/VOID a uma aposta simples
func betOutcome(b domain.Bet, result domain.Outcome) BetOutcome {
	o := BetOutcome{Bet: b, Result: result, Payout: decimal.Zero}
	switch result {
	case domain.OutcomeWon:
		o.Status, o.TxType = domain.BetWon, domain.TxBetPayout
		o.Payout = oddsmath.Payout(b.Stake, b.Odds)
	case domain.OutcomeLost:
		o.Status, o.TxType = domain.BetLost, domain.TxBetPayout
	default:
		o.Status, o.TxType = domain.BetVoided, domain.TxBetRefund
		o.Payout = b.Stake
	}
	return o
}

// parlayOutcome: qualquer perna LOST perde; pernas VOID saem do multiplicador;
// todas VOID devolvem o stake.
func parlayOutcome(p domain.Parlay) ParlayOutcome {
	o := ParlayOutcome{Parlay: p, Payout: decimal.Zero}

	won := 0
	multiplier := decimal.NewFromInt(1)
	for _, l := range p.Legs {
		switch l.Result {
		case domain.LegLost:
			o.Status, o.TxType = domain.BetLost, domain.TxBetPayout
			return o
		case domain.LegWon:
			won++
			multiplier = multiplier.Mul(oddsmath.DecimalOdds(l.AcceptedOdds))
		}
	}

	if won == 0 {
		o.Status, o.TxType = domain.BetVoided, domain.TxBetRefund
		o.Payout = p.Stake
		return o
	}
	o.Status, o.TxType = domain.BetWon, domain.TxBetPayout
	o.Payout = oddsmath.PayoutAt(p.Stake, multiplier)
	return o
}
