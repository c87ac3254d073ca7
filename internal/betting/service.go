// Package betting liga o motor de precificação à persistência: grava o pedido,
// trava o stake na carteira e atualiza exposição e volume diário quando a
// aposta é de fato colocada.
package betting

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/masmi9/FourTenMarkets/internal/domain"
	"github.com/masmi9/FourTenMarkets/internal/oddsmath"
	"github.com/masmi9/FourTenMarkets/internal/pricing"
	"github.com/masmi9/FourTenMarkets/pkg/contracts/events"
)

const ReasonMarketClosed = "market closed"

type SinglePricer interface {
	Evaluate(ctx context.Context, req pricing.Request) pricing.Result
}

type ParlayPricer interface {
	Evaluate(ctx context.Context, req pricing.ParlayRequest) pricing.ParlayResult
}

// ExposureWriter é a parte do ledger que muda na colocação
type ExposureWriter interface {
	AddExposure(ctx context.Context, selectionID string, delta decimal.Decimal) (decimal.Decimal, error)
	AddDailyStake(ctx context.Context, userID string, day time.Time, amount decimal.Decimal) (decimal.Decimal, error)
}

type Publisher interface {
	Publish(ctx context.Context, key string, v any) error
}

// Quote é o retorno de uma cotação simples; Bet só vem preenchida em ACCEPT
type Quote struct {
	RequestID string
	Result    pricing.Result
	Bet       *domain.Bet
}

// ParlayQuote: ParlayID vazio em REJECT (nada é gravado)
type ParlayQuote struct {
	ParlayID string
	Result   pricing.ParlayResult
	Parlay   *domain.Parlay
}

type Service struct {
	store    Store
	single   SinglePricer
	parlay   ParlayPricer
	exposure ExposureWriter
	pub      Publisher // bet_confirmed; opcional
	log      *zap.Logger
	now      func() time.Time
}

func NewService(store Store, single SinglePricer, parlay ParlayPricer, exposure ExposureWriter, pub Publisher, log *zap.Logger) *Service {
	return &Service{
		store:    store,
		single:   single,
		parlay:   parlay,
		exposure: exposure,
		pub:      pub,
		log:      log.Named("betting"),
		now:      time.Now,
	}
}

// Quote precifica e grava o pedido. ACCEPT já coloca a aposta; COUNTER fica
// PENDING até Confirm ou expirar.
func (s *Service) Quote(ctx context.Context, req pricing.Request) (Quote, error) {
	open, err := s.store.SelectionOpen(ctx, req.SelectionID)
	if err != nil {
		return Quote{}, err
	}

	var res pricing.Result
	if open {
		res = s.single.Evaluate(ctx, req)
	} else {
		res = pricing.Result{Decision: domain.DecisionReject, RejectReason: ReasonMarketClosed}
	}

	r := domain.BetRequest{
		ID:            uuid.NewString(),
		UserID:        req.UserID,
		SelectionID:   req.SelectionID,
		RequestedOdds: req.RequestedOdds,
		Stake:         req.Stake,
		Decision:      res.Decision,
		ExpiresAt:     res.ExpiresAt,
		Status:        domain.RequestPending,
		CreatedAt:     s.now().UTC(),
	}
	switch res.Decision {
	case domain.DecisionReject:
		r.Status, r.Reason = domain.RequestRejected, res.RejectReason
	case domain.DecisionCounter:
		odds := res.AcceptedOdds
		r.CounterOdds, r.Reason = &odds, res.CounterReason
	}
	if err := s.store.SaveRequest(ctx, r); err != nil {
		return Quote{}, err
	}

	q := Quote{RequestID: r.ID, Result: res}
	if res.Decision != domain.DecisionAccept {
		return q, nil
	}

	bet, err := s.place(ctx, r, res.AcceptedOdds)
	if err != nil {
		if cerr := s.store.CloseRequest(ctx, r.ID, domain.RequestRejected, err.Error()); cerr != nil {
			s.log.Warn("close request after failed placement", zap.String("request_id", r.ID), zap.Error(cerr))
		}
		return q, err
	}
	q.Bet = &bet
	return q, nil
}

// Confirm aceita a contraproposta de um pedido PENDING
func (s *Service) Confirm(ctx context.Context, requestID, userID string) (domain.Bet, error) {
	r, err := s.store.Request(ctx, requestID)
	if err != nil {
		return domain.Bet{}, err
	}
	if r.UserID != userID {
		return domain.Bet{}, ErrRequestNotFound
	}
	if r.Status != domain.RequestPending {
		return domain.Bet{}, ErrRequestNotPending
	}
	if r.Expired(s.now()) {
		if err := s.store.CloseRequest(ctx, r.ID, domain.RequestExpired, "counter expired"); err != nil && !errors.Is(err, ErrRequestNotPending) {
			return domain.Bet{}, err
		}
		return domain.Bet{}, ErrCounterExpired
	}

	// o evento pode ter sido liquidado dentro da janela da contraproposta
	open, err := s.store.SelectionOpen(ctx, r.SelectionID)
	if err != nil {
		return domain.Bet{}, err
	}
	if !open {
		s.rejectRequest(ctx, r.ID)
		return domain.Bet{}, ErrMarketClosed
	}

	odds := r.RequestedOdds
	if r.CounterOdds != nil {
		odds = *r.CounterOdds
	}
	bet, err := s.place(ctx, r, odds)
	if errors.Is(err, ErrMarketClosed) {
		s.rejectRequest(ctx, r.ID)
	}
	return bet, err
}

func (s *Service) rejectRequest(ctx context.Context, id string) {
	if err := s.store.CloseRequest(ctx, id, domain.RequestRejected, ReasonMarketClosed); err != nil && !errors.Is(err, ErrRequestNotPending) {
		s.log.Warn("close request on closed market", zap.String("request_id", id), zap.Error(err))
	}
}

func (s *Service) place(ctx context.Context, r domain.BetRequest, odds int) (domain.Bet, error) {
	now := s.now().UTC()
	bet := domain.Bet{
		ID:              uuid.NewString(),
		UserID:          r.UserID,
		SelectionID:     r.SelectionID,
		RequestID:       r.ID,
		Odds:            odds,
		Stake:           r.Stake,
		PotentialPayout: oddsmath.Payout(r.Stake, odds),
		Status:          domain.BetActive,
		CreatedAt:       now,
	}
	if err := s.store.PlaceBet(ctx, bet); err != nil {
		return domain.Bet{}, err
	}

	log := s.log.With(zap.String("bet_id", bet.ID), zap.String("user_id", bet.UserID))
	if _, err := s.exposure.AddExposure(ctx, bet.SelectionID, bet.Liability()); err != nil {
		log.Warn("exposure increment failed", zap.Error(err))
	}
	if _, err := s.exposure.AddDailyStake(ctx, bet.UserID, now, bet.Stake); err != nil {
		log.Warn("daily stake increment failed", zap.Error(err))
	}
	s.publish(ctx, log, events.BetConfirmed{
		BetID:           bet.ID,
		Kind:            "SINGLE",
		UserID:          bet.UserID,
		SelectionIDs:    []string{bet.SelectionID},
		Odds:            bet.Odds,
		Stake:           bet.Stake.StringFixed(2),
		PotentialPayout: bet.PotentialPayout.StringFixed(2),
		Ts:              now,
	})
	log.Info("bet placed", zap.Int("odds", bet.Odds), zap.String("stake", bet.Stake.String()))
	return bet, nil
}

// QuoteParlay precifica o parlay. REJECT não é gravado.
func (s *Service) QuoteParlay(ctx context.Context, req pricing.ParlayRequest) (ParlayQuote, error) {
	for _, l := range req.Legs {
		open, err := s.store.SelectionOpen(ctx, l.SelectionID)
		if err != nil {
			return ParlayQuote{}, err
		}
		if !open {
			return ParlayQuote{Result: pricing.ParlayResult{
				Decision:     domain.DecisionReject,
				RejectReason: ReasonMarketClosed,
			}}, nil
		}
	}

	res := s.parlay.Evaluate(ctx, req)
	if res.Decision == domain.DecisionReject {
		return ParlayQuote{Result: res}, nil
	}

	p := domain.Parlay{
		ID:              uuid.NewString(),
		UserID:          req.UserID,
		Stake:           req.Stake,
		CombinedOdds:    res.CombinedOdds,
		PotentialPayout: res.PotentialPayout,
		Status:          domain.BetPending,
		ExpiresAt:       res.ExpiresAt,
		CreatedAt:       s.now().UTC(),
	}
	for _, l := range res.Legs {
		p.Legs = append(p.Legs, domain.ParlayLeg{
			ID:            uuid.NewString(),
			ParlayID:      p.ID,
			SelectionID:   l.SelectionID,
			RequestedOdds: l.RequestedOdds,
			AcceptedOdds:  l.AcceptedOdds,
			Result:        domain.LegPending,
		})
	}
	if err := s.store.SaveParlay(ctx, p); err != nil {
		return ParlayQuote{}, err
	}

	q := ParlayQuote{ParlayID: p.ID, Result: res}
	if res.Decision != domain.DecisionAccept {
		return q, nil
	}
	placed, err := s.placeParlay(ctx, p)
	if err != nil {
		if cerr := s.store.CloseParlay(ctx, p.ID, domain.BetRejected); cerr != nil {
			s.log.Warn("close parlay after failed placement", zap.String("parlay_id", p.ID), zap.Error(cerr))
		}
		return q, err
	}
	q.Parlay = &placed
	return q, nil
}

// ConfirmParlay aceita a contraproposta de um parlay PENDING; vencido vira VOIDED
func (s *Service) ConfirmParlay(ctx context.Context, parlayID, userID string) (domain.Parlay, error) {
	p, err := s.store.Parlay(ctx, parlayID)
	if err != nil {
		return domain.Parlay{}, err
	}
	if p.UserID != userID {
		return domain.Parlay{}, ErrParlayNotFound
	}
	if p.Status != domain.BetPending {
		return domain.Parlay{}, ErrRequestNotPending
	}
	if p.ExpiresAt != nil && s.now().After(*p.ExpiresAt) {
		if err := s.store.CloseParlay(ctx, p.ID, domain.BetVoided); err != nil && !errors.Is(err, ErrRequestNotPending) {
			return domain.Parlay{}, err
		}
		return domain.Parlay{}, ErrCounterExpired
	}
	for _, l := range p.Legs {
		open, err := s.store.SelectionOpen(ctx, l.SelectionID)
		if err != nil {
			return domain.Parlay{}, err
		}
		if !open {
			s.rejectParlay(ctx, p.ID)
			return domain.Parlay{}, ErrMarketClosed
		}
	}

	placed, err := s.placeParlay(ctx, p)
	if errors.Is(err, ErrMarketClosed) {
		s.rejectParlay(ctx, p.ID)
	}
	return placed, err
}

func (s *Service) rejectParlay(ctx context.Context, id string) {
	if err := s.store.CloseParlay(ctx, id, domain.BetRejected); err != nil && !errors.Is(err, ErrRequestNotPending) {
		s.log.Warn("close parlay on closed market", zap.String("parlay_id", id), zap.Error(err))
	}
}

// placeParlay não mexe na exposição por seleção, só no volume diário
func (s *Service) placeParlay(ctx context.Context, p domain.Parlay) (domain.Parlay, error) {
	if err := s.store.PlaceParlay(ctx, p); err != nil {
		return domain.Parlay{}, err
	}
	now := s.now().UTC()
	p.Status = domain.BetActive
	p.ExpiresAt = nil

	log := s.log.With(zap.String("parlay_id", p.ID), zap.String("user_id", p.UserID))
	if _, err := s.exposure.AddDailyStake(ctx, p.UserID, now, p.Stake); err != nil {
		log.Warn("daily stake increment failed", zap.Error(err))
	}
	sels := make([]string, 0, len(p.Legs))
	for _, l := range p.Legs {
		sels = append(sels, l.SelectionID)
	}
	s.publish(ctx, log, events.BetConfirmed{
		BetID:           p.ID,
		Kind:            "PARLAY",
		UserID:          p.UserID,
		SelectionIDs:    sels,
		Odds:            p.CombinedOdds,
		Stake:           p.Stake.StringFixed(2),
		PotentialPayout: p.PotentialPayout.StringFixed(2),
		Ts:              now,
	})
	log.Info("parlay placed", zap.Int("legs", len(p.Legs)), zap.Int("combined_odds", p.CombinedOdds))
	return p, nil
}

func (s *Service) publish(ctx context.Context, log *zap.Logger, ev events.BetConfirmed) {
	if s.pub == nil {
		return
	}
	if err := s.pub.Publish(ctx, ev.BetID, ev); err != nil {
		log.Warn("publish bet_confirmed failed", zap.Error(err))
	}
}
