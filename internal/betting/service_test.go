package betting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/masmi9/FourTenMarkets/internal/domain"
	"github.com/masmi9/FourTenMarkets/internal/pricing"
	"github.com/masmi9/FourTenMarkets/pkg/contracts/events"
)

var (
	d     = decimal.RequireFromString
	clock = time.Date(2026, 10, 17, 15, 0, 0, 0, time.UTC)
)

type memStore struct {
	closed   map[string]bool
	requests map[string]domain.BetRequest
	bets     []domain.Bet
	parlays  map[string]domain.Parlay
	placeErr error
}

func newMemStore() *memStore {
	return &memStore{
		closed:   map[string]bool{},
		requests: map[string]domain.BetRequest{},
		parlays:  map[string]domain.Parlay{},
	}
}

func (m *memStore) SelectionOpen(_ context.Context, id string) (bool, error) {
	if id == "ghost" {
		return false, ErrSelectionNotFound
	}
	return !m.closed[id], nil
}

func (m *memStore) SaveRequest(_ context.Context, r domain.BetRequest) error {
	m.requests[r.ID] = r
	return nil
}

func (m *memStore) Request(_ context.Context, id string) (domain.BetRequest, error) {
	r, ok := m.requests[id]
	if !ok {
		return r, ErrRequestNotFound
	}
	return r, nil
}

func (m *memStore) CloseRequest(_ context.Context, id string, status domain.RequestStatus, reason string) error {
	r := m.requests[id]
	if r.Status != domain.RequestPending {
		return ErrRequestNotPending
	}
	r.Status, r.Reason = status, reason
	m.requests[id] = r
	return nil
}

func (m *memStore) PlaceBet(_ context.Context, b domain.Bet) error {
	if m.placeErr != nil {
		return m.placeErr
	}
	if m.closed[b.SelectionID] {
		return ErrMarketClosed
	}
	r := m.requests[b.RequestID]
	if r.Status != domain.RequestPending {
		return ErrRequestNotPending
	}
	r.Status = domain.RequestConfirmed
	m.requests[b.RequestID] = r
	m.bets = append(m.bets, b)
	return nil
}

func (m *memStore) SaveParlay(_ context.Context, p domain.Parlay) error {
	m.parlays[p.ID] = p
	return nil
}

func (m *memStore) Parlay(_ context.Context, id string) (domain.Parlay, error) {
	p, ok := m.parlays[id]
	if !ok {
		return p, ErrParlayNotFound
	}
	return p, nil
}

func (m *memStore) CloseParlay(_ context.Context, id string, status domain.BetStatus) error {
	p := m.parlays[id]
	if p.Status != domain.BetPending {
		return ErrRequestNotPending
	}
	p.Status = status
	m.parlays[id] = p
	return nil
}

func (m *memStore) PlaceParlay(_ context.Context, p domain.Parlay) error {
	if m.placeErr != nil {
		return m.placeErr
	}
	for _, l := range p.Legs {
		if m.closed[l.SelectionID] {
			return ErrMarketClosed
		}
	}
	cur := m.parlays[p.ID]
	if cur.Status != domain.BetPending {
		return ErrRequestNotPending
	}
	cur.Status = domain.BetActive
	cur.ExpiresAt = nil
	m.parlays[p.ID] = cur
	return nil
}

type stubPricer struct {
	res   pricing.Result
	calls int
}

func (s *stubPricer) Evaluate(context.Context, pricing.Request) pricing.Result {
	s.calls++
	return s.res
}

type stubParlayPricer struct{ res pricing.ParlayResult }

func (s *stubParlayPricer) Evaluate(context.Context, pricing.ParlayRequest) pricing.ParlayResult {
	return s.res
}

type ledger struct {
	exposure map[string]decimal.Decimal
	daily    map[string]decimal.Decimal
}

func (l *ledger) AddExposure(_ context.Context, sel string, delta decimal.Decimal) (decimal.Decimal, error) {
	l.exposure[sel] = l.exposure[sel].Add(delta)
	return l.exposure[sel], nil
}

func (l *ledger) AddDailyStake(_ context.Context, user string, _ time.Time, amount decimal.Decimal) (decimal.Decimal, error) {
	l.daily[user] = l.daily[user].Add(amount)
	return l.daily[user], nil
}

type capture struct{ msgs []any }

func (c *capture) Publish(_ context.Context, _ string, v any) error {
	c.msgs = append(c.msgs, v)
	return nil
}

type fixture struct {
	store  *memStore
	single *stubPricer
	parlay *stubParlayPricer
	ledger *ledger
	pub    *capture
	svc    *Service
}

func newFixture() *fixture {
	f := &fixture{
		store:  newMemStore(),
		single: &stubPricer{},
		parlay: &stubParlayPricer{},
		ledger: &ledger{exposure: map[string]decimal.Decimal{}, daily: map[string]decimal.Decimal{}},
		pub:    &capture{},
	}
	f.svc = NewService(f.store, f.single, f.parlay, f.ledger, f.pub, zap.NewNop())
	f.svc.now = func() time.Time { return clock }
	return f
}

func singleReq() pricing.Request {
	return pricing.Request{UserID: "u1", SelectionID: "sel-1", RequestedOdds: 150, Stake: d("100")}
}

func TestQuoteAcceptPlacesBet(t *testing.T) {
	f := newFixture()
	f.single.res = pricing.Result{Decision: domain.DecisionAccept, AcceptedOdds: 150, PotentialPayout: d("250")}

	q, err := f.svc.Quote(context.Background(), singleReq())
	require.NoError(t, err)
	require.NotNil(t, q.Bet)

	assert.Equal(t, domain.RequestConfirmed, f.store.requests[q.RequestID].Status)
	assert.Equal(t, 150, q.Bet.Odds)
	assert.True(t, d("250").Equal(q.Bet.PotentialPayout))
	assert.True(t, d("150").Equal(f.ledger.exposure["sel-1"]), "liability = payout - stake")
	assert.True(t, d("100").Equal(f.ledger.daily["u1"]))

	require.Len(t, f.pub.msgs, 1)
	ev := f.pub.msgs[0].(events.BetConfirmed)
	assert.Equal(t, "SINGLE", ev.Kind)
	assert.Equal(t, "100.00", ev.Stake)
}

func TestQuoteCounterThenConfirm(t *testing.T) {
	f := newFixture()
	exp := clock.Add(2 * time.Minute)
	f.single.res = pricing.Result{
		Decision: domain.DecisionCounter, AcceptedOdds: 120, PotentialPayout: d("220"),
		CounterReason: pricing.ReasonBestAvailable, ExpiresAt: &exp,
	}

	q, err := f.svc.Quote(context.Background(), singleReq())
	require.NoError(t, err)
	assert.Nil(t, q.Bet)
	r := f.store.requests[q.RequestID]
	assert.Equal(t, domain.RequestPending, r.Status)
	require.NotNil(t, r.CounterOdds)
	assert.Equal(t, 120, *r.CounterOdds)
	assert.Empty(t, f.ledger.exposure, "counter does not touch the ledger")

	bet, err := f.svc.Confirm(context.Background(), q.RequestID, "u1")
	require.NoError(t, err)
	assert.Equal(t, 120, bet.Odds)
	assert.True(t, d("220").Equal(bet.PotentialPayout))
	assert.Equal(t, domain.RequestConfirmed, f.store.requests[q.RequestID].Status)

	_, err = f.svc.Confirm(context.Background(), q.RequestID, "u1")
	assert.ErrorIs(t, err, ErrRequestNotPending)
}

func TestConfirmAfterExpiryMarksExpired(t *testing.T) {
	f := newFixture()
	exp := clock.Add(2 * time.Minute)
	f.single.res = pricing.Result{Decision: domain.DecisionCounter, AcceptedOdds: 120, ExpiresAt: &exp}

	q, err := f.svc.Quote(context.Background(), singleReq())
	require.NoError(t, err)

	f.svc.now = func() time.Time { return exp.Add(time.Second) }
	_, err = f.svc.Confirm(context.Background(), q.RequestID, "u1")
	assert.ErrorIs(t, err, ErrCounterExpired)
	assert.Equal(t, domain.RequestExpired, f.store.requests[q.RequestID].Status)
	assert.Empty(t, f.store.bets)
}

func TestConfirmOtherUsersRequest(t *testing.T) {
	f := newFixture()
	exp := clock.Add(time.Minute)
	f.single.res = pricing.Result{Decision: domain.DecisionCounter, AcceptedOdds: 120, ExpiresAt: &exp}
	q, err := f.svc.Quote(context.Background(), singleReq())
	require.NoError(t, err)

	_, err = f.svc.Confirm(context.Background(), q.RequestID, "intruder")
	assert.ErrorIs(t, err, ErrRequestNotFound)
	_, err = f.svc.Confirm(context.Background(), "missing", "u1")
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestQuoteRejectIsStored(t *testing.T) {
	f := newFixture()
	f.single.res = pricing.Result{Decision: domain.DecisionReject, RejectReason: pricing.ReasonTooFarAboveMarket}

	q, err := f.svc.Quote(context.Background(), singleReq())
	require.NoError(t, err)
	r := f.store.requests[q.RequestID]
	assert.Equal(t, domain.RequestRejected, r.Status)
	assert.Equal(t, pricing.ReasonTooFarAboveMarket, r.Reason)

	_, err = f.svc.Confirm(context.Background(), q.RequestID, "u1")
	assert.ErrorIs(t, err, ErrRequestNotPending)
}

func TestQuoteClosedMarketSkipsPricing(t *testing.T) {
	f := newFixture()
	f.store.closed["sel-1"] = true

	q, err := f.svc.Quote(context.Background(), singleReq())
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionReject, q.Result.Decision)
	assert.Equal(t, ReasonMarketClosed, q.Result.RejectReason)
	assert.Zero(t, f.single.calls)

	req := singleReq()
	req.SelectionID = "ghost"
	_, err = f.svc.Quote(context.Background(), req)
	assert.ErrorIs(t, err, ErrSelectionNotFound)
}

func TestQuoteAcceptWithoutFundsRejectsRequest(t *testing.T) {
	f := newFixture()
	f.single.res = pricing.Result{Decision: domain.DecisionAccept, AcceptedOdds: 150, PotentialPayout: d("250")}
	insufficient := errors.New("insufficient funds")
	f.store.placeErr = insufficient

	q, err := f.svc.Quote(context.Background(), singleReq())
	assert.ErrorIs(t, err, insufficient)
	assert.Equal(t, domain.RequestRejected, f.store.requests[q.RequestID].Status)
	assert.Empty(t, f.ledger.exposure)
	assert.Empty(t, f.pub.msgs)
}

func parlayReq() pricing.ParlayRequest {
	return pricing.ParlayRequest{
		UserID: "u1",
		Stake:  d("20"),
		Legs: []pricing.LegRequest{
			{SelectionID: "a", RequestedOdds: 150},
			{SelectionID: "b", RequestedOdds: -110},
		},
	}
}

func TestQuoteParlayAcceptPlacesWithoutExposure(t *testing.T) {
	f := newFixture()
	f.parlay.res = pricing.ParlayResult{
		Decision:        domain.DecisionAccept,
		CombinedOdds:    377,
		PotentialPayout: d("95.45"),
		Legs: []pricing.LegResult{
			{SelectionID: "a", RequestedOdds: 150, AcceptedOdds: 150, Decision: domain.DecisionAccept},
			{SelectionID: "b", RequestedOdds: -110, AcceptedOdds: -110, Decision: domain.DecisionAccept},
		},
	}

	q, err := f.svc.QuoteParlay(context.Background(), parlayReq())
	require.NoError(t, err)
	require.NotNil(t, q.Parlay)
	assert.Equal(t, domain.BetActive, f.store.parlays[q.ParlayID].Status)
	require.Len(t, q.Parlay.Legs, 2)
	assert.Equal(t, domain.LegPending, q.Parlay.Legs[0].Result)

	assert.Empty(t, f.ledger.exposure)
	assert.True(t, d("20").Equal(f.ledger.daily["u1"]))
	require.Len(t, f.pub.msgs, 1)
	ev := f.pub.msgs[0].(events.BetConfirmed)
	assert.Equal(t, "PARLAY", ev.Kind)
	assert.Equal(t, []string{"a", "b"}, ev.SelectionIDs)
}

func TestQuoteParlayRejectIsNotStored(t *testing.T) {
	f := newFixture()
	f.parlay.res = pricing.ParlayResult{Decision: domain.DecisionReject, RejectReason: "leg rejected"}

	q, err := f.svc.QuoteParlay(context.Background(), parlayReq())
	require.NoError(t, err)
	assert.Empty(t, q.ParlayID)
	assert.Empty(t, f.store.parlays)
}

func TestConfirmParlayCounter(t *testing.T) {
	f := newFixture()
	exp := clock.Add(2 * time.Minute)
	f.parlay.res = pricing.ParlayResult{
		Decision:        domain.DecisionCounter,
		CombinedOdds:    300,
		PotentialPayout: d("80"),
		ExpiresAt:       &exp,
		Legs: []pricing.LegResult{
			{SelectionID: "a", RequestedOdds: 150, AcceptedOdds: 130, Decision: domain.DecisionCounter},
			{SelectionID: "b", RequestedOdds: -110, AcceptedOdds: -110, Decision: domain.DecisionAccept},
		},
	}

	q, err := f.svc.QuoteParlay(context.Background(), parlayReq())
	require.NoError(t, err)
	assert.Nil(t, q.Parlay)
	assert.Equal(t, domain.BetPending, f.store.parlays[q.ParlayID].Status)

	_, err = f.svc.ConfirmParlay(context.Background(), q.ParlayID, "u2")
	assert.ErrorIs(t, err, ErrParlayNotFound)

	p, err := f.svc.ConfirmParlay(context.Background(), q.ParlayID, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.BetActive, p.Status)
	assert.Nil(t, p.ExpiresAt)
	assert.Equal(t, domain.BetActive, f.store.parlays[q.ParlayID].Status)
}

func TestConfirmParlayAfterExpiryVoids(t *testing.T) {
	f := newFixture()
	exp := clock.Add(2 * time.Minute)
	f.parlay.res = pricing.ParlayResult{
		Decision: domain.DecisionCounter, CombinedOdds: 300, PotentialPayout: d("80"), ExpiresAt: &exp,
		Legs: []pricing.LegResult{{SelectionID: "a", AcceptedOdds: 130}, {SelectionID: "b", AcceptedOdds: -110}},
	}
	q, err := f.svc.QuoteParlay(context.Background(), parlayReq())
	require.NoError(t, err)

	f.svc.now = func() time.Time { return exp.Add(time.Millisecond) }
	_, err = f.svc.ConfirmParlay(context.Background(), q.ParlayID, "u1")
	assert.ErrorIs(t, err, ErrCounterExpired)
	assert.Equal(t, domain.BetVoided, f.store.parlays[q.ParlayID].Status)
	assert.Empty(t, f.ledger.daily)
}

func counterFixture(t *testing.T) (*fixture, string) {
	f := newFixture()
	exp := clock.Add(2 * time.Minute)
	f.single.res = pricing.Result{Decision: domain.DecisionCounter, AcceptedOdds: 120, PotentialPayout: d("220"), ExpiresAt: &exp}
	q, err := f.svc.Quote(context.Background(), singleReq())
	require.NoError(t, err)
	return f, q.RequestID
}

func TestConfirmAfterMarketClosedRejectsRequest(t *testing.T) {
	f, id := counterFixture(t)
	f.store.closed["sel-1"] = true

	_, err := f.svc.Confirm(context.Background(), id, "u1")
	assert.ErrorIs(t, err, ErrMarketClosed)
	r := f.store.requests[id]
	assert.Equal(t, domain.RequestRejected, r.Status)
	assert.Equal(t, ReasonMarketClosed, r.Reason)
	assert.Empty(t, f.store.bets)
	assert.Empty(t, f.ledger.exposure)
	assert.Empty(t, f.pub.msgs)
}

func TestConfirmMarketClosingDuringPlacement(t *testing.T) {
	f, id := counterFixture(t)
	// evento fechado entre a checagem e o commit
	f.store.placeErr = ErrMarketClosed

	_, err := f.svc.Confirm(context.Background(), id, "u1")
	assert.ErrorIs(t, err, ErrMarketClosed)
	assert.Equal(t, domain.RequestRejected, f.store.requests[id].Status)
	assert.Empty(t, f.ledger.daily)
}

func TestConfirmParlayAfterMarketClosedRejects(t *testing.T) {
	f := newFixture()
	exp := clock.Add(2 * time.Minute)
	f.parlay.res = pricing.ParlayResult{
		Decision: domain.DecisionCounter, CombinedOdds: 300, PotentialPayout: d("80"), ExpiresAt: &exp,
		Legs: []pricing.LegResult{{SelectionID: "a", AcceptedOdds: 130}, {SelectionID: "b", AcceptedOdds: -110}},
	}
	q, err := f.svc.QuoteParlay(context.Background(), parlayReq())
	require.NoError(t, err)

	f.store.closed["b"] = true
	_, err = f.svc.ConfirmParlay(context.Background(), q.ParlayID, "u1")
	assert.ErrorIs(t, err, ErrMarketClosed)
	assert.Equal(t, domain.BetRejected, f.store.parlays[q.ParlayID].Status)
	assert.Empty(t, f.ledger.daily)
	assert.Empty(t, f.pub.msgs)
}
