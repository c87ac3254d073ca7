package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/masmi9/FourTenMarkets/internal/betting"
	"github.com/masmi9/FourTenMarkets/internal/domain"
)

type BetResponse struct {
	BetID           string          `json:"betId"`
	SelectionID     string          `json:"selectionId"`
	Odds            int             `json:"odds"`
	Stake           decimal.Decimal `json:"stake"`
	PotentialPayout decimal.Decimal `json:"potentialPayout"`
	Status          string          `json:"status"`
}

type QuoteResponse struct {
	RequestID       string           `json:"requestId"`
	Decision        string           `json:"decision"`
	AcceptedOdds    *int             `json:"acceptedOdds,omitempty"`
	PotentialPayout *decimal.Decimal `json:"potentialPayout,omitempty"`
	RejectReason    string           `json:"rejectReason,omitempty"`
	CounterReason   string           `json:"counterReason,omitempty"`
	ExpiresAt       *time.Time       `json:"expiresAt,omitempty"`
	Bet             *BetResponse     `json:"bet,omitempty"`
}

type LegResponse struct {
	SelectionID   string `json:"selectionId"`
	RequestedOdds int    `json:"requestedOdds"`
	AcceptedOdds  int    `json:"acceptedOdds,omitempty"`
	Decision      string `json:"decision"`
	Reason        string `json:"reason,omitempty"`
}

type ParlayQuoteResponse struct {
	ParlayID        string           `json:"parlayId,omitempty"`
	Decision        string           `json:"decision"`
	Legs            []LegResponse    `json:"legs"`
	CombinedOdds    *int             `json:"combinedOdds,omitempty"`
	PotentialPayout *decimal.Decimal `json:"potentialPayout,omitempty"`
	RejectReason    string           `json:"rejectReason,omitempty"`
	ExpiresAt       *time.Time       `json:"expiresAt,omitempty"`
	Status          string           `json:"status,omitempty"`
}

type ParlayResponse struct {
	ParlayID        string          `json:"parlayId"`
	Status          string          `json:"status"`
	CombinedOdds    int             `json:"combinedOdds"`
	Stake           decimal.Decimal `json:"stake"`
	PotentialPayout decimal.Decimal `json:"potentialPayout"`
}

type WalletResponse struct {
	UserID        string          `json:"userId"`
	WalletID      string          `json:"walletId"`
	Balance       decimal.Decimal `json:"balance"`
	LockedBalance decimal.Decimal `json:"lockedBalance"`
	Available     decimal.Decimal `json:"available"`
}

func NewBetResponse(b domain.Bet) *BetResponse {
	return &BetResponse{
		BetID:           b.ID,
		SelectionID:     b.SelectionID,
		Odds:            b.Odds,
		Stake:           b.Stake,
		PotentialPayout: b.PotentialPayout,
		Status:          string(b.Status),
	}
}

// NewQuoteResponse só expõe odds/payout quando a decisão não é REJECT
func NewQuoteResponse(q betting.Quote) QuoteResponse {
	res := q.Result
	out := QuoteResponse{
		RequestID:     q.RequestID,
		Decision:      string(res.Decision),
		RejectReason:  res.RejectReason,
		CounterReason: res.CounterReason,
		ExpiresAt:     res.ExpiresAt,
	}
	if res.Decision != domain.DecisionReject {
		odds, payout := res.AcceptedOdds, res.PotentialPayout
		out.AcceptedOdds, out.PotentialPayout = &odds, &payout
	}
	if q.Bet != nil {
		out.Bet = NewBetResponse(*q.Bet)
	}
	return out
}

func NewParlayQuoteResponse(q betting.ParlayQuote) ParlayQuoteResponse {
	res := q.Result
	out := ParlayQuoteResponse{
		ParlayID:     q.ParlayID,
		Decision:     string(res.Decision),
		Legs:         make([]LegResponse, 0, len(res.Legs)),
		RejectReason: res.RejectReason,
		ExpiresAt:    res.ExpiresAt,
	}
	for _, l := range res.Legs {
		out.Legs = append(out.Legs, LegResponse{
			SelectionID:   l.SelectionID,
			RequestedOdds: l.RequestedOdds,
			AcceptedOdds:  l.AcceptedOdds,
			Decision:      string(l.Decision),
			Reason:        l.Reason,
		})
	}
	if res.Decision != domain.DecisionReject {
		odds, payout := res.CombinedOdds, res.PotentialPayout
		out.CombinedOdds, out.PotentialPayout = &odds, &payout
	}
	if q.Parlay != nil {
		out.Status = string(q.Parlay.Status)
	}
	return out
}

func NewParlayResponse(p domain.Parlay) ParlayResponse {
	return ParlayResponse{
		ParlayID:        p.ID,
		Status:          string(p.Status),
		CombinedOdds:    p.CombinedOdds,
		Stake:           p.Stake,
		PotentialPayout: p.PotentialPayout,
	}
}

func NewWalletResponse(w domain.Wallet) WalletResponse {
	return WalletResponse{
		UserID:        w.UserID,
		WalletID:      w.ID,
		Balance:       w.Balance,
		LockedBalance: w.LockedBalance,
		Available:     w.Available(),
	}
}
