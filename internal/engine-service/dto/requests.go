package dto

import (
	"github.com/shopspring/decimal"

	"github.com/masmi9/FourTenMarkets/internal/domain"
)

type QuoteRequest struct {
	UserID        string          `json:"userId"`
	SelectionID   string          `json:"selectionId"`
	RequestedOdds int             `json:"requestedOdds"` // americana, ex: +150 / -110
	Stake         decimal.Decimal `json:"stake"`
}

type ConfirmRequest struct {
	UserID string `json:"userId"`
}

type ParlayLegRequest struct {
	SelectionID   string `json:"selectionId"`
	RequestedOdds int    `json:"requestedOdds"`
}

type ParlayQuoteRequest struct {
	UserID string             `json:"userId"`
	Stake  decimal.Decimal    `json:"stake"`
	Legs   []ParlayLegRequest `json:"legs"`
}

type WalletMoveRequest struct {
	UserID      string          `json:"userId"`
	Amount      decimal.Decimal `json:"amount"`
	ExternalRef string          `json:"externalRef,omitempty"` // opcional p/ rastreio
}

// SettleRequest: selectionId -> WON | LOST | VOID
type SettleRequest struct {
	Outcomes map[string]domain.Outcome `json:"outcomes"`
}
