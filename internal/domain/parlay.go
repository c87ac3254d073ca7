package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LegResult é o resultado individual de uma perna do parlay
type LegResult string

const (
	LegPending LegResult = "PENDING"
	LegWon     LegResult = "WON"
	LegLost    LegResult = "LOST"
	LegVoid    LegResult = "VOID"
)

// LegResultFor converte o resultado da seleção no resultado da perna
func LegResultFor(o Outcome) LegResult {
	switch o {
	case OutcomeWon:
		return LegWon
	case OutcomeLost:
		return LegLost
	default:
		return LegVoid
	}
}

// Parlay é uma aposta múltipla
type Parlay struct {
	ID              string
	UserID          string
	Stake           decimal.Decimal
	CombinedOdds    int
	PotentialPayout decimal.Decimal
	Status          BetStatus
	ExpiresAt       *time.Time
	Legs            []ParlayLeg
	CreatedAt       time.Time
}

// ParlayLeg é uma seleção dentro do parlay
type ParlayLeg struct {
	ID            string
	ParlayID      string
	SelectionID   string
	RequestedOdds int
	AcceptedOdds  int
	Result        LegResult
}

// Resolved indica que nenhuma perna está pendente
func (p Parlay) Resolved() bool {
	for _, l := range p.Legs {
		if l.Result == LegPending {
			return false
		}
	}
	return true
}
