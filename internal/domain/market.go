package domain

import (
	"strconv"
	"strings"
	"time"
)

// EventStatus representa o ciclo de vida de um evento esportivo
type EventStatus string

const (
	EventUpcoming  EventStatus = "UPCOMING"
	EventLive      EventStatus = "LIVE"
	EventSettled   EventStatus = "SETTLED"
	EventCancelled EventStatus = "CANCELLED"
)

// MarketType identifica a regra usada para resolver o mercado
type MarketType string

const (
	MarketMoneyline MarketType = "MONEYLINE"
	MarketSpread    MarketType = "SPREAD"
	MarketTotal     MarketType = "TOTAL"
)

// MarketStatus indica se o mercado ainda aceita apostas
type MarketStatus string

const (
	MarketOpen   MarketStatus = "OPEN"
	MarketClosed MarketStatus = "CLOSED"
)

// Event é uma partida com seus mercados
type Event struct {
	ID         string
	ExternalID string // id no feed de placares
	Sport      string // ex: "basketball_nba"
	HomeTeam   string
	AwayTeam   string
	StartTime  time.Time
	Status     EventStatus
	Markets    []Market
}

// Market agrupa seleções de um mesmo tipo de aposta dentro de um evento
type Market struct {
	ID         string
	EventID    string
	Type       MarketType
	Status     MarketStatus
	Selections []Selection
}

// Selection é um resultado apostável (um time, over/under de uma linha)
type Selection struct {
	ID       string
	MarketID string
	Name     string
	Line     string // opcional, ex: "+5.5"
}

// ParseLine converte a linha textual ("+5.5", "-3", "220.5") em número.
// Retorna false quando a seleção não tem linha ou ela é inválida.
func (s Selection) ParseLine() (float64, bool) {
	raw := strings.TrimSpace(s.Line)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimPrefix(raw, "+"), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ConsensusOdds é o preço justo atual de uma seleção, vindo do feed de odds
type ConsensusOdds struct {
	SelectionID  string    `json:"selectionId"`
	AmericanOdds int       `json:"americanOdds"`
	ImpliedProb  float64   `json:"impliedProb"`
	LineMovement float64   `json:"lineMovement"` // variação relativa desde a última atualização
	UpdatedAt    time.Time `json:"updatedAt"`
}
