package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Decision é a resposta do motor de precificação para um pedido de odds
type Decision string

const (
	DecisionAccept  Decision = "ACCEPT"
	DecisionCounter Decision = "COUNTER"
	DecisionReject  Decision = "REJECT"
)

// RequestStatus é o ciclo de vida de um BetRequest
type RequestStatus string

const (
	RequestPending   RequestStatus = "PENDING" // contraproposta aguardando confirmação
	RequestConfirmed RequestStatus = "CONFIRMED"
	RequestRejected  RequestStatus = "REJECTED"
	RequestExpired   RequestStatus = "EXPIRED"
)

// Terminal indica que o pedido não pode mais mudar de estado
func (s RequestStatus) Terminal() bool {
	return s == RequestConfirmed || s == RequestRejected || s == RequestExpired
}

// BetStatus é o estado de uma aposta simples ou de um parlay
type BetStatus string

const (
	BetPending  BetStatus = "PENDING" // só parlays: contraproposta aguardando confirmação
	BetActive   BetStatus = "ACTIVE"
	BetWon      BetStatus = "WON"
	BetLost     BetStatus = "LOST"
	BetVoided   BetStatus = "VOIDED"
	BetRejected BetStatus = "REJECTED"
)

// Outcome é o resultado final de uma seleção
type Outcome string

const (
	OutcomeWon  Outcome = "WON"
	OutcomeLost Outcome = "LOST"
	OutcomeVoid Outcome = "VOID"
)

// Valid indica se o valor é um dos três resultados conhecidos
func (o Outcome) Valid() bool {
	return o == OutcomeWon || o == OutcomeLost || o == OutcomeVoid
}

// BetRequest registra uma negociação de odds
type BetRequest struct {
	ID            string
	UserID        string
	SelectionID   string
	RequestedOdds int
	Stake         decimal.Decimal
	Decision      Decision
	CounterOdds   *int
	ExpiresAt     *time.Time // só para COUNTER
	Status        RequestStatus
	Reason        string
	CreatedAt     time.Time
}

// Expired indica se a contraproposta venceu no instante informado
func (r BetRequest) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && now.After(*r.ExpiresAt)
}

// Bet é uma aposta simples confirmada
type Bet struct {
	ID              string
	UserID          string
	SelectionID     string
	RequestID       string
	Odds            int
	Stake           decimal.Decimal
	PotentialPayout decimal.Decimal
	Status          BetStatus
	CreatedAt       time.Time
}

// Liability é o passivo da plataforma enquanto a aposta estiver ativa
func (b Bet) Liability() decimal.Decimal {
	return b.PotentialPayout.Sub(b.Stake)
}

// Settlement é o registro de resolução de uma aposta
type Settlement struct {
	ID        string
	BetID     string
	Result    Outcome
	Payout    decimal.Decimal
	SettledAt time.Time
}
