package events

import "time"

// Evento publicado no tópico "bet_settled" para cada aposta simples resolvida
type BetSettled struct {
	BetID       string    `json:"betId"`
	UserID      string    `json:"userId"`
	SelectionID string    `json:"selectionId"`
	EventID     string    `json:"eventId"`
	Result      string    `json:"result"` // "WON" | "LOST" | "VOID"
	Payout      string    `json:"payout"`
	Ts          time.Time `json:"ts"`
}

// Evento publicado no tópico "parlay_settled"
type ParlaySettled struct {
	ParlayID string    `json:"parlayId"`
	UserID   string    `json:"userId"`
	Status   string    `json:"status"` // "WON" | "LOST" | "VOIDED"
	Payout   string    `json:"payout"`
	Ts       time.Time `json:"ts"`
}
