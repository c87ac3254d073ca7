package events

import "time"

// Evento publicado no tópico "consensus_odds_updates" pelo feed de odds
type ConsensusOddsUpdate struct {
	SelectionID  string    `json:"selectionId"`
	AmericanOdds int       `json:"americanOdds"`
	ImpliedProb  float64   `json:"impliedProb"`
	LineMovement float64   `json:"lineMovement"`
	UpdatedAt    time.Time `json:"updatedAt"`
	Source       string    `json:"source,omitempty"`
}
