package events

import "time"

// Evento emitido quando uma aposta simples ou parlay é colocada (stake travado).
type BetConfirmed struct {
	BetID           string    `json:"betId"`
	Kind            string    `json:"kind"` // "SINGLE" | "PARLAY"
	UserID          string    `json:"userId"`
	SelectionIDs    []string  `json:"selectionIds"`
	Odds            int       `json:"odds"`
	Stake           string    `json:"stake"`
	PotentialPayout string    `json:"potentialPayout"`
	Ts              time.Time `json:"ts"`
}
