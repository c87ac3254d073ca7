package topics

const (
	// Odds de consenso vindas do feed
	ConsensusOddsUpdates = "consensus_odds_updates"

	// Apostas
	BetConfirmed  = "bet_confirmed"
	BetSettled    = "bet_settled"
	ParlaySettled = "parlay_settled"

	// DLQ do processor de consenso
	ConsensusOddsDLQ = "consensus_odds_updates_dlq"
)
