package autosettle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masmi9/FourTenMarkets/internal/domain"
	"github.com/masmi9/FourTenMarkets/internal/scorefeed"
)

func nbaEvent() domain.Event {
	return domain.Event{
		ID:         "ev1",
		ExternalID: "ext-1",
		Sport:      "basketball_nba",
		HomeTeam:   "Boston Celtics",
		AwayTeam:   "New York Knicks",
		Markets: []domain.Market{
			{ID: "m-ml", Type: domain.MarketMoneyline, Selections: []domain.Selection{
				{ID: "ml-home", Name: "Boston Celtics"},
				{ID: "ml-away", Name: "New York Knicks"},
			}},
			{ID: "m-sp", Type: domain.MarketSpread, Selections: []domain.Selection{
				{ID: "sp-home", Name: "Boston Celtics", Line: "-10"},
				{ID: "sp-away", Name: "New York Knicks", Line: "+10"},
				{ID: "sp-away-half", Name: "New York Knicks +9.5", Line: "+9.5"},
			}},
			{ID: "m-tot", Type: domain.MarketTotal, Selections: []domain.Selection{
				{ID: "over", Name: "Over 185.5", Line: "185.5"},
				{ID: "under", Name: "Under 185.5", Line: "185.5"},
				{ID: "over-push", Name: "Over", Line: "190"},
				{ID: "no-line", Name: "Over"},
			}},
		},
	}
}

func TestDeriveOutcomes(t *testing.T) {
	got := deriveOutcomes(nbaEvent(), 100, 90)

	want := map[string]domain.Outcome{
		"ml-home":      domain.OutcomeWon,
		"ml-away":      domain.OutcomeLost,
		"sp-home":      domain.OutcomeVoid, // 100-10 == 90
		"sp-away":      domain.OutcomeVoid,
		"sp-away-half": domain.OutcomeLost,
		"over":         domain.OutcomeWon,
		"under":        domain.OutcomeLost,
		"over-push":    domain.OutcomeVoid,
	}
	assert.Equal(t, want, got)
}

func TestDeriveOutcomesMoneylineTie(t *testing.T) {
	ev := domain.Event{
		HomeTeam: "Arsenal", AwayTeam: "Chelsea",
		Markets: []domain.Market{{Type: domain.MarketMoneyline, Selections: []domain.Selection{
			{ID: "h", Name: "Arsenal"},
			{ID: "a", Name: "Chelsea"},
			{ID: "d", Name: "Draw"},
		}}},
	}
	got := deriveOutcomes(ev, 1, 1)
	assert.Equal(t, domain.OutcomeVoid, got["h"])
	assert.Equal(t, domain.OutcomeVoid, got["a"])
	assert.Equal(t, domain.OutcomeWon, got["d"])
}

func TestMatchScore(t *testing.T) {
	ev := nbaEvent()
	scores := []scorefeed.Score{
		{ID: "other", HomeTeam: "Miami Heat", AwayTeam: "Orlando Magic"},
		{ID: "zzz", HomeTeam: "new york knicks", AwayTeam: "Boston  Celtics"},
	}

	s, ok := matchScore(ev, scores)
	require.True(t, ok, "falls back to the unordered team pair")
	assert.Equal(t, "zzz", s.ID)

	scores = append(scores, scorefeed.Score{ID: "ext-1", HomeTeam: "X", AwayTeam: "Y"})
	s, ok = matchScore(ev, scores)
	require.True(t, ok)
	assert.Equal(t, "ext-1", s.ID, "external id wins over team names")

	_, ok = matchScore(ev, scores[:1])
	assert.False(t, ok)
}

func TestFinalScore(t *testing.T) {
	ev := nbaEvent()
	tests := []struct {
		name    string
		score   scorefeed.Score
		home    float64
		away    float64
		wantErr error
	}{
		{
			name: "completed",
			score: scorefeed.Score{Completed: true, Scores: []scorefeed.TeamScore{
				{Name: "New York Knicks", Score: "90"}, {Name: "Boston Celtics", Score: "100"},
			}},
			home: 100, away: 90,
		},
		{
			name:    "not completed",
			score:   scorefeed.Score{Completed: false},
			wantErr: errNotCompleted,
		},
		{
			name: "one team missing",
			score: scorefeed.Score{Completed: true, Scores: []scorefeed.TeamScore{
				{Name: "Boston Celtics", Score: "100"},
			}},
			wantErr: errScoresMissing,
		},
		{
			name: "not numeric",
			score: scorefeed.Score{Completed: true, Scores: []scorefeed.TeamScore{
				{Name: "Boston Celtics", Score: "100"}, {Name: "New York Knicks", Score: "N/A"},
			}},
			wantErr: errScoreInvalid,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			home, away, err := finalScore(ev, tt.score)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.home, home)
			assert.Equal(t, tt.away, away)
		})
	}
}

func TestNormalizeTeam(t *testing.T) {
	assert.Equal(t, "st louis blues", normalizeTeam("  St. Louis   Blues "))
	assert.Equal(t, teamPair("A", "B"), teamPair("b", "a"))
}
