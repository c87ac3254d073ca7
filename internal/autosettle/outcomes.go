package autosettle

import (
	"errors"
	"strconv"
	"strings"
	"unicode"

	"github.com/masmi9/FourTenMarkets/internal/domain"
	"github.com/masmi9/FourTenMarkets/internal/scorefeed"
)

var (
	errNotCompleted  = errors.New("game not completed")
	errScoresMissing = errors.New("scores missing for both teams")
	errScoreInvalid  = errors.New("score is not numeric")
)

// normalizeTeam deixa só letras e dígitos em minúsculas, separados por um espaço
func normalizeTeam(name string) string {
	var b strings.Builder
	space := false
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteRune(r)
			space = false
		default:
			space = true
		}
	}
	return b.String()
}

// teamPair independe de quem é mandante
func teamPair(a, b string) string {
	a, b = normalizeTeam(a), normalizeTeam(b)
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

// matchScore procura o jogo do evento: primeiro pelo id externo, depois pelo par de times
func matchScore(ev domain.Event, scores []scorefeed.Score) (scorefeed.Score, bool) {
	if ev.ExternalID != "" {
		for _, s := range scores {
			if s.ID == ev.ExternalID {
				return s, true
			}
		}
	}
	pair := teamPair(ev.HomeTeam, ev.AwayTeam)
	for _, s := range scores {
		if teamPair(s.HomeTeam, s.AwayTeam) == pair {
			return s, true
		}
	}
	return scorefeed.Score{}, false
}

// finalScore devolve o placar de mandante e visitante do evento
func finalScore(ev domain.Event, s scorefeed.Score) (home, away float64, err error) {
	if !s.Completed {
		return 0, 0, errNotCompleted
	}
	byTeam := make(map[string]string, len(s.Scores))
	for _, ts := range s.Scores {
		byTeam[normalizeTeam(ts.Name)] = ts.Score
	}
	rawHome, okHome := byTeam[normalizeTeam(ev.HomeTeam)]
	rawAway, okAway := byTeam[normalizeTeam(ev.AwayTeam)]
	if !okHome || !okAway {
		// feed pode grafar o nome diferente do evento; cai para os nomes do próprio jogo
		rawHome, okHome = byTeam[normalizeTeam(s.HomeTeam)]
		rawAway, okAway = byTeam[normalizeTeam(s.AwayTeam)]
		if !okHome || !okAway {
			return 0, 0, errScoresMissing
		}
	}
	if home, err = strconv.ParseFloat(strings.TrimSpace(rawHome), 64); err != nil {
		return 0, 0, errScoreInvalid
	}
	if away, err = strconv.ParseFloat(strings.TrimSpace(rawAway), 64); err != nil {
		return 0, 0, errScoreInvalid
	}
	return home, away, nil
}

// deriveOutcomes resolve cada seleção que dá para decidir com o placar final.
// Seleções que não batem com nenhuma regra ficam de fora do mapa.
func deriveOutcomes(ev domain.Event, home, away float64) map[string]domain.Outcome {
	out := map[string]domain.Outcome{}
	for _, m := range ev.Markets {
		for _, sel := range m.Selections {
			var (
				res domain.Outcome
				ok  bool
			)
			switch m.Type {
			case domain.MarketMoneyline:
				res, ok = moneyline(ev, sel, home, away)
			case domain.MarketSpread:
				res, ok = spread(ev, sel, home, away)
			case domain.MarketTotal:
				res, ok = total(sel, home+away)
			}
			if ok {
				out[sel.ID] = res
			}
		}
	}
	return out
}

// side diz se a seleção é do mandante (+1), do visitante (-1) ou nenhum (0)
func side(ev domain.Event, name string) int {
	n := normalizeTeam(name)
	h, a := normalizeTeam(ev.HomeTeam), normalizeTeam(ev.AwayTeam)
	switch {
	case n == h || (h != "" && strings.HasPrefix(n, h+" ")):
		return 1
	case n == a || (a != "" && strings.HasPrefix(n, a+" ")):
		return -1
	}
	return 0
}

func compare(a, b float64) domain.Outcome {
	switch {
	case a > b:
		return domain.OutcomeWon
	case a < b:
		return domain.OutcomeLost
	}
	return domain.OutcomeVoid
}

func moneyline(ev domain.Event, sel domain.Selection, home, away float64) (domain.Outcome, bool) {
	switch normalizeTeam(sel.Name) {
	case "draw", "tie":
		if home == away {
			return domain.OutcomeWon, true
		}
		return domain.OutcomeLost, true
	}
	switch side(ev, sel.Name) {
	case 1:
		return compare(home, away), true
	case -1:
		return compare(away, home), true
	}
	return "", false
}

func spread(ev domain.Event, sel domain.Selection, home, away float64) (domain.Outcome, bool) {
	line, ok := sel.ParseLine()
	if !ok {
		return "", false
	}
	switch side(ev, sel.Name) {
	case 1:
		return compare(home+line, away), true
	case -1:
		return compare(away+line, home), true
	}
	return "", false
}

func total(sel domain.Selection, points float64) (domain.Outcome, bool) {
	line, ok := sel.ParseLine()
	if !ok {
		return "", false
	}
	name := normalizeTeam(sel.Name)
	switch {
	case strings.HasPrefix(name, "over"):
		return compare(points, line), true
	case strings.HasPrefix(name, "under"):
		return compare(line, points), true
	}
	return "", false
}
