package autosettle

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/masmi9/FourTenMarkets/internal/domain"
)

type PostgresEvents struct {
	db *sql.DB
}

func NewPostgresEvents(db *sql.DB) *PostgresEvents {
	return &PostgresEvents{db: db}
}

// OverdueEvents: eventos ainda abertos que começaram antes de startedBefore
func (p *PostgresEvents) OverdueEvents(ctx context.Context, startedBefore time.Time) ([]domain.Event, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, COALESCE(external_id, ''), sport, home_team, away_team, start_time, status
		FROM events
		WHERE status IN ('UPCOMING', 'LIVE') AND start_time < $1
		ORDER BY start_time
	`, startedBefore)
	if err != nil {
		return nil, fmt.Errorf("select overdue events: %w", err)
	}

	var evs []domain.Event
	for rows.Next() {
		var ev domain.Event
		var status string
		if err := rows.Scan(&ev.ID, &ev.ExternalID, &ev.Sport, &ev.HomeTeam, &ev.AwayTeam, &ev.StartTime, &status); err != nil {
			rows.Close()
			return nil, err
		}
		ev.Status = domain.EventStatus(status)
		evs = append(evs, ev)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range evs {
		markets, err := p.markets(ctx, evs[i].ID)
		if err != nil {
			return nil, err
		}
		evs[i].Markets = markets
	}
	return evs, nil
}

func (p *PostgresEvents) markets(ctx context.Context, eventID string) ([]domain.Market, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT m.id, m.type, m.status, s.id, s.name, COALESCE(s.line, '')
		FROM markets m
		JOIN selections s ON s.market_id = m.id
		WHERE m.event_id = $1
		ORDER BY m.id, s.id
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("select markets for %s: %w", eventID, err)
	}
	defer rows.Close()

	var out []domain.Market
	for rows.Next() {
		var (
			marketID, mType, mStatus string
			sel                      domain.Selection
		)
		if err := rows.Scan(&marketID, &mType, &mStatus, &sel.ID, &sel.Name, &sel.Line); err != nil {
			return nil, err
		}
		sel.MarketID = marketID
		if n := len(out); n == 0 || out[n-1].ID != marketID {
			out = append(out, domain.Market{
				ID:      marketID,
				EventID: eventID,
				Type:    domain.MarketType(mType),
				Status:  domain.MarketStatus(mStatus),
			})
		}
		last := &out[len(out)-1]
		last.Selections = append(last.Selections, sel)
	}
	return out, rows.Err()
}
