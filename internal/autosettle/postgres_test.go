package autosettle

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masmi9/FourTenMarkets/internal/domain"
)

func TestOverdueEventsLoadsMarkets(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cutoff := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	start := cutoff.Add(-time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("FROM events")).
		WithArgs(cutoff).
		WillReturnRows(sqlmock.NewRows([]string{"id", "external_id", "sport", "home_team", "away_team", "start_time", "status"}).
			AddRow("ev1", "ext-1", "basketball_nba", "Boston Celtics", "New York Knicks", start, "LIVE"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM markets m")).
		WithArgs("ev1").
		WillReturnRows(sqlmock.NewRows([]string{"m.id", "m.type", "m.status", "s.id", "s.name", "s.line"}).
			AddRow("m1", "MONEYLINE", "OPEN", "s1", "Boston Celtics", "").
			AddRow("m1", "MONEYLINE", "OPEN", "s2", "New York Knicks", "").
			AddRow("m2", "TOTAL", "OPEN", "s3", "Over", "185.5"))

	evs, err := NewPostgresEvents(db).OverdueEvents(context.Background(), cutoff)
	require.NoError(t, err)
	require.Len(t, evs, 1)

	ev := evs[0]
	assert.Equal(t, domain.EventLive, ev.Status)
	assert.Equal(t, "ext-1", ev.ExternalID)
	require.Len(t, ev.Markets, 2)
	assert.Equal(t, domain.MarketMoneyline, ev.Markets[0].Type)
	assert.Len(t, ev.Markets[0].Selections, 2)
	assert.Equal(t, "185.5", ev.Markets[1].Selections[0].Line)
	assert.Equal(t, "m2", ev.Markets[1].Selections[0].MarketID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
