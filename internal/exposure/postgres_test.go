package exposure

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresExposureDefaultsToZero(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT exposure FROM positions")).
		WithArgs("sel-1").
		WillReturnError(sql.ErrNoRows)

	v, err := NewPostgresStore(db).Exposure(context.Background(), "sel-1")
	require.NoError(t, err)
	assert.True(t, v.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAddExposureReturnsTotal(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO positions")).
		WithArgs("sel-1", d("33.33")).
		WillReturnRows(sqlmock.NewRows([]string{"exposure"}).AddRow("133.33"))

	total, err := NewPostgresStore(db).AddExposure(context.Background(), "sel-1", d("33.33"))
	require.NoError(t, err)
	assert.True(t, d("133.33").Equal(total))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDailyStakeUsesUTCDay(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// 22h em São Paulo já é o dia seguinte em UTC
	loc := time.FixedZone("BRT", -3*60*60)
	day := time.Date(2026, 3, 10, 22, 0, 0, 0, loc)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT amount FROM daily_stakes")).
		WithArgs("u1", "2026-03-11").
		WillReturnRows(sqlmock.NewRows([]string{"amount"}).AddRow("75.5"))

	v, err := NewPostgresStore(db).DailyStake(context.Background(), "u1", day)
	require.NoError(t, err)
	assert.True(t, d("75.5").Equal(v))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresConsensusAbsent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM consensus_odds")).
		WithArgs("sel-9").
		WillReturnRows(sqlmock.NewRows([]string{"american_odds", "implied_prob", "line_movement", "updated_at"}))

	_, ok, err := NewPostgresStore(db).ConsensusOdds(context.Background(), "sel-9")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
