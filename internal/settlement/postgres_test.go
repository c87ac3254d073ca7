package settlement

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvedParlaysSkipsPendingLegs(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("AND NOT EXISTS (SELECT 1 FROM parlay_legs l WHERE l.parlay_id = p.id AND l.result = 'PENDING')")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("p-1").AddRow("p-2"))

	ids, err := NewPostgresStore(db, nil).ResolvedParlays(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"p-1", "p-2"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}
