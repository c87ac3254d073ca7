package scorefeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scoresJSON = `[
  {"id":"g1","sport_key":"basketball_nba","commence_time":"2026-10-16T23:00:00Z","completed":true,
   "home_team":"Boston Celtics","away_team":"New York Knicks",
   "scores":[{"name":"Boston Celtics","score":"100"},{"name":"New York Knicks","score":"90"}]},
  {"id":"g2","sport_key":"basketball_nba","commence_time":"2026-10-17T23:00:00Z","completed":false,
   "home_team":"Miami Heat","away_team":"Orlando Magic","scores":null}
]`

func TestScoresParsesFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v4/sports/basketball_nba/scores", r.URL.Path)
		assert.Equal(t, "k", r.URL.Query().Get("apiKey"))
		assert.Equal(t, "3", r.URL.Query().Get("daysFrom"))
		_, _ = w.Write([]byte(scoresJSON))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", 0)
	got, err := c.Scores(context.Background(), "basketball_nba")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.True(t, got[0].Completed)
	assert.Equal(t, "Boston Celtics", got[0].HomeTeam)
	require.Len(t, got[0].Scores, 2)
	assert.Equal(t, "100", got[0].Scores[0].Score)
	assert.False(t, got[1].Completed)
	assert.Nil(t, got[1].Scores)
	assert.Equal(t, time.Date(2026, 10, 17, 23, 0, 0, 0, time.UTC), got[1].CommenceTime.UTC())
}

func TestScoresRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "boom", http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", 0)
	c.RetryDelay = time.Millisecond
	got, err := c.Scores(context.Background(), "nfl")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, int32(3), calls.Load())
}

func TestScoresDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", 0)
	c.RetryDelay = time.Millisecond
	_, err := c.Scores(context.Background(), "nfl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 401")
	assert.Equal(t, int32(1), calls.Load())
}
