package stats

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) *SQLiteService {
	t.Helper()
	svc, err := NewSQLiteService(":memory:", zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func sampleMatch(id string, winnerTeam int, finishedAt time.Time) MatchSummary {
	return MatchSummary{
		MatchID:     id,
		FinishedAt:  finishedAt,
		TargetScore: 30,
		TeamSize:    1,
		WithFlor:    true,
		WinnerTeam:  winnerTeam,
		Team1Score:  30,
		Team2Score:  12,
		Rounds:      14,
		Players: []PlayerResult{
			{PlayerID: "p1", Name: "Ana", Seat: 0, Team: 1, Won: winnerTeam == 1},
			{PlayerID: "p2", Name: "Beto", Seat: 1, Team: 2, Won: winnerTeam == 2},
		},
	}
}

func TestRecordAndListRecent(t *testing.T) {
	svc := newTestService(t)

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	svc.RecordMatch(sampleMatch("m1", 1, base))
	svc.RecordMatch(sampleMatch("m2", 2, base.Add(time.Hour)))

	items, err := svc.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "m2", items[0].MatchID)
	require.Equal(t, "m1", items[1].MatchID)
	require.Len(t, items[0].Players, 2)
	require.Equal(t, "Ana", items[0].Players[0].Name)
	require.True(t, items[0].WithFlor)
	require.Equal(t, base.Add(time.Hour), items[0].FinishedAt)
}

func TestRecordMatchIsIdempotent(t *testing.T) {
	svc := newTestService(t)

	m := sampleMatch("m1", 1, time.Now().UTC())
	svc.RecordMatch(m)
	svc.RecordMatch(m)

	items, err := svc.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Len(t, items[0].Players, 2)
}

func TestRankingCountsWinsPerPlayer(t *testing.T) {
	svc := newTestService(t)

	base := time.Now().UTC()
	svc.RecordMatch(sampleMatch("m1", 1, base))
	svc.RecordMatch(sampleMatch("m2", 1, base.Add(time.Minute)))
	svc.RecordMatch(sampleMatch("m3", 2, base.Add(2*time.Minute)))

	entries, err := svc.Ranking(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "p1", entries[0].PlayerID)
	require.Equal(t, 3, entries[0].Matches)
	require.Equal(t, 2, entries[0].Wins)
	require.Equal(t, "p2", entries[1].PlayerID)
	require.Equal(t, 1, entries[1].Wins)
}

func TestRankingExcludesBots(t *testing.T) {
	svc := newTestService(t)

	m := sampleMatch("m1", 1, time.Now().UTC())
	m.Players[1].Bot = true
	m.Players[1].PlayerID = ""
	svc.RecordMatch(m)

	entries, err := svc.Ranking(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "p1", entries[0].PlayerID)
}

func TestStatsHTTPEndpoints(t *testing.T) {
	svc := newTestService(t)
	svc.RecordMatch(sampleMatch("m1", 1, time.Now().UTC()))

	mux := http.NewServeMux()
	NewHTTPHandler(svc).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/stats/recent?limit=5")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	resp2, err := http.Get(srv.URL + "/api/stats/ranking")
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)

	resp3, err := http.Post(srv.URL+"/api/stats/recent", "application/json", nil)
	require.NoError(t, err)
	defer resp3.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp3.StatusCode)
}
