package lobby

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func discard(string, []byte) {}

func newTestLobby(t *testing.T) *Lobby {
	t.Helper()
	l := New(nil, zap.NewNop().Sugar())
	t.Cleanup(l.Close)
	return l
}

func TestCreateAndGet(t *testing.T) {
	l := newTestLobby(t)

	tbl, err := l.CreateMatch(MatchSettings{TeamSize: 2, WithFlor: true}, discard)
	require.NoError(t, err)
	require.NotEmpty(t, tbl.ID)

	got, ok := l.Get(tbl.ID)
	require.True(t, ok)
	require.Same(t, tbl, got)

	_, ok = l.Get("nope")
	require.False(t, ok)
}

func TestListReportsCapacity(t *testing.T) {
	l := newTestLobby(t)

	_, err := l.CreateMatch(MatchSettings{TeamSize: 1}, discard)
	require.NoError(t, err)
	_, err = l.CreateMatch(MatchSettings{TeamSize: 3, WithFlor: true}, discard)
	require.NoError(t, err)

	infos := l.List()
	require.Len(t, infos, 2)
	capacities := []int{infos[0].Capacity, infos[1].Capacity}
	require.ElementsMatch(t, []int{2, 6}, capacities)
	for _, info := range infos {
		require.Equal(t, "waiting", info.Status)
	}
}

func TestDefaultTeamSize(t *testing.T) {
	l := newTestLobby(t)

	tbl, err := l.CreateMatch(MatchSettings{}, discard)
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Info().Capacity)
}

func TestCloseStopsTables(t *testing.T) {
	l := newTestLobby(t)

	tbl, err := l.CreateMatch(MatchSettings{TeamSize: 1}, discard)
	require.NoError(t, err)

	l.Close()
	require.True(t, tbl.IsClosed())
	require.Empty(t, l.List())
}

func TestEnvDuration(t *testing.T) {
	require.Equal(t, 5*time.Second, envDurationOrDefault("NO_SUCH_ENV_VAR", 5*time.Second))
	t.Setenv("LOBBY_TEST_TTL", "2m")
	require.Equal(t, 2*time.Minute, envDurationOrDefault("LOBBY_TEST_TTL", time.Second))
	t.Setenv("LOBBY_TEST_TTL", "45")
	require.Equal(t, 45*time.Second, envDurationOrDefault("LOBBY_TEST_TTL", time.Second))
	t.Setenv("LOBBY_TEST_TTL", "bogus")
	require.Equal(t, time.Second, envDurationOrDefault("LOBBY_TEST_TTL", time.Second))
}
