package codec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"truco-mesa/card"
	"truco-mesa/truco"
)

func TestDecodeCommand(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"call-envido","matchId":"m1","level":"real-envido","customFalta":5}`))
	require.NoError(t, err)
	require.Equal(t, CmdCallEnvido, msg.Type)
	require.Equal(t, "m1", msg.MatchID)
	require.Equal(t, "real-envido", msg.Level)
	require.Equal(t, 5, msg.CustomFalta)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte(`{`))
	require.Error(t, err)

	_, err = Decode([]byte(`{"matchId":"m1"}`))
	require.Error(t, err)
}

func TestEventCarriesCardLabel(t *testing.T) {
	c := card.Make(card.Sword, 1)
	msg := Event("m1", 7, truco.Event{Type: truco.EventCardPlayed, Seat: 2, Card: c}, nil)
	require.Equal(t, "card-played", msg.Type)
	require.Equal(t, uint64(7), msg.Seq)
	require.Equal(t, int(c), msg.Event.Card)
	require.NotEmpty(t, msg.Event.CardLabel)
}

func TestErrorKinds(t *testing.T) {
	cases := []struct {
		err  error
		kind string
	}{
		{truco.ValidationError("bad"), "validation"},
		{truco.IllegalStateError("bad"), "illegal-state"},
		{truco.AuthorizationError("bad"), "not-allowed"},
		{truco.ConflictError("bad"), "conflict"},
	}
	for _, tc := range cases {
		msg := Error("m1", 1, tc.err)
		require.Equal(t, MsgError, msg.Type)
		require.Equal(t, tc.kind, msg.Error.Kind)
	}
}

func TestLevelParsers(t *testing.T) {
	l, err := TrucoLevel("retruco")
	require.NoError(t, err)
	require.Equal(t, truco.LevelRetruco, l)
	_, err = TrucoLevel("quiero")
	require.Error(t, err)

	e, err := EnvidoLevel("falta-envido")
	require.NoError(t, err)
	require.Equal(t, truco.FaltaEnvido, e)
	_, err = EnvidoLevel("")
	require.Error(t, err)

	f, err := FlorResponse("con-flor-envido")
	require.NoError(t, err)
	require.Equal(t, truco.FlorRaiseConEnvido, f)
	_, err = FlorResponse("maybe")
	require.Error(t, err)
}
