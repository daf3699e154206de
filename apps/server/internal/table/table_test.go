package table

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"truco-mesa/apps/server/internal/codec"
)

type frameSink struct {
	mu     sync.Mutex
	frames map[string][]codec.ServerMessage
}

func newFrameSink() *frameSink {
	return &frameSink{frames: make(map[string][]codec.ServerMessage)}
}

func (s *frameSink) send(playerID string, data []byte) {
	var msg codec.ServerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	s.mu.Lock()
	s.frames[playerID] = append(s.frames[playerID], msg)
	s.mu.Unlock()
}

func (s *frameSink) find(playerID, msgType string) (codec.ServerMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.frames[playerID] {
		if f.Type == msgType {
			return f, true
		}
	}
	return codec.ServerMessage{}, false
}

func (s *frameSink) waitFor(t *testing.T, playerID, msgType string, timeout time.Duration) codec.ServerMessage {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if f, ok := s.find(playerID, msgType); ok {
			return f
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("no %q frame for %s within %s", msgType, playerID, timeout)
	return codec.ServerMessage{}
}

func newTestTable(t *testing.T, sink *frameSink) *Table {
	t.Helper()
	tbl, err := New("match-1", Config{TeamSize: 1, WithFlor: true}, sink.send, nil, zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(tbl.Stop)
	return tbl
}

func join(t *testing.T, tbl *Table, playerID, name string) {
	t.Helper()
	require.NoError(t, tbl.SubmitEvent(Event{Type: EventJoin, PlayerID: playerID, Name: name}))
}

func TestJoinAndStartBroadcasts(t *testing.T) {
	sink := newFrameSink()
	tbl := newTestTable(t, sink)

	join(t, tbl, "p1", "Ana")
	join(t, tbl, "p2", "Beto")

	err := tbl.SubmitEvent(Event{
		Type: EventCommand, PlayerID: "p1",
		Msg: codec.ClientMessage{Type: codec.CmdStartMatch},
	})
	require.NoError(t, err)

	started := sink.waitFor(t, "p1", "match-started", time.Second)
	require.NotNil(t, started.Snapshot)
	require.Equal(t, "playing", started.Snapshot.Status)
	require.Equal(t, 0, started.Snapshot.YourSeat)

	startedP2 := sink.waitFor(t, "p2", "match-started", time.Second)
	require.Equal(t, 1, startedP2.Snapshot.YourSeat)
}

func TestSnapshotsAreRedactedPerSeat(t *testing.T) {
	sink := newFrameSink()
	tbl := newTestTable(t, sink)

	join(t, tbl, "p1", "Ana")
	join(t, tbl, "p2", "Beto")
	require.NoError(t, tbl.SubmitEvent(Event{
		Type: EventCommand, PlayerID: "p1",
		Msg: codec.ClientMessage{Type: codec.CmdStartMatch},
	}))

	f1 := sink.waitFor(t, "p1", "turn-changed", time.Second)
	f2 := sink.waitFor(t, "p2", "turn-changed", time.Second)
	require.Len(t, f1.Snapshot.YourHand, 3)
	require.Len(t, f2.Snapshot.YourHand, 3)
	require.NotEqual(t, f1.Snapshot.YourHand, f2.Snapshot.YourHand)
}

func TestOnlyHostStarts(t *testing.T) {
	sink := newFrameSink()
	tbl := newTestTable(t, sink)

	join(t, tbl, "p1", "Ana")
	join(t, tbl, "p2", "Beto")

	err := tbl.SubmitEvent(Event{
		Type: EventCommand, PlayerID: "p2",
		Msg: codec.ClientMessage{Type: codec.CmdStartMatch},
	})
	require.Error(t, err)
}

func TestChatRelay(t *testing.T) {
	sink := newFrameSink()
	tbl := newTestTable(t, sink)

	join(t, tbl, "p1", "Ana")
	join(t, tbl, "p2", "Beto")

	require.NoError(t, tbl.SubmitEvent(Event{
		Type: EventChat, PlayerID: "p1",
		Msg: codec.ClientMessage{Type: codec.CmdChat, Text: "vamos"},
	}))

	f := sink.waitFor(t, "p2", codec.MsgChat, time.Second)
	require.Equal(t, "Ana", f.Chat.Name)
	require.Equal(t, "vamos", f.Chat.Text)
	require.Nil(t, f.Snapshot)
}

func TestResyncSendsSnapshot(t *testing.T) {
	sink := newFrameSink()
	tbl := newTestTable(t, sink)

	join(t, tbl, "p1", "Ana")
	require.NoError(t, tbl.SubmitEvent(Event{Type: EventResync, PlayerID: "p1"}))

	f := sink.waitFor(t, "p1", "state-updated", time.Second)
	require.NotNil(t, f.Snapshot)
	require.Equal(t, "waiting", f.Snapshot.Status)
}

func TestDisconnectBroadcasts(t *testing.T) {
	sink := newFrameSink()
	tbl := newTestTable(t, sink)

	join(t, tbl, "p1", "Ana")
	join(t, tbl, "p2", "Beto")

	require.NoError(t, tbl.SubmitEvent(Event{Type: EventConnLost, PlayerID: "p1"}))

	f := sink.waitFor(t, "p2", codec.MsgPlayerDisconnected, time.Second)
	require.Equal(t, 0, f.Event.Seat)
	sink.waitFor(t, "p2", codec.MsgHostDisconnected, time.Second)
}

func TestBotPlaysWithoutPrompting(t *testing.T) {
	sink := newFrameSink()
	tbl := newTestTable(t, sink)

	join(t, tbl, "p1", "Ana")
	require.NoError(t, tbl.SubmitEvent(Event{Type: EventAddBot}))
	require.NoError(t, tbl.SubmitEvent(Event{
		Type: EventCommand, PlayerID: "p1",
		Msg: codec.ClientMessage{Type: codec.CmdStartMatch},
	}))

	sink.waitFor(t, "p1", "match-started", time.Second)

	// If the bot is mano it acts first; otherwise play a card so the bot
	// gets the turn. Either way a bot move must show up on its own.
	f := sink.waitFor(t, "p1", "turn-changed", time.Second)
	require.NotNil(t, f.Snapshot)
	if f.Snapshot.TurnSeat == f.Snapshot.YourSeat {
		require.NoError(t, tbl.SubmitEvent(Event{
			Type: EventCommand, PlayerID: "p1",
			Msg: codec.ClientMessage{Type: codec.CmdPlayCard, Card: int(f.Snapshot.YourHand[0])},
		}))
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		sink.mu.Lock()
		var botMoved bool
		for _, fr := range sink.frames["p1"] {
			if fr.Type == "card-played" && fr.Event != nil && fr.Event.Seat != 0 {
				botMoved = true
			}
			if fr.Type == "envido-called" || fr.Type == "flor-called" {
				if fr.Event != nil && fr.Event.Seat != 0 {
					botMoved = true
				}
			}
		}
		sink.mu.Unlock()
		if botMoved {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("bot never acted")
}

func TestTableInfo(t *testing.T) {
	sink := newFrameSink()
	tbl := newTestTable(t, sink)

	join(t, tbl, "p1", "Ana")
	info := tbl.Info()
	require.Equal(t, "match-1", info.MatchID)
	require.Equal(t, "waiting", info.Status)
	require.Equal(t, 1, info.Players)
	require.Equal(t, 2, info.Capacity)
}

func TestClosedTableRejectsEvents(t *testing.T) {
	sink := newFrameSink()
	tbl := newTestTable(t, sink)

	tbl.Stop()
	err := tbl.SubmitEvent(Event{Type: EventJoin, PlayerID: "p1", Name: "Ana"})
	require.ErrorIs(t, err, ErrTableClosed)
}
