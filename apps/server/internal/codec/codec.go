// Package codec defines the JSON wire surface: client commands in,
// server events out. Every state-bearing event is paired with the full
// snapshot redacted for the receiving player.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"truco-mesa/card"
	"truco-mesa/truco"
)

// Client command types.
const (
	CmdCreateMatch     = "create-match"
	CmdJoinMatch       = "join-match"
	CmdStartMatch      = "start-match"
	CmdReconnect       = "reconnect"
	CmdPlayCard        = "play-card"
	CmdCallTruco       = "call-truco"
	CmdRespondTruco    = "respond-truco"
	CmdCallEnvido      = "call-envido"
	CmdRespondEnvido   = "respond-envido"
	CmdDeclareEnvido   = "declare-envido-step"
	CmdCallFlor        = "call-flor"
	CmdRespondFlor     = "respond-flor"
	CmdFold            = "fold"
	CmdCutDeck         = "cut-deck"
	CmdConfigurePoints = "configure-points"
	CmdRematch         = "rematch"
	CmdOfferPerros     = "offer-perros"
	CmdCancelPerros    = "cancel-perros"
	CmdRespondPerros   = "respond-perros"
	CmdSwitchTeam      = "switch-team"
	CmdAddBot          = "add-bot"
	CmdChat            = "chat-message"
	CmdResync          = "request-state-resync"
	CmdListMatches     = "list-matches"
)

// Server-only message types; everything else mirrors a truco.EventType.
const (
	MsgError              = "error"
	MsgWelcome            = "welcome"
	MsgMatchList          = "match-list"
	MsgChat               = "chat-message"
	MsgPlayerDisconnected = "player-disconnected"
	MsgHostDisconnected   = "host-disconnected"
)

// ClientMessage is one inbound command. Only the fields the Type uses
// are read; the rest stay zero.
type ClientMessage struct {
	Type    string `json:"type"`
	MatchID string `json:"matchId,omitempty"`

	Name     string `json:"name,omitempty"`
	PlayerID string `json:"playerId,omitempty"`
	Token    string `json:"token,omitempty"`

	TeamSize int   `json:"teamSize,omitempty"`
	WithFlor *bool `json:"withFlor,omitempty"`
	Target   int   `json:"target,omitempty"`
	Team     int   `json:"team,omitempty"`

	Card        int    `json:"card,omitempty"`
	Level       string `json:"level,omitempty"`
	Accept      bool   `json:"accept,omitempty"`
	Escalate    string `json:"escalate,omitempty"`
	CustomFalta int    `json:"customFalta,omitempty"`
	Points      int    `json:"points,omitempty"`
	Pass        bool   `json:"pass,omitempty"`
	SonBuenas   bool   `json:"sonBuenas,omitempty"`
	Flor        string `json:"flor,omitempty"`
	Position    int    `json:"position,omitempty"`

	WantsContraFlor  bool `json:"wantsContraFlor,omitempty"`
	WantsFaltaEnvido bool `json:"wantsFaltaEnvido,omitempty"`
	WantsTruco       bool `json:"wantsTruco,omitempty"`

	Text string `json:"text,omitempty"`
}

func Decode(data []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, fmt.Errorf("malformed message: %w", err)
	}
	if msg.Type == "" {
		return msg, errors.New("missing message type")
	}
	return msg, nil
}

// ServerMessage is one outbound frame.
type ServerMessage struct {
	Type    string `json:"type"`
	MatchID string `json:"matchId,omitempty"`
	Seq     uint64 `json:"seq"`
	Ts      int64  `json:"ts"`

	Event    *EventBody      `json:"event,omitempty"`
	Snapshot *truco.Snapshot `json:"snapshot,omitempty"`
	Error    *ErrorBody      `json:"error,omitempty"`
	Welcome  *WelcomeBody    `json:"welcome,omitempty"`
	Chat     *ChatBody       `json:"chat,omitempty"`
	Matches  []MatchInfo     `json:"matches,omitempty"`
}

// EventBody is the wire form of a truco.Event. Cards travel as their
// byte value plus a human label.
type EventBody struct {
	Seat      int    `json:"seat"`
	Team      int    `json:"team,omitempty"`
	Card      int    `json:"card,omitempty"`
	CardLabel string `json:"cardLabel,omitempty"`
	Points    int    `json:"points,omitempty"`
	Detail    string `json:"detail,omitempty"`

	Declarations []truco.EnvidoDeclaration `json:"declarations,omitempty"`
	FlorReveals  []truco.FlorReveal        `json:"florReveals,omitempty"`
	WaitingOn    []int                     `json:"waitingOn,omitempty"`
}

type ErrorBody struct {
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

// WelcomeBody is sent once to a player after create/join/reconnect: their
// identity and the credentials to come back with.
type WelcomeBody struct {
	MatchID  string `json:"matchId"`
	PlayerID string `json:"playerId"`
	Token    string `json:"token,omitempty"`
	Seat     int    `json:"seat"`
}

type ChatBody struct {
	Seat int    `json:"seat"`
	Name string `json:"name"`
	Text string `json:"text"`
}

// MatchInfo is one lobby listing entry.
type MatchInfo struct {
	MatchID  string `json:"matchId"`
	Status   string `json:"status"`
	Players  int    `json:"players"`
	Capacity int    `json:"capacity"`
	TeamSize int    `json:"teamSize"`
}

// Event converts an engine event for the wire.
func Event(matchID string, seq uint64, ev truco.Event, snap *truco.Snapshot) ServerMessage {
	body := &EventBody{
		Seat:         ev.Seat,
		Team:         ev.Team,
		Points:       ev.Points,
		Detail:       ev.Detail,
		Declarations: ev.Declarations,
		FlorReveals:  ev.FlorReveals,
		WaitingOn:    ev.WaitingOn,
	}
	if ev.Card != card.CardInvalid {
		body.Card = int(ev.Card)
		body.CardLabel = ev.Card.String()
	}
	return ServerMessage{
		Type: string(ev.Type), MatchID: matchID, Seq: seq,
		Ts: time.Now().UnixMilli(), Event: body, Snapshot: snap,
	}
}

// Error wraps an engine rejection with its taxonomy kind.
func Error(matchID string, seq uint64, err error) ServerMessage {
	return ServerMessage{
		Type: MsgError, MatchID: matchID, Seq: seq, Ts: time.Now().UnixMilli(),
		Error: &ErrorBody{Kind: errorKind(err), Reason: err.Error()},
	}
}

func errorKind(err error) string {
	var (
		ve truco.ValidationError
		ie truco.IllegalStateError
		ae truco.AuthorizationError
		ce truco.ConflictError
	)
	switch {
	case errors.As(err, &ve):
		return "validation"
	case errors.As(err, &ie):
		return "illegal-state"
	case errors.As(err, &ae):
		return "not-allowed"
	case errors.As(err, &ce):
		return "conflict"
	}
	return "internal"
}

func Encode(msg ServerMessage) ([]byte, error) { return json.Marshal(msg) }

// TrucoLevel parses a wire truco level name.
func TrucoLevel(s string) (truco.TrucoLevel, error) {
	switch s {
	case "truco":
		return truco.LevelTruco, nil
	case "retruco":
		return truco.LevelRetruco, nil
	case "vale4", "vale-cuatro":
		return truco.LevelVale4, nil
	case "":
		return truco.TrucoNone, nil
	}
	return truco.TrucoNone, fmt.Errorf("unknown truco level %q", s)
}

// EnvidoLevel parses a wire envido level name.
func EnvidoLevel(s string) (truco.EnvidoLevel, error) {
	switch s {
	case "envido":
		return truco.Envido, nil
	case "real-envido":
		return truco.RealEnvido, nil
	case "falta-envido":
		return truco.FaltaEnvido, nil
	}
	return 0, fmt.Errorf("unknown envido level %q", s)
}

// FlorResponse parses a wire flor response kind.
func FlorResponse(s string) (truco.FlorResponse, error) {
	switch s {
	case "ack":
		return truco.FlorAck, nil
	case "accept":
		return truco.FlorAccept, nil
	case "contra-flor":
		return truco.FlorRaiseContra, nil
	case "con-flor-envido":
		return truco.FlorRaiseConEnvido, nil
	}
	return 0, fmt.Errorf("unknown flor response %q", s)
}
