// Package bot provides computer players for a mesa. A Brain decides one
// action from a seat's redacted snapshot; the table actor applies it
// through the normal command path, so bots can never cheat the rules.
package bot

import (
	"truco-mesa/card"
	"truco-mesa/truco"
)

// Action names what the brain wants to do.
type Action byte

const (
	ActNone Action = iota
	ActPlayCard
	ActCallTruco
	ActCallEnvido
	ActCallFlor
	ActRespondTruco
	ActRespondEnvido
	ActDeclareEnvido
	ActRespondFlor
	ActRespondPerros
	ActFold
)

// Decision is one chosen action with its payload. Only the fields the
// Action needs are meaningful.
type Decision struct {
	Action Action

	Card card.Card

	Accept   bool
	Escalate truco.TrucoLevel

	EnvidoLevel truco.EnvidoLevel
	Points      int
	SonBuenas   bool

	Flor truco.FlorResponse

	WantsContraFlor  bool
	WantsFaltaEnvido bool
	WantsTruco       bool
}

// Brain is the decision core every bot implements.
type Brain interface {
	// Decide is called when the bot's seat is being waited on.
	Decide(view truco.Snapshot) Decision
	// Name identifies the brain in logs.
	Name() string
}
