package truco

import "truco-mesa/card"

// EventType names match the wire event surface one to one.
type EventType string

const (
	EventMatchCreated  EventType = "match-created"
	EventPlayerJoined  EventType = "player-joined"
	EventMatchStarted  EventType = "match-started"
	EventReconnected   EventType = "reconnected"
	EventStateUpdated  EventType = "state-updated"
	EventCardPlayed    EventType = "card-played"
	EventTurnChanged   EventType = "turn-changed"
	EventTrickFinished EventType = "trick-finished"
	EventRoundFinished EventType = "round-finished"
	EventMatchFinished EventType = "match-finished"

	EventTrucoCalled    EventType = "truco-called"
	EventTrucoResponded EventType = "truco-responded"
	EventTrucoPartial   EventType = "truco-partial-response"

	EventEnvidoCalled   EventType = "envido-called"
	EventEnvidoDeclared EventType = "envido-declared"
	EventEnvidoResolved EventType = "envido-resolved"
	EventEnvidoPartial  EventType = "envido-partial-response"

	EventFlorCalled   EventType = "flor-called"
	EventFlorPending  EventType = "flor-pending"
	EventFlorResolved EventType = "flor-resolved"

	EventPerrosOffered   EventType = "perros-offered"
	EventPerrosCancelled EventType = "perros-cancelled"
	EventPerrosResponded EventType = "perros-responded"
	EventPerrosPending   EventType = "perros-pending"

	EventPlayerFolded EventType = "player-folded"
	EventDeckCut      EventType = "deck-cut"
	EventDealProgress EventType = "deal-progress"
)

// Event is the semantic record of something that happened inside the
// mesa. The transport layer pairs it with a redacted snapshot; the engine
// only states facts.
type Event struct {
	Type EventType

	Seat int // acting or affected seat, InvalidSeat when not seat-bound
	Team int // affected team, 0 when not team-bound

	Card   card.Card // card-played / deal-progress payload
	Points int       // points awarded or locked in

	// Detail is a short human-readable description ("retruco declined",
	// "parda", ...). Free text, never parsed.
	Detail string

	// Declarations carries the full envido declaration list on
	// envido-resolved events.
	Declarations []EnvidoDeclaration

	// FlorReveals carries every flor hand disclosed on round-finished.
	FlorReveals []FlorReveal

	// WaitingOn lists seats still due to reply on partial/pending events.
	WaitingOn []int
}

// FlorReveal discloses a flor hand when the round settles.
type FlorReveal struct {
	Seat  int
	Team  int
	Cards []card.Card
	Value int
}

func seatEvent(t EventType, seat int) Event {
	return Event{Type: t, Seat: seat, Team: 0}
}
