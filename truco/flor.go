package truco

import "truco-mesa/card"

// HasFlor reports whether all three cards share a suit.
func HasFlor(hand []card.Card) bool {
	if len(hand) != 3 {
		return false
	}
	return hand[0].Suit() == hand[1].Suit() && hand[1].Suit() == hand[2].Suit()
}

// FlorValue scores a flor hand: 20 plus the envido value of each card.
func FlorValue(hand []card.Card) int {
	v := 20
	for _, c := range hand {
		v += c.EnvidoValue()
	}
	return v
}

// Flor point tables. A plain acknowledged flor pays per flor hand on the
// calling team; contra flor doubles the dispute, con flor envido pits the
// flor against the best plain envido.
const (
	florBasePoints       = 3
	contraFlorPoints     = 6
	contraFlorDecline    = 3
	conFlorEnvidoPoints  = 5
	conFlorEnvidoDecline = 3
)

// florState tracks a round's flor declarations and any dispute over them.
type florState struct {
	// callerSeat declared first; callerTeam collects base awards.
	callerSeat int
	callerTeam int
	// level is the dispute escalation, Flor until someone raises.
	level FlorLevel
	// raiserSeat responded with contra flor or con flor envido.
	raiserSeat int
	raiserTeam int
	responses  map[int]FlorResponse
	resolved   bool
	// awarded guards the automatic base award at round end.
	awarded bool
}

func newFlorState(seat, team int) *florState {
	return &florState{
		callerSeat: seat,
		callerTeam: team,
		level:      Flor,
		raiserSeat: InvalidSeat,
		responses:  map[int]FlorResponse{},
	}
}

// record stores one responder's reply and reports whether every
// responder has spoken, along with any raise that preempts the rest.
func (f *florState) record(seat int, r FlorResponse, responders []int) (done bool, raise FlorResponse) {
	f.responses[seat] = r
	if r == FlorRaiseContra || r == FlorRaiseConEnvido {
		return true, r
	}
	for _, s := range responders {
		if _, ok := f.responses[s]; !ok {
			return false, FlorAck
		}
	}
	return true, FlorAck
}

// anyAccepted reports whether some responder accepted the dispute.
func (f *florState) anyAccepted() bool {
	for _, r := range f.responses {
		if r == FlorAccept {
			return true
		}
	}
	return false
}
