package truco

import "truco-mesa/card"

// EnvidoValue scores a three-card hand for envido. Two cards of the
// same suit score the sum of their envido values plus 20; otherwise
// the single highest envido value counts.
func EnvidoValue(hand []card.Card) int {
	best := 0
	for i := 0; i < len(hand); i++ {
		for j := i + 1; j < len(hand); j++ {
			if hand[i].Suit() == hand[j].Suit() {
				if v := hand[i].EnvidoValue() + hand[j].EnvidoValue() + 20; v > best {
					best = v
				}
			}
		}
	}
	if best > 0 {
		return best
	}
	for _, c := range hand {
		if v := c.EnvidoValue(); v > best {
			best = v
		}
	}
	return best
}

// PassDeclaration marks a seat declining to state a value ("me voy al mazo"
// on the count, not the round).
const PassDeclaration = -1

// EnvidoDeclaration is one seat's stated count during the declaration phase.
type EnvidoDeclaration struct {
	Seat      int
	Team      int
	Points    int // PassDeclaration when the seat passed
	SonBuenas bool
}

// envidoState tracks one round's envido chain from first call to settlement.
type envidoState struct {
	// chain of escalating calls; the last entry is the pending level.
	chain []EnvidoLevel
	// callerTeam made the most recent call and would collect on decline.
	callerTeam int
	// customFalta overrides the falta envido stake when positive.
	customFalta int
	// responses during the pending call, seat -> accepted.
	responses map[int]bool
	resolved  bool

	// declaration phase, entered once the chain is accepted
	declaring    bool
	declareOrder []int
	declareIdx   int
	declarations []EnvidoDeclaration
	bestValue    int
	bestSeat     int
	bestTeam     int
	conceded     bool

	acceptPoints  int
	declinePoints int
}

func newEnvidoState(level EnvidoLevel, callerTeam int) *envidoState {
	return &envidoState{
		chain:      []EnvidoLevel{level},
		callerTeam: callerTeam,
		responses:  map[int]bool{},
		bestSeat:   InvalidSeat,
	}
}

func (e *envidoState) pendingLevel() EnvidoLevel {
	return e.chain[len(e.chain)-1]
}

func (e *envidoState) hasFalta() bool {
	for _, l := range e.chain {
		if l == FaltaEnvido {
			return true
		}
	}
	return false
}

// canEscalate reports whether level is a legal raise over the pending call.
// Envido may be repeated once (envido-envido), real envido tops envido, and
// falta envido tops everything.
func (e *envidoState) canEscalate(level EnvidoLevel) bool {
	pending := e.pendingLevel()
	switch level {
	case Envido:
		return len(e.chain) == 1 && pending == Envido
	case RealEnvido:
		return pending != RealEnvido && pending != FaltaEnvido
	case FaltaEnvido:
		return pending != FaltaEnvido
	default:
		return false
	}
}

func (e *envidoState) escalate(level EnvidoLevel, team int) {
	e.chain = append(e.chain, level)
	e.callerTeam = team
	e.responses = map[int]bool{}
}

// stakeValue is what a call in the chain adds to the accepted pot.
// faltaPoints is resolved by the caller since it depends on match score.
func stakeValue(level EnvidoLevel, faltaPoints int) int {
	switch level {
	case Envido:
		return 2
	case RealEnvido:
		return 3
	case FaltaEnvido:
		return faltaPoints
	}
	return 0
}

// settleStakes fixes the accepted and declined point totals for the chain.
// Accepted is the sum of every call's value; declined is the value of the
// chain minus the last call, never less than one.
func (e *envidoState) settleStakes(faltaPoints int) {
	accept, decline := 0, 0
	for i, l := range e.chain {
		v := stakeValue(l, faltaPoints)
		accept += v
		if i < len(e.chain)-1 {
			decline += v
		}
	}
	if decline < 1 {
		decline = 1
	}
	e.acceptPoints = accept
	e.declinePoints = decline
}

// recordResponse stores one responder's accept or decline and reports the
// ladder outcome so far. The caller routes escalations before this. The
// call stays pending until every responder has spoken; the set then
// accepts if anyone accepted.
func (e *envidoState) recordResponse(seat int, accepted bool, responders []int) LadderResult {
	e.responses[seat] = accepted
	var waiting []int
	anyAccept := false
	for _, s := range responders {
		r, ok := e.responses[s]
		if !ok {
			waiting = append(waiting, s)
			continue
		}
		if r {
			anyAccept = true
		}
	}
	if len(waiting) > 0 {
		return LadderResult{Outcome: BidPending, WaitingOn: waiting}
	}
	if anyAccept {
		return LadderResult{Outcome: BidAccepted, Points: e.acceptPoints}
	}
	return LadderResult{Outcome: BidDeclined, Points: e.declinePoints}
}

// beginDeclarations opens the counting phase. Order is the calling team's
// seats in play order from the mano, then the responding team's.
func (e *envidoState) beginDeclarations(order []int) {
	e.declaring = true
	e.declareOrder = order
	e.declareIdx = 0
	e.bestValue = -1
	e.bestSeat = InvalidSeat
	e.bestTeam = TrickTie
}

func (e *envidoState) declarerSeat() int {
	if !e.declaring || e.declareIdx >= len(e.declareOrder) {
		return InvalidSeat
	}
	return e.declareOrder[e.declareIdx]
}

// declare records one seat's count and advances the phase. It returns true
// once every seat has spoken or a son-buenas concession ended it early.
func (e *envidoState) declare(d EnvidoDeclaration, manoTeam int) bool {
	e.declarations = append(e.declarations, d)
	e.declareIdx++
	if d.Points != PassDeclaration {
		switch {
		case d.Points > e.bestValue:
			e.bestValue = d.Points
			e.bestSeat = d.Seat
			e.bestTeam = d.Team
		case d.Points == e.bestValue && d.Team != e.bestTeam:
			if d.SonBuenas {
				// Matching count conceded to the standing best.
				e.conceded = true
				return true
			}
			// Equal counts across teams fall to the mano's side.
			if manoTeam == d.Team {
				e.bestSeat = d.Seat
				e.bestTeam = d.Team
			}
		}
	}
	if d.SonBuenas && d.Points == PassDeclaration {
		e.conceded = true
		return true
	}
	return e.declareIdx >= len(e.declareOrder)
}
