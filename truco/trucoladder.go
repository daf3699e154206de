package truco

// trucoState tracks the round's truco chain. Levels escalate strictly
// truco -> retruco -> vale cuatro, and only the team that last accepted
// (or never called) may raise.
type trucoState struct {
	level TrucoLevel
	// ownerTeam last raised; only the other team may call the next level.
	ownerTeam int
	// pending is the level awaiting a response, TrucoNone otherwise.
	pending     TrucoLevel
	pendingTeam int
	responses   map[int]bool
}

func newTrucoState() *trucoState {
	return &trucoState{level: TrucoNone, ownerTeam: TrickTie}
}

// stake is the round's current truco value in points.
func (t *trucoState) stake() int {
	return t.level.Points()
}

// nextLevel returns the level a team may call, or TrucoNone when no
// raise is available to it.
func (t *trucoState) nextLevel(team int) TrucoLevel {
	if t.pending != TrucoNone {
		return TrucoNone
	}
	if t.level == LevelVale4 {
		return TrucoNone
	}
	if t.level != TrucoNone && t.ownerTeam == team {
		return TrucoNone
	}
	return t.level + 1
}

func (t *trucoState) call(level TrucoLevel, team int) {
	t.pending = level
	t.pendingTeam = team
	t.responses = map[int]bool{}
}

// respondEscalate folds a pending call into an immediate counter-raise:
// the pending level is accepted and the next one goes up from the
// responding team.
func (t *trucoState) respondEscalate(team int) TrucoLevel {
	accepted := t.pending
	t.level = accepted
	t.ownerTeam = t.pendingTeam
	next := accepted + 1
	t.call(next, team)
	return next
}

func (t *trucoState) accept() {
	t.level = t.pending
	t.ownerTeam = t.pendingTeam
	t.pending = TrucoNone
	t.responses = nil
}

// recordResponse stores one responder's reply to the pending call and
// reports the ladder outcome so far. The call stays pending until every
// responder has spoken; the set then accepts if anyone accepted.
func (t *trucoState) recordResponse(seat int, accepted bool, responders []int) LadderResult {
	t.responses[seat] = accepted
	var waiting []int
	anyAccept := false
	for _, s := range responders {
		r, ok := t.responses[s]
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
		return LadderResult{Outcome: BidAccepted, Points: t.pending.Points()}
	}
	return LadderResult{Outcome: BidDeclined, Points: t.pending.DeclineValue()}
}
