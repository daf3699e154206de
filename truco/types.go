package truco

// InvalidSeat marks "no seat" in turn pointers and events.
const InvalidSeat = -1

// MatchStatus is the top-level mesa lifecycle.
type MatchStatus byte

const (
	StatusWaiting MatchStatus = iota
	StatusPlaying
	StatusFinished
)

var matchStatusNames = map[MatchStatus]string{
	StatusWaiting:  "waiting",
	StatusPlaying:  "playing",
	StatusFinished: "finished",
}

func (s MatchStatus) String() string { return matchStatusNames[s] }

// RoundStatus is the per-round sub-state while the mesa is playing.
type RoundStatus byte

const (
	RoundAwaitingCalls RoundStatus = iota
	RoundPlayingTricks
	RoundAwaitingResponse
	RoundFinished
)

var roundStatusNames = map[RoundStatus]string{
	RoundAwaitingCalls:    "awaiting-calls",
	RoundPlayingTricks:    "playing-tricks",
	RoundAwaitingResponse: "awaiting-response",
	RoundFinished:         "round-finished",
}

func (s RoundStatus) String() string { return roundStatusNames[s] }

// TrickTie is recorded in trick results when the highest card came from
// both teams ("parda"). Team ids are 1 and 2.
const TrickTie = 0

// TrucoLevel is a rung of the truco ladder. The zero value means no call.
type TrucoLevel int

const (
	TrucoNone TrucoLevel = iota
	LevelTruco
	LevelRetruco
	LevelVale4
)

// Points is the round stake once this level is accepted.
func (l TrucoLevel) Points() int { return int(l) + 1 }

// DeclineValue is what the caller collects when this level is declined:
// one less than the accepted value, never below 1.
func (l TrucoLevel) DeclineValue() int {
	if l <= LevelTruco {
		return 1
	}
	return int(l)
}

func (l TrucoLevel) String() string {
	switch l {
	case LevelTruco:
		return "truco"
	case LevelRetruco:
		return "retruco"
	case LevelVale4:
		return "vale4"
	}
	return "none"
}

// EnvidoLevel is a rung of the envido ladder.
type EnvidoLevel int

const (
	Envido EnvidoLevel = iota + 1
	RealEnvido
	FaltaEnvido
)

func (l EnvidoLevel) String() string {
	switch l {
	case Envido:
		return "envido"
	case RealEnvido:
		return "real-envido"
	case FaltaEnvido:
		return "falta-envido"
	}
	return "none"
}

// FlorLevel is a rung of the flor ladder.
type FlorLevel int

const (
	Flor FlorLevel = iota + 1
	ContraFlor
	ConFlorEnvido
)

func (l FlorLevel) String() string {
	switch l {
	case Flor:
		return "flor"
	case ContraFlor:
		return "contra-flor"
	case ConFlorEnvido:
		return "con-flor-envido"
	}
	return "none"
}

// FlorResponse is the answer to a pending flor-line call.
type FlorResponse byte

const (
	// FlorAck concedes the pending call: the caller collects its value.
	FlorAck FlorResponse = iota
	// FlorAccept takes the pending contra-flor or con-flor-envido bet.
	FlorAccept
	// FlorRaiseContra escalates flor to contra-flor (responder has flor).
	FlorRaiseContra
	// FlorRaiseConEnvido counters a flor with con-flor-envido (responder
	// has no flor).
	FlorRaiseConEnvido
)

// BidOutcome tags a ladder result consumed by the orchestrator.
type BidOutcome byte

const (
	BidPending BidOutcome = iota
	BidAccepted
	BidDeclined
	BidEscalated
)

// LadderResult is the synchronous return value of every bid-ladder step.
// Ladders never mutate mesa state; the orchestrator applies the result.
type LadderResult struct {
	Outcome   BidOutcome
	Points    int   // stake locked in on accept, award on decline
	WaitingOn []int // seats still due to reply when Outcome == BidPending
}
