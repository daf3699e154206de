package truco

import "truco-mesa/card"

// Snapshot is the full mesa view redacted for one seat: only the viewer's
// own hand is included, everything on the table is public. Snapshots are
// value copies; mutating one never touches the mesa.
type Snapshot struct {
	Status       string       `json:"status"`
	RoundStatus  string       `json:"roundStatus"`
	RoundNumber  int          `json:"roundNumber"`
	TargetScore  int          `json:"targetScore"`
	DealerSeat   int          `json:"dealerSeat"`
	ManoSeat     int          `json:"manoSeat"`
	TurnSeat     int          `json:"turnSeat"`
	PointsInPlay int          `json:"pointsInPlay"`
	Teams        []TeamView   `json:"teams"`
	Players      []PlayerView `json:"players"`
	Tricks       []TrickView  `json:"tricks"`
	Pending      *PendingView `json:"pending,omitempty"`

	YourSeat int         `json:"yourSeat"`
	YourHand []card.Card `json:"yourHand,omitempty"`
	YourFlor bool        `json:"yourFlor,omitempty"`
}

type TeamView struct {
	ID    int   `json:"id"`
	Seats []int `json:"seats"`
	Score int   `json:"score"`
}

type PlayerView struct {
	Seat      int    `json:"seat"`
	Name      string `json:"name"`
	Team      int    `json:"team"`
	Bot       bool   `json:"bot"`
	Connected bool   `json:"connected"`
	CardsLeft int    `json:"cardsLeft"`
	FlorShown bool   `json:"florShown,omitempty"`
}

type TrickView struct {
	Plays      []PlayView `json:"plays"`
	WinnerSeat int        `json:"winnerSeat"`
	WinnerTeam int        `json:"winnerTeam"`
}

type PlayView struct {
	Seat int       `json:"seat"`
	Card card.Card `json:"card"`
}

// PendingView describes whatever the mesa is waiting on, if anything.
type PendingView struct {
	Kind      string `json:"kind"` // truco, envido, envido-declaration, flor, perros
	Level     string `json:"level,omitempty"`
	WaitingOn []int  `json:"waitingOn"`

	Declarations []EnvidoDeclaration `json:"declarations,omitempty"`

	// perros components
	ContraFlor  bool   `json:"contraFlor,omitempty"`
	FaltaEnvido bool   `json:"faltaEnvido,omitempty"`
	TrucoLevel  string `json:"trucoLevel,omitempty"`
}

// SnapshotFor builds the redacted view for one seat. A negative seat
// yields a spectator view with no hand.
func (m *Mesa) SnapshotFor(seat int) Snapshot {
	s := Snapshot{
		Status:       m.status.String(),
		RoundStatus:  m.roundStatus.String(),
		RoundNumber:  m.roundNo,
		TargetScore:  m.cfg.targetScore(),
		DealerSeat:   m.dealerSeat,
		ManoSeat:     m.manoSeat,
		TurnSeat:     m.turnSeat,
		PointsInPlay: m.truco.stake(),
		YourSeat:     InvalidSeat,
	}
	if m.status == StatusWaiting {
		s.RoundStatus = ""
		s.PointsInPlay = 0
		s.DealerSeat, s.ManoSeat, s.TurnSeat = InvalidSeat, InvalidSeat, InvalidSeat
	}
	for _, id := range []int{1, 2} {
		t := m.teams[id]
		s.Teams = append(s.Teams, TeamView{ID: t.ID, Seats: append([]int{}, t.Seats...), Score: t.Score})
	}
	for _, p := range m.players {
		s.Players = append(s.Players, PlayerView{
			Seat: p.Seat, Name: p.Name, Team: p.Team, Bot: p.Bot,
			Connected: p.Connected, CardsLeft: p.Hand.Count(), FlorShown: p.FlorShown,
		})
	}
	for i := range m.tricks {
		t := &m.tricks[i]
		tv := TrickView{WinnerSeat: t.WinnerSeat, WinnerTeam: t.WinnerTeam}
		if len(t.Plays) < len(m.players) {
			tv.WinnerSeat, tv.WinnerTeam = InvalidSeat, TrickTie
		}
		for _, pl := range t.Plays {
			tv.Plays = append(tv.Plays, PlayView{Seat: pl.Seat, Card: pl.Card})
		}
		s.Tricks = append(s.Tricks, tv)
	}
	s.Pending = m.pendingView()
	if seat >= 0 && seat < len(m.players) {
		p := m.players[seat]
		s.YourSeat = seat
		s.YourHand = append([]card.Card{}, p.Hand...)
		s.YourFlor = p.HasFlor
	}
	return s
}

func (m *Mesa) pendingView() *PendingView {
	w := m.Waiting()
	switch w.Kind {
	case WaitTruco:
		return &PendingView{Kind: "truco", Level: m.truco.pending.String(), WaitingOn: w.Seats}
	case WaitEnvido:
		return &PendingView{Kind: "envido", Level: m.envido.pendingLevel().String(), WaitingOn: w.Seats}
	case WaitEnvidoDeclaration:
		return &PendingView{
			Kind: "envido-declaration", WaitingOn: w.Seats,
			Declarations: append([]EnvidoDeclaration{}, m.envido.declarations...),
		}
	case WaitFlor:
		return &PendingView{Kind: "flor", Level: m.flor.level.String(), WaitingOn: w.Seats}
	case WaitPerros:
		pv := &PendingView{
			Kind: "perros", WaitingOn: w.Seats,
			ContraFlor: m.perros.ContraFlor, FaltaEnvido: m.perros.FaltaEnvido,
		}
		if m.perros.TrucoLevel != TrucoNone {
			pv.TrucoLevel = m.perros.TrucoLevel.String()
		}
		return pv
	}
	return nil
}

// WaitKind classifies what the mesa is blocked on.
type WaitKind byte

const (
	WaitNone WaitKind = iota
	WaitTurn
	WaitTruco
	WaitEnvido
	WaitEnvidoDeclaration
	WaitFlor
	WaitPerros
)

// PendingWait names the seats the mesa is waiting on and for what. The
// table actor uses it for disconnect timeouts and bot scheduling.
type PendingWait struct {
	Kind  WaitKind
	Seats []int
}

func (m *Mesa) Waiting() PendingWait {
	if m.status != StatusPlaying || m.roundStatus == RoundFinished {
		return PendingWait{Kind: WaitNone}
	}
	if m.roundStatus != RoundAwaitingResponse {
		return PendingWait{Kind: WaitTurn, Seats: []int{m.turnSeat}}
	}
	switch {
	case m.perros != nil:
		return PendingWait{Kind: WaitPerros, Seats: m.unanswered(otherTeam(m.perros.Team), func(s int) bool {
			_, ok := m.perros.responses[s]
			return ok
		})}
	case m.envido != nil && !m.envido.resolved && m.envido.declaring:
		return PendingWait{Kind: WaitEnvidoDeclaration, Seats: []int{m.envido.declarerSeat()}}
	case m.envido != nil && !m.envido.resolved:
		return PendingWait{Kind: WaitEnvido, Seats: m.unanswered(otherTeam(m.envido.callerTeam), func(s int) bool {
			_, ok := m.envido.responses[s]
			return ok
		})}
	case m.flor != nil && !m.flor.resolved:
		respTeam := otherTeam(m.flor.callerTeam)
		if m.flor.raiserSeat != InvalidSeat {
			respTeam = m.flor.callerTeam
		}
		return PendingWait{Kind: WaitFlor, Seats: m.unanswered(respTeam, func(s int) bool {
			_, ok := m.flor.responses[s]
			return ok
		})}
	case m.truco.pending != TrucoNone:
		return PendingWait{Kind: WaitTruco, Seats: m.unanswered(otherTeam(m.truco.pendingTeam), func(s int) bool {
			_, ok := m.truco.responses[s]
			return ok
		})}
	}
	return PendingWait{Kind: WaitNone}
}

func (m *Mesa) unanswered(team int, answered func(int) bool) []int {
	var seats []int
	for _, s := range m.teamSeats(team) {
		if !answered(s) {
			seats = append(seats, s)
		}
	}
	return seats
}

// ---- read accessors for the server layer ----

func (m *Mesa) Status() MatchStatus { return m.status }
func (m *Mesa) Round() RoundStatus  { return m.roundStatus }
func (m *Mesa) RoundNumber() int    { return m.roundNo }
func (m *Mesa) TurnSeat() int       { return m.turnSeat }
func (m *Mesa) TargetScore() int    { return m.cfg.targetScore() }
func (m *Mesa) PlayerCount() int    { return len(m.players) }
func (m *Mesa) SeatCapacity() int   { return m.cfg.seatCount() }
func (m *Mesa) TeamSize() int       { return m.cfg.TeamSize }
func (m *Mesa) Score(team int) int  { return m.teams[team].Score }

func (m *Mesa) WinnerTeam() int {
	if m.status != StatusFinished {
		return TrickTie
	}
	target := m.cfg.targetScore()
	for _, t := range m.teams {
		if t.Score >= target {
			return t.ID
		}
	}
	return TrickTie
}

// SeatOf maps a player id to its seat.
func (m *Mesa) SeatOf(playerID string) (int, bool) {
	if p := m.playerByID(playerID); p != nil {
		return p.Seat, true
	}
	return InvalidSeat, false
}

// PlayerAt returns a copy of the seat's public player record.
func (m *Mesa) PlayerAt(seat int) (Player, bool) {
	if seat < 0 || seat >= len(m.players) {
		return Player{}, false
	}
	p := *m.players[seat]
	p.Hand = append(card.CardList{}, p.Hand...)
	return p, true
}
