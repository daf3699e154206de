package truco

import (
	"math/rand"
	"time"

	"truco-mesa/card"
)

// Mesa is one truco match: seats, score, the current round's tricks and
// bid ladders. It is not safe for concurrent use; the table actor
// serializes every command against it.
//
// Every command validates fully before touching state, so a returned
// error guarantees the mesa is unchanged. Mutating commands append
// semantic events which the caller collects with DrainEvents.
type Mesa struct {
	cfg Config
	rng *rand.Rand

	status      MatchStatus
	roundStatus RoundStatus

	players []*Player
	teams   map[int]*Team

	roundNo    int
	dealerSeat int
	manoSeat   int
	turnSeat   int

	pendingCut int // 0 = none, applied to the next deal

	// dealt keeps each seat's original three cards for envido and flor
	// adjudication after cards hit the table.
	dealt  []card.CardList
	tricks []Trick
	// trickLeader led the current trick; after a parda it leads again.
	trickLeader int

	truco  *trucoState
	envido *envidoState
	flor   *florState
	perros *PerrosOffer
	// envidoClosed shuts the envido window for the rest of the round.
	envidoClosed bool

	events []Event
}

// NewMesa creates a waiting mesa. A zero Seed draws one from the clock.
func NewMesa(cfg Config) (*Mesa, error) {
	if err := cfg.validate(); err != nil {
		return nil, errValidation("%v", err)
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	m := &Mesa{
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(seed)),
		status: StatusWaiting,
		teams:  map[int]*Team{1: {ID: 1}, 2: {ID: 2}},
		truco:  newTrucoState(),
	}
	m.emit(Event{Type: EventMatchCreated, Seat: InvalidSeat})
	return m, nil
}

// DrainEvents returns and clears the events accumulated since the last
// drain. The table actor broadcasts each one paired with a snapshot.
func (m *Mesa) DrainEvents() []Event {
	ev := m.events
	m.events = nil
	return ev
}

func (m *Mesa) emit(e Event) { m.events = append(m.events, e) }

// ---- lobby phase ----

// Join seats a new player on the smaller team and returns the seat index.
func (m *Mesa) Join(id, name string, bot bool) (int, error) {
	if m.status != StatusWaiting {
		return InvalidSeat, errIllegalState("match already started")
	}
	if len(m.players) >= m.cfg.seatCount() {
		return InvalidSeat, errIllegalState("mesa is full")
	}
	for _, p := range m.players {
		if p.ID == id {
			return InvalidSeat, errConflict("player %s already joined", id)
		}
	}
	team := 1
	if len(m.teams[1].Seats) > len(m.teams[2].Seats) {
		team = 2
	}
	seat := len(m.players)
	p := &Player{ID: id, Name: name, Team: team, Seat: seat, Bot: bot, Connected: true}
	m.players = append(m.players, p)
	m.teams[team].Seats = append(m.teams[team].Seats, seat)
	m.emit(Event{Type: EventPlayerJoined, Seat: seat, Team: team, Detail: name})
	return seat, nil
}

// SwitchTeam moves a waiting player to the other team if it has room.
func (m *Mesa) SwitchTeam(playerID string, newTeam int) error {
	if m.status != StatusWaiting {
		return errIllegalState("teams are fixed once the match starts")
	}
	if newTeam != 1 && newTeam != 2 {
		return errValidation("team must be 1 or 2")
	}
	p := m.playerByID(playerID)
	if p == nil {
		return errValidation("unknown player %s", playerID)
	}
	if p.Team == newTeam {
		return nil
	}
	if len(m.teams[newTeam].Seats) >= m.cfg.TeamSize {
		return errIllegalState("team %d is full", newTeam)
	}
	m.removeSeatFromTeam(p.Team, p.Seat)
	p.Team = newTeam
	m.teams[newTeam].Seats = append(m.teams[newTeam].Seats, p.Seat)
	m.emit(Event{Type: EventStateUpdated, Seat: p.Seat, Team: newTeam})
	return nil
}

// ConfigureTarget changes the match point target before the start.
func (m *Mesa) ConfigureTarget(points int) error {
	if m.status != StatusWaiting {
		return errIllegalState("point target is fixed once the match starts")
	}
	if points < 1 {
		return errValidation("point target must be positive")
	}
	m.cfg.TargetScore = points
	m.emit(Event{Type: EventStateUpdated, Seat: InvalidSeat, Points: points})
	return nil
}

// Start locks the seating and deals the first round. Seats are reordered
// so the two teams alternate around the mesa.
func (m *Mesa) Start() error {
	if m.status != StatusWaiting {
		return errIllegalState("match already started")
	}
	if len(m.teams[1].Seats) != m.cfg.TeamSize || len(m.teams[2].Seats) != m.cfg.TeamSize {
		return errIllegalState("both teams need %d players", m.cfg.TeamSize)
	}
	var order []*Player
	for i := 0; i < m.cfg.TeamSize; i++ {
		order = append(order, m.players[m.teams[1].Seats[i]], m.players[m.teams[2].Seats[i]])
	}
	m.players = order
	m.teams[1].Seats = m.teams[1].Seats[:0]
	m.teams[2].Seats = m.teams[2].Seats[:0]
	for seat, p := range m.players {
		p.Seat = seat
		m.teams[p.Team].Seats = append(m.teams[p.Team].Seats, seat)
	}
	m.status = StatusPlaying
	m.dealerSeat = 0
	if m.cfg.ForcedDealerSeat != nil {
		m.dealerSeat = *m.cfg.ForcedDealerSeat % len(m.players)
	}
	m.emit(Event{Type: EventMatchStarted, Seat: InvalidSeat})
	m.startRound(false)
	return nil
}

// Rematch resets the score and deals again with the same seats. Only a
// finished mesa may rematch.
func (m *Mesa) Rematch() error {
	if m.status != StatusFinished {
		return errIllegalState("the match is still running")
	}
	m.teams[1].Score = 0
	m.teams[2].Score = 0
	m.roundNo = 0
	m.status = StatusPlaying
	m.emit(Event{Type: EventMatchStarted, Seat: InvalidSeat, Detail: "rematch"})
	m.startRound(true)
	return nil
}

// StartNextRound deals the next round after the current one finished.
// The table actor calls this once its between-round delay elapses.
func (m *Mesa) StartNextRound() error {
	if m.status != StatusPlaying {
		return errIllegalState("mesa is %s", m.status)
	}
	if m.roundStatus != RoundFinished {
		return errIllegalState("round still in progress")
	}
	m.startRound(true)
	return nil
}

// SetConnected flips a seat's connection flag. Reconnecting an already
// connected seat is a no-op; the caller resyncs with a snapshot either way.
func (m *Mesa) SetConnected(seat int, connected bool) error {
	if seat < 0 || seat >= len(m.players) {
		return errValidation("no seat %d", seat)
	}
	m.players[seat].Connected = connected
	return nil
}

// ---- deck ----

// CutDeck records a cut position for the next deal. The rotation is
// applied when the cards actually move.
func (m *Mesa) CutDeck(seat, position int) error {
	if m.status == StatusFinished {
		return errIllegalState("match is finished")
	}
	if position < 1 || position >= len(card.TrucoCards) {
		return errValidation("cut position %d out of range [1,%d]", position, len(card.TrucoCards)-1)
	}
	m.pendingCut = position
	m.emit(Event{Type: EventDeckCut, Seat: seat, Points: position})
	return nil
}

func (m *Mesa) startRound(advanceDealer bool) {
	m.roundNo++
	if advanceDealer {
		m.dealerSeat = m.nextSeat(m.dealerSeat)
	}
	m.manoSeat = m.nextSeat(m.dealerSeat)
	m.turnSeat = m.manoSeat
	m.trickLeader = m.manoSeat

	m.tricks = []Trick{{}}
	m.truco = newTrucoState()
	m.envido = nil
	m.flor = nil
	m.perros = nil
	m.envidoClosed = false
	m.roundStatus = RoundAwaitingCalls

	deck := card.CardList{}
	if m.cfg.DeckOverride != nil {
		deck.Init(m.cfg.DeckOverride)
	} else {
		deck.Init(card.TrucoCards)
		m.rng.Shuffle(deck.Count(), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
	}
	if m.pendingCut > 0 {
		deck.Cut(m.pendingCut)
		m.pendingCut = 0
	}

	for _, p := range m.players {
		p.resetForRound()
	}
	for i := 0; i < 3; i++ {
		for _, seat := range m.playOrderFrom(m.manoSeat) {
			c := deck.PopCard()
			m.players[seat].Hand.Add(c)
			m.emit(Event{Type: EventDealProgress, Seat: seat, Card: c})
		}
	}
	m.dealt = make([]card.CardList, len(m.players))
	for seat, p := range m.players {
		m.dealt[seat] = append(card.CardList{}, p.Hand...)
		if m.cfg.WithFlor {
			p.HasFlor = HasFlor(p.Hand)
		}
	}
	m.emit(seatEvent(EventTurnChanged, m.turnSeat))
}

// ---- trick play ----

// PlayCard plays a card from the turn seat's hand into the current trick.
func (m *Mesa) PlayCard(seat int, c card.Card) error {
	if err := m.requirePlaying(); err != nil {
		return err
	}
	if m.roundStatus != RoundAwaitingCalls && m.roundStatus != RoundPlayingTricks {
		return errIllegalState("cannot play a card while %s", m.roundStatus)
	}
	if seat != m.turnSeat {
		return errAuthorization("seat %d played out of turn", seat)
	}
	p := m.players[seat]
	if !p.Hand.Contains(c) {
		return errValidation("%s is not in hand", c)
	}

	p.Hand.Remove(c)
	m.envidoClosed = true
	m.roundStatus = RoundPlayingTricks
	t := m.currentTrick()
	t.add(seat, p.Team, c)
	m.emit(Event{Type: EventCardPlayed, Seat: seat, Team: p.Team, Card: c})

	if len(t.Plays) < len(m.players) {
		m.turnSeat = m.nextSeat(seat)
		m.emit(seatEvent(EventTurnChanged, m.turnSeat))
		return nil
	}

	t.resolve()
	detail := ""
	if t.WinnerTeam == TrickTie {
		detail = "parda"
	}
	m.emit(Event{Type: EventTrickFinished, Seat: t.WinnerSeat, Team: t.WinnerTeam, Detail: detail})

	if w := roundWinner(m.tricks, m.manoTeam()); w != TrickTie {
		m.settleRound(w, m.truco.stake(), "")
		return nil
	}
	if t.WinnerSeat != InvalidSeat {
		m.trickLeader = t.WinnerSeat
	}
	m.turnSeat = m.trickLeader
	m.tricks = append(m.tricks, Trick{})
	m.emit(seatEvent(EventTurnChanged, m.turnSeat))
	return nil
}

// Fold ends the round for the other team at the current stake. A team may
// only fold while it holds the turn and no call is pending.
func (m *Mesa) Fold(seat int) error {
	if err := m.requirePlaying(); err != nil {
		return err
	}
	if m.roundStatus != RoundAwaitingCalls && m.roundStatus != RoundPlayingTricks {
		return errIllegalState("cannot fold while a response is owed")
	}
	p, err := m.seatPlayer(seat)
	if err != nil {
		return err
	}
	if m.players[m.turnSeat].Team != p.Team {
		return errIllegalState("can only fold on your team's turn")
	}
	m.emit(Event{Type: EventPlayerFolded, Seat: seat, Team: p.Team})
	m.settleRound(otherTeam(p.Team), m.truco.stake(), "fold")
	return nil
}

// ---- truco ladder ----

// CallTruco raises the round's stake by one rung.
func (m *Mesa) CallTruco(seat int, level TrucoLevel) error {
	if err := m.requirePlaying(); err != nil {
		return err
	}
	if m.roundStatus != RoundAwaitingCalls && m.roundStatus != RoundPlayingTricks {
		return errIllegalState("cannot call %s while %s", level, m.roundStatus)
	}
	p, err := m.seatPlayer(seat)
	if err != nil {
		return err
	}
	next := m.truco.nextLevel(p.Team)
	if next == TrucoNone {
		return errIllegalState("no truco raise available to team %d", p.Team)
	}
	if level != next {
		return errIllegalState("expected %s, got %s", next, level)
	}
	m.truco.call(level, p.Team)
	m.roundStatus = RoundAwaitingResponse
	m.emit(Event{
		Type: EventTrucoCalled, Seat: seat, Team: p.Team,
		Detail: level.String(), WaitingOn: m.teamSeats(otherTeam(p.Team)),
	})
	return nil
}

// RespondTruco answers the pending truco call. A non-none escalate level
// both accepts the pending call and raises it in one move, preempting the
// rest of the responding team.
func (m *Mesa) RespondTruco(seat int, accept bool, escalate TrucoLevel) error {
	if err := m.requirePlaying(); err != nil {
		return err
	}
	if m.truco.pending == TrucoNone {
		return errIllegalState("no truco call is pending")
	}
	if m.perros != nil {
		return errIllegalState("a perros offer is pending")
	}
	if m.envido != nil && !m.envido.resolved {
		return errIllegalState("el envido es primero: settle the envido before the truco")
	}
	p, err := m.seatPlayer(seat)
	if err != nil {
		return err
	}
	if p.Team == m.truco.pendingTeam {
		return errAuthorization("the call is aimed at the other team")
	}
	if _, dup := m.truco.responses[seat]; dup {
		return errConflict("seat %d already responded", seat)
	}

	if escalate != TrucoNone {
		if m.truco.pending == LevelVale4 {
			return errIllegalState("vale cuatro cannot be raised")
		}
		if escalate != m.truco.pending+1 {
			return errIllegalState("expected %s, got %s", m.truco.pending+1, escalate)
		}
		next := m.truco.respondEscalate(p.Team)
		m.emit(Event{Type: EventTrucoResponded, Seat: seat, Team: p.Team, Detail: "escalated"})
		m.emit(Event{
			Type: EventTrucoCalled, Seat: seat, Team: p.Team,
			Detail: next.String(), WaitingOn: m.teamSeats(otherTeam(p.Team)),
		})
		return nil
	}

	res := m.truco.recordResponse(seat, accept, m.teamSeats(p.Team))
	switch res.Outcome {
	case BidPending:
		m.emit(Event{Type: EventTrucoPartial, Seat: seat, Team: p.Team, WaitingOn: res.WaitingOn})
	case BidAccepted:
		m.truco.accept()
		m.resumePlay()
		m.emit(Event{Type: EventTrucoResponded, Seat: seat, Team: p.Team, Detail: "accepted", Points: res.Points})
	case BidDeclined:
		caller := m.truco.pendingTeam
		m.emit(Event{Type: EventTrucoResponded, Seat: seat, Team: p.Team, Detail: "declined", Points: res.Points})
		m.settleRound(caller, res.Points, "truco declined")
	}
	return nil
}

// ---- envido ladder ----

// CallEnvido opens or escalates the round's envido chain. customFalta
// overrides the falta envido stake when positive; it is only meaningful
// on a falta envido call.
func (m *Mesa) CallEnvido(seat int, level EnvidoLevel, customFalta int) error {
	if err := m.requirePlaying(); err != nil {
		return err
	}
	if level < Envido || level > FaltaEnvido {
		return errValidation("unknown envido level %d", level)
	}
	if customFalta != 0 && level != FaltaEnvido {
		return errValidation("custom points only apply to falta envido")
	}
	if customFalta < 0 {
		return errValidation("custom falta points must be positive")
	}
	p, err := m.seatPlayer(seat)
	if err != nil {
		return err
	}
	if m.flor != nil {
		return errIllegalState("flor voids envido this round")
	}
	if m.perros != nil {
		return errIllegalState("a perros offer is pending")
	}

	if m.envido != nil && !m.envido.resolved {
		// Escalation by the responding team.
		if m.envido.declaring {
			return errIllegalState("declarations already started")
		}
		if p.Team == m.envido.callerTeam {
			return errAuthorization("only the responding team may raise")
		}
		if !m.envido.canEscalate(level) {
			return errIllegalState("%s cannot raise %s", level, m.envido.pendingLevel())
		}
		m.envido.escalate(level, p.Team)
		if customFalta > 0 {
			m.envido.customFalta = customFalta
		}
		m.emit(Event{
			Type: EventEnvidoCalled, Seat: seat, Team: p.Team,
			Detail: level.String(), WaitingOn: m.teamSeats(otherTeam(p.Team)),
		})
		return nil
	}

	if m.envido != nil {
		return errConflict("envido was already played this round")
	}
	if m.envidoClosed || m.anyCardPlayed() {
		return errIllegalState("envido closes once the first card is played")
	}
	if m.roundStatus != RoundAwaitingCalls {
		// "El envido es primero": before the first card the team facing
		// a truco call may interpose the envido. The truco stays pending
		// and is answered once the envido settles.
		if m.truco.pending == TrucoNone {
			return errIllegalState("another call is awaiting its response")
		}
		if p.Team == m.truco.pendingTeam {
			return errAuthorization("the truco caller's team cannot interpose the envido")
		}
	}
	m.envido = newEnvidoState(level, p.Team)
	m.envido.customFalta = customFalta
	m.roundStatus = RoundAwaitingResponse
	m.emit(Event{
		Type: EventEnvidoCalled, Seat: seat, Team: p.Team,
		Detail: level.String(), WaitingOn: m.teamSeats(otherTeam(p.Team)),
	})
	return nil
}

// RespondEnvido accepts or declines the pending envido call. Acceptance
// opens the step-by-step declaration phase.
func (m *Mesa) RespondEnvido(seat int, accept bool) error {
	if err := m.requirePlaying(); err != nil {
		return err
	}
	if m.envido == nil || m.envido.resolved || m.envido.declaring {
		return errIllegalState("no envido call is pending")
	}
	if m.perros != nil {
		return errIllegalState("a perros offer is pending")
	}
	p, err := m.seatPlayer(seat)
	if err != nil {
		return err
	}
	if p.Team == m.envido.callerTeam {
		return errAuthorization("the call is aimed at the other team")
	}
	if _, dup := m.envido.responses[seat]; dup {
		return errConflict("seat %d already responded", seat)
	}

	m.envido.settleStakes(m.faltaPoints())
	res := m.envido.recordResponse(seat, accept, m.teamSeats(p.Team))
	switch res.Outcome {
	case BidPending:
		m.emit(Event{Type: EventEnvidoPartial, Seat: seat, Team: p.Team, WaitingOn: res.WaitingOn})
	case BidDeclined:
		caller := m.envido.callerTeam
		m.envido.resolved = true
		m.envidoClosed = true
		m.resumePlay()
		m.awardPoints(caller, res.Points)
		m.emit(Event{Type: EventEnvidoResolved, Seat: seat, Team: caller, Points: res.Points, Detail: "declined"})
		m.checkMatchEnd()
	case BidAccepted:
		order := append(m.teamSeatsFromMano(m.envido.callerTeam), m.teamSeatsFromMano(p.Team)...)
		m.envido.beginDeclarations(order)
		m.emit(Event{
			Type: EventEnvidoDeclared, Seat: m.envido.declarerSeat(), Team: p.Team,
			Detail: "accepted", Points: res.Points, WaitingOn: order,
		})
	}
	return nil
}

// DeclareEnvido records one seat's declaration step: a point value,
// optionally flagged son buenas, or a pass (PassDeclaration).
func (m *Mesa) DeclareEnvido(seat, points int, sonBuenas bool) error {
	if err := m.requirePlaying(); err != nil {
		return err
	}
	if m.envido == nil || !m.envido.declaring || m.envido.resolved {
		return errIllegalState("no envido declaration in progress")
	}
	if seat != m.envido.declarerSeat() {
		return errAuthorization("seat %d is not due to declare", seat)
	}
	if points != PassDeclaration && (points < 0 || points > 33) {
		return errValidation("envido value %d out of range [0,33]", points)
	}
	p := m.players[seat]

	d := EnvidoDeclaration{Seat: seat, Team: p.Team, Points: points, SonBuenas: sonBuenas}
	done := m.envido.declare(d, m.manoTeam())
	detail := "declared"
	if points == PassDeclaration {
		detail = "no tengo buenas"
	} else if sonBuenas {
		detail = "son buenas"
	}
	m.emit(Event{Type: EventEnvidoDeclared, Seat: seat, Team: p.Team, Points: points, Detail: detail})
	if !done {
		return nil
	}

	winner := m.envido.bestTeam
	if winner == TrickTie {
		winner = m.envido.callerTeam
	}
	m.envido.resolved = true
	m.envidoClosed = true
	m.resumePlay()
	m.awardPoints(winner, m.envido.acceptPoints)
	resolved := Event{
		Type: EventEnvidoResolved, Seat: m.envido.bestSeat, Team: winner,
		Points: m.envido.acceptPoints, Declarations: m.envido.declarations,
	}
	if m.envido.conceded {
		resolved.Detail = "conceded"
	}
	m.emit(resolved)
	m.checkMatchEnd()
	return nil
}

// faltaPoints is the falta envido stake: the caller-supplied override, or
// what the calling team still needs to reach the target.
func (m *Mesa) faltaPoints() int {
	if m.envido.customFalta > 0 {
		return m.envido.customFalta
	}
	pts := m.cfg.targetScore() - m.teams[m.envido.callerTeam].Score
	if pts < 1 {
		pts = 1
	}
	return pts
}

// ---- flor ----

// CallFlor declares the seat's flor. The first flor of the round voids
// any pending envido and opens the flor ladder against the other team; a
// teammate's later flor just joins the declaration.
func (m *Mesa) CallFlor(seat int) error {
	if err := m.requirePlaying(); err != nil {
		return err
	}
	if !m.cfg.WithFlor {
		return errIllegalState("flor is not enabled on this mesa")
	}
	p, err := m.seatPlayer(seat)
	if err != nil {
		return err
	}
	if !p.HasFlor {
		return errIllegalState("seat %d has no flor", seat)
	}
	if p.FlorShown {
		return errConflict("flor already declared")
	}
	if m.anyCardPlayed() {
		return errIllegalState("flor closes once the first card is played")
	}
	if m.perros != nil {
		return errIllegalState("a perros offer is pending")
	}

	if m.flor != nil {
		if p.Team != m.flor.callerTeam {
			return errIllegalState("respond to the pending flor instead")
		}
		p.FlorShown = true
		m.emit(Event{Type: EventFlorCalled, Seat: seat, Team: p.Team})
		return nil
	}

	if m.envido != nil && !m.envido.resolved {
		m.envido.resolved = true
		m.emit(Event{Type: EventEnvidoResolved, Seat: seat, Team: 0, Points: 0, Detail: "voided by flor"})
	}
	m.envidoClosed = true
	p.FlorShown = true
	m.flor = newFlorState(seat, p.Team)
	m.roundStatus = RoundAwaitingResponse
	m.emit(Event{
		Type: EventFlorCalled, Seat: seat, Team: p.Team,
		WaitingOn: m.teamSeats(otherTeam(p.Team)),
	})
	return nil
}

// RespondFlor answers the pending flor call or raise.
func (m *Mesa) RespondFlor(seat int, r FlorResponse) error {
	if err := m.requirePlaying(); err != nil {
		return err
	}
	if m.flor == nil || m.flor.resolved {
		return errIllegalState("no flor is pending")
	}
	if m.perros != nil {
		return errIllegalState("a perros offer is pending")
	}
	p, err := m.seatPlayer(seat)
	if err != nil {
		return err
	}
	respTeam := otherTeam(m.flor.callerTeam)
	if m.flor.raiserSeat != InvalidSeat {
		respTeam = m.flor.callerTeam
	}
	if p.Team != respTeam {
		return errAuthorization("the flor is aimed at the other team")
	}
	if _, dup := m.flor.responses[seat]; dup {
		return errConflict("seat %d already responded", seat)
	}
	switch r {
	case FlorRaiseContra:
		if m.flor.level != Flor {
			return errIllegalState("the flor was already raised")
		}
		if !p.HasFlor {
			return errIllegalState("contra flor requires a flor in hand")
		}
	case FlorRaiseConEnvido:
		if m.flor.level != Flor {
			return errIllegalState("the flor was already raised")
		}
		if p.HasFlor {
			return errIllegalState("con flor envido is for hands without flor")
		}
	case FlorAccept:
		if m.flor.level == Flor {
			return errIllegalState("there is no raise to accept")
		}
	case FlorAck:
	default:
		return errValidation("unknown flor response %d", r)
	}

	done, raise := m.flor.record(seat, r, m.teamSeats(respTeam))
	switch {
	case raise == FlorRaiseContra:
		m.flor.level = ContraFlor
		m.flor.raiserSeat = seat
		m.flor.raiserTeam = p.Team
		m.flor.responses = map[int]FlorResponse{}
		p.FlorShown = true
		m.emit(Event{
			Type: EventFlorCalled, Seat: seat, Team: p.Team,
			Detail: ContraFlor.String(), WaitingOn: m.teamSeats(m.flor.callerTeam),
		})
	case raise == FlorRaiseConEnvido:
		m.flor.level = ConFlorEnvido
		m.flor.raiserSeat = seat
		m.flor.raiserTeam = p.Team
		m.flor.responses = map[int]FlorResponse{}
		m.emit(Event{
			Type: EventFlorCalled, Seat: seat, Team: p.Team,
			Detail: ConFlorEnvido.String(), WaitingOn: m.teamSeats(m.flor.callerTeam),
		})
	case !done:
		m.emit(Event{Type: EventFlorPending, Seat: seat, Team: p.Team, WaitingOn: m.florWaiting(respTeam)})
	default:
		m.resolveFlor()
	}
	return nil
}

func (m *Mesa) florWaiting(respTeam int) []int {
	var waiting []int
	for _, s := range m.teamSeats(respTeam) {
		if _, ok := m.flor.responses[s]; !ok {
			waiting = append(waiting, s)
		}
	}
	return waiting
}

// resolveFlor settles the flor once every responder has spoken.
func (m *Mesa) resolveFlor() {
	f := m.flor
	f.resolved = true
	f.awarded = true
	m.resumePlay()

	switch f.level {
	case Flor:
		pts := florBasePoints * m.florHandCount(f.callerTeam)
		m.awardPoints(f.callerTeam, pts)
		m.emit(Event{Type: EventFlorResolved, Seat: f.callerSeat, Team: f.callerTeam, Points: pts, Detail: "flor"})
	case ContraFlor:
		if !f.anyAccepted() {
			m.awardPoints(f.raiserTeam, contraFlorDecline)
			m.emit(Event{Type: EventFlorResolved, Seat: f.raiserSeat, Team: f.raiserTeam, Points: contraFlorDecline, Detail: "contra flor declined"})
			break
		}
		winner := m.bestFlorTeam(f.callerTeam, f.raiserTeam)
		m.awardPoints(winner, contraFlorPoints)
		m.emit(Event{Type: EventFlorResolved, Team: winner, Seat: InvalidSeat, Points: contraFlorPoints, Detail: "contra flor"})
	case ConFlorEnvido:
		if !f.anyAccepted() {
			m.awardPoints(f.raiserTeam, conFlorEnvidoDecline)
			m.emit(Event{Type: EventFlorResolved, Seat: f.raiserSeat, Team: f.raiserTeam, Points: conFlorEnvidoDecline, Detail: "con flor envido declined"})
			break
		}
		florSide := m.bestFlorValue(f.callerTeam)
		envidoSide := m.bestEnvidoValue(f.raiserTeam)
		winner := f.callerTeam
		if envidoSide > florSide || (envidoSide == florSide && m.manoTeam() == f.raiserTeam) {
			winner = f.raiserTeam
		}
		m.awardPoints(winner, conFlorEnvidoPoints)
		m.emit(Event{Type: EventFlorResolved, Team: winner, Seat: InvalidSeat, Points: conFlorEnvidoPoints, Detail: "con flor envido"})
	}
	m.checkMatchEnd()
}

func (m *Mesa) florHandCount(team int) int {
	n := 0
	for _, s := range m.teamSeats(team) {
		if m.players[s].HasFlor {
			n++
		}
	}
	return n
}

func (m *Mesa) bestFlorValue(team int) int {
	best := -1
	for _, s := range m.teamSeats(team) {
		if m.players[s].HasFlor {
			if v := FlorValue(m.dealt[s]); v > best {
				best = v
			}
		}
	}
	return best
}

func (m *Mesa) bestEnvidoValue(team int) int {
	best := -1
	for _, s := range m.teamSeats(team) {
		if v := EnvidoValue(m.dealt[s]); v > best {
			best = v
		}
	}
	return best
}

// bestFlorTeam compares the two sides' best flors; ties fall to the mano.
func (m *Mesa) bestFlorTeam(a, b int) int {
	va, vb := m.bestFlorValue(a), m.bestFlorValue(b)
	switch {
	case va > vb:
		return a
	case vb > va:
		return b
	case m.manoTeam() == b:
		return b
	default:
		return a
	}
}

// ---- perros ----

// OfferPerros bundles every contra-flor, falta-envido and truco decision
// currently open to the seat's team into one all-or-nothing offer.
func (m *Mesa) OfferPerros(seat int) error {
	if err := m.requirePlaying(); err != nil {
		return err
	}
	if m.perros != nil {
		return errConflict("a perros offer is already pending")
	}
	if m.roundStatus == RoundFinished {
		return errIllegalState("the round is over")
	}
	if m.envido != nil && m.envido.declaring && !m.envido.resolved {
		return errIllegalState("declarations already started")
	}
	p, err := m.seatPlayer(seat)
	if err != nil {
		return err
	}
	offer := &PerrosOffer{Seat: seat, Team: p.Team, responses: map[int]*PerrosResponse{}}
	offer.ContraFlor = m.perrosContraFlorEligible(p.Team)
	offer.FaltaEnvido = m.perrosFaltaEligible(p.Team)
	offer.TrucoLevel = m.perrosTrucoLevel(p.Team)
	if !offer.ContraFlor && !offer.FaltaEnvido && offer.TrucoLevel == TrucoNone {
		return errIllegalState("nothing to offer")
	}
	m.perros = offer
	m.roundStatus = RoundAwaitingResponse
	m.emit(Event{
		Type: EventPerrosOffered, Seat: seat, Team: p.Team,
		Detail: m.perrosDetail(offer), WaitingOn: m.teamSeats(otherTeam(p.Team)),
	})
	return nil
}

// CancelPerros withdraws an unanswered offer; play resumes where it stood.
func (m *Mesa) CancelPerros(seat int) error {
	if err := m.requirePlaying(); err != nil {
		return err
	}
	if m.perros == nil {
		return errIllegalState("no perros offer is pending")
	}
	p, err := m.seatPlayer(seat)
	if err != nil {
		return err
	}
	if p.Team != m.perros.Team {
		return errAuthorization("only the offering team may cancel")
	}
	if len(m.perros.responses) > 0 {
		return errIllegalState("the offer was already answered")
	}
	m.perros = nil
	m.resumePlay()
	m.emit(Event{Type: EventPerrosCancelled, Seat: seat, Team: p.Team})
	return nil
}

// RespondPerros records one responder's three choices and, once the whole
// team has answered, adjudicates every component in a single transition.
func (m *Mesa) RespondPerros(seat int, wantsContraFlor, wantsFaltaEnvido, wantsTruco bool) error {
	if err := m.requirePlaying(); err != nil {
		return err
	}
	if m.perros == nil {
		return errIllegalState("no perros offer is pending")
	}
	p, err := m.seatPlayer(seat)
	if err != nil {
		return err
	}
	if p.Team == m.perros.Team {
		return errAuthorization("the offer is aimed at the other team")
	}
	if _, dup := m.perros.responses[seat]; dup {
		return errConflict("seat %d already responded", seat)
	}

	done, waiting := m.perros.record(&PerrosResponse{
		Seat: seat, ContraFlor: wantsContraFlor, FaltaEnvido: wantsFaltaEnvido, Truco: wantsTruco,
	}, m.teamSeats(p.Team))
	if !done {
		m.emit(Event{Type: EventPerrosPending, Seat: seat, Team: p.Team, WaitingOn: waiting})
		return nil
	}
	m.settlePerros()
	return nil
}

func (m *Mesa) perrosContraFlorEligible(team int) bool {
	return m.flor != nil && !m.flor.resolved && m.flor.level == Flor &&
		team == otherTeam(m.flor.callerTeam) && m.florHandCount(team) > 0
}

func (m *Mesa) perrosFaltaEligible(team int) bool {
	if m.envido != nil {
		return !m.envido.resolved && !m.envido.declaring &&
			!m.envido.hasFalta() && team != m.envido.callerTeam
	}
	return !m.envidoClosed && !m.anyCardPlayed() && m.flor == nil
}

func (m *Mesa) perrosTrucoLevel(team int) TrucoLevel {
	if m.truco.pending != TrucoNone {
		if m.truco.pendingTeam != team && m.truco.pending < LevelVale4 {
			return m.truco.pending + 1
		}
		return TrucoNone
	}
	return m.truco.nextLevel(team)
}

func (m *Mesa) perrosDetail(o *PerrosOffer) string {
	d := ""
	if o.ContraFlor {
		d += "contra-flor "
	}
	if o.FaltaEnvido {
		d += "falta-envido "
	}
	if o.TrucoLevel != TrucoNone {
		d += o.TrucoLevel.String()
	}
	return d
}

// settlePerros adjudicates the complete offer. Wanted envido and flor
// components resolve immediately from the dealt hands; the truco
// component either locks in the level or ends the round.
func (m *Mesa) settlePerros() {
	offer := m.perros
	wantCF, wantFE, wantTruco := offer.accepted()
	offerTeam := offer.Team
	respTeam := otherTeam(offerTeam)

	if offer.ContraFlor {
		m.flor.resolved = true
		m.flor.awarded = true
		if wantCF {
			winner := m.bestFlorTeam(m.flor.callerTeam, offerTeam)
			m.awardPoints(winner, contraFlorPoints)
			m.emit(Event{Type: EventFlorResolved, Team: winner, Seat: InvalidSeat, Points: contraFlorPoints, Detail: "contra flor"})
		} else {
			m.awardPoints(offerTeam, contraFlorDecline)
			m.emit(Event{Type: EventFlorResolved, Team: offerTeam, Seat: offer.Seat, Points: contraFlorDecline, Detail: "contra flor declined"})
		}
	}

	if offer.FaltaEnvido {
		if m.envido == nil {
			m.envido = newEnvidoState(FaltaEnvido, offerTeam)
		} else {
			m.envido.escalate(FaltaEnvido, offerTeam)
		}
		m.envido.settleStakes(m.faltaPoints())
		m.envido.resolved = true
		m.envidoClosed = true
		if wantFE {
			a, b := m.bestEnvidoValue(offerTeam), m.bestEnvidoValue(respTeam)
			winner := offerTeam
			if b > a || (b == a && m.manoTeam() == respTeam) {
				winner = respTeam
			}
			m.awardPoints(winner, m.envido.acceptPoints)
			m.emit(Event{Type: EventEnvidoResolved, Team: winner, Seat: InvalidSeat, Points: m.envido.acceptPoints, Detail: "falta envido"})
		} else {
			m.awardPoints(offerTeam, m.envido.declinePoints)
			m.emit(Event{Type: EventEnvidoResolved, Team: offerTeam, Seat: offer.Seat, Points: m.envido.declinePoints, Detail: "falta envido declined"})
		}
	}

	m.perros = nil
	m.emit(Event{Type: EventPerrosResponded, Seat: offer.Seat, Team: respTeam, Detail: m.perrosDetail(offer)})

	if offer.TrucoLevel != TrucoNone {
		if wantTruco {
			m.truco.level = offer.TrucoLevel
			m.truco.ownerTeam = offerTeam
			m.truco.pending = TrucoNone
			m.truco.responses = nil
		} else {
			if m.checkMatchEnd() {
				return
			}
			m.settleRound(offerTeam, offer.TrucoLevel.DeclineValue(), "perros declined")
			return
		}
	}
	if m.checkMatchEnd() {
		return
	}
	m.resumePlay()
}

// ---- scoring and round settlement ----

// settleRound ends the round, pays the truco stake and reveals flors.
func (m *Mesa) settleRound(winnerTeam, points int, detail string) {
	m.roundStatus = RoundFinished
	if m.flor != nil && !m.flor.awarded {
		// A flor nobody answered still pays its base at the latest here.
		m.flor.resolved = true
		m.flor.awarded = true
		pts := florBasePoints * m.florHandCount(m.flor.callerTeam)
		m.awardPoints(m.flor.callerTeam, pts)
		m.emit(Event{Type: EventFlorResolved, Seat: m.flor.callerSeat, Team: m.flor.callerTeam, Points: pts, Detail: "flor"})
		if m.checkMatchEnd() {
			return
		}
	}
	m.awardPoints(winnerTeam, points)
	m.emit(Event{
		Type: EventRoundFinished, Team: winnerTeam, Seat: InvalidSeat,
		Points: points, Detail: detail, FlorReveals: m.florReveals(),
	})
	m.checkMatchEnd()
}

func (m *Mesa) florReveals() []FlorReveal {
	var reveals []FlorReveal
	for seat, p := range m.players {
		if p.HasFlor {
			reveals = append(reveals, FlorReveal{
				Seat: seat, Team: p.Team,
				Cards: m.dealt[seat], Value: FlorValue(m.dealt[seat]),
			})
		}
	}
	return reveals
}

func (m *Mesa) awardPoints(team, points int) {
	m.teams[team].Score += points
}

// checkMatchEnd finishes the match once a team reaches the target.
func (m *Mesa) checkMatchEnd() bool {
	if m.status != StatusPlaying {
		return true
	}
	target := m.cfg.targetScore()
	for _, t := range m.teams {
		if t.Score >= target {
			t.Score = target
			m.status = StatusFinished
			m.roundStatus = RoundFinished
			m.emit(Event{Type: EventMatchFinished, Team: t.ID, Seat: InvalidSeat, Points: t.Score})
			return true
		}
	}
	return false
}

// ---- helpers ----

func (m *Mesa) requirePlaying() error {
	switch m.status {
	case StatusPlaying:
		return nil
	case StatusWaiting:
		return errIllegalState("match has not started")
	default:
		return errIllegalState("match is finished")
	}
}

func (m *Mesa) seatPlayer(seat int) (*Player, error) {
	if seat < 0 || seat >= len(m.players) {
		return nil, errValidation("no seat %d", seat)
	}
	return m.players[seat], nil
}

func (m *Mesa) playerByID(id string) *Player {
	for _, p := range m.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (m *Mesa) removeSeatFromTeam(team, seat int) {
	seats := m.teams[team].Seats
	for i, s := range seats {
		if s == seat {
			m.teams[team].Seats = append(seats[:i], seats[i+1:]...)
			return
		}
	}
}

func (m *Mesa) nextSeat(seat int) int { return (seat + 1) % len(m.players) }

func (m *Mesa) playOrderFrom(start int) []int {
	order := make([]int, 0, len(m.players))
	for i := 0; i < len(m.players); i++ {
		order = append(order, (start+i)%len(m.players))
	}
	return order
}

// teamSeats lists a team's seats in clockwise order.
func (m *Mesa) teamSeats(team int) []int {
	var seats []int
	for _, p := range m.players {
		if p.Team == team {
			seats = append(seats, p.Seat)
		}
	}
	return seats
}

// teamSeatsFromMano lists a team's seats in play order from the mano.
func (m *Mesa) teamSeatsFromMano(team int) []int {
	var seats []int
	for _, s := range m.playOrderFrom(m.manoSeat) {
		if m.players[s].Team == team {
			seats = append(seats, s)
		}
	}
	return seats
}

func (m *Mesa) manoTeam() int { return m.players[m.manoSeat].Team }

func (m *Mesa) currentTrick() *Trick { return &m.tricks[len(m.tricks)-1] }

func (m *Mesa) anyCardPlayed() bool {
	return len(m.tricks) > 1 || len(m.tricks[0].Plays) > 0
}

// resumePlay derives the round sub-state after a ladder resolves. At most
// one ladder is ever pending, so the derivation is unambiguous.
func (m *Mesa) resumePlay() {
	switch {
	case m.perros != nil,
		m.truco.pending != TrucoNone,
		m.envido != nil && !m.envido.resolved,
		m.flor != nil && !m.flor.resolved:
		m.roundStatus = RoundAwaitingResponse
	case m.anyCardPlayed():
		m.roundStatus = RoundPlayingTricks
	default:
		m.roundStatus = RoundAwaitingCalls
	}
}
