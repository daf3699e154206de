package table

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"truco-mesa/apps/server/internal/codec"
	"truco-mesa/apps/server/internal/stats"
	"truco-mesa/card"
	"truco-mesa/truco"
	"truco-mesa/truco/bot"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Table is the actor around one mesa. All engine access happens on the
// actor goroutine; connections talk to it through SubmitEvent and the
// broadcast callback carries encoded frames back out.
type Table struct {
	ID     string
	Config Config

	mu       sync.RWMutex
	mesa     *truco.Mesa
	log      *zap.SugaredLogger
	players  map[string]*PlayerConn // playerID -> connection state
	hostID   string
	closed   bool
	stopOnce sync.Once

	events chan Event
	done   chan struct{}

	serverSeq uint64

	nextRoundAt time.Time
	emptySince  time.Time

	broadcast func(playerID string, data []byte)
	stats     stats.Service

	brains     map[string]bot.Brain // bot playerID -> brain
	botPending map[string]bool
	botCount   int

	rounds        int
	statsRecorded bool
}

// Config carries the mesa settings plus table-level timing knobs.
type Config struct {
	TeamSize    int
	TargetScore int
	WithFlor    bool

	// DisconnectGrace is how long a waited-on offline player stalls the
	// mesa before the table answers for them. Zero stalls forever.
	DisconnectGrace time.Duration
}

// PlayerConn tracks one human player's connection state.
type PlayerConn struct {
	PlayerID string
	Name     string
	Online   bool
	LastSeen time.Time
}

type EventType int

const (
	EventJoin EventType = iota
	EventCommand
	EventBotAction
	EventConnLost
	EventConnResume
	EventChat
	EventResync
	EventAddBot
	EventClose
)

// Event is one message to the table actor. Command payloads travel as
// the decoded client message.
type Event struct {
	Type      EventType
	PlayerID  string
	Name      string
	Msg       codec.ClientMessage
	Decision  bot.Decision
	Timestamp time.Time
	Response  chan error
}

var ErrTableClosed = errors.New("table closed")

const (
	nextRoundDelay = 3 * time.Second
	botThinkBase   = 600 * time.Millisecond
	botThinkStep   = 150 * time.Millisecond
)

// New creates a table actor and starts its goroutine.
func New(
	id string,
	cfg Config,
	broadcastFn func(playerID string, data []byte),
	statsService stats.Service,
	logger *zap.SugaredLogger,
) (*Table, error) {
	mesa, err := truco.NewMesa(truco.Config{
		TeamSize:    cfg.TeamSize,
		TargetScore: cfg.TargetScore,
		WithFlor:    cfg.WithFlor,
	})
	if err != nil {
		return nil, err
	}

	t := &Table{
		ID:         id,
		Config:     cfg,
		mesa:       mesa,
		log:        logger.Named("table").With("match", id),
		players:    make(map[string]*PlayerConn),
		events:     make(chan Event, 256),
		done:       make(chan struct{}),
		broadcast:  broadcastFn,
		stats:      statsService,
		brains:     make(map[string]bot.Brain),
		botPending: make(map[string]bool),
		emptySince: time.Now(),
	}
	mesa.DrainEvents() // discard match-created, the lobby reports creation

	go t.run()
	t.log.Infow("table created", "teamSize", cfg.TeamSize, "withFlor", cfg.WithFlor)
	return t, nil
}

func (t *Table) run() {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case event := <-t.events:
			err := t.handleEvent(event)
			if event.Response != nil {
				event.Response <- err
			}
		case <-ticker.C:
			t.tick()
		case <-t.done:
			t.log.Debug("actor stopped")
			return
		}
	}
}

// SubmitEvent queues an event and waits for the actor's answer.
func (t *Table) SubmitEvent(e Event) error {
	e.Timestamp = time.Now()
	if e.Response == nil {
		e.Response = make(chan error, 1)
	}

	t.mu.RLock()
	closed := t.closed
	t.mu.RUnlock()
	if closed {
		return ErrTableClosed
	}

	select {
	case t.events <- e:
	case <-t.done:
		return ErrTableClosed
	}

	select {
	case err := <-e.Response:
		return err
	case <-t.done:
		return ErrTableClosed
	}
}

func (t *Table) handleEvent(e Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed && e.Type != EventClose {
		return ErrTableClosed
	}

	switch e.Type {
	case EventJoin:
		return t.handleJoin(e.PlayerID, e.Name)
	case EventCommand:
		return t.handleCommand(e.PlayerID, e.Msg)
	case EventBotAction:
		return t.handleBotAction(e.PlayerID, e.Decision)
	case EventConnLost:
		return t.handleConnLost(e.PlayerID, e.Timestamp)
	case EventConnResume:
		return t.handleConnResume(e.PlayerID, e.Name, e.Timestamp)
	case EventChat:
		return t.handleChat(e.PlayerID, e.Msg.Text)
	case EventResync:
		return t.handleResync(e.PlayerID)
	case EventAddBot:
		return t.handleAddBot()
	case EventClose:
		t.stopLocked()
		return nil
	default:
		return fmt.Errorf("unknown event type: %d", e.Type)
	}
}

func (t *Table) handleJoin(playerID, name string) error {
	now := time.Now()
	if pc, exists := t.players[playerID]; exists {
		pc.Online = true
		pc.LastSeen = now
		t.updateEmptySinceLocked(now)
		t.sendSnapshot(playerID)
		return nil
	}

	if _, err := t.mesa.Join(playerID, name, false); err != nil {
		return err
	}
	t.players[playerID] = &PlayerConn{
		PlayerID: playerID,
		Name:     name,
		Online:   true,
		LastSeen: now,
	}
	if t.hostID == "" {
		t.hostID = playerID
	}
	t.updateEmptySinceLocked(now)
	t.log.Infow("player joined", "player", playerID, "name", name)
	t.flushMesaEvents()
	return nil
}

func (t *Table) handleCommand(playerID string, msg codec.ClientMessage) error {
	if err := t.applyCommand(playerID, msg); err != nil {
		return err
	}
	t.flushMesaEvents()
	return nil
}

func (t *Table) applyCommand(playerID string, msg codec.ClientMessage) error {
	switch msg.Type {
	case codec.CmdSwitchTeam:
		return t.mesa.SwitchTeam(playerID, msg.Team)
	case codec.CmdConfigurePoints:
		return t.mesa.ConfigureTarget(msg.Target)
	case codec.CmdStartMatch:
		if playerID != t.hostID {
			return errors.New("only the match creator can start it")
		}
		return t.mesa.Start()
	case codec.CmdRematch:
		if err := t.mesa.Rematch(); err != nil {
			return err
		}
		t.rounds = 0
		t.statsRecorded = false
		return nil
	}

	seat, ok := t.mesa.SeatOf(playerID)
	if !ok {
		return errors.New("player not seated at this mesa")
	}

	switch msg.Type {
	case codec.CmdPlayCard:
		return t.mesa.PlayCard(seat, card.Card(msg.Card))
	case codec.CmdFold:
		return t.mesa.Fold(seat)
	case codec.CmdCutDeck:
		return t.mesa.CutDeck(seat, msg.Position)
	case codec.CmdCallTruco:
		level, err := codec.TrucoLevel(msg.Level)
		if err != nil {
			return err
		}
		return t.mesa.CallTruco(seat, level)
	case codec.CmdRespondTruco:
		escalate := truco.TrucoNone
		if msg.Escalate != "" {
			level, err := codec.TrucoLevel(msg.Escalate)
			if err != nil {
				return err
			}
			escalate = level
		}
		return t.mesa.RespondTruco(seat, msg.Accept, escalate)
	case codec.CmdCallEnvido:
		level, err := codec.EnvidoLevel(msg.Level)
		if err != nil {
			return err
		}
		return t.mesa.CallEnvido(seat, level, msg.CustomFalta)
	case codec.CmdRespondEnvido:
		return t.mesa.RespondEnvido(seat, msg.Accept)
	case codec.CmdDeclareEnvido:
		points := msg.Points
		if msg.Pass {
			points = truco.PassDeclaration
		}
		return t.mesa.DeclareEnvido(seat, points, msg.SonBuenas)
	case codec.CmdCallFlor:
		return t.mesa.CallFlor(seat)
	case codec.CmdRespondFlor:
		r, err := codec.FlorResponse(msg.Flor)
		if err != nil {
			return err
		}
		return t.mesa.RespondFlor(seat, r)
	case codec.CmdOfferPerros:
		return t.mesa.OfferPerros(seat)
	case codec.CmdCancelPerros:
		return t.mesa.CancelPerros(seat)
	case codec.CmdRespondPerros:
		return t.mesa.RespondPerros(seat, msg.WantsContraFlor, msg.WantsFaltaEnvido, msg.WantsTruco)
	default:
		return fmt.Errorf("unknown command %q", msg.Type)
	}
}

func (t *Table) handleAddBot() error {
	t.botCount++
	id := uuid.NewString()
	name := fmt.Sprintf("Bot-%d", t.botCount)
	if _, err := t.mesa.Join(id, name, true); err != nil {
		t.botCount--
		return err
	}
	t.brains[id] = bot.NewRuleBrain(name, time.Now().UnixNano()+int64(t.botCount))
	t.log.Infow("bot seated", "bot", name)
	t.flushMesaEvents()
	return nil
}

func (t *Table) handleBotAction(playerID string, d bot.Decision) error {
	delete(t.botPending, playerID)

	seat, ok := t.mesa.SeatOf(playerID)
	if !ok {
		return nil
	}
	if !t.seatIsWaitedOn(seat) {
		return nil // mesa moved on while the bot was thinking
	}

	var err error
	switch d.Action {
	case bot.ActPlayCard:
		err = t.mesa.PlayCard(seat, d.Card)
	case bot.ActCallTruco:
		err = t.mesa.CallTruco(seat, d.Escalate)
	case bot.ActCallEnvido:
		err = t.mesa.CallEnvido(seat, d.EnvidoLevel, 0)
	case bot.ActCallFlor:
		err = t.mesa.CallFlor(seat)
	case bot.ActRespondTruco:
		err = t.mesa.RespondTruco(seat, d.Accept, d.Escalate)
	case bot.ActRespondEnvido:
		err = t.mesa.RespondEnvido(seat, d.Accept)
	case bot.ActDeclareEnvido:
		err = t.mesa.DeclareEnvido(seat, d.Points, d.SonBuenas)
	case bot.ActRespondFlor:
		err = t.mesa.RespondFlor(seat, d.Flor)
	case bot.ActRespondPerros:
		err = t.mesa.RespondPerros(seat, d.WantsContraFlor, d.WantsFaltaEnvido, d.WantsTruco)
	case bot.ActFold:
		err = t.mesa.Fold(seat)
	default:
		return nil
	}
	if err != nil {
		// Fall back to the neutral answer so the mesa never stalls on a bot.
		t.log.Warnw("bot action rejected", "seat", seat, "err", err)
		err = t.autoRespond(seat)
	}
	if err != nil {
		return err
	}
	t.flushMesaEvents()
	return nil
}

func (t *Table) handleConnLost(playerID string, ts time.Time) error {
	pc := t.players[playerID]
	if pc == nil {
		return nil
	}
	if ts.IsZero() {
		ts = time.Now()
	}
	pc.Online = false
	pc.LastSeen = ts
	t.updateEmptySinceLocked(ts)

	if seat, ok := t.mesa.SeatOf(playerID); ok {
		_ = t.mesa.SetConnected(seat, false)
		t.sendToAll(codec.ServerMessage{
			Type: codec.MsgPlayerDisconnected, MatchID: t.ID,
			Seq: t.nextSeq(), Ts: ts.UnixMilli(),
			Event: &codec.EventBody{Seat: seat},
		})
	}
	if playerID == t.hostID {
		t.sendToAll(codec.ServerMessage{
			Type: codec.MsgHostDisconnected, MatchID: t.ID,
			Seq: t.nextSeq(), Ts: ts.UnixMilli(),
		})
	}
	t.log.Infow("player disconnected", "player", playerID)
	return nil
}

func (t *Table) handleConnResume(playerID, name string, ts time.Time) error {
	pc := t.players[playerID]
	if pc == nil {
		return errors.New("player not at this mesa")
	}
	if ts.IsZero() {
		ts = time.Now()
	}
	if name != "" {
		pc.Name = name
	}
	pc.Online = true
	pc.LastSeen = ts
	t.updateEmptySinceLocked(ts)

	seat, ok := t.mesa.SeatOf(playerID)
	if ok {
		_ = t.mesa.SetConnected(seat, true)
	}
	t.broadcastEngineEvent(truco.Event{Type: truco.EventReconnected, Seat: seat})
	t.log.Infow("player reconnected", "player", playerID)
	return nil
}

func (t *Table) handleChat(playerID, text string) error {
	pc := t.players[playerID]
	if pc == nil {
		return errors.New("player not at this mesa")
	}
	if text == "" {
		return errors.New("empty chat message")
	}
	seat, _ := t.mesa.SeatOf(playerID)
	t.sendToAll(codec.ServerMessage{
		Type: codec.MsgChat, MatchID: t.ID,
		Seq: t.nextSeq(), Ts: time.Now().UnixMilli(),
		Chat: &codec.ChatBody{Seat: seat, Name: pc.Name, Text: text},
	})
	return nil
}

func (t *Table) handleResync(playerID string) error {
	if _, exists := t.players[playerID]; !exists {
		return errors.New("player not at this mesa")
	}
	t.sendSnapshot(playerID)
	return nil
}

func (t *Table) tick() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	now := time.Now()

	if !t.nextRoundAt.IsZero() && !now.Before(t.nextRoundAt) {
		t.nextRoundAt = time.Time{}
		if err := t.mesa.StartNextRound(); err != nil {
			t.log.Warnw("delayed round start failed", "err", err)
		} else {
			t.flushMesaEvents()
		}
	}

	t.answerForOffline(now)
	t.scheduleBots()
}

// answerForOffline gives the neutral response for any waited-on seat
// whose player has been offline past the grace window.
func (t *Table) answerForOffline(now time.Time) {
	grace := t.Config.DisconnectGrace
	if grace <= 0 {
		return
	}
	w := t.mesa.Waiting()
	if w.Kind == truco.WaitNone {
		return
	}
	for _, seat := range w.Seats {
		p, ok := t.mesa.PlayerAt(seat)
		if !ok || p.Bot {
			continue
		}
		pc := t.players[p.ID]
		if pc == nil || pc.Online || now.Sub(pc.LastSeen) < grace {
			continue
		}
		t.log.Infow("answering for offline player", "seat", seat, "wait", int(w.Kind))
		if err := t.autoRespond(seat); err != nil {
			t.log.Warnw("auto response failed", "seat", seat, "err", err)
			continue
		}
		t.flushMesaEvents()
		return // one seat per tick, state may have shifted
	}
}

// autoRespond declines, passes or folds on a seat's behalf.
func (t *Table) autoRespond(seat int) error {
	switch t.mesa.Waiting().Kind {
	case truco.WaitTurn:
		return t.mesa.Fold(seat)
	case truco.WaitTruco:
		return t.mesa.RespondTruco(seat, false, truco.TrucoNone)
	case truco.WaitEnvido:
		return t.mesa.RespondEnvido(seat, false)
	case truco.WaitEnvidoDeclaration:
		return t.mesa.DeclareEnvido(seat, truco.PassDeclaration, false)
	case truco.WaitFlor:
		return t.mesa.RespondFlor(seat, truco.FlorAck)
	case truco.WaitPerros:
		return t.mesa.RespondPerros(seat, false, false, false)
	}
	return nil
}

// scheduleBots hands a pending decision to every waited-on bot seat.
// Brains think off the actor goroutine and answer through the queue.
func (t *Table) scheduleBots() {
	w := t.mesa.Waiting()
	if w.Kind == truco.WaitNone {
		return
	}
	for _, seat := range w.Seats {
		p, ok := t.mesa.PlayerAt(seat)
		if !ok || !p.Bot {
			continue
		}
		brain := t.brains[p.ID]
		if brain == nil || t.botPending[p.ID] {
			continue
		}
		t.botPending[p.ID] = true

		view := t.mesa.SnapshotFor(seat)
		playerID := p.ID
		// Stagger teammates so simultaneous responders don't race.
		delay := botThinkBase + time.Duration(seat)*botThinkStep
		go func() {
			time.Sleep(delay)
			decision := brain.Decide(view)
			_ = t.SubmitEvent(Event{
				Type:     EventBotAction,
				PlayerID: playerID,
				Decision: decision,
			})
		}()
	}
}

func (t *Table) seatIsWaitedOn(seat int) bool {
	w := t.mesa.Waiting()
	for _, s := range w.Seats {
		if s == seat {
			return true
		}
	}
	return false
}

// flushMesaEvents drains the engine and fans each event out with
// per-seat redacted snapshots. Must be called with the mutex held.
func (t *Table) flushMesaEvents() {
	for _, ev := range t.mesa.DrainEvents() {
		t.broadcastEngineEvent(ev)
		switch ev.Type {
		case truco.EventRoundFinished:
			t.rounds++
			if t.mesa.Status() == truco.StatusPlaying {
				t.nextRoundAt = time.Now().Add(nextRoundDelay)
			}
		case truco.EventMatchFinished:
			t.nextRoundAt = time.Time{}
			t.persistMatchStats()
		}
	}
	t.scheduleBots()
}

func (t *Table) broadcastEngineEvent(ev truco.Event) {
	seq := t.nextSeq()
	for playerID := range t.players {
		seat, _ := t.mesa.SeatOf(playerID)
		wireEv := ev
		// Deal ticks name the card only to its owner.
		if ev.Type == truco.EventDealProgress && seat != ev.Seat {
			wireEv.Card = card.CardInvalid
		}
		var snap *truco.Snapshot
		if ev.Type != truco.EventDealProgress {
			view := t.mesa.SnapshotFor(seat)
			snap = &view
		}
		t.sendTo(playerID, codec.Event(t.ID, seq, wireEv, snap))
	}
}

func (t *Table) sendSnapshot(playerID string) {
	seat, _ := t.mesa.SeatOf(playerID)
	view := t.mesa.SnapshotFor(seat)
	t.sendTo(playerID, codec.Event(t.ID, t.nextSeq(),
		truco.Event{Type: truco.EventStateUpdated, Seat: seat}, &view))
}

func (t *Table) sendTo(playerID string, msg codec.ServerMessage) {
	data, err := codec.Encode(msg)
	if err != nil {
		t.log.Errorw("encode frame failed", "type", msg.Type, "err", err)
		return
	}
	t.broadcast(playerID, data)
}

func (t *Table) sendToAll(msg codec.ServerMessage) {
	data, err := codec.Encode(msg)
	if err != nil {
		t.log.Errorw("encode frame failed", "type", msg.Type, "err", err)
		return
	}
	for playerID := range t.players {
		t.broadcast(playerID, data)
	}
}

func (t *Table) persistMatchStats() {
	if t.stats == nil || t.statsRecorded {
		return
	}
	t.statsRecorded = true

	winner := t.mesa.WinnerTeam()
	summary := stats.MatchSummary{
		MatchID:     t.ID,
		FinishedAt:  time.Now().UTC(),
		TargetScore: t.mesa.TargetScore(),
		TeamSize:    t.mesa.TeamSize(),
		WithFlor:    t.Config.WithFlor,
		WinnerTeam:  winner,
		Team1Score:  t.mesa.Score(1),
		Team2Score:  t.mesa.Score(2),
		Rounds:      t.rounds,
	}
	for seat := 0; seat < t.mesa.PlayerCount(); seat++ {
		p, ok := t.mesa.PlayerAt(seat)
		if !ok {
			continue
		}
		summary.Players = append(summary.Players, stats.PlayerResult{
			PlayerID: p.ID,
			Name:     p.Name,
			Seat:     p.Seat,
			Team:     p.Team,
			Bot:      p.Bot,
			Won:      p.Team == winner,
		})
	}
	go t.stats.RecordMatch(summary)
}

func (t *Table) nextSeq() uint64 {
	t.serverSeq++
	return t.serverSeq
}

func (t *Table) updateEmptySinceLocked(now time.Time) {
	for _, pc := range t.players {
		if pc.Online {
			t.emptySince = time.Time{}
			return
		}
	}
	if t.emptySince.IsZero() {
		t.emptySince = now
	}
}

// Stop shuts the actor down.
func (t *Table) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

func (t *Table) stopLocked() {
	t.closed = true
	t.nextRoundAt = time.Time{}
	t.stopOnce.Do(func() {
		close(t.done)
	})
}

func (t *Table) IsClosed() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.closed
}

// IsIdleFor reports whether no human has been online for ttl.
func (t *Table) IsIdleFor(ttl time.Duration) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		return true
	}
	if t.emptySince.IsZero() {
		return false
	}
	return time.Since(t.emptySince) >= ttl
}

// Info is the lobby listing entry for this table.
func (t *Table) Info() codec.MatchInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return codec.MatchInfo{
		MatchID:  t.ID,
		Status:   t.mesa.Status().String(),
		Players:  t.mesa.PlayerCount(),
		Capacity: t.mesa.SeatCapacity(),
		TeamSize: t.mesa.TeamSize(),
	}
}

// SeatOf resolves a player's seat for the gateway's welcome reply.
func (t *Table) SeatOf(playerID string) (int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.mesa.SeatOf(playerID)
}

// HasPlayer reports whether the player ever joined this table.
func (t *Table) HasPlayer(playerID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, exists := t.players[playerID]
	return exists
}
