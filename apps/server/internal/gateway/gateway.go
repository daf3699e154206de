package gateway

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"truco-mesa/apps/server/internal/codec"
	"truco-mesa/apps/server/internal/lobby"
	"truco-mesa/apps/server/internal/session"
	"truco-mesa/apps/server/internal/table"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // TODO: restrict origins once a frontend host exists
	},
}

// Connection is one websocket client. A connection speaks for at most
// one player at one mesa.
type Connection struct {
	Conn    *websocket.Conn
	Send    chan []byte
	Gateway *Gateway

	mu       sync.Mutex
	playerID string
	name     string
	matchID  string
	table    *table.Table
}

// Gateway upgrades websockets and routes decoded commands to tables.
type Gateway struct {
	mu          sync.RWMutex
	connections map[*Connection]struct{}
	playerConns map[string]*Connection

	lobby    *lobby.Lobby
	sessions session.Service
	log      *zap.SugaredLogger
}

func New(lby *lobby.Lobby, sessions session.Service, logger *zap.SugaredLogger) *Gateway {
	return &Gateway{
		connections: make(map[*Connection]struct{}),
		playerConns: make(map[string]*Connection),
		lobby:       lby,
		sessions:    sessions,
		log:         logger.Named("gateway"),
	}
}

func (g *Gateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warnw("upgrade failed", "err", err)
		return
	}

	c := &Connection{
		Conn:    conn,
		Send:    make(chan []byte, 256),
		Gateway: g,
	}
	g.mu.Lock()
	g.connections[c] = struct{}{}
	total := len(g.connections)
	g.mu.Unlock()
	g.log.Infow("client connected", "total", total)

	go c.readPump()
	go c.writePump()
}

// BroadcastToPlayer delivers one frame to the player's live connection,
// dropping it when the send buffer is full.
func (g *Gateway) BroadcastToPlayer(playerID string, data []byte) {
	g.mu.RLock()
	c := g.playerConns[playerID]
	g.mu.RUnlock()

	if c != nil {
		select {
		case c.Send <- data:
		default:
		}
	}
}

func (c *Connection) readPump() {
	defer func() {
		c.Gateway.removeConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(65536)
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		messageType, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Gateway.log.Debugw("read error", "err", err)
			}
			break
		}
		if messageType == websocket.TextMessage {
			c.handleMessage(message)
		}
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Connection) handleMessage(data []byte) {
	msg, err := codec.Decode(data)
	if err != nil {
		c.sendError("", err)
		return
	}

	switch msg.Type {
	case codec.CmdCreateMatch:
		c.handleCreate(msg)
	case codec.CmdJoinMatch:
		c.handleJoin(msg)
	case codec.CmdReconnect:
		c.handleReconnect(msg)
	case codec.CmdListMatches:
		c.handleList()
	case codec.CmdChat:
		c.forward(table.Event{Type: table.EventChat, Msg: msg})
	case codec.CmdResync:
		c.forward(table.Event{Type: table.EventResync})
	case codec.CmdAddBot:
		c.forward(table.Event{Type: table.EventAddBot})
	default:
		c.forward(table.Event{Type: table.EventCommand, Msg: msg})
	}
}

func (c *Connection) handleCreate(msg codec.ClientMessage) {
	c.mu.Lock()
	already := c.table != nil
	c.mu.Unlock()
	if already {
		c.sendError("", errors.New("connection already at a mesa"))
		return
	}

	name := playerName(msg.Name)
	creds, err := c.Gateway.sessions.Issue(name)
	if err != nil {
		c.sendError("", err)
		return
	}

	withFlor := true
	if msg.WithFlor != nil {
		withFlor = *msg.WithFlor
	}
	t, err := c.Gateway.lobby.CreateMatch(lobby.MatchSettings{
		TeamSize:    msg.TeamSize,
		TargetScore: msg.Target,
		WithFlor:    withFlor,
	}, c.Gateway.BroadcastToPlayer)
	if err != nil {
		c.sendError("", err)
		return
	}

	c.attach(t, creds.PlayerID, name)
	if err := t.SubmitEvent(table.Event{Type: table.EventJoin, PlayerID: creds.PlayerID, Name: name}); err != nil {
		c.detach()
		c.sendError(t.ID, err)
		return
	}
	c.sendWelcome(t, creds.PlayerID, creds.Token)
}

func (c *Connection) handleJoin(msg codec.ClientMessage) {
	c.mu.Lock()
	already := c.table != nil
	c.mu.Unlock()
	if already {
		c.sendError("", errors.New("connection already at a mesa"))
		return
	}

	t, ok := c.Gateway.lobby.Get(msg.MatchID)
	if !ok {
		c.sendError(msg.MatchID, errors.New("no such match"))
		return
	}

	name := playerName(msg.Name)
	creds, err := c.Gateway.sessions.Issue(name)
	if err != nil {
		c.sendError(msg.MatchID, err)
		return
	}

	c.attach(t, creds.PlayerID, name)
	if err := t.SubmitEvent(table.Event{Type: table.EventJoin, PlayerID: creds.PlayerID, Name: name}); err != nil {
		c.detach()
		c.sendError(t.ID, err)
		return
	}
	c.sendWelcome(t, creds.PlayerID, creds.Token)
}

func (c *Connection) handleReconnect(msg codec.ClientMessage) {
	if err := c.Gateway.sessions.Verify(msg.PlayerID, msg.Token); err != nil {
		c.sendError(msg.MatchID, err)
		return
	}
	t, ok := c.Gateway.lobby.Get(msg.MatchID)
	if !ok {
		c.sendError(msg.MatchID, errors.New("no such match"))
		return
	}
	if !t.HasPlayer(msg.PlayerID) {
		c.sendError(msg.MatchID, errors.New("player never joined this match"))
		return
	}

	c.attach(t, msg.PlayerID, msg.Name)
	if err := t.SubmitEvent(table.Event{Type: table.EventConnResume, PlayerID: msg.PlayerID, Name: msg.Name}); err != nil {
		c.detach()
		c.sendError(t.ID, err)
		return
	}
	c.sendWelcome(t, msg.PlayerID, "")
}

func (c *Connection) handleList() {
	reply := codec.ServerMessage{
		Type: codec.MsgMatchList,
		Ts:   time.Now().UnixMilli(),
	}
	reply.Matches = c.Gateway.lobby.List()
	c.reply(reply)
}

// forward hands a command to the connection's table actor and reports
// any rejection back on this connection only.
func (c *Connection) forward(e table.Event) {
	c.mu.Lock()
	t := c.table
	playerID := c.playerID
	c.mu.Unlock()

	if t == nil {
		c.sendError("", errors.New("not at a mesa"))
		return
	}
	e.PlayerID = playerID
	if err := t.SubmitEvent(e); err != nil {
		c.sendError(t.ID, err)
	}
}

func (c *Connection) attach(t *table.Table, playerID, name string) {
	c.mu.Lock()
	c.table = t
	c.matchID = t.ID
	c.playerID = playerID
	c.name = name
	c.mu.Unlock()

	c.Gateway.mu.Lock()
	c.Gateway.playerConns[playerID] = c
	c.Gateway.mu.Unlock()
}

func (c *Connection) detach() {
	c.mu.Lock()
	playerID := c.playerID
	c.table = nil
	c.matchID = ""
	c.playerID = ""
	c.mu.Unlock()

	if playerID == "" {
		return
	}
	c.Gateway.mu.Lock()
	if c.Gateway.playerConns[playerID] == c {
		delete(c.Gateway.playerConns, playerID)
	}
	c.Gateway.mu.Unlock()
}

func (c *Connection) sendWelcome(t *table.Table, playerID, token string) {
	seat, _ := t.SeatOf(playerID)
	c.reply(codec.ServerMessage{
		Type:    codec.MsgWelcome,
		MatchID: t.ID,
		Ts:      time.Now().UnixMilli(),
		Welcome: &codec.WelcomeBody{
			MatchID:  t.ID,
			PlayerID: playerID,
			Token:    token,
			Seat:     seat,
		},
	})
}

func (c *Connection) sendError(matchID string, err error) {
	c.reply(codec.Error(matchID, 0, err))
}

func (c *Connection) reply(msg codec.ServerMessage) {
	data, err := codec.Encode(msg)
	if err != nil {
		c.Gateway.log.Errorw("encode reply failed", "type", msg.Type, "err", err)
		return
	}
	select {
	case c.Send <- data:
	default:
	}
}

func (g *Gateway) removeConnection(c *Connection) {
	c.mu.Lock()
	t := c.table
	playerID := c.playerID
	c.mu.Unlock()

	g.mu.Lock()
	delete(g.connections, c)
	if playerID != "" && g.playerConns[playerID] == c {
		delete(g.playerConns, playerID)
	}
	total := len(g.connections)
	g.mu.Unlock()

	if t != nil && playerID != "" {
		_ = t.SubmitEvent(table.Event{Type: table.EventConnLost, PlayerID: playerID})
	}
	g.log.Infow("client disconnected", "total", total)
}

func playerName(raw string) string {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "guest"
	}
	return name
}
