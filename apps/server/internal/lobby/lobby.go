package lobby

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"truco-mesa/apps/server/internal/codec"
	"truco-mesa/apps/server/internal/stats"
	"truco-mesa/apps/server/internal/table"
)

const (
	defaultIdleTTL         = 10 * time.Minute
	defaultDisconnectGrace = 30 * time.Second
	gcInterval             = 30 * time.Second
	maxMatches             = 500
)

// MatchSettings is what a create-match command may choose.
type MatchSettings struct {
	TeamSize    int
	TargetScore int
	WithFlor    bool
}

// Lobby owns every live table: creation, lookup, listing and the idle
// garbage collector.
type Lobby struct {
	mu     sync.RWMutex
	tables map[string]*table.Table

	stats   stats.Service
	log     *zap.SugaredLogger
	baseLog *zap.SugaredLogger

	idleTTL         time.Duration
	disconnectGrace time.Duration

	done     chan struct{}
	stopOnce sync.Once
}

func New(statsService stats.Service, logger *zap.SugaredLogger) *Lobby {
	l := &Lobby{
		tables:          make(map[string]*table.Table),
		stats:           statsService,
		log:             logger.Named("lobby"),
		baseLog:         logger,
		idleTTL:         envDurationOrDefault("LOBBY_IDLE_TTL", defaultIdleTTL),
		disconnectGrace: envDurationOrDefault("DISCONNECT_GRACE", defaultDisconnectGrace),
		done:            make(chan struct{}),
	}
	go l.gcLoop()
	return l
}

// CreateMatch spins up a new table actor.
func (l *Lobby) CreateMatch(settings MatchSettings, broadcastFn func(playerID string, data []byte)) (*table.Table, error) {
	teamSize := settings.TeamSize
	if teamSize == 0 {
		teamSize = 1
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.tables) >= maxMatches {
		return nil, fmt.Errorf("match limit reached")
	}

	id := uuid.NewString()
	t, err := table.New(id, table.Config{
		TeamSize:        teamSize,
		TargetScore:     settings.TargetScore,
		WithFlor:        settings.WithFlor,
		DisconnectGrace: l.disconnectGrace,
	}, broadcastFn, l.stats, l.baseLog)
	if err != nil {
		return nil, err
	}
	l.tables[id] = t
	l.log.Infow("match created", "match", id, "teamSize", teamSize)
	return t, nil
}

func (l *Lobby) Get(matchID string) (*table.Table, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.tables[matchID]
	return t, ok
}

// List returns the joinable-or-running matches sorted by id for a stable
// lobby view.
func (l *Lobby) List() []codec.MatchInfo {
	l.mu.RLock()
	defer l.mu.RUnlock()

	infos := make([]codec.MatchInfo, 0, len(l.tables))
	for _, t := range l.tables {
		if t.IsClosed() {
			continue
		}
		infos = append(infos, t.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].MatchID < infos[j].MatchID })
	return infos
}

func (l *Lobby) gcLoop() {
	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.collectIdle()
		case <-l.done:
			return
		}
	}
}

func (l *Lobby) collectIdle() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for id, t := range l.tables {
		if !t.IsIdleFor(l.idleTTL) {
			continue
		}
		t.Stop()
		delete(l.tables, id)
		l.log.Infow("idle match collected", "match", id)
	}
}

// Close stops the collector and every table.
func (l *Lobby) Close() {
	l.stopOnce.Do(func() { close(l.done) })

	l.mu.Lock()
	defer l.mu.Unlock()
	for id, t := range l.tables {
		t.Stop()
		delete(l.tables, id)
	}
}

func envDurationOrDefault(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil && d >= 0 {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
