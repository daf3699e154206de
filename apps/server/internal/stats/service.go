package stats

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultRecentLimit = 200
	defaultListLimit   = 20
	maxListLimit       = 100
)

var ErrNotFound = errors.New("not found")

// MatchSummary records one finished match for the read API.
type MatchSummary struct {
	MatchID     string         `json:"match_id"`
	FinishedAt  time.Time      `json:"finished_at"`
	TargetScore int            `json:"target_score"`
	TeamSize    int            `json:"team_size"`
	WithFlor    bool           `json:"with_flor"`
	WinnerTeam  int            `json:"winner_team"`
	Team1Score  int            `json:"team1_score"`
	Team2Score  int            `json:"team2_score"`
	Rounds      int            `json:"rounds"`
	Players     []PlayerResult `json:"players"`
}

type PlayerResult struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Seat     int    `json:"seat"`
	Team     int    `json:"team"`
	Bot      bool   `json:"bot"`
	Won      bool   `json:"won"`
}

type RankingEntry struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Matches  int    `json:"matches"`
	Wins     int    `json:"wins"`
}

// Service persists finished matches and serves the read queries behind
// the stats HTTP endpoints. RecordMatch is fire-and-forget: backends log
// failures and never surface them to the match loop.
type Service interface {
	Close() error
	RecordMatch(summary MatchSummary)
	ListRecent(ctx context.Context, limit int) ([]MatchSummary, error)
	Ranking(ctx context.Context, limit int) ([]RankingEntry, error)
}

type noopService struct{}

func (n *noopService) Close() error { return nil }

func (n *noopService) RecordMatch(_ MatchSummary) {}

func (n *noopService) ListRecent(_ context.Context, _ int) ([]MatchSummary, error) {
	return []MatchSummary{}, nil
}

func (n *noopService) Ranking(_ context.Context, _ int) ([]RankingEntry, error) {
	return []RankingEntry{}, nil
}

// NewServiceFromEnv picks the backend from STATS_MODE: noop (default),
// sqlite (STATS_DB_PATH) or postgres (STATS_DATABASE_DSN / DATABASE_URL).
func NewServiceFromEnv(logger *zap.SugaredLogger) (Service, string, error) {
	mode := strings.ToLower(strings.TrimSpace(os.Getenv("STATS_MODE")))
	switch mode {
	case "", "noop", "memory":
		return &noopService{}, "noop", nil
	case "sqlite", "local":
		svc, err := NewSQLiteServiceFromEnv(logger)
		if err != nil {
			return nil, "sqlite", err
		}
		return svc, "sqlite", nil
	case "postgres", "pg":
		svc, err := NewPostgresServiceFromEnv(logger)
		if err != nil {
			return nil, "postgres", err
		}
		return svc, "postgres", nil
	default:
		return nil, mode, fmt.Errorf("invalid STATS_MODE %q (supported: noop, sqlite, postgres)", mode)
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func envIntOrDefault(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
