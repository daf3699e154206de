package stats

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

const defaultLocalDBName = "truco_stats.db"

type SQLiteService struct {
	db          *sql.DB
	log         *zap.SugaredLogger
	recentLimit int
}

func NewSQLiteServiceFromEnv(logger *zap.SugaredLogger) (*SQLiteService, error) {
	dbPath := strings.TrimSpace(os.Getenv("STATS_DB_PATH"))
	if dbPath == "" {
		dbPath = defaultLocalDBName
	}
	return NewSQLiteService(dbPath, logger)
}

func NewSQLiteService(dbPath string, logger *zap.SugaredLogger) (*SQLiteService, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("empty sqlite database path")
	}
	if dbPath != ":memory:" {
		parent := filepath.Dir(dbPath)
		if parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, pragma := range []string{
		`PRAGMA busy_timeout = 5000;`,
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA foreign_keys = ON;`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureSQLiteStatsSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteService{
		db:          db,
		log:         logger.Named("stats-sqlite"),
		recentLimit: envIntOrDefault("STATS_RECENT_LIMIT", defaultRecentLimit),
	}, nil
}

func (s *SQLiteService) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteService) RecordMatch(summary MatchSummary) {
	if strings.TrimSpace(summary.MatchID) == "" {
		return
	}
	if summary.FinishedAt.IsZero() {
		summary.FinishedAt = time.Now().UTC()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.log.Warnw("begin record match tx failed", "match", summary.MatchID, "err", err)
		return
	}
	defer tx.Rollback()

	nowMs := time.Now().UTC().UnixMilli()
	_, err = tx.ExecContext(ctx, `
INSERT INTO match_history (
    match_id, finished_at_ms, target_score, team_size, with_flor,
    winner_team, team1_score, team2_score, rounds, created_at_ms
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (match_id) DO NOTHING
`, summary.MatchID, summary.FinishedAt.UTC().UnixMilli(), summary.TargetScore,
		summary.TeamSize, boolToInt(summary.WithFlor), summary.WinnerTeam,
		summary.Team1Score, summary.Team2Score, summary.Rounds, nowMs)
	if err != nil {
		s.log.Warnw("insert match failed", "match", summary.MatchID, "err", err)
		return
	}

	for _, p := range summary.Players {
		_, err = tx.ExecContext(ctx, `
INSERT INTO match_player (
    match_id, player_id, name, seat, team, bot, won
)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (match_id, seat) DO NOTHING
`, summary.MatchID, p.PlayerID, p.Name, p.Seat, p.Team, boolToInt(p.Bot), boolToInt(p.Won))
		if err != nil {
			s.log.Warnw("insert match player failed", "match", summary.MatchID, "seat", p.Seat, "err", err)
			return
		}
	}

	if s.recentLimit > 0 {
		_, err = tx.ExecContext(ctx, `
DELETE FROM match_history
WHERE match_id IN (
    SELECT match_id
    FROM match_history
    ORDER BY finished_at_ms DESC, id DESC
    LIMIT -1 OFFSET ?
)
`, s.recentLimit)
		if err != nil {
			s.log.Warnw("trim match history failed", "err", err)
			return
		}
	}

	if err := tx.Commit(); err != nil {
		s.log.Warnw("commit record match failed", "match", summary.MatchID, "err", err)
	}
}

func (s *SQLiteService) ListRecent(ctx context.Context, limit int) ([]MatchSummary, error) {
	limit = clampLimit(limit)
	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT match_id, finished_at_ms, target_score, team_size, with_flor,
       winner_team, team1_score, team2_score, rounds
FROM match_history
ORDER BY finished_at_ms DESC, id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]MatchSummary, 0, limit)
	for rows.Next() {
		var m MatchSummary
		var finishedMs int64
		var withFlor int
		if err := rows.Scan(&m.MatchID, &finishedMs, &m.TargetScore, &m.TeamSize,
			&withFlor, &m.WinnerTeam, &m.Team1Score, &m.Team2Score, &m.Rounds); err != nil {
			return nil, err
		}
		m.FinishedAt = time.UnixMilli(finishedMs).UTC()
		m.WithFlor = withFlor == 1
		m.Players = []PlayerResult{}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range items {
		players, err := s.matchPlayers(ctx, items[i].MatchID)
		if err != nil {
			return nil, err
		}
		items[i].Players = players
	}
	return items, nil
}

func (s *SQLiteService) matchPlayers(ctx context.Context, matchID string) ([]PlayerResult, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT player_id, name, seat, team, bot, won
FROM match_player
WHERE match_id = ?
ORDER BY seat ASC
`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	players := make([]PlayerResult, 0, 6)
	for rows.Next() {
		var p PlayerResult
		var bot, won int
		if err := rows.Scan(&p.PlayerID, &p.Name, &p.Seat, &p.Team, &bot, &won); err != nil {
			return nil, err
		}
		p.Bot = bot == 1
		p.Won = won == 1
		players = append(players, p)
	}
	return players, rows.Err()
}

func (s *SQLiteService) Ranking(ctx context.Context, limit int) ([]RankingEntry, error) {
	limit = clampLimit(limit)
	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT player_id, MAX(name), COUNT(1), SUM(won)
FROM match_player
WHERE bot = 0
  AND player_id != ''
GROUP BY player_id
ORDER BY SUM(won) DESC, COUNT(1) ASC, player_id ASC
LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]RankingEntry, 0, limit)
	for rows.Next() {
		var e RankingEntry
		if err := rows.Scan(&e.PlayerID, &e.Name, &e.Matches, &e.Wins); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func ensureSQLiteStatsSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`
CREATE TABLE IF NOT EXISTS match_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    match_id TEXT NOT NULL,
    finished_at_ms INTEGER NOT NULL,
    target_score INTEGER NOT NULL,
    team_size INTEGER NOT NULL,
    with_flor INTEGER NOT NULL DEFAULT 0,
    winner_team INTEGER NOT NULL,
    team1_score INTEGER NOT NULL,
    team2_score INTEGER NOT NULL,
    rounds INTEGER NOT NULL,
    created_at_ms INTEGER NOT NULL,
    UNIQUE (match_id)
)`,
		`CREATE INDEX IF NOT EXISTS idx_match_history_recent ON match_history(finished_at_ms DESC)`,
		`
CREATE TABLE IF NOT EXISTS match_player (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    match_id TEXT NOT NULL,
    player_id TEXT NOT NULL,
    name TEXT NOT NULL DEFAULT '',
    seat INTEGER NOT NULL,
    team INTEGER NOT NULL,
    bot INTEGER NOT NULL DEFAULT 0,
    won INTEGER NOT NULL DEFAULT 0,
    UNIQUE (match_id, seat),
    FOREIGN KEY (match_id) REFERENCES match_history(match_id) ON DELETE CASCADE
)`,
		`CREATE INDEX IF NOT EXISTS idx_match_player_ranking ON match_player(player_id, won)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
