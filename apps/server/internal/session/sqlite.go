package session

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

// SQLite persists sessions so guests survive a server restart.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(dbPath string) (*SQLite, error) {
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
	// modernc sqlite behaves best with a single writer connection.
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
			db.Close()
			return nil, fmt.Errorf("sqlite pragma: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS sessions (
	player_id  TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	token_hash BLOB NOT NULL,
	issued_at  TIMESTAMP NOT NULL
);`); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Issue(name string) (Credentials, error) {
	token := newToken()
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return Credentials{}, err
	}
	id := uuid.NewString()
	_, err = s.db.Exec(
		`INSERT INTO sessions (player_id, name, token_hash, issued_at) VALUES (?, ?, ?, ?)`,
		id, name, hash, time.Now().UTC(),
	)
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{PlayerID: id, Token: token}, nil
}

func (s *SQLite) Verify(playerID, token string) error {
	var hash []byte
	err := s.db.QueryRow(`SELECT token_hash FROM sessions WHERE player_id = ?`, playerID).Scan(&hash)
	if err == sql.ErrNoRows {
		return ErrUnknownPlayer
	}
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword(hash, []byte(token)) != nil {
		return ErrBadToken
	}
	return nil
}

func (s *SQLite) Close() error { return s.db.Close() }
