package session

import (
	"fmt"
	"os"
	"strings"
)

const (
	ModeMemory = "memory"
	ModeSQLite = "sqlite"

	defaultDBPath = "truco_sessions.db"
)

func modeFromEnv() string {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv("SESSION_MODE")))
	switch raw {
	case "", ModeMemory, "mem":
		return ModeMemory
	case ModeSQLite, "db":
		return ModeSQLite
	default:
		return raw
	}
}

// NewServiceFromEnv picks the backend from SESSION_MODE (memory default,
// sqlite with SESSION_DB_PATH).
func NewServiceFromEnv() (Service, string, error) {
	mode := modeFromEnv()
	switch mode {
	case ModeMemory:
		return NewMemory(), mode, nil
	case ModeSQLite:
		path := strings.TrimSpace(os.Getenv("SESSION_DB_PATH"))
		if path == "" {
			path = defaultDBPath
		}
		svc, err := NewSQLite(path)
		if err != nil {
			return nil, mode, err
		}
		return svc, mode, nil
	default:
		return nil, mode, fmt.Errorf("invalid SESSION_MODE %q (supported: %s, %s)", mode, ModeMemory, ModeSQLite)
	}
}
