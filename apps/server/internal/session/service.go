// Package session issues guest identities and verifies reconnect tokens.
// A player gets a playerID and a one-time-shown token on first join;
// reconnecting presents both. Tokens are bcrypt-hashed at rest.
package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
)

const tokenBytes = 32

var (
	ErrUnknownPlayer = errors.New("unknown player")
	ErrBadToken      = errors.New("invalid reconnect token")
)

// Credentials are returned once, on issue; the token is never stored in
// the clear.
type Credentials struct {
	PlayerID string
	Token    string
}

type Service interface {
	// Issue creates a guest identity for the given display name.
	Issue(name string) (Credentials, error)
	// Verify checks a reconnect token against the stored hash.
	Verify(playerID, token string) error
	Close() error
}

func newToken() string {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		panic("session: crypto/rand unavailable: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
