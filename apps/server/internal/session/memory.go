package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Memory keeps sessions in process memory for single-binary deployment.
// It can be swapped for the sqlite backend without changing callers.
type Memory struct {
	mu      sync.Mutex
	records map[string]memoryRecord
}

type memoryRecord struct {
	Name      string
	TokenHash []byte
	IssuedAt  time.Time
}

func NewMemory() *Memory {
	return &Memory{records: make(map[string]memoryRecord)}
}

func (m *Memory) Issue(name string) (Credentials, error) {
	token := newToken()
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return Credentials{}, err
	}
	id := uuid.NewString()
	m.mu.Lock()
	m.records[id] = memoryRecord{Name: name, TokenHash: hash, IssuedAt: time.Now()}
	m.mu.Unlock()
	return Credentials{PlayerID: id, Token: token}, nil
}

func (m *Memory) Verify(playerID, token string) error {
	m.mu.Lock()
	rec, ok := m.records[playerID]
	m.mu.Unlock()
	if !ok {
		return ErrUnknownPlayer
	}
	if bcrypt.CompareHashAndPassword(rec.TokenHash, []byte(token)) != nil {
		return ErrBadToken
	}
	return nil
}

func (m *Memory) Close() error { return nil }
