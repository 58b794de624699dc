package auth

import (
	"fmt"
	"sync"
)

// TokenStore defines the interface for token storage operations
// This allows us to mock the keyring in tests
type TokenStore interface {
	SaveToken(serverURL, token string) error
	// LoadToken returns ErrNoToken when nothing is stored.
	LoadToken(serverURL string) (string, error)
	// DeleteToken succeeds when nothing is stored.
	DeleteToken(serverURL string) error
}

// New returns the TokenStore for the given backend name: "keyring" (the
// default) or "file".
func New(backend string) (TokenStore, error) {
	switch backend {
	case "", "keyring":
		return NewKeyringStore(), nil
	case "file":
		return NewFileStore("")
	default:
		return nil, fmt.Errorf("unknown token store %q (use keyring or file)", backend)
	}
}

// MemoryStore keeps tokens in memory only
type MemoryStore struct {
	mu     sync.Mutex
	tokens map[string]string
}

// NewMemoryStore returns an empty in-memory TokenStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tokens: make(map[string]string)}
}

func (m *MemoryStore) SaveToken(serverURL, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[keyFor(serverURL)] = token
	return nil
}

func (m *MemoryStore) LoadToken(serverURL string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.tokens[keyFor(serverURL)]
	if !ok {
		return "", ErrNoToken
	}
	return token, nil
}

func (m *MemoryStore) DeleteToken(serverURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, keyFor(serverURL))
	return nil
}
