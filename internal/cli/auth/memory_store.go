package auth

import "sync"

// MemoryStore keeps credentials in process memory only. Nothing survives a
// restart, so it backs tests and embedders that manage persistence themselves.
type MemoryStore struct {
	mu     sync.Mutex
	tokens map[string]string
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tokens: make(map[string]string),
	}
}

// SaveToken stores value under key, replacing any previous value
func (m *MemoryStore) SaveToken(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[key] = value
	return nil
}

// LoadToken returns the value for key, or ErrNotFound
func (m *MemoryStore) LoadToken(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, exists := m.tokens[key]
	if !exists {
		return "", ErrNotFound
	}
	return value, nil
}

// DeleteToken removes key. Deleting a missing key is not an error.
func (m *MemoryStore) DeleteToken(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, key)
	return nil
}
