// Package session holds the client's authentication state and the actions
// that change it (login, register, logout, silent refresh, authenticated writes).
package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/postboard-dev/postboard/internal/cli/auth"
)

// Store is the single owner of the current access token. Every write goes
// through to durable storage under the access_token key.
type Store struct {
	mu      sync.RWMutex
	token   string
	present bool

	durable auth.TokenStore
	logger  zerolog.Logger
}

// NewStore initializes the session from durable storage
func NewStore(durable auth.TokenStore, logger zerolog.Logger) (*Store, error) {
	s := &Store{durable: durable, logger: logger}

	token, err := durable.LoadToken(auth.AccessTokenKey)
	switch {
	case err == nil && token != "":
		s.token = token
		s.present = true
	case err == nil, errors.Is(err, auth.ErrNotFound):
	default:
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	return s, nil
}

// Token returns the current token and whether one is present
func (s *Store) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.present
}

// IsLoggedIn reports whether a token is present. Expiry isn't checked here;
// the server decides that and the refresh interceptor deals with it.
func (s *Store) IsLoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.present
}

// SetToken overwrites the token and persists it
func (s *Store) SetToken(token string) error {
	if token == "" {
		return errors.New("refusing to store an empty token")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.durable.SaveToken(auth.AccessTokenKey, token); err != nil {
		return err
	}
	s.token = token
	s.present = true
	return nil
}

// ClearToken removes the token from memory and durable storage
func (s *Store) ClearToken() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	s.present = false
	if err := s.durable.DeleteToken(auth.AccessTokenKey); err != nil {
		return err
	}
	return nil
}
