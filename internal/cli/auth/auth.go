package auth

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	service = "postboard-cli"

	// AccessTokenKey holds the current access token.
	AccessTokenKey = "access_token"
	// RefreshCookieKey holds the serialized refresh cookie issued by the server.
	RefreshCookieKey = "refresh_cookie"
)

// ErrNotFound is returned when no value is stored under a key
var ErrNotFound = errors.New("credential not found")

// TokenStore defines the interface for durable credential storage.
// This allows us to swap the keyring for a file or an in-memory map in tests.
type TokenStore interface {
	SaveToken(key, value string) error
	LoadToken(key string) (string, error)
	DeleteToken(key string) error
}

// KeyringStore persists credentials in the OS keychain/credential manager,
// namespaced per server so that sessions on different servers don't collide.
type KeyringStore struct {
	server string
}

// NewKeyringStore creates a keyring-backed store for the given server URL
func NewKeyringStore(server string) *KeyringStore {
	return &KeyringStore{server: server}
}

// keyringKey returns a unique key for storing credentials per server
func (k *KeyringStore) keyringKey(key string) string {
	return fmt.Sprintf("%s@%s", key, k.server)
}

// SaveToken persists the value securely in the OS keychain
func (k *KeyringStore) SaveToken(key, value string) error {
	if err := keyring.Set(service, k.keyringKey(key), value); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

// LoadToken retrieves a value from the OS keychain
func (k *KeyringStore) LoadToken(key string) (string, error) {
	value, err := keyring.Get(service, k.keyringKey(key))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to load %s: %w", key, err)
	}
	return value, nil
}

// DeleteToken removes a value from the OS keychain
func (k *KeyringStore) DeleteToken(key string) error {
	if err := keyring.Delete(service, k.keyringKey(key)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
