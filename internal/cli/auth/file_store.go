package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists credentials in a JSON file readable only by the current user.
// It's the fallback for machines without a usable keyring (headless CI boxes, containers).
type FileStore struct {
	path   string
	server string
	mu     sync.Mutex
}

// credentialsFile maps server -> key -> value
type credentialsFile map[string]map[string]string

// NewFileStore creates a file-backed store for the given server URL
func NewFileStore(path, server string) *FileStore {
	return &FileStore{path: path, server: server}
}

func (f *FileStore) read() (credentialsFile, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return credentialsFile{}, nil
		}
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	creds := credentialsFile{}
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}
	return creds, nil
}

func (f *FileStore) write(creds credentialsFile) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	if err := os.WriteFile(f.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	return nil
}

// SaveToken stores value under key for this server
func (f *FileStore) SaveToken(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	creds, err := f.read()
	if err != nil {
		return err
	}
	if creds[f.server] == nil {
		creds[f.server] = map[string]string{}
	}
	creds[f.server][key] = value
	return f.write(creds)
}

// LoadToken returns the value stored under key, or ErrNotFound
func (f *FileStore) LoadToken(key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	creds, err := f.read()
	if err != nil {
		return "", err
	}
	value, ok := creds[f.server][key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

// DeleteToken removes key for this server. Missing keys are not an error.
func (f *FileStore) DeleteToken(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	creds, err := f.read()
	if err != nil {
		return err
	}
	if _, ok := creds[f.server][key]; !ok {
		return nil
	}
	delete(creds[f.server], key)
	if len(creds[f.server]) == 0 {
		delete(creds, f.server)
	}
	return f.write(creds)
}
