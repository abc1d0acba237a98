package session

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/postboard-dev/postboard/internal/cli/auth"
)

// failingStore fails every write
type failingStore struct {
	*auth.MemoryStore
}

func (f failingStore) SaveToken(key, value string) error {
	return errors.New("keyring locked")
}

func newStore(t *testing.T, durable auth.TokenStore) *Store {
	t.Helper()
	store, err := NewStore(durable, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return store
}

func TestStore_InitializesFromDurableStorage(t *testing.T) {
	durable := auth.NewMemoryStore()
	if err := durable.SaveToken(auth.AccessTokenKey, "persisted"); err != nil {
		t.Fatal(err)
	}

	store := newStore(t, durable)

	token, ok := store.Token()
	if !ok || token != "persisted" {
		t.Errorf("Token() = %q, %v, want %q, true", token, ok, "persisted")
	}
	if !store.IsLoggedIn() {
		t.Error("IsLoggedIn() = false, want true")
	}
}

func TestStore_EmptyDurableStorage(t *testing.T) {
	if newStore(t, auth.NewMemoryStore()).IsLoggedIn() {
		t.Error("IsLoggedIn() = true, want false")
	}
}

func TestStore_IsLoggedInTracksToken(t *testing.T) {
	durable := auth.NewMemoryStore()
	store := newStore(t, durable)

	if err := store.SetToken("one"); err != nil {
		t.Fatalf("SetToken() error = %v", err)
	}
	if _, present := store.Token(); !present || !store.IsLoggedIn() {
		t.Errorf("after SetToken: present = %v, IsLoggedIn() = %v, want both true", present, store.IsLoggedIn())
	}
	if saved, err := durable.LoadToken(auth.AccessTokenKey); err != nil || saved != "one" {
		t.Errorf("durable token = %q, %v, want %q", saved, err, "one")
	}

	if err := store.SetToken("two"); err != nil {
		t.Fatalf("SetToken() error = %v", err)
	}
	if saved, _ := durable.LoadToken(auth.AccessTokenKey); saved != "two" {
		t.Errorf("durable token = %q, want %q", saved, "two")
	}

	if err := store.ClearToken(); err != nil {
		t.Fatalf("ClearToken() error = %v", err)
	}
	if _, present := store.Token(); present || store.IsLoggedIn() {
		t.Errorf("after ClearToken: present = %v, IsLoggedIn() = %v, want both false", present, store.IsLoggedIn())
	}
	if _, err := durable.LoadToken(auth.AccessTokenKey); !errors.Is(err, auth.ErrNotFound) {
		t.Errorf("durable token error = %v, want ErrNotFound", err)
	}

	// Clearing an empty session is fine
	if err := store.ClearToken(); err != nil {
		t.Errorf("second ClearToken() error = %v", err)
	}
}

func TestStore_RejectsEmptyToken(t *testing.T) {
	store := newStore(t, auth.NewMemoryStore())

	if err := store.SetToken(""); err == nil {
		t.Error("SetToken(\"\") error = nil, want error")
	}
	if store.IsLoggedIn() {
		t.Error("IsLoggedIn() = true, want false")
	}
}

func TestStore_FailedPersistLeavesStateUnchanged(t *testing.T) {
	store := newStore(t, failingStore{auth.NewMemoryStore()})

	if err := store.SetToken("abc"); err == nil {
		t.Error("SetToken() error = nil, want error")
	}
	if store.IsLoggedIn() {
		t.Error("IsLoggedIn() = true, want false")
	}
}
