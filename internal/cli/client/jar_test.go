package client

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postboard-dev/postboard/internal/cli/auth"
)

func TestPersistentJar_SurvivesRestart(t *testing.T) {
	store := auth.NewMemoryStore()
	loginURL, _ := url.Parse("http://127.0.0.1:3000/login")
	refreshURL, _ := url.Parse("http://127.0.0.1:3000/token")

	jar, err := NewPersistentJar(store, zerolog.Nop())
	require.NoError(t, err)
	jar.SetCookies(loginURL, []*http.Cookie{{
		Name:    "jid",
		Value:   "refresh-1",
		Path:    "/token",
		Expires: time.Now().Add(time.Hour),
	}})

	// A second jar over the same store sees the cookie on the refresh path only
	restored, err := NewPersistentJar(store, zerolog.Nop())
	require.NoError(t, err)

	cookies := restored.Cookies(refreshURL)
	require.Len(t, cookies, 1)
	assert.Equal(t, "refresh-1", cookies[0].Value)
	assert.Empty(t, restored.Cookies(loginURL))
}

func TestPersistentJar_ClearedCookieIsForgotten(t *testing.T) {
	store := auth.NewMemoryStore()
	u, _ := url.Parse("http://127.0.0.1:3000/token/logout")

	jar, err := NewPersistentJar(store, zerolog.Nop())
	require.NoError(t, err)
	jar.SetCookies(u, []*http.Cookie{{Name: "jid", Value: "refresh-1", Path: "/token"}})

	_, err = store.LoadToken(auth.RefreshCookieKey)
	require.NoError(t, err)

	jar.SetCookies(u, []*http.Cookie{{Name: "jid", Value: "", Path: "/token", MaxAge: -1}})

	_, err = store.LoadToken(auth.RefreshCookieKey)
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestPersistentJar_CorruptEntryIsIgnored(t *testing.T) {
	store := auth.NewMemoryStore()
	require.NoError(t, store.SaveToken(auth.RefreshCookieKey, "not json"))

	jar, err := NewPersistentJar(store, zerolog.Nop())
	require.NoError(t, err)
	assert.NotNil(t, jar)
}
