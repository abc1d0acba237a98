package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/postboard-dev/postboard/internal/cli/auth"
)

// storedCookie is the durable form of a cookie set by the API
type storedCookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Path    string    `json:"path,omitempty"`
	Expires time.Time `json:"expires,omitempty"`
	URL     string    `json:"url"`
}

func (s storedCookie) expired(now time.Time) bool {
	return !s.Expires.IsZero() && !s.Expires.After(now)
}

// PersistentJar is a cookie jar whose cookies survive between CLI runs.
// A browser keeps the HttpOnly refresh cookie for us; a CLI has to do it itself.
type PersistentJar struct {
	jar    *cookiejar.Jar
	store  auth.TokenStore
	logger zerolog.Logger

	mu      sync.Mutex
	cookies map[string]storedCookie
}

// NewPersistentJar creates a jar and restores any cookies saved in store
func NewPersistentJar(store auth.TokenStore, logger zerolog.Logger) (*PersistentJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	j := &PersistentJar{
		jar:     jar,
		store:   store,
		logger:  logger,
		cookies: make(map[string]storedCookie),
	}
	if err := j.load(); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *PersistentJar) load() error {
	raw, err := j.store.LoadToken(auth.RefreshCookieKey)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to load cookies: %w", err)
	}

	var saved []storedCookie
	if err := json.Unmarshal([]byte(raw), &saved); err != nil {
		// A corrupt entry only costs a re-login
		j.logger.Warn().Err(err).Msg("Discarding unreadable saved cookies")
		return nil
	}

	now := time.Now()
	for _, sc := range saved {
		if sc.expired(now) {
			continue
		}
		u, err := url.Parse(sc.URL)
		if err != nil {
			continue
		}
		j.jar.SetCookies(u, []*http.Cookie{{
			Name:    sc.Name,
			Value:   sc.Value,
			Path:    sc.Path,
			Expires: sc.Expires,
		}})
		j.cookies[sc.Name] = sc
	}
	return nil
}

// SetCookies implements http.CookieJar
func (j *PersistentJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.jar.SetCookies(u, cookies)

	j.mu.Lock()
	defer j.mu.Unlock()

	now := time.Now()
	origin := (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: u.Path}).String()
	for _, c := range cookies {
		expires := c.Expires
		if c.MaxAge > 0 {
			expires = now.Add(time.Duration(c.MaxAge) * time.Second)
		}
		sc := storedCookie{
			Name:    c.Name,
			Value:   c.Value,
			Path:    c.Path,
			Expires: expires,
			URL:     origin,
		}
		if c.MaxAge < 0 || c.Value == "" || sc.expired(now) {
			delete(j.cookies, c.Name)
			continue
		}
		j.cookies[c.Name] = sc
	}

	if err := j.persist(); err != nil {
		j.logger.Warn().Err(err).Msg("Failed to persist cookies")
	}
}

// Cookies implements http.CookieJar
func (j *PersistentJar) Cookies(u *url.URL) []*http.Cookie {
	return j.jar.Cookies(u)
}

func (j *PersistentJar) persist() error {
	if len(j.cookies) == 0 {
		return j.store.DeleteToken(auth.RefreshCookieKey)
	}

	saved := make([]storedCookie, 0, len(j.cookies))
	for _, sc := range j.cookies {
		saved = append(saved, sc)
	}
	data, err := json.Marshal(saved)
	if err != nil {
		return fmt.Errorf("failed to marshal cookies: %w", err)
	}
	return j.store.SaveToken(auth.RefreshCookieKey, string(data))
}
