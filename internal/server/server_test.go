package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postboard-dev/postboard/internal/config"
	"github.com/postboard-dev/postboard/internal/models"
)

func newTestServer(t *testing.T, opts ...func(*config.Config)) *Server {
	t.Helper()

	cfg := &config.Config{
		Server:   config.ServerConfig{Port: "0", CORSOrigins: []string{"http://localhost:8080"}},
		Database: config.DatabaseConfig{URL: filepath.Join(t.TempDir(), "postboard.sqlite")},
		Auth: config.AuthConfig{
			AccessTokenSecret:  "access-secret",
			RefreshTokenSecret: "refresh-secret",
			AccessTokenTTL:     15 * time.Minute,
			RefreshTokenTTL:    7 * 24 * time.Hour,
			PruneSchedule:      "@hourly",
		},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	srv, err := New(cfg, zerolog.Nop(), "test")
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path string, body any, opts ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, opt := range opts {
		opt(req)
	}

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func withBearer(token string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func withCookie(cookie *http.Cookie) func(*http.Request) {
	return func(r *http.Request) { r.AddCookie(cookie) }
}

func refreshCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == refreshCookieName {
			return c
		}
	}
	t.Fatalf("response has no %s cookie", refreshCookieName)
	return nil
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) HTTPError {
	t.Helper()
	var herr HTTPError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &herr))
	return herr
}

// registerAndLogin creates an account and returns the login response
func registerAndLogin(t *testing.T, srv *Server, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	creds := map[string]string{"username": username, "password": password}

	rec := doJSON(t, srv, http.MethodPost, "/register", creds)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, srv, http.MethodPost, "/login", creds)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return rec
}

func accessToken(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.AccessToken
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"online"`)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	require.Equal(t, http.StatusOK, doJSON(t, srv, http.MethodGet, "/health", nil).Code)

	rec := doJSON(t, srv, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `postboard_http_requests_total{method="GET",route="/health",status="2xx"}`)
	assert.Contains(t, rec.Body.String(), "postboard_http_request_duration_seconds")

	t.Run("disabled", func(t *testing.T) {
		srv := newTestServer(t, func(cfg *config.Config) { cfg.Metrics.Enabled = false })

		rec := doJSON(t, srv, http.MethodGet, "/metrics", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestCORS(t *testing.T) {
	preflight := func(r *http.Request) {
		r.Header.Set("Origin", "http://localhost:8080")
		r.Header.Set("Access-Control-Request-Method", http.MethodPost)
	}

	t.Run("configured origin", func(t *testing.T) {
		srv := newTestServer(t)

		rec := doJSON(t, srv, http.MethodOptions, "/token", nil, preflight)
		assert.Equal(t, "http://localhost:8080", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("no origins disables CORS", func(t *testing.T) {
		srv := newTestServer(t, func(cfg *config.Config) { cfg.Server.CORSOrigins = nil })

		rec := doJSON(t, srv, http.MethodGet, "/health", nil, preflight)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRegister(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name       string
		body       map[string]string
		wantStatus int
		wantTitle  string
		wantDetail string
	}{
		{"valid", map[string]string{"username": "alice", "password": "secret1"}, http.StatusCreated, "", ""},
		{"duplicate", map[string]string{"username": "alice", "password": "secret1"}, http.StatusConflict, "User already exists", ""},
		{"short username", map[string]string{"username": "al", "password": "secret1"}, http.StatusBadRequest, "Too short username", "Minimum 3 characters"},
		{"short password", map[string]string{"username": "bobby", "password": "12345"}, http.StatusBadRequest, "Too short password", "Minimum 6 characters"},
		{"missing password", map[string]string{"username": "bobby"}, http.StatusBadRequest, "Missing password", "This field is required"},
		{"bad characters", map[string]string{"username": "bob by", "password": "secret1"}, http.StatusBadRequest, "Invalid username", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, srv, http.MethodPost, "/register", tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantTitle == "" {
				return
			}
			herr := decodeError(t, rec)
			assert.Equal(t, tt.wantStatus, herr.Code)
			assert.Equal(t, tt.wantTitle, herr.Info.Title)
			if tt.wantDetail != "" {
				assert.Equal(t, tt.wantDetail, herr.Info.Detail)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	srv := newTestServer(t)
	rec := registerAndLogin(t, srv, "alice", "secret1")

	t.Run("issues tokens", func(t *testing.T) {
		var resp TokenResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.AccessToken)
		assert.Equal(t, "bearer", resp.TokenType)
		assert.Equal(t, 900, resp.ExpiresIn)
		assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
		assert.Equal(t, "no-cache", rec.Header().Get("Pragma"))

		cookie := refreshCookie(t, rec)
		assert.True(t, cookie.HttpOnly)
		assert.Equal(t, "/token", cookie.Path)
		assert.NotEmpty(t, cookie.Value)
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/login", map[string]string{"username": "alice", "password": "wrong-password"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		herr := decodeError(t, rec)
		assert.Equal(t, "Invalid credentials", herr.Info.Detail)
	})

	t.Run("unknown user", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/login", map[string]string{"username": "nobody", "password": "secret1"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRefreshToken(t *testing.T) {
	srv := newTestServer(t)
	login := registerAndLogin(t, srv, "alice", "secret1")
	cookie := refreshCookie(t, login)

	t.Run("valid cookie rotates tokens", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/token", nil, withCookie(cookie))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.NotEmpty(t, accessToken(t, rec))
		assert.NotEqual(t, cookie.Value, refreshCookie(t, rec).Value)
	})

	t.Run("missing cookie", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/token", nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("invalid cookie", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/token", nil, withCookie(&http.Cookie{Name: refreshCookieName, Value: "garbage"}))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("access token is not a refresh token", func(t *testing.T) {
		bogus := &http.Cookie{Name: refreshCookieName, Value: accessToken(t, login)}
		rec := doJSON(t, srv, http.MethodPost, "/token", nil, withCookie(bogus))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestLogout_RevokesRefreshToken(t *testing.T) {
	srv := newTestServer(t)
	login := registerAndLogin(t, srv, "alice", "secret1")
	cookie := refreshCookie(t, login)

	rec := doJSON(t, srv, http.MethodPost, "/token/logout", nil, withCookie(cookie))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	cleared := refreshCookie(t, rec)
	assert.Empty(t, cleared.Value)
	assert.Less(t, cleared.MaxAge, 0)

	// The revoked cookie can neither refresh nor log out again
	rec = doJSON(t, srv, http.MethodPost, "/token", nil, withCookie(cookie))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = doJSON(t, srv, http.MethodPost, "/token/logout", nil, withCookie(cookie))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreatePost(t *testing.T) {
	srv := newTestServer(t)
	token := accessToken(t, registerAndLogin(t, srv, "alice", "secret1"))

	t.Run("authorized", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/posts", map[string]string{"title": "Hello", "content": "World"}, withBearer(token))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var post models.Post
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &post))
		assert.NotEmpty(t, post.ID)
		assert.Equal(t, "alice", post.User)
		assert.NotZero(t, post.Date)
	})

	t.Run("lowercase scheme", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/posts", map[string]string{"title": "a", "content": "b"}, func(r *http.Request) {
			r.Header.Set("Authorization", "bearer "+token)
		})
		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("missing title", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/posts", map[string]string{"content": "World"}, withBearer(token))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Missing title", decodeError(t, rec).Info.Title)
	})

	t.Run("no token", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/posts", map[string]string{"title": "a", "content": "b"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("refresh token as bearer", func(t *testing.T) {
		login := doJSON(t, srv, http.MethodPost, "/login", map[string]string{"username": "alice", "password": "secret1"})
		rec := doJSON(t, srv, http.MethodPost, "/posts", map[string]string{"title": "a", "content": "b"}, withBearer(refreshCookie(t, login).Value))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestListPosts(t *testing.T) {
	srv := newTestServer(t)

	t.Run("empty", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/posts", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"posts":[],"count":0}`, rec.Body.String())

		rec = doJSON(t, srv, http.MethodGet, "/posts/1", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	base := time.Now().Unix()
	for i := 0; i < 12; i++ {
		post := &models.Post{Title: fmt.Sprintf("post %d", i), Content: "body", User: "alice", Date: base + int64(i)}
		require.NoError(t, srv.db.Create(post).Error)
	}

	t.Run("all newest first", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/posts", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp PostsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 12, resp.Count)
		require.Len(t, resp.Posts, 12)
		assert.Equal(t, "post 11", resp.Posts[0].Title)
		assert.Equal(t, "post 0", resp.Posts[11].Title)
	})

	t.Run("pages", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/posts/1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var first PostsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
		assert.Len(t, first.Posts, postsPerPage)
		assert.Equal(t, postsPerPage, first.Count)

		rec = doJSON(t, srv, http.MethodGet, "/posts/2", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var second PostsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
		require.Len(t, second.Posts, 2)
		assert.Equal(t, "post 0", second.Posts[1].Title)
	})

	t.Run("invalid page", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/posts/abc", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid page", decodeError(t, rec).Info.Title)
	})

	t.Run("page out of range", func(t *testing.T) {
		for _, page := range []string{"0", "-1", "3"} {
			rec := doJSON(t, srv, http.MethodGet, "/posts/"+page, nil)
			assert.Equal(t, http.StatusNotFound, rec.Code, "page %s", page)
		}
	})
}

func TestPruneRevokedTokens(t *testing.T) {
	srv := newTestServer(t)
	now := time.Now()

	require.NoError(t, srv.db.Create(&models.RevokedToken{JTI: "expired", ExpiresAt: now.Add(-time.Hour).Unix()}).Error)
	require.NoError(t, srv.db.Create(&models.RevokedToken{JTI: "live", ExpiresAt: now.Add(time.Hour).Unix()}).Error)

	pruned, err := srv.pruneRevokedTokens(now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, pruned)

	var remaining []models.RevokedToken
	require.NoError(t, srv.db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, "live", remaining[0].JTI)
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr error
	}{
		{"Bearer abc", "abc", nil},
		{"BEARER abc", "abc", nil},
		{"", "", ErrMissingAuthHeader},
		{"Basic abc", "", ErrInvalidAuthFormat},
		{"Bearer", "", ErrInvalidAuthFormat},
		{"Bearer  ", "", ErrEmptyToken},
	}

	for _, tt := range tests {
		got, err := extractBearerToken(tt.header)
		assert.ErrorIs(t, err, tt.wantErr, "header %q", tt.header)
		assert.Equal(t, tt.want, got, "header %q", tt.header)
	}
}
