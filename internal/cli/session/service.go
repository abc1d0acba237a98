package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/postboard-dev/postboard/internal/cli/client"
)

// API is the part of the API client the session actions need
type API interface {
	Login(ctx context.Context, creds client.Credentials) (*client.TokenResponse, error)
	Register(ctx context.Context, creds client.Credentials) error
	RefreshToken(ctx context.Context) (*client.TokenResponse, error)
	Logout(ctx context.Context) error
	CreatePost(ctx context.Context, post client.NewPost) (*client.Post, error)
	ListPosts(ctx context.Context, page int) (*client.PostsPage, error)
}

// Service exposes the session actions used by the views
type Service struct {
	store  *Store
	api    API
	logger zerolog.Logger
}

// NewService creates a session service backed by store and api
func NewService(store *Store, api API, logger zerolog.Logger) *Service {
	return &Service{store: store, api: api, logger: logger}
}

// Store returns the underlying session store
func (s *Service) Store() *Store {
	return s.store
}

// IsLoggedIn reports whether the session holds a token
func (s *Service) IsLoggedIn() bool {
	return s.store.IsLoggedIn()
}

// Login authenticates and stores the returned token. On failure the prior
// session is left as it was.
func (s *Service) Login(ctx context.Context, creds client.Credentials) (*client.TokenResponse, error) {
	resp, err := s.api.Login(ctx, creds)
	if err != nil {
		return nil, err
	}

	if err := s.store.SetToken(resp.AccessToken); err != nil {
		return nil, fmt.Errorf("failed to save authentication token: %w", err)
	}

	s.logger.Debug().Str("username", creds.Username).Msg("Logged in")
	return resp, nil
}

// Register creates an account with trimmed credentials. It never touches the session.
func (s *Service) Register(ctx context.Context, creds client.Credentials) error {
	return s.api.Register(ctx, client.Credentials{
		Username: strings.TrimSpace(creds.Username),
		Password: strings.TrimSpace(creds.Password),
	})
}

// Logout revokes the session on the server, then clears it locally.
// Logging out while logged out is a no-op and sends nothing.
// If the server call fails the local token is kept.
func (s *Service) Logout(ctx context.Context) error {
	if !s.store.IsLoggedIn() {
		s.logger.Debug().Msg("Logout requested without a session, nothing to do")
		return nil
	}

	if err := s.api.Logout(ctx); err != nil {
		return err
	}

	if err := s.store.ClearToken(); err != nil {
		return fmt.Errorf("failed to remove authentication token: %w", err)
	}
	return nil
}

// CheckAuth silently refreshes the session on start-up. A new token replaces the
// stored one; any failure clears the session. It never fails.
func (s *Service) CheckAuth(ctx context.Context) {
	resp, err := s.api.RefreshToken(ctx)
	if err == nil {
		err = s.store.SetToken(resp.AccessToken)
		if err == nil {
			return
		}
	}

	s.logger.Debug().Err(err).Msg("Silent refresh failed, clearing session")
	if clearErr := s.store.ClearToken(); clearErr != nil {
		s.logger.Warn().Err(clearErr).Msg("Failed to clear session")
	}
}

// AddPost creates a post as the current user
func (s *Service) AddPost(ctx context.Context, post client.NewPost) (*client.Post, error) {
	return s.api.CreatePost(ctx, post)
}

// Posts lists posts; page 0 means all of them
func (s *Service) Posts(ctx context.Context, page int) (*client.PostsPage, error) {
	return s.api.ListPosts(ctx, page)
}
