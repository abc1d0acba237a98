package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	loginPath    = "/login"
	registerPath = "/register"
	refreshPath  = "/token"
	logoutPath   = "/token/logout"
	postsPath    = "/posts"

	defaultTimeout = 30 * time.Second
)

// TokenSource is the session state the client reads the bearer token from
// and writes refreshed tokens back to.
type TokenSource interface {
	Token() (string, bool)
	SetToken(token string) error
	ClearToken() error
}

// Client represents an HTTP client for the Postboard API.
//
// Requests to /login, /register and /token* go out on a plain client that carries
// the refresh cookie; authenticated requests go through the refresh interceptor.
type Client struct {
	baseURL    string
	httpClient *http.Client
	authClient *http.Client
	transport  http.RoundTripper
	jar        http.CookieJar
	timeout    time.Duration
	logger     zerolog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithTransport sets the base transport used for every request
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.transport = rt
	}
}

// WithCookieJar sets the cookie jar holding the refresh cookie
func WithCookieJar(jar http.CookieJar) Option {
	return func(c *Client) {
		c.jar = jar
	}
}

// WithTimeout overrides the overall per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a new API client for baseURL (e.g. "https://posts.example.com")
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		transport: http.DefaultTransport,
		timeout:   defaultTimeout,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.jar == nil {
		// cookiejar.New only fails on a bad public suffix list option
		c.jar, _ = cookiejar.New(nil)
	}

	c.httpClient = &http.Client{
		Timeout:   c.timeout,
		Transport: c.transport,
		Jar:       c.jar,
	}

	c.authClient = &http.Client{
		Timeout: c.timeout,
		Jar:     c.jar,
		Transport: NewRefreshTransport(c.transport, tokens, c.refreshAccessToken,
			c.pathFor(refreshPath), c.logger),
	}

	return c
}

// BaseURL returns the API base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Jar returns the cookie jar holding the refresh cookie
func (c *Client) Jar() http.CookieJar {
	return c.jar
}

// Close releases idle connections held by the client
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
	c.authClient.CloseIdleConnections()
}

func (c *Client) url(path string) string {
	return c.baseURL + path
}

// pathFor returns the request path the server will see for an API path,
// taking a base URL with a path prefix into account
func (c *Client) pathFor(path string) string {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return path
	}
	return strings.TrimRight(u.Path, "/") + path
}

// Credentials represents the login and register request body
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse represents the login and refresh response
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
	ExpiresIn   int    `json:"expires_in,omitempty"`
}

// NewPost represents the post creation request
type NewPost struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Post represents a post returned by the API
type Post struct {
	ID      string `json:"id,omitempty"`
	Title   string `json:"title"`
	Content string `json:"content"`
	User    string `json:"user,omitempty"`
	Date    int64  `json:"date,omitempty"`
}

// PostsPage represents a list of posts
type PostsPage struct {
	Posts []Post `json:"posts"`
	Count int    `json:"count"`
}

// Login sends credentials and returns the issued access token.
// The refresh cookie lands in the client's cookie jar.
func (c *Client) Login(ctx context.Context, creds Credentials) (*TokenResponse, error) {
	var resp TokenResponse
	if err := c.do(ctx, c.httpClient, "login", http.MethodPost, loginPath, creds, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("login failed: response did not contain an access token")
	}
	return &resp, nil
}

// Register creates a new account
func (c *Client) Register(ctx context.Context, creds Credentials) error {
	return c.do(ctx, c.httpClient, "register", http.MethodPost, registerPath, creds, nil)
}

// RefreshToken exchanges the refresh cookie for a new access token
func (c *Client) RefreshToken(ctx context.Context) (*TokenResponse, error) {
	var resp TokenResponse
	if err := c.do(ctx, c.httpClient, "refresh token", http.MethodPost, refreshPath, nil, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("refresh token failed: response did not contain an access token")
	}
	return &resp, nil
}

func (c *Client) refreshAccessToken(ctx context.Context) (string, error) {
	resp, err := c.RefreshToken(ctx)
	if err != nil {
		return "", err
	}
	return resp.AccessToken, nil
}

// Logout revokes the refresh cookie on the server
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, c.httpClient, "logout", http.MethodPost, logoutPath, nil, nil)
}

// CreatePost creates a post as the authenticated user. A 401 triggers one
// token refresh and one retry.
func (c *Client) CreatePost(ctx context.Context, post NewPost) (*Post, error) {
	var created Post
	if err := c.do(ctx, c.authClient, "create post", http.MethodPost, postsPath, post, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// ListPosts returns all posts when page is 0, otherwise the given page (1-based)
func (c *Client) ListPosts(ctx context.Context, page int) (*PostsPage, error) {
	path := postsPath
	if page > 0 {
		path = postsPath + "/" + strconv.Itoa(page)
	}

	var posts PostsPage
	if err := c.do(ctx, c.httpClient, "list posts", http.MethodGet, path, nil, &posts); err != nil {
		return nil, err
	}
	return &posts, nil
}

// do sends a JSON request and decodes a JSON response into out (if non-nil and
// the response has a body). Non-2xx responses become *APIError.
func (c *Client) do(ctx context.Context, hc *http.Client, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		jsonData, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		// The refresh interceptor reports a failed refresh as *APIError
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return apiErr
		}
		return networkError(op, err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("op", op).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Msg("API response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return responseError(op, resp)
	}

	if out == nil {
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return networkError(op, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
