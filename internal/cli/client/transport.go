package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/postboard-dev/postboard/internal/metrics"
)

// refreshState is where a single request is in the refresh-on-401 cycle
type refreshState int

const (
	stateIdle            refreshState = iota // original request sent, waiting for its response
	stateAwaitingRefresh                     // got a 401, refresh in flight
	stateRetrying                            // refresh done, original request re-issued
)

func (s refreshState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateAwaitingRefresh:
		return "awaiting_refresh"
	case stateRetrying:
		return "retrying"
	default:
		return "unknown"
	}
}

type retriedKey struct{}

// markRetried flags a request context as already refreshed-and-retried
func markRetried(ctx context.Context) context.Context {
	return context.WithValue(ctx, retriedKey{}, true)
}

func isRetried(ctx context.Context) bool {
	retried, _ := ctx.Value(retriedKey{}).(bool)
	return retried
}

// RefreshFunc obtains a fresh access token, normally by calling the refresh endpoint
type RefreshFunc func(ctx context.Context) (string, error)

// RefreshTransport attaches the bearer token to every request and, on a 401,
// refreshes the token once and re-issues the request once.
//
// Overlapping refreshes from concurrent requests are collapsed into one call.
type RefreshTransport struct {
	base        http.RoundTripper
	tokens      TokenSource
	refresh     RefreshFunc
	refreshPath string
	logger      zerolog.Logger
	group       singleflight.Group
}

// NewRefreshTransport wraps base. refreshPath is the request path of the refresh
// endpoint; a 401 from that path is never answered with another refresh.
func NewRefreshTransport(base http.RoundTripper, tokens TokenSource, refresh RefreshFunc, refreshPath string, logger zerolog.Logger) *RefreshTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &RefreshTransport{
		base:        base,
		tokens:      tokens,
		refresh:     refresh,
		refreshPath: refreshPath,
		logger:      logger,
	}
}

// RoundTrip implements http.RoundTripper
func (t *RefreshTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req, err := bufferBody(req)
	if err != nil {
		return nil, err
	}

	token, _ := t.tokens.Token()

	resp, err := t.send(req, token)
	if err != nil {
		return nil, err
	}

	state := stateIdle
	for {
		switch state {
		case stateIdle:
			if resp.StatusCode != http.StatusUnauthorized {
				return resp, nil
			}
			if req.URL.Path == t.refreshPath {
				return resp, nil
			}
			if isRetried(req.Context()) {
				t.logger.Debug().Str("path", req.URL.Path).Msg("401 after retry, giving up")
				return resp, nil
			}
			state = stateAwaitingRefresh

		case stateAwaitingRefresh:
			drain(resp)

			newToken, err := t.refreshToken(req.Context(), token)
			if err != nil {
				return nil, err
			}
			token = newToken
			state = stateRetrying

		case stateRetrying:
			retry, err := retryRequest(req)
			if err != nil {
				return nil, err
			}

			resp, err = t.send(retry, token)
			if err != nil {
				metrics.RequestRetries.WithLabelValues("error").Inc()
				return nil, err
			}
			metrics.RequestRetries.WithLabelValues(metrics.StatusClass(resp.StatusCode)).Inc()

			t.logger.Debug().
				Str("path", req.URL.Path).
				Int("status", resp.StatusCode).
				Msg("Request retried after token refresh")
			return resp, nil
		}
	}
}

// refreshToken returns a token newer than stale. If another request already
// replaced stale, that token is used without another refresh call.
func (t *RefreshTransport) refreshToken(ctx context.Context, stale string) (string, error) {
	if current, ok := t.tokens.Token(); ok && current != stale {
		return current, nil
	}

	// The flight is shared by every waiting caller, so it must not die with the
	// first caller's context. The client timeout still bounds it.
	flightCtx := context.WithoutCancel(ctx)

	v, err, shared := t.group.Do("refresh", func() (any, error) {
		// A flight that finished between the check above and Do already replaced the token
		if current, ok := t.tokens.Token(); ok && current != stale {
			return current, nil
		}

		token, err := t.refresh(flightCtx)
		if err != nil {
			metrics.TokenRefreshes.WithLabelValues("failure").Inc()
			if errors.Is(err, ErrUnauthorized) {
				// The refresh credential itself was rejected; the session is over
				if clearErr := t.tokens.ClearToken(); clearErr != nil {
					t.logger.Warn().Err(clearErr).Msg("Failed to clear session after refresh failure")
				}
			}
			return "", err
		}
		metrics.TokenRefreshes.WithLabelValues("success").Inc()

		if err := t.tokens.SetToken(token); err != nil {
			return "", fmt.Errorf("failed to store refreshed token: %w", err)
		}
		return token, nil
	})
	if err != nil {
		return "", err
	}

	t.logger.Debug().Bool("shared", shared).Msg("Access token refreshed")
	return v.(string), nil
}

// send clones req with the bearer token attached and sends it on the base transport
func (t *RefreshTransport) send(req *http.Request, token string) (*http.Response, error) {
	r := req.Clone(req.Context())
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	return t.base.RoundTrip(r)
}

func replayable(req *http.Request) bool {
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}

// bufferBody reads a body that cannot be replayed into memory and returns a
// clone of req that can. The caller's request is left as it was, apart from its
// body being consumed and closed.
func bufferBody(req *http.Request) (*http.Request, error) {
	if replayable(req) {
		return req, nil
	}

	buf, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}

	r := req.Clone(req.Context())
	r.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(buf)), nil
	}
	r.Body, _ = r.GetBody()
	r.ContentLength = int64(len(buf))
	return r, nil
}

// retryRequest clones req with a fresh body and the retried marker set
func retryRequest(req *http.Request) (*http.Request, error) {
	retry := req.Clone(markRetried(req.Context()))
	if req.Body != nil && req.Body != http.NoBody {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("failed to replay request body: %w", err)
		}
		retry.Body = body
	}
	return retry, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}
