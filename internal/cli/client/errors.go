package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Kind classifies a failed API call
type Kind int

const (
	KindNetwork    Kind = iota + 1 // transport-level failure, no response
	KindAuth                       // 401
	KindValidation                 // 4xx other than 401
	KindServer                     // 5xx
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network failure"
	case KindAuth:
		return "unauthorized"
	case KindValidation:
		return "validation failure"
	case KindServer:
		return "server failure"
	default:
		return "unknown failure"
	}
}

// Sentinels for errors.Is matching against *APIError
var (
	ErrNetwork      = errors.New("network failure")
	ErrUnauthorized = errors.New("unauthorized")
	ErrValidation   = errors.New("validation failure")
	ErrServer       = errors.New("server failure")
)

// APIError is returned by every client call that didn't succeed
type APIError struct {
	Kind       Kind
	Op         string
	StatusCode int
	Title      string
	Detail     string
	Err        error
}

func (e *APIError) Error() string {
	if e.Kind == KindNetwork {
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	}

	msg := e.Title
	if e.Detail != "" {
		if msg != "" {
			msg += ": "
		}
		msg += e.Detail
	}
	return fmt.Sprintf("%s failed (status %d): %s", e.Op, e.StatusCode, msg)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels so callers can write errors.Is(err, client.ErrUnauthorized)
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrUnauthorized:
		return e.Kind == KindAuth
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrServer:
		return e.Kind == KindServer
	}
	return false
}

// errorBody is the error document returned by the API
type errorBody struct {
	Message struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"message"`
	Code int `json:"code"`
}

func kindForStatus(code int) Kind {
	switch {
	case code == http.StatusUnauthorized:
		return KindAuth
	case code >= 500:
		return KindServer
	default:
		return KindValidation
	}
}

func networkError(op string, err error) *APIError {
	return &APIError{Kind: KindNetwork, Op: op, Err: err}
}

// responseError builds an APIError from a non-2xx response. The body is consumed.
func responseError(op string, resp *http.Response) *APIError {
	apiErr := &APIError{
		Kind:       kindForStatus(resp.StatusCode),
		Op:         op,
		StatusCode: resp.StatusCode,
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && (eb.Message.Title != "" || eb.Message.Detail != "") {
		apiErr.Title = eb.Message.Title
		apiErr.Detail = eb.Message.Detail
		return apiErr
	}

	apiErr.Title = http.StatusText(resp.StatusCode)
	apiErr.Detail = strings.TrimSpace(string(body))
	return apiErr
}
