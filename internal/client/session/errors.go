package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

var (
	// ErrNoRefreshToken means the session cannot be renewed; the caller has to log in again.
	ErrNoRefreshToken = errors.New("session: no refresh token")
	// ErrNotAuthenticated is returned by Client calls that need a session when none is stored.
	ErrNotAuthenticated = errors.New("session: not authenticated")
)

// RefreshError wraps a failed refresh. Every request waiting on that refresh receives the same value.
type RefreshError struct {
	Status int
	Err    error
}

func (e *RefreshError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("session: refresh rejected (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("session: refresh failed: %v", e.Err)
}

func (e *RefreshError) Unwrap() error { return e.Err }

// APIError is a non-2xx response decoded from the server's error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
	Meta    map[string]string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("http %d", e.Status)
	}
	return fmt.Sprintf("http %d: %s: %s", e.Status, e.Code, e.Message)
}

// HasCode reports whether err is an APIError carrying code.
func HasCode(err error, code string) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Code == code
}

// StatusOf returns the HTTP status of an APIError, or 0.
func StatusOf(err error) int {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Status
	}
	return 0
}

type errorEnvelope struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Meta    map[string]string `json:"meta"`
	} `json:"error"`
}

func decodeAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	ae := &APIError{Status: resp.StatusCode}

	var env errorEnvelope
	if json.Unmarshal(body, &env) == nil {
		ae.Code = env.Error.Code
		ae.Message = env.Error.Message
		ae.Meta = env.Error.Meta
	}
	return ae
}
