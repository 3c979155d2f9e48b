package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/baechuer/marketplace-auth/internal/logger"
)

const (
	defaultRefreshTimeout = 10 * time.Second
	refreshPath           = "/auth/refresh-token"
)

type skipRefreshKey struct{}

// WithoutRefresh marks requests whose 401 must be returned untouched (login, the refresh call itself).
func WithoutRefresh(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipRefreshKey{}, true)
}

func skipRefresh(ctx context.Context) bool {
	v, _ := ctx.Value(skipRefreshKey{}).(bool)
	return v
}

type refreshResult struct {
	access string
	err    error
}

// Controller is an http.RoundTripper that attaches the stored access token and
// renews it on 401.
//
// At most one refresh call is in flight. Requests that fail while it runs wait
// in a FIFO queue and are released in arrival order with its outcome: replayed
// once with the new token, or rejected with the same error. A replayed request
// is never refreshed again. A failed refresh clears the store and fires
// OnSessionCleared exactly once.
type Controller struct {
	base           http.RoundTripper
	store          TokenStore
	refreshURL     string
	refreshTimeout time.Duration

	// OnSessionCleared runs after the store was wiped because the session could not be renewed.
	OnSessionCleared func()

	mu         sync.Mutex
	refreshing bool
	waiters    []chan refreshResult
}

func NewController(baseURL string, store TokenStore, base http.RoundTripper) *Controller {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Controller{
		base:           base,
		store:          store,
		refreshURL:     strings.TrimRight(baseURL, "/") + refreshPath,
		refreshTimeout: defaultRefreshTimeout,
	}
}

func (c *Controller) RoundTrip(req *http.Request) (*http.Response, error) {
	getBody, err := rewindable(req)
	if err != nil {
		return nil, err
	}

	sent := c.accessToken()
	resp, err := c.base.RoundTrip(withBearer(req, getBody, sent))
	if err != nil || resp.StatusCode != http.StatusUnauthorized || skipRefresh(req.Context()) {
		return resp, err
	}

	switch cur := c.accessToken(); {
	case cur == sent:
	case cur == "":
		// cleared by a failed refresh while this request was out
		return resp, nil
	default:
		// renewed by someone else while this request was out
		discard(resp)
		return c.base.RoundTrip(withBearer(req, getBody, cur))
	}

	access, err := c.Refresh(req.Context())
	if err != nil {
		if errors.Is(err, ErrNoRefreshToken) {
			return resp, nil
		}
		discard(resp)
		return nil, err
	}

	discard(resp)
	return c.base.RoundTrip(withBearer(req, getBody, access))
}

// Refresh joins the in-flight refresh or starts one, and returns the new access token.
func (c *Controller) Refresh(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.refreshing {
		ch := make(chan refreshResult, 1)
		c.waiters = append(c.waiters, ch)
		c.mu.Unlock()

		select {
		case r := <-ch:
			return r.access, r.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	c.refreshing = true
	c.mu.Unlock()

	// one caller giving up must not fail the refresh for everyone queued behind it
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.refreshTimeout)
	access, err := c.doRefresh(rctx)
	cancel()

	if err != nil {
		if cerr := c.store.Clear(); cerr != nil {
			logger.Logger.Warn().Err(cerr).Msg("session_clear_failed")
		}
	}

	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.refreshing = false
	c.mu.Unlock()

	for _, ch := range waiters {
		ch <- refreshResult{access: access, err: err}
	}

	if err != nil {
		logger.Logger.Info().Err(err).Int("queued", len(waiters)).Msg("session_cleared")
		if c.OnSessionCleared != nil {
			c.OnSessionCleared()
		}
		return "", err
	}

	logger.Logger.Debug().Int("queued", len(waiters)).Msg("session_refreshed")
	return access, nil
}

func (c *Controller) doRefresh(ctx context.Context) (string, error) {
	t, err := c.store.Load()
	if err != nil {
		return "", &RefreshError{Err: err}
	}
	if t.RefreshToken == "" {
		return "", ErrNoRefreshToken
	}

	body, _ := json.Marshal(map[string]string{"refreshToken": t.RefreshToken})
	req, err := http.NewRequestWithContext(WithoutRefresh(ctx), http.MethodPost, c.refreshURL, bytes.NewReader(body))
	if err != nil {
		return "", &RefreshError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.base.RoundTrip(req)
	if err != nil {
		return "", &RefreshError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &RefreshError{Status: resp.StatusCode, Err: decodeAPIError(resp)}
	}

	var out struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.AccessToken == "" {
		return "", &RefreshError{Status: resp.StatusCode, Err: fmt.Errorf("malformed refresh response: %v", err)}
	}

	t.AccessToken = out.AccessToken
	if err := c.store.Save(t); err != nil {
		return "", &RefreshError{Err: err}
	}
	return out.AccessToken, nil
}

func (c *Controller) accessToken() string {
	t, err := c.store.Load()
	if err != nil {
		return ""
	}
	return t.AccessToken
}

// rewindable makes the request body replayable.
func rewindable(req *http.Request) (func() (io.ReadCloser, error), error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	if req.GetBody != nil {
		req.Body.Close()
		return req.GetBody, nil
	}
	b, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, err
	}
	return func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(b)), nil }, nil
}

func withBearer(req *http.Request, getBody func() (io.ReadCloser, error), token string) *http.Request {
	r := req.Clone(req.Context())
	if getBody != nil {
		// GetBody never fails for buffered or stdlib-built bodies
		r.Body, _ = getBody()
		r.GetBody = getBody
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	} else {
		r.Header.Del("Authorization")
	}
	return r
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}
