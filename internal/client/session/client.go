package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/baechuer/marketplace-auth/internal/domain"
	"github.com/baechuer/marketplace-auth/internal/logger"
)

// Client talks to the auth service on behalf of one user session.
type Client struct {
	baseURL string
	store   TokenStore
	ctrl    *Controller
	http    *http.Client
}

type Option func(*clientOptions)

type clientOptions struct {
	transport http.RoundTripper
	timeout   time.Duration
	onCleared func()
}

func WithTransport(rt http.RoundTripper) Option {
	return func(o *clientOptions) { o.transport = rt }
}

func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.timeout = d }
}

// WithSessionCleared registers the hook fired when a refresh fails and the session is dropped.
func WithSessionCleared(fn func()) Option {
	return func(o *clientOptions) { o.onCleared = fn }
}

func NewClient(baseURL string, store TokenStore, opts ...Option) *Client {
	o := clientOptions{timeout: 15 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}

	baseURL = strings.TrimRight(baseURL, "/")
	ctrl := NewController(baseURL, store, o.transport)
	ctrl.OnSessionCleared = o.onCleared

	return &Client{
		baseURL: baseURL,
		store:   store,
		ctrl:    ctrl,
		http:    &http.Client{Transport: ctrl, Timeout: o.timeout},
	}
}

// Controller exposes the round tripper so other API clients can share the session.
func (c *Client) Controller() *Controller { return c.ctrl }

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type messageBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Register creates an account. No session is started; the email has to be verified first.
func (c *Client) Register(ctx context.Context, in RegisterInput) (string, error) {
	var out messageBody
	if err := c.do(WithoutRefresh(ctx), http.MethodPost, "/auth/register", in, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *Client) VerifyEmail(ctx context.Context, token string) error {
	return c.do(WithoutRefresh(ctx), http.MethodGet, "/auth/verify-email/"+url.PathEscape(token), nil, nil)
}

func (c *Client) ResendVerification(ctx context.Context, email string) error {
	return c.do(WithoutRefresh(ctx), http.MethodPost, "/auth/verify-email/resend", map[string]string{"email": email}, nil)
}

// Login stores the returned token pair, replacing any previous session.
func (c *Client) Login(ctx context.Context, email, password string) (domain.PublicUser, error) {
	var out struct {
		AccessToken  string            `json:"accessToken"`
		RefreshToken string            `json:"refreshToken"`
		User         domain.PublicUser `json:"user"`
	}
	err := c.do(WithoutRefresh(ctx), http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return domain.PublicUser{}, err
	}

	if err := c.store.Save(Tokens{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken}); err != nil {
		return domain.PublicUser{}, fmt.Errorf("store session: %w", err)
	}
	return out.User, nil
}

// Logout tells the server to drop the refresh token and always clears the local session.
// An expired access token is renewed first, otherwise the server slot would outlive the logout.
func (c *Client) Logout(ctx context.Context) error {
	if t, err := c.store.Load(); err != nil || t.Empty() {
		return c.store.Clear()
	}
	if err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil); err != nil {
		logger.Logger.Debug().Err(err).Msg("logout_call_failed")
	}
	return c.store.Clear()
}

func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.do(WithoutRefresh(ctx), http.MethodPost, "/auth/forgot-password", map[string]string{"email": email}, nil)
}

func (c *Client) ResetPassword(ctx context.Context, token, password string) error {
	return c.do(WithoutRefresh(ctx), http.MethodPut, "/auth/reset-password/"+url.PathEscape(token),
		map[string]string{"password": password}, nil)
}

func (c *Client) Me(ctx context.Context) (domain.PublicUser, error) {
	if t, err := c.store.Load(); err != nil {
		return domain.PublicUser{}, err
	} else if t.Empty() {
		return domain.PublicUser{}, ErrNotAuthenticated
	}

	var out struct {
		Data domain.PublicUser `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &out); err != nil {
		return domain.PublicUser{}, err
	}
	return out.Data, nil
}

// Restore resumes a stored session at startup: /auth/me with the access token,
// else a refresh, else the session is cleared. ok is false when nobody is logged in.
func (c *Client) Restore(ctx context.Context) (u domain.PublicUser, ok bool, err error) {
	t, err := c.store.Load()
	if err != nil {
		return u, false, err
	}
	if t.Empty() {
		return u, false, nil
	}

	if t.AccessToken == "" {
		if _, err := c.ctrl.Refresh(ctx); err != nil {
			return u, false, nil
		}
	}

	u, err = c.Me(ctx)
	switch {
	case err == nil:
		return u, true, nil
	case StatusOf(err) == http.StatusUnauthorized, errors.As(err, new(*RefreshError)), errors.Is(err, ErrNoRefreshToken), errors.Is(err, ErrNotAuthenticated):
		_ = c.store.Clear()
		return domain.PublicUser{}, false, nil
	default:
		return domain.PublicUser{}, false, err
	}
}

// Do sends an authenticated JSON request through the session; out may be nil.
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	return c.do(ctx, method, path, in, out)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// unwrap *url.Error so callers can match RefreshError / ErrNoRefreshToken directly
		var ue *url.Error
		if errors.As(err, &ue) {
			return ue.Err
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
