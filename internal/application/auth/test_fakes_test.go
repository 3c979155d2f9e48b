package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/baechuer/marketplace-auth/internal/application/credential"
	"github.com/baechuer/marketplace-auth/internal/domain"
)

/*
Fakes for ports
*/

type fakeUserRepo struct {
	mu sync.Mutex

	byID  map[string]domain.User
	order []string

	// injected errors (if set, method returns error)
	getByIDErr    error
	getByEmailErr error
	createErr     error
	setTokenErr   error

	deleted []string
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: map[string]domain.User{}}
}

func (f *fakeUserRepo) put(u domain.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[u.ID]; !ok {
		f.order = append(f.order, u.ID)
	}
	f.byID[u.ID] = u
}

func (f *fakeUserRepo) get(id string) domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id]
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getByEmailErr != nil {
		return domain.User{}, f.getByEmailErr
	}
	for _, id := range f.order {
		if u := f.byID[id]; u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound()
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getByIDErr != nil {
		return domain.User{}, f.getByIDErr
	}
	u, ok := f.byID[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return u, nil
}

func (f *fakeUserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	if f.createErr != nil {
		return domain.User{}, f.createErr
	}
	u.CreatedAt = time.Now()
	f.put(u)
	return u, nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byID, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeUserRepo) SetOneTimeToken(ctx context.Context, userID string, purpose domain.TokenPurpose, hash string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.setTokenErr != nil {
		return f.setTokenErr
	}
	u, ok := f.byID[userID]
	if !ok {
		return domain.ErrUserNotFound()
	}
	h, exp := hash, expiresAt
	if purpose == domain.PurposeVerifyEmail {
		u.EmailVerificationTokenHash, u.EmailVerificationExpiry = &h, &exp
	} else {
		u.ResetPasswordTokenHash, u.ResetPasswordExpiry = &h, &exp
	}
	f.byID[userID] = u
	return nil
}

func (f *fakeUserRepo) ConsumeOneTimeToken(ctx context.Context, purpose domain.TokenPurpose, hash string, now time.Time, change domain.UserChange) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, id := range f.order {
		u, ok := f.byID[id]
		if !ok {
			continue
		}
		slot, exp := &u.EmailVerificationTokenHash, &u.EmailVerificationExpiry
		if purpose == domain.PurposeResetPassword {
			slot, exp = &u.ResetPasswordTokenHash, &u.ResetPasswordExpiry
		}
		if *slot == nil || **slot != hash || !(*exp).After(now) {
			continue
		}
		*slot, *exp = nil, nil
		if change.MarkEmailVerified {
			u.EmailVerified = true
		}
		if change.PasswordHash != "" {
			u.PasswordHash = change.PasswordHash
		}
		f.byID[id] = u
		return u, nil
	}
	return domain.User{}, domain.ErrTokenInvalidOrExpired()
}

func (f *fakeUserRepo) SetRefreshToken(ctx context.Context, userID string, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.byID[userID]
	if !ok {
		return domain.ErrUserNotFound()
	}
	if token == "" {
		u.RefreshToken = nil
	} else {
		t := token
		u.RefreshToken = &t
	}
	f.byID[userID] = u
	return nil
}

type fakeHasher struct {
	hashFn func(pw string) (string, error)
}

func (h *fakeHasher) Hash(password string) (string, error) {
	if h.hashFn != nil {
		return h.hashFn(password)
	}
	return "hash:" + password, nil
}

func (h *fakeHasher) Compare(hash string, password string) error {
	if hash == "hash:"+password {
		return nil
	}
	return errors.New("mismatch")
}

// fakeCodec issues "<kind>.<userID>.<n>" tokens; expired tokens are listed explicitly.
type fakeCodec struct {
	mu      sync.Mutex
	n       int
	expired map[string]bool
	signErr error
}

func newFakeCodec() *fakeCodec { return &fakeCodec{expired: map[string]bool{}} }

func (c *fakeCodec) issue(kind TokenKind, userID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.signErr != nil {
		return "", c.signErr
	}
	c.n++
	return fmt.Sprintf("%s.%s.%d", kind, userID, c.n), nil
}

func (c *fakeCodec) IssueAccessToken(userID string) (string, error) {
	return c.issue(TokenAccess, userID)
}

func (c *fakeCodec) IssueRefreshToken(userID string) (string, error) {
	return c.issue(TokenRefresh, userID)
}

func (c *fakeCodec) Verify(token string, kind TokenKind) (TokenClaims, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	parts := strings.Split(token, ".")
	if len(parts) != 3 || TokenKind(parts[0]) != kind {
		return TokenClaims{}, domain.ErrTokenInvalid()
	}
	if c.expired[token] {
		return TokenClaims{}, domain.ErrTokenExpired()
	}
	return TokenClaims{UserID: parts[1], Kind: kind, ID: parts[2]}, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	err  error
	msgs []Message
}

func (n *fakeNotifier) Send(ctx context.Context, msg Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.msgs = append(n.msgs, msg)
	return nil
}

func (n *fakeNotifier) last(t *testing.T) Message {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.msgs) == 0 {
		t.Fatalf("expected a message to be sent")
	}
	return n.msgs[len(n.msgs)-1]
}

type fakeProfiles struct {
	mu          sync.Mutex
	data        map[string]domain.PublicUser
	invalidated []string
}

func newFakeProfiles() *fakeProfiles { return &fakeProfiles{data: map[string]domain.PublicUser{}} }

func (p *fakeProfiles) Get(ctx context.Context, id string) (domain.PublicUser, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.data[id]
	return u, ok
}

func (p *fakeProfiles) Set(ctx context.Context, u domain.PublicUser) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data[u.ID] = u
}

func (p *fakeProfiles) Invalidate(ctx context.Context, id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.data, id)
	p.invalidated = append(p.invalidated, id)
}

/*
Service factory for tests
*/

type testDeps struct {
	users    *fakeUserRepo
	hasher   *fakeHasher
	codec    *fakeCodec
	notify   *fakeNotifier
	profiles *fakeProfiles
	store    *credential.Store
	now      *time.Time
}

const (
	verifyBase = "http://api.test/api/auth/verify-email/"
	resetBase  = "http://fe.test/reset-password/"
)

func newSvcForTest(t *testing.T) (*Service, *testDeps) {
	t.Helper()

	now := time.Now()
	d := &testDeps{
		users:    newFakeUserRepo(),
		hasher:   &fakeHasher{},
		codec:    newFakeCodec(),
		notify:   &fakeNotifier{},
		profiles: newFakeProfiles(),
		now:      &now,
	}
	d.store = credential.NewStore(d.users, d.hasher, credential.Config{}).
		WithClock(func() time.Time { return *d.now })

	svc := NewService(d.store, d.codec, d.notify, Config{
		VerifyEmailBaseURL:   verifyBase,
		PasswordResetBaseURL: resetBase,
	}).WithProfileCache(d.profiles)

	return svc, d
}

// seedUser stores a user whose password is pw.
func (d *testDeps) seedUser(id, email, pw string, verified bool) domain.User {
	u := domain.User{
		ID:            id,
		Name:          "User " + id,
		Email:         email,
		PasswordHash:  "hash:" + pw,
		Role:          string(domain.RoleBuyer),
		EmailVerified: verified,
		CreatedAt:     time.Now(),
	}
	d.users.put(u)
	return u
}

// tokenFromLink returns the raw token at the end of an emailed link.
func tokenFromLink(t *testing.T, link, base string) string {
	t.Helper()
	if !strings.HasPrefix(link, base) {
		t.Fatalf("link %q does not start with %q", link, base)
	}
	return strings.TrimPrefix(link, base)
}

func requireDomainCode(t *testing.T, err error, wantCode string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected domain code %q, got nil", wantCode)
	}
	var de *domain.Error
	if !errors.As(err, &de) {
		t.Fatalf("expected domain error %q, got %T (%v)", wantCode, err, err)
	}
	if de.Code != wantCode {
		t.Fatalf("expected domain code %q, got %q (err=%v)", wantCode, de.Code, err)
	}
}
