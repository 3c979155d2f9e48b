package credential

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/baechuer/marketplace-auth/internal/domain"
)

const (
	DefaultVerifyEmailTTL   = 24 * time.Hour
	DefaultPasswordResetTTL = 10 * time.Minute

	rawTokenBytes = 32
)

// Store mediates every read and write of user credentials.
// Raw one-time tokens leave this type exactly once (from IssueOneTimeToken); only their digests are stored.
type Store struct {
	users  UserRepo
	hasher PasswordHasher
	now    func() time.Time

	verifyTTL time.Duration
	resetTTL  time.Duration
}

type Config struct {
	VerifyEmailTTL   time.Duration
	PasswordResetTTL time.Duration
}

func NewStore(users UserRepo, hasher PasswordHasher, cfg Config) *Store {
	if cfg.VerifyEmailTTL <= 0 {
		cfg.VerifyEmailTTL = DefaultVerifyEmailTTL
	}
	if cfg.PasswordResetTTL <= 0 {
		cfg.PasswordResetTTL = DefaultPasswordResetTTL
	}
	return &Store{
		users:     users,
		hasher:    hasher,
		now:       time.Now,
		verifyTTL: cfg.VerifyEmailTTL,
		resetTTL:  cfg.PasswordResetTTL,
	}
}

// WithClock replaces the time source used for token expiry.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Store) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	return s.users.GetByEmail(ctx, NormalizeEmail(email))
}

func (s *Store) FindByID(ctx context.Context, id string) (domain.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *Store) Create(ctx context.Context, u domain.User) (domain.User, error) {
	u.Email = NormalizeEmail(u.Email)
	return s.users.Create(ctx, u)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	return s.users.Delete(ctx, id)
}

func (s *Store) HashPassword(password string) (string, error) {
	return s.hasher.Hash(password)
}

// ComparePassword reports whether candidate matches u's password. A user without a hash
// (including the zero User used for unknown emails) never matches; the hasher still does
// its work so both failures cost the same.
func (s *Store) ComparePassword(u domain.User, candidate string) bool {
	if u.PasswordHash == "" {
		_ = s.hasher.Compare("", candidate)
		return false
	}
	return s.hasher.Compare(u.PasswordHash, candidate) == nil
}

// IssueOneTimeToken creates a fresh raw token for purpose, replacing any earlier one.
func (s *Store) IssueOneTimeToken(ctx context.Context, userID string, purpose domain.TokenPurpose) (string, error) {
	ttl, err := s.ttlFor(purpose)
	if err != nil {
		return "", err
	}

	raw, err := newRawToken()
	if err != nil {
		return "", domain.ErrRandomFailed(err)
	}

	if err := s.users.SetOneTimeToken(ctx, userID, purpose, HashToken(raw), s.now().Add(ttl)); err != nil {
		return "", err
	}
	return raw, nil
}

// ConsumeOneTimeToken redeems raw for purpose and applies change in the same datastore update.
func (s *Store) ConsumeOneTimeToken(ctx context.Context, raw string, purpose domain.TokenPurpose, change domain.UserChange) (domain.User, error) {
	if _, err := s.ttlFor(purpose); err != nil {
		return domain.User{}, err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.User{}, domain.ErrTokenInvalidOrExpired()
	}
	return s.users.ConsumeOneTimeToken(ctx, purpose, HashToken(raw), s.now(), change)
}

func (s *Store) SetRefreshToken(ctx context.Context, userID, token string) error {
	return s.users.SetRefreshToken(ctx, userID, token)
}

// OneTimeTokenTTL is how long a freshly issued token for purpose stays valid; zero for unknown purposes.
func (s *Store) OneTimeTokenTTL(purpose domain.TokenPurpose) time.Duration {
	ttl, _ := s.ttlFor(purpose)
	return ttl
}

func (s *Store) ttlFor(purpose domain.TokenPurpose) (time.Duration, error) {
	switch purpose {
	case domain.PurposeVerifyEmail:
		return s.verifyTTL, nil
	case domain.PurposeResetPassword:
		return s.resetTTL, nil
	default:
		return 0, domain.ErrInvalidField("purpose", string(purpose))
	}
}

// HashToken is the stored form of a one-time token: lowercase hex SHA-256.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func newRawToken() (string, error) {
	b := make([]byte, rawTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
