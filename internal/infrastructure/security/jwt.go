package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/baechuer/marketplace-auth/internal/application/auth"
	"github.com/baechuer/marketplace-auth/internal/domain"
)

// TokenCodec issues and verifies HS256 access and refresh tokens.
// Access and refresh tokens carry a "typ" claim so one can never be replayed as the other.
type TokenCodec struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

type CodecConfig struct {
	AccessSecret string
	// Empty falls back to AccessSecret.
	RefreshSecret string
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

func NewTokenCodec(cfg CodecConfig) *TokenCodec {
	refresh := cfg.RefreshSecret
	if refresh == "" {
		refresh = cfg.AccessSecret
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	return &TokenCodec{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(refresh),
		issuer:        cfg.Issuer,
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		now:           time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	c.now = now
	return c
}

type tokenClaims struct {
	// "id" mirrors sub for clients that decode the payload directly.
	UserID string         `json:"id"`
	Kind   auth.TokenKind `json:"typ"`
	jwt.RegisteredClaims
}

func (c *TokenCodec) IssueAccessToken(userID string) (string, error) {
	return c.sign(userID, auth.TokenAccess, c.accessSecret, c.accessTTL)
}

func (c *TokenCodec) IssueRefreshToken(userID string) (string, error) {
	return c.sign(userID, auth.TokenRefresh, c.refreshSecret, c.refreshTTL)
}

func (c *TokenCodec) sign(userID string, kind auth.TokenKind, secret []byte, ttl time.Duration) (string, error) {
	now := c.now()
	claims := tokenClaims{
		UserID: userID,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    c.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(secret)
	if err != nil {
		return "", domain.ErrTokenSignFailed(err)
	}
	return signed, nil
}

// Verify checks signature, expiry and token kind.
// Expiry maps to token_expired, everything else to token_invalid.
func (c *TokenCodec) Verify(token string, kind auth.TokenKind) (auth.TokenClaims, error) {
	secret := c.accessSecret
	if kind == auth.TokenRefresh {
		secret = c.refreshSecret
	}

	parsed, err := jwt.ParseWithClaims(token, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		// prevent alg confusion
		if t.Method != jwt.SigningMethodHS256 {
			return nil, domain.ErrTokenInvalid()
		}
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return auth.TokenClaims{}, domain.ErrTokenExpired()
		}
		return auth.TokenClaims{}, domain.ErrTokenInvalid()
	}

	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid || claims.Kind != kind || claims.Subject == "" {
		return auth.TokenClaims{}, domain.ErrTokenInvalid()
	}

	out := auth.TokenClaims{
		UserID: claims.Subject,
		Kind:   claims.Kind,
		ID:     claims.ID,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.Exp = claims.ExpiresAt.Time
	}
	return out, nil
}

func (c *TokenCodec) RefreshTTL() time.Duration { return c.refreshTTL }
