package auth

import (
	"context"
	"time"

	"github.com/baechuer/marketplace-auth/internal/domain"
)

/*
Credentials
-----------
Everything the service reads or writes about a user goes through here.
Implemented by credential.Store.
*/
type Credentials interface {
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	FindByID(ctx context.Context, id string) (domain.User, error)
	Create(ctx context.Context, u domain.User) (domain.User, error)
	Delete(ctx context.Context, id string) error

	HashPassword(password string) (string, error)
	ComparePassword(u domain.User, candidate string) bool

	IssueOneTimeToken(ctx context.Context, userID string, purpose domain.TokenPurpose) (string, error)
	OneTimeTokenTTL(purpose domain.TokenPurpose) time.Duration
	ConsumeOneTimeToken(ctx context.Context, raw string, purpose domain.TokenPurpose, change domain.UserChange) (domain.User, error)
	SetRefreshToken(ctx context.Context, userID, token string) error
}

/*
TokenCodec
----------
Issues and verifies signed access/refresh tokens (JWT).
Used by service + auth middleware.
*/
type TokenKind string

const (
	TokenAccess  TokenKind = "access"
	TokenRefresh TokenKind = "refresh"
)

type TokenClaims struct {
	UserID   string
	Kind     TokenKind
	ID       string
	IssuedAt time.Time
	Exp      time.Time
}

type TokenCodec interface {
	IssueAccessToken(userID string) (string, error)
	IssueRefreshToken(userID string) (string, error)
	Verify(token string, kind TokenKind) (TokenClaims, error)
}

/*
Notifier
--------
Delivers account emails. SMTP, RabbitMQ and log-only implementations exist.
*/
type Message struct {
	Purpose domain.TokenPurpose `json:"purpose"`
	To      string              `json:"to"`
	Subject string              `json:"subject"`
	Text    string              `json:"text"`
	HTML    string              `json:"html"`
	// Link is the action URL embedded in the body.
	Link string `json:"link,omitempty"`
}

type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

/*
ProfileCache
------------
Optional read-through cache for the public user projection.
Failures are treated as misses; it never holds tokens.
*/
type ProfileCache interface {
	Get(ctx context.Context, userID string) (domain.PublicUser, bool)
	Set(ctx context.Context, u domain.PublicUser)
	Invalidate(ctx context.Context, userID string)
}

type noopProfileCache struct{}

func (noopProfileCache) Get(context.Context, string) (domain.PublicUser, bool) {
	return domain.PublicUser{}, false
}
func (noopProfileCache) Set(context.Context, domain.PublicUser) {}
func (noopProfileCache) Invalidate(context.Context, string) {}
