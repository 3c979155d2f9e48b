package credential

import (
	"context"
	"time"

	"github.com/baechuer/marketplace-auth/internal/domain"
)

/*
UserRepo
--------
Persistence port for users.
Implemented by the memory, postgres and mongo adapters.
Lookups return domain.ErrUserNotFound when nothing matches.
*/
type UserRepo interface {
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByID(ctx context.Context, id string) (domain.User, error)
	Create(ctx context.Context, u domain.User) (domain.User, error)
	Delete(ctx context.Context, id string) error

	// SetOneTimeToken overwrites the slot for purpose with hash and expiry.
	SetOneTimeToken(ctx context.Context, userID string, purpose domain.TokenPurpose, hash string, expiresAt time.Time) error

	// ConsumeOneTimeToken must be a single atomic update: find one user whose slot for purpose
	// equals hash with expiry after now, clear that slot, apply change, return the updated user.
	// No match returns domain.ErrTokenInvalidOrExpired and mutates nothing.
	ConsumeOneTimeToken(ctx context.Context, purpose domain.TokenPurpose, hash string, now time.Time, change domain.UserChange) (domain.User, error)

	// SetRefreshToken overwrites the single refresh slot. Empty token clears it.
	SetRefreshToken(ctx context.Context, userID string, token string) error
}

/*
PasswordHasher
--------------
Abstracts bcrypt.
*/
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash string, password string) error // nil if match
}
