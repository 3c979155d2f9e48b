package memory

import (
	"context"
	"sync"
	"time"

	"github.com/baechuer/marketplace-auth/internal/domain"
)

// UserRepo keeps users in process memory. Used for local dev and tests.
type UserRepo struct {
	mu      sync.RWMutex
	byID    map[string]domain.User
	byEmail map[string]string // email -> userID
	order   []string          // insertion order, so token lookups are first-match like a table scan
}

func NewUserRepo() *UserRepo {
	return &UserRepo{
		byID:    make(map[string]domain.User),
		byEmail: make(map[string]string),
	}
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return r.byID[id], nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return u, nil
}

func (r *UserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[u.Email]; exists {
		return domain.User{}, domain.ErrEmailAlreadyExists()
	}
	if u.ID == "" {
		return domain.User{}, domain.ErrInternal(nil)
	}

	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now

	r.byID[u.ID] = u
	r.byEmail[u.Email] = u.ID
	r.order = append(r.order, u.ID)
	return u, nil
}

func (r *UserRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return nil
	}
	delete(r.byID, id)
	delete(r.byEmail, u.Email)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *UserRepo) SetOneTimeToken(ctx context.Context, userID string, purpose domain.TokenPurpose, hash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[userID]
	if !ok {
		return domain.ErrUserNotFound()
	}
	h, exp := hash, expiresAt
	switch purpose {
	case domain.PurposeVerifyEmail:
		u.EmailVerificationTokenHash, u.EmailVerificationExpiry = &h, &exp
	case domain.PurposeResetPassword:
		u.ResetPasswordTokenHash, u.ResetPasswordExpiry = &h, &exp
	default:
		return domain.ErrInvalidField("purpose", string(purpose))
	}
	u.UpdatedAt = time.Now().UTC()
	r.byID[userID] = u
	return nil
}

// ConsumeOneTimeToken holds the write lock across match and update, which is what makes it atomic here.
func (r *UserRepo) ConsumeOneTimeToken(ctx context.Context, purpose domain.TokenPurpose, hash string, now time.Time, change domain.UserChange) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range r.order {
		u := r.byID[id]
		slot, exp := tokenSlot(&u, purpose)
		if slot == nil || *slot == nil || *exp == nil {
			continue
		}
		if **slot != hash || !(*exp).After(now) {
			continue
		}

		*slot, *exp = nil, nil
		if change.MarkEmailVerified {
			u.EmailVerified = true
		}
		if change.PasswordHash != "" {
			u.PasswordHash = change.PasswordHash
		}
		u.UpdatedAt = time.Now().UTC()
		r.byID[id] = u
		return u, nil
	}
	return domain.User{}, domain.ErrTokenInvalidOrExpired()
}

func (r *UserRepo) SetRefreshToken(ctx context.Context, userID string, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[userID]
	if !ok {
		return domain.ErrUserNotFound()
	}
	if token == "" {
		u.RefreshToken = nil
	} else {
		t := token
		u.RefreshToken = &t
	}
	u.UpdatedAt = time.Now().UTC()
	r.byID[userID] = u
	return nil
}

func (r *UserRepo) Ping(ctx context.Context) error { return nil }

func tokenSlot(u *domain.User, purpose domain.TokenPurpose) (**string, **time.Time) {
	switch purpose {
	case domain.PurposeVerifyEmail:
		return &u.EmailVerificationTokenHash, &u.EmailVerificationExpiry
	case domain.PurposeResetPassword:
		return &u.ResetPasswordTokenHash, &u.ResetPasswordExpiry
	}
	return nil, nil
}
