package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/marketplace-auth/internal/domain"
)

func TestUserRepo_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	r := NewUserRepo()

	u, err := r.Create(ctx, domain.User{ID: "u1", Email: "a@b.com", PasswordHash: "h", Role: "buyer"})
	require.NoError(t, err)
	assert.False(t, u.CreatedAt.IsZero())

	got, err := r.GetByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)

	_, err = r.Create(ctx, domain.User{ID: "u2", Email: "a@b.com", PasswordHash: "h", Role: "seller"})
	assert.True(t, domain.Is(err, "email_already_exists"))

	_, err = r.GetByID(ctx, "missing")
	assert.True(t, domain.Is(err, "user_not_found"))
}

func TestUserRepo_Delete(t *testing.T) {
	ctx := context.Background()
	r := NewUserRepo()
	_, err := r.Create(ctx, domain.User{ID: "u1", Email: "a@b.com", Role: "buyer"})
	require.NoError(t, err)

	require.NoError(t, r.Delete(ctx, "u1"))
	require.NoError(t, r.Delete(ctx, "u1"))

	_, err = r.GetByEmail(ctx, "a@b.com")
	assert.True(t, domain.Is(err, "user_not_found"))

	// email is free again
	_, err = r.Create(ctx, domain.User{ID: "u2", Email: "a@b.com", Role: "buyer"})
	assert.NoError(t, err)
}

func TestUserRepo_ConsumeOneTimeToken(t *testing.T) {
	ctx := context.Background()
	r := NewUserRepo()
	_, err := r.Create(ctx, domain.User{ID: "u1", Email: "a@b.com", PasswordHash: "old", Role: "buyer"})
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, r.SetOneTimeToken(ctx, "u1", domain.PurposeVerifyEmail, "digest", now.Add(time.Hour)))

	t.Run("wrong purpose", func(t *testing.T) {
		_, err := r.ConsumeOneTimeToken(ctx, domain.PurposeResetPassword, "digest", now, domain.UserChange{PasswordHash: "new"})
		assert.True(t, domain.Is(err, "token_invalid_or_expired"))
	})

	t.Run("expired", func(t *testing.T) {
		_, err := r.ConsumeOneTimeToken(ctx, domain.PurposeVerifyEmail, "digest", now.Add(time.Hour), domain.UserChange{MarkEmailVerified: true})
		assert.True(t, domain.Is(err, "token_invalid_or_expired"))
	})

	t.Run("success then single use", func(t *testing.T) {
		u, err := r.ConsumeOneTimeToken(ctx, domain.PurposeVerifyEmail, "digest", now, domain.UserChange{MarkEmailVerified: true})
		require.NoError(t, err)
		assert.True(t, u.EmailVerified)
		assert.Nil(t, u.EmailVerificationTokenHash)
		assert.Nil(t, u.EmailVerificationExpiry)
		assert.Equal(t, "old", u.PasswordHash)

		_, err = r.ConsumeOneTimeToken(ctx, domain.PurposeVerifyEmail, "digest", now, domain.UserChange{MarkEmailVerified: true})
		assert.True(t, domain.Is(err, "token_invalid_or_expired"))
	})
}

func TestUserRepo_ConsumeOneTimeToken_Concurrent(t *testing.T) {
	ctx := context.Background()
	r := NewUserRepo()
	_, err := r.Create(ctx, domain.User{ID: "u1", Email: "a@b.com", PasswordHash: "old", Role: "buyer"})
	require.NoError(t, err)
	require.NoError(t, r.SetOneTimeToken(ctx, "u1", domain.PurposeResetPassword, "digest", time.Now().Add(time.Minute)))

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.ConsumeOneTimeToken(ctx, domain.PurposeResetPassword, "digest", time.Now(), domain.UserChange{PasswordHash: "new"}); err == nil {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins)
}

func TestUserRepo_SetRefreshToken(t *testing.T) {
	ctx := context.Background()
	r := NewUserRepo()
	_, err := r.Create(ctx, domain.User{ID: "u1", Email: "a@b.com", Role: "buyer"})
	require.NoError(t, err)

	require.NoError(t, r.SetRefreshToken(ctx, "u1", "rt"))
	u, _ := r.GetByID(ctx, "u1")
	require.NotNil(t, u.RefreshToken)
	assert.Equal(t, "rt", *u.RefreshToken)

	require.NoError(t, r.SetRefreshToken(ctx, "u1", ""))
	u, _ = r.GetByID(ctx, "u1")
	assert.Nil(t, u.RefreshToken)

	assert.True(t, domain.Is(r.SetRefreshToken(ctx, "nope", "x"), "user_not_found"))
}
