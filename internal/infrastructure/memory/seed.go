package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/baechuer/marketplace-auth/internal/domain"
	"github.com/baechuer/marketplace-auth/internal/logger"
)

// Hasher is the minimal surface we need for seeding.
type Hasher interface {
	Hash(password string) (string, error)
}

// UserCreator is satisfied by every user repository (memory, postgres, mongo).
type UserCreator interface {
	Create(ctx context.Context, u domain.User) (domain.User, error)
}

// SeedUsers creates verified demo users for local development.
// Safe to call multiple times (duplicates ignored). Returns how many were created.
func SeedUsers(ctx context.Context, users UserCreator, hasher Hasher) int {
	type seedUser struct {
		Name  string
		Email string
		Role  domain.Role
		Pass  string
	}

	seeds := []seedUser{
		{Name: "Demo Buyer", Email: "buyer@example.com", Role: domain.RoleBuyer, Pass: "BuyerPassword123!"},
		{Name: "Demo Seller", Email: "seller@example.com", Role: domain.RoleSeller, Pass: "SellerPassword123!"},
	}

	created := 0
	for _, s := range seeds {
		hash, err := hasher.Hash(s.Pass)
		if err != nil {
			logger.Logger.Warn().Err(err).Str("email", s.Email).Msg("seed_hash_failed")
			continue
		}

		u := domain.User{
			ID:            uuid.NewString(),
			Name:          s.Name,
			Email:         s.Email,
			PasswordHash:  hash,
			Role:          string(s.Role),
			EmailVerified: true,
		}

		if _, err := users.Create(ctx, u); err != nil {
			if !domain.Is(err, "email_already_exists") {
				logger.Logger.Warn().Err(err).Str("email", s.Email).Msg("seed_create_failed")
			}
			continue
		}
		created++
	}

	logger.Logger.Info().Int("created", created).Int("total", len(seeds)).Msg("dev_users_seeded")
	return created
}
