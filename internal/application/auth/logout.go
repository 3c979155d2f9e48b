package auth

import (
	"context"

	"github.com/baechuer/marketplace-auth/internal/domain"
)

// Logout clears the stored refresh token. Calling it twice is harmless.
// Access tokens already issued stay valid until they expire.
func (s *Service) Logout(ctx context.Context, userID string) error {
	if userID == "" {
		return domain.ErrUnauthenticated()
	}
	err := s.creds.SetRefreshToken(ctx, userID, "")
	if domain.Is(err, "user_not_found") {
		return nil
	}
	return err
}
