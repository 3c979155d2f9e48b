package auth

import (
	"context"

	"github.com/baechuer/marketplace-auth/internal/domain"
	"github.com/baechuer/marketplace-auth/internal/logger"
)

// Refresh exchanges a valid refresh token for a new access token.
// The refresh token is not rotated; it must equal the one stored for the user.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", domain.ErrRefreshTokenInvalid()
	}

	claims, err := s.codec.Verify(refreshToken, TokenRefresh)
	if err != nil {
		// Hide details: expired and forged look the same to the caller
		logger.WithCtx(ctx).Debug().Err(err).Msg("refresh_token_rejected")
		return "", domain.ErrRefreshTokenInvalid()
	}

	u, err := s.creds.FindByID(ctx, claims.UserID)
	if err != nil {
		if domain.Is(err, "user_not_found") {
			return "", domain.ErrRefreshTokenInvalid()
		}
		return "", err
	}

	if u.RefreshToken == nil || *u.RefreshToken != refreshToken {
		return "", domain.ErrRefreshTokenInvalid()
	}

	return s.codec.IssueAccessToken(u.ID)
}
