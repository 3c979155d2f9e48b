package auth

import (
	"context"

	"github.com/baechuer/marketplace-auth/internal/domain"
)

// Authenticate resolves an access token to the user it was issued for.
// Used by the auth middleware; a token for a deleted user is unauthenticated.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (domain.PublicUser, error) {
	if accessToken == "" {
		return domain.PublicUser{}, domain.ErrTokenMissing()
	}
	claims, err := s.codec.Verify(accessToken, TokenAccess)
	if err != nil {
		return domain.PublicUser{}, err
	}
	u, err := s.CurrentUser(ctx, claims.UserID)
	if domain.Is(err, "user_not_found") {
		return domain.PublicUser{}, domain.ErrUnauthenticated()
	}
	return u, err
}

// CurrentUser returns the public projection of userID.
func (s *Service) CurrentUser(ctx context.Context, userID string) (domain.PublicUser, error) {
	if p, ok := s.profiles.Get(ctx, userID); ok {
		return p, nil
	}
	u, err := s.creds.FindByID(ctx, userID)
	if err != nil {
		return domain.PublicUser{}, err
	}
	p := u.Public()
	s.profiles.Set(ctx, p)
	return p, nil
}
