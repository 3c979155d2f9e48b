package auth

import (
	"context"
	"strings"

	"github.com/baechuer/marketplace-auth/internal/domain"
)

// VerifyEmail consumes a verification token and marks the owner verified.
func (s *Service) VerifyEmail(ctx context.Context, token string) (domain.PublicUser, error) {
	u, err := s.creds.ConsumeOneTimeToken(ctx, token, domain.PurposeVerifyEmail, domain.UserChange{MarkEmailVerified: true})
	if err != nil {
		return domain.PublicUser{}, err
	}
	s.profiles.Invalidate(ctx, u.ID)
	return u.Public(), nil
}

// ResendVerification issues a fresh verification link, replacing the previous one.
// IMPORTANT: non-enumerating - unknown or already verified addresses return nil.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return domain.ErrMissingField("email")
	}

	u, err := s.creds.FindByEmail(ctx, email)
	if err != nil {
		if domain.Is(err, "user_not_found") {
			return nil
		}
		return err
	}
	if u.EmailVerified {
		return nil
	}
	return s.sendVerification(ctx, u)
}
