package auth

import (
	"context"
	"strings"

	"github.com/baechuer/marketplace-auth/internal/domain"
)

// ForgotPassword emails a reset link. Unknown addresses get user_not_found,
// so this endpoint does reveal whether an account exists.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return domain.ErrMissingField("email")
	}

	u, err := s.creds.FindByEmail(ctx, email)
	if err != nil {
		return err
	}

	raw, err := s.creds.IssueOneTimeToken(ctx, u.ID, domain.PurposeResetPassword)
	if err != nil {
		return err
	}

	msg := passwordResetMessage(s.appName, u, s.passwordResetBaseURL+raw, s.creds.OneTimeTokenTTL(domain.PurposeResetPassword))
	if err := s.notify.Send(ctx, msg); err != nil {
		return domain.ErrEmailDeliveryFailed(err)
	}
	return nil
}

// ResetPassword consumes a reset token and stores the new password hash in the same update.
// It does not log the user in.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if newPassword == "" {
		return domain.ErrMissingField("password")
	}

	hash, err := s.creds.HashPassword(newPassword)
	if err != nil {
		return err
	}

	u, err := s.creds.ConsumeOneTimeToken(ctx, token, domain.PurposeResetPassword, domain.UserChange{PasswordHash: hash})
	if err != nil {
		return err
	}
	s.profiles.Invalidate(ctx, u.ID)
	return nil
}
