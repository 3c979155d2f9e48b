package auth

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/baechuer/marketplace-auth/internal/domain"
	"github.com/baechuer/marketplace-auth/internal/logger"
)

// Register creates an unverified account and emails the verification link.
// No session is issued. If the email cannot be sent the account is removed again,
// otherwise the address would stay taken with no way to verify it.
func (s *Service) Register(ctx context.Context, in RegisterInput) (domain.PublicUser, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	name := strings.TrimSpace(in.Name)
	if email == "" {
		return domain.PublicUser{}, domain.ErrMissingField("email")
	}
	if in.Password == "" {
		return domain.PublicUser{}, domain.ErrMissingField("password")
	}

	// duplicate check comes before role validation
	if _, err := s.creds.FindByEmail(ctx, email); err == nil {
		return domain.PublicUser{}, domain.ErrDuplicateEmail()
	} else if !domain.Is(err, "user_not_found") {
		return domain.PublicUser{}, err
	}

	if !domain.IsValidRole(in.Role) {
		return domain.PublicUser{}, domain.ErrInvalidRole(in.Role)
	}

	hash, err := s.creds.HashPassword(in.Password)
	if err != nil {
		return domain.PublicUser{}, err
	}

	created, err := s.creds.Create(ctx, domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         in.Role,
	})
	if err != nil {
		if domain.Is(err, "email_already_exists") {
			return domain.PublicUser{}, domain.ErrDuplicateEmail()
		}
		return domain.PublicUser{}, err
	}

	if err := s.sendVerification(ctx, created); err != nil {
		if derr := s.creds.Delete(ctx, created.ID); derr != nil {
			logger.WithCtx(ctx).Error().Err(derr).Str("user_id", created.ID).Msg("register_compensation_failed")
		}
		return domain.PublicUser{}, err
	}

	return created.Public(), nil
}

func (s *Service) sendVerification(ctx context.Context, u domain.User) error {
	raw, err := s.creds.IssueOneTimeToken(ctx, u.ID, domain.PurposeVerifyEmail)
	if err != nil {
		return err
	}
	msg := verifyEmailMessage(s.appName, u, s.verifyEmailBaseURL+raw, s.creds.OneTimeTokenTTL(domain.PurposeVerifyEmail))
	if err := s.notify.Send(ctx, msg); err != nil {
		return domain.ErrEmailDeliveryFailed(err)
	}
	return nil
}
