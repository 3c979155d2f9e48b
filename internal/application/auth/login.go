package auth

import (
	"context"
	"strings"

	"github.com/baechuer/marketplace-auth/internal/domain"
)

// Login authenticates a user and issues an access/refresh pair.
// IMPORTANT: must not leak whether the email exists (avoid user enumeration).
// The verification check runs only after the password matched.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = strings.TrimSpace(email)

	if email == "" || password == "" {
		return LoginResult{}, domain.ErrInvalidCredentials()
	}

	u, err := s.creds.FindByEmail(ctx, email)
	if err != nil {
		if domain.Is(err, "user_not_found") {
			s.creds.ComparePassword(domain.User{}, password)
			return LoginResult{}, domain.ErrInvalidCredentials()
		}
		return LoginResult{}, err
	}

	if !s.creds.ComparePassword(u, password) {
		return LoginResult{}, domain.ErrInvalidCredentials()
	}

	if !u.EmailVerified {
		return LoginResult{}, domain.ErrEmailNotVerified()
	}

	access, err := s.codec.IssueAccessToken(u.ID)
	if err != nil {
		return LoginResult{}, err
	}
	refresh, err := s.codec.IssueRefreshToken(u.ID)
	if err != nil {
		return LoginResult{}, err
	}

	// overwrite: any refresh token from an earlier login stops working here
	if err := s.creds.SetRefreshToken(ctx, u.ID, refresh); err != nil {
		return LoginResult{}, err
	}

	return LoginResult{
		User:         u.Public(),
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}
