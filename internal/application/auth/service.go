package auth

import (
	"github.com/baechuer/marketplace-auth/internal/domain"
)

type Service struct {
	creds    Credentials
	codec    TokenCodec
	notify   Notifier
	profiles ProfileCache

	// Links embedded in emails; the raw token is appended.
	verifyEmailBaseURL   string // e.g. http://localhost:5000/api/auth/verify-email/
	passwordResetBaseURL string // e.g. http://localhost:5173/reset-password/
	appName              string
}

type Config struct {
	VerifyEmailBaseURL   string
	PasswordResetBaseURL string
	AppName              string
}

func NewService(creds Credentials, codec TokenCodec, notify Notifier, cfg Config) *Service {
	appName := cfg.AppName
	if appName == "" {
		appName = "Marketplace"
	}
	return &Service{
		creds:    creds,
		codec:    codec,
		notify:   notify,
		profiles: noopProfileCache{},

		verifyEmailBaseURL:   cfg.VerifyEmailBaseURL,
		passwordResetBaseURL: cfg.PasswordResetBaseURL,
		appName:              appName,
	}
}

func (s *Service) WithProfileCache(c ProfileCache) *Service {
	if c != nil {
		s.profiles = c
	}
	return s
}

type LoginResult struct {
	User         domain.PublicUser
	AccessToken  string
	RefreshToken string
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}
