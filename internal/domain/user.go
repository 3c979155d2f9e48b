package domain

import "time"

type User struct {
	ID            string
	Name          string
	Email         string
	PasswordHash  string
	Role          string
	EmailVerified bool

	// One-time token slots hold the SHA-256 hex digest, never the raw value.
	EmailVerificationTokenHash *string
	EmailVerificationExpiry    *time.Time
	ResetPasswordTokenHash     *string
	ResetPasswordExpiry        *time.Time

	// Single refresh token slot; nil when logged out.
	RefreshToken *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TokenPurpose selects which one-time token slot an operation targets.
type TokenPurpose string

const (
	PurposeVerifyEmail   TokenPurpose = "verify_email"
	PurposeResetPassword TokenPurpose = "reset_password"
)

func (p TokenPurpose) Valid() bool {
	return p == PurposeVerifyEmail || p == PurposeResetPassword
}

// UserChange is applied in the same atomic update that consumes a one-time token.
type UserChange struct {
	MarkEmailVerified bool
	PasswordHash      string
}

// PublicUser is the outbound projection of a user. It never carries secrets.
type PublicUser struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Role            string    `json:"role"`
	IsEmailVerified bool      `json:"isEmailVerified"`
	CreatedAt       time.Time `json:"createdAt"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		Role:            u.Role,
		IsEmailVerified: u.EmailVerified,
		CreatedAt:       u.CreatedAt,
	}
}
