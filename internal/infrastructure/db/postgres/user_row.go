package postgres

import (
	"database/sql"
	"time"

	"github.com/baechuer/marketplace-auth/internal/domain"
)

const userColumns = `id, name, email, password_hash, role, email_verified,
  email_verification_token_hash, email_verification_expires_at,
  reset_password_token_hash, reset_password_expires_at,
  refresh_token, created_at, updated_at`

type userRow struct {
	ID            string
	Name          string
	Email         string
	PasswordHash  string
	Role          string
	EmailVerified bool

	VerifyHash   sql.NullString
	VerifyExpiry sql.NullTime
	ResetHash    sql.NullString
	ResetExpiry  sql.NullTime
	RefreshToken sql.NullString

	CreatedAt time.Time
	UpdatedAt time.Time
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUserRow(row rowScanner) (userRow, error) {
	var ur userRow
	err := row.Scan(
		&ur.ID,
		&ur.Name,
		&ur.Email,
		&ur.PasswordHash,
		&ur.Role,
		&ur.EmailVerified,
		&ur.VerifyHash,
		&ur.VerifyExpiry,
		&ur.ResetHash,
		&ur.ResetExpiry,
		&ur.RefreshToken,
		&ur.CreatedAt,
		&ur.UpdatedAt,
	)
	return ur, err
}

func toDomainUser(ur userRow) domain.User {
	return domain.User{
		ID:                         ur.ID,
		Name:                       ur.Name,
		Email:                      ur.Email,
		PasswordHash:               ur.PasswordHash,
		Role:                       ur.Role,
		EmailVerified:              ur.EmailVerified,
		EmailVerificationTokenHash: nullString(ur.VerifyHash),
		EmailVerificationExpiry:    nullTime(ur.VerifyExpiry),
		ResetPasswordTokenHash:     nullString(ur.ResetHash),
		ResetPasswordExpiry:        nullTime(ur.ResetExpiry),
		RefreshToken:               nullString(ur.RefreshToken),
		CreatedAt:                  ur.CreatedAt,
		UpdatedAt:                  ur.UpdatedAt,
	}
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
