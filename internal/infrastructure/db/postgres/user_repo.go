package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/baechuer/marketplace-auth/internal/domain"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

// ---------- helpers ----------

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// tokenColumns maps a purpose to its (hash, expiry) columns. Never built from input.
func tokenColumns(purpose domain.TokenPurpose) (string, string, error) {
	switch purpose {
	case domain.PurposeVerifyEmail:
		return "email_verification_token_hash", "email_verification_expires_at", nil
	case domain.PurposeResetPassword:
		return "reset_password_token_hash", "reset_password_expires_at", nil
	default:
		return "", "", domain.ErrInvalidField("purpose", string(purpose))
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.UniqueViolation
	}
	return strings.Contains(strings.ToLower(err.Error()), "duplicate")
}

func (r *UserRepo) getOne(ctx context.Context, where string, arg any) (domain.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE ` + where + ` LIMIT 1;`
	ur, err := scanUserRow(r.db.QueryRowContext(ctx, q, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound()
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	return toDomainUser(ur), nil
}

// ---------- credential.UserRepo ----------

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return domain.User{}, domain.ErrMissingField("email")
	}
	return r.getOne(ctx, "email = $1", email)
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.User{}, domain.ErrMissingField("id")
	}
	return r.getOne(ctx, "id = $1", id)
}

func (r *UserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	u.Email = normalizeEmail(u.Email)
	if u.ID == "" {
		return domain.User{}, domain.ErrMissingField("id")
	}
	if u.Email == "" {
		return domain.User{}, domain.ErrMissingField("email")
	}
	if u.PasswordHash == "" {
		return domain.User{}, domain.ErrMissingField("password_hash")
	}
	if !domain.IsValidRole(u.Role) {
		return domain.User{}, domain.ErrInvalidRole(u.Role)
	}

	q := `
INSERT INTO users (id, name, email, password_hash, role, email_verified)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING ` + userColumns + `;`

	ur, err := scanUserRow(r.db.QueryRowContext(ctx, q,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.EmailVerified,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.User{}, domain.ErrEmailAlreadyExists()
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	return toDomainUser(ur), nil
}

func (r *UserRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1;`, id); err != nil {
		return domain.ErrDBUnavailable(err)
	}
	return nil
}

func (r *UserRepo) SetOneTimeToken(ctx context.Context, userID string, purpose domain.TokenPurpose, hash string, expiresAt time.Time) error {
	hashCol, expCol, err := tokenColumns(purpose)
	if err != nil {
		return err
	}

	q := fmt.Sprintf(`
UPDATE users
SET %s = $2,
    %s = $3,
    updated_at = NOW()
WHERE id = $1;`, hashCol, expCol)

	res, err := r.db.ExecContext(ctx, q, userID, hash, expiresAt.UTC())
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrUserNotFound()
	}
	return nil
}

// ConsumeOneTimeToken is one UPDATE statement. The inner SELECT picks the oldest matching
// row and locks it; the outer predicate is re-checked after the lock, so a concurrent
// consumer of the same token updates zero rows.
func (r *UserRepo) ConsumeOneTimeToken(ctx context.Context, purpose domain.TokenPurpose, hash string, now time.Time, change domain.UserChange) (domain.User, error) {
	hashCol, expCol, err := tokenColumns(purpose)
	if err != nil {
		return domain.User{}, err
	}

	q := fmt.Sprintf(`
UPDATE users
SET %[1]s = NULL,
    %[2]s = NULL,
    email_verified = email_verified OR $3,
    password_hash = COALESCE(NULLIF($4, ''), password_hash),
    updated_at = NOW()
WHERE %[1]s = $1
  AND %[2]s > $2
  AND id = (
    SELECT id FROM users
    WHERE %[1]s = $1 AND %[2]s > $2
    ORDER BY created_at
    LIMIT 1
    FOR UPDATE
  )
RETURNING `+userColumns+`;`, hashCol, expCol)

	ur, err := scanUserRow(r.db.QueryRowContext(ctx, q, hash, now.UTC(), change.MarkEmailVerified, change.PasswordHash))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrTokenInvalidOrExpired()
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	return toDomainUser(ur), nil
}

func (r *UserRepo) SetRefreshToken(ctx context.Context, userID string, token string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.ErrMissingField("user_id")
	}

	var v any
	if token != "" {
		v = token
	}

	const q = `
UPDATE users
SET refresh_token = $2,
    updated_at = NOW()
WHERE id = $1;
`
	res, err := r.db.ExecContext(ctx, q, userID, v)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrUserNotFound()
	}
	return nil
}

func (r *UserRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
