package mongodb

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/baechuer/marketplace-auth/internal/domain"
)

const DefaultUsersCollection = "users"

type userDoc struct {
	ID                         string     `bson:"_id"`
	Name                       string     `bson:"name"`
	Email                      string     `bson:"email"`
	PasswordHash               string     `bson:"password_hash"`
	Role                       string     `bson:"role"`
	EmailVerified              bool       `bson:"email_verified"`
	EmailVerificationTokenHash *string    `bson:"email_verification_token_hash,omitempty"`
	EmailVerificationExpiresAt *time.Time `bson:"email_verification_expires_at,omitempty"`
	ResetPasswordTokenHash     *string    `bson:"reset_password_token_hash,omitempty"`
	ResetPasswordExpiresAt     *time.Time `bson:"reset_password_expires_at,omitempty"`
	RefreshToken               *string    `bson:"refresh_token,omitempty"`
	CreatedAt                  time.Time  `bson:"created_at"`
	UpdatedAt                  time.Time  `bson:"updated_at"`
}

func (d userDoc) toDomain() domain.User {
	return domain.User{
		ID:                         d.ID,
		Name:                       d.Name,
		Email:                      d.Email,
		PasswordHash:               d.PasswordHash,
		Role:                       d.Role,
		EmailVerified:              d.EmailVerified,
		EmailVerificationTokenHash: d.EmailVerificationTokenHash,
		EmailVerificationExpiry:    d.EmailVerificationExpiresAt,
		ResetPasswordTokenHash:     d.ResetPasswordTokenHash,
		ResetPasswordExpiry:        d.ResetPasswordExpiresAt,
		RefreshToken:               d.RefreshToken,
		CreatedAt:                  d.CreatedAt,
		UpdatedAt:                  d.UpdatedAt,
	}
}

// UserRepo stores users as one document each. Every write touches a single
// document, so the single-document atomicity of MongoDB is all ConsumeOneTimeToken needs.
type UserRepo struct {
	c *mongo.Collection
}

func NewUserRepo(db *mongo.Database) *UserRepo {
	return NewUserRepoWithCollection(db.Collection(DefaultUsersCollection))
}

func NewUserRepoWithCollection(c *mongo.Collection) *UserRepo {
	return &UserRepo{c: c}
}

// EnsureIndexes creates the unique email index and the token lookup indexes. Idempotent.
func (r *UserRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email_verification_token_hash", Value: 1}}, Options: options.Index().SetSparse(true)},
		{Keys: bson.D{{Key: "reset_password_token_hash", Value: 1}}, Options: options.Index().SetSparse(true)},
	})
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	return nil
}

func tokenFields(purpose domain.TokenPurpose) (string, string, error) {
	switch purpose {
	case domain.PurposeVerifyEmail:
		return "email_verification_token_hash", "email_verification_expires_at", nil
	case domain.PurposeResetPassword:
		return "reset_password_token_hash", "reset_password_expires_at", nil
	default:
		return "", "", domain.ErrInvalidField("purpose", string(purpose))
	}
}

func (r *UserRepo) findOne(ctx context.Context, filter bson.M) (domain.User, error) {
	var d userDoc
	if err := r.c.FindOne(ctx, filter).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.User{}, domain.ErrUserNotFound()
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	return d.toDomain(), nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return domain.User{}, domain.ErrMissingField("email")
	}
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	if strings.TrimSpace(id) == "" {
		return domain.User{}, domain.ErrMissingField("id")
	}
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.ID == "" {
		return domain.User{}, domain.ErrMissingField("id")
	}
	if u.Email == "" {
		return domain.User{}, domain.ErrMissingField("email")
	}
	if !domain.IsValidRole(u.Role) {
		return domain.User{}, domain.ErrInvalidRole(u.Role)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now

	d := userDoc{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		PasswordHash:  u.PasswordHash,
		Role:          u.Role,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
	if _, err := r.c.InsertOne(ctx, d); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.User{}, domain.ErrEmailAlreadyExists()
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	return d.toDomain(), nil
}

func (r *UserRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.c.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return domain.ErrDBUnavailable(err)
	}
	return nil
}

func (r *UserRepo) SetOneTimeToken(ctx context.Context, userID string, purpose domain.TokenPurpose, hash string, expiresAt time.Time) error {
	hashField, expField, err := tokenFields(purpose)
	if err != nil {
		return err
	}
	update := bson.M{"$set": bson.M{
		hashField:    hash,
		expField:     expiresAt.UTC(),
		"updated_at": time.Now().UTC(),
	}}
	return r.updateByID(ctx, userID, update)
}

// ConsumeOneTimeToken matches and clears the token in one findAndModify; a second
// consumer of the same digest finds nothing.
func (r *UserRepo) ConsumeOneTimeToken(ctx context.Context, purpose domain.TokenPurpose, hash string, now time.Time, change domain.UserChange) (domain.User, error) {
	hashField, expField, err := tokenFields(purpose)
	if err != nil {
		return domain.User{}, err
	}

	filter := bson.M{
		hashField: hash,
		expField:  bson.M{"$gt": now.UTC()},
	}
	set := bson.M{"updated_at": time.Now().UTC()}
	if change.MarkEmailVerified {
		set["email_verified"] = true
	}
	if change.PasswordHash != "" {
		set["password_hash"] = change.PasswordHash
	}
	update := bson.M{
		"$set":   set,
		"$unset": bson.M{hashField: "", expField: ""},
	}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetReturnDocument(options.After)

	var d userDoc
	if err := r.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.User{}, domain.ErrTokenInvalidOrExpired()
		}
		return domain.User{}, domain.ErrDBUnavailable(err)
	}
	return d.toDomain(), nil
}

func (r *UserRepo) SetRefreshToken(ctx context.Context, userID string, token string) error {
	if strings.TrimSpace(userID) == "" {
		return domain.ErrMissingField("user_id")
	}
	update := bson.M{"$set": bson.M{"refresh_token": token, "updated_at": time.Now().UTC()}}
	if token == "" {
		update = bson.M{
			"$set":   bson.M{"updated_at": time.Now().UTC()},
			"$unset": bson.M{"refresh_token": ""},
		}
	}
	return r.updateByID(ctx, userID, update)
}

func (r *UserRepo) Ping(ctx context.Context) error {
	if err := r.c.Database().Client().Ping(ctx, nil); err != nil {
		return domain.ErrDBUnavailable(err)
	}
	return nil
}

func (r *UserRepo) updateByID(ctx context.Context, id string, update bson.M) error {
	res, err := r.c.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound()
	}
	return nil
}
