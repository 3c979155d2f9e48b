package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestUserStruct_DefaultZeroValues(t *testing.T) {
	var u User

	if u.Role != "" {
		t.Fatalf("expected empty role")
	}
	if u.EmailVerified {
		t.Fatalf("expected EmailVerified=false")
	}
	if u.RefreshToken != nil {
		t.Fatalf("expected empty refresh slot")
	}
}

func TestPublic_OmitsSecrets(t *testing.T) {
	hash := "deadbeef"
	rt := "refresh"
	u := User{
		ID:                         "u1",
		Name:                       "Ann",
		Email:                      "ann@example.com",
		PasswordHash:               "$2a$secret",
		Role:                       "buyer",
		EmailVerified:              true,
		ResetPasswordTokenHash:     &hash,
		EmailVerificationTokenHash: &hash,
		RefreshToken:               &rt,
		CreatedAt:                  time.Unix(0, 0).UTC(),
	}

	b, err := json.Marshal(u.Public())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out := string(b)
	for _, leak := range []string{"$2a$secret", "deadbeef", "refresh\""} {
		if strings.Contains(out, leak) {
			t.Fatalf("public projection leaks %q: %s", leak, out)
		}
	}
	if !strings.Contains(out, `"isEmailVerified":true`) {
		t.Fatalf("unexpected projection: %s", out)
	}
}

func TestTokenPurpose_Valid(t *testing.T) {
	if !PurposeVerifyEmail.Valid() || !PurposeResetPassword.Valid() {
		t.Fatalf("known purposes should be valid")
	}
	if TokenPurpose("magic_link").Valid() {
		t.Fatalf("unknown purpose should be invalid")
	}
}
