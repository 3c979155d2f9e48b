package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/baechuer/marketplace-auth/internal/domain"
)

func registerForTest(t *testing.T, svc *Service, d *testDeps) (domain.PublicUser, string) {
	t.Helper()
	u, err := svc.Register(context.Background(), RegisterInput{
		Name: "Ann", Email: "ann@example.com", Password: "password1", Role: "buyer",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return u, tokenFromLink(t, d.notify.last(t).Link, verifyBase)
}

func TestVerifyEmail_Success_ThenReuseFails(t *testing.T) {
	t.Parallel()

	svc, d := newSvcForTest(t)
	u, raw := registerForTest(t, svc, d)
	ctx := context.Background()

	got, err := svc.VerifyEmail(ctx, raw)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !got.IsEmailVerified || got.ID != u.ID {
		t.Fatalf("unexpected user %+v", got)
	}
	stored := d.users.get(u.ID)
	if stored.EmailVerificationTokenHash != nil || stored.EmailVerificationExpiry != nil {
		t.Fatalf("token slot must be cleared")
	}
	if len(d.profiles.invalidated) == 0 {
		t.Fatalf("cached projection should be invalidated")
	}

	_, err = svc.VerifyEmail(ctx, raw)
	requireDomainCode(t, err, "token_invalid_or_expired")

	if _, err := svc.Login(ctx, "ann@example.com", "password1"); err != nil {
		t.Fatalf("verified user should log in: %v", err)
	}
}

func TestVerifyEmail_Expired(t *testing.T) {
	t.Parallel()

	svc, d := newSvcForTest(t)
	u, raw := registerForTest(t, svc, d)

	*d.now = d.now.Add(24*time.Hour + time.Second)

	_, err := svc.VerifyEmail(context.Background(), raw)
	requireDomainCode(t, err, "token_invalid_or_expired")
	if d.users.get(u.ID).EmailVerified {
		t.Fatalf("expired token must not verify")
	}
}

func TestVerifyEmail_UnknownOrEmpty(t *testing.T) {
	t.Parallel()

	svc, _ := newSvcForTest(t)
	for _, tok := range []string{"", "  ", "deadbeef"} {
		_, err := svc.VerifyEmail(context.Background(), tok)
		requireDomainCode(t, err, "token_invalid_or_expired")
	}
}

func TestVerifyEmail_ConcurrentConsumption_ExactlyOneWins(t *testing.T) {
	t.Parallel()

	svc, d := newSvcForTest(t)
	_, raw := registerForTest(t, svc, d)

	const n = 16
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.VerifyEmail(context.Background(), raw)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
		} else if !domain.Is(err, "token_invalid_or_expired") {
			t.Fatalf("unexpected error %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("expected exactly one success, got %d", ok)
	}
}

func TestResendVerification_ReplacesToken(t *testing.T) {
	t.Parallel()

	svc, d := newSvcForTest(t)
	_, first := registerForTest(t, svc, d)
	ctx := context.Background()

	if err := svc.ResendVerification(ctx, "ANN@example.com"); err != nil {
		t.Fatalf("resend: %v", err)
	}
	second := tokenFromLink(t, d.notify.last(t).Link, verifyBase)
	if first == second {
		t.Fatalf("expected a new token")
	}

	_, err := svc.VerifyEmail(ctx, first)
	requireDomainCode(t, err, "token_invalid_or_expired")
	if _, err := svc.VerifyEmail(ctx, second); err != nil {
		t.Fatalf("new token should verify: %v", err)
	}
}

func TestResendVerification_NonEnumerating(t *testing.T) {
	t.Parallel()

	svc, d := newSvcForTest(t)
	d.seedUser("u1", "done@example.com", "pw", true)

	if err := svc.ResendVerification(context.Background(), "ghost@example.com"); err != nil {
		t.Fatalf("unknown email should be nil, got %v", err)
	}
	if err := svc.ResendVerification(context.Background(), "done@example.com"); err != nil {
		t.Fatalf("verified email should be nil, got %v", err)
	}
	if len(d.notify.msgs) != 0 {
		t.Fatalf("nothing should be sent")
	}
}

func TestForgotPassword_UnknownEmail_NotFound(t *testing.T) {
	t.Parallel()

	svc, _ := newSvcForTest(t)
	err := svc.ForgotPassword(context.Background(), "ghost@example.com")
	requireDomainCode(t, err, "user_not_found")
}

func TestForgotPassword_DeliveryFailure(t *testing.T) {
	t.Parallel()

	svc, d := newSvcForTest(t)
	d.seedUser("u1", "a@b.com", "old", true)
	d.notify.err = errors.New("down")

	requireDomainCode(t, svc.ForgotPassword(context.Background(), "a@b.com"), "email_delivery_failed")
}

func TestResetPassword_FullFlow(t *testing.T) {
	t.Parallel()

	svc, d := newSvcForTest(t)
	d.seedUser("u1", "a@b.com", "old", true)
	ctx := context.Background()

	if err := svc.ForgotPassword(ctx, "a@b.com"); err != nil {
		t.Fatalf("forgot: %v", err)
	}
	raw := tokenFromLink(t, d.notify.last(t).Link, resetBase)

	if err := svc.ResetPassword(ctx, raw, "new-password"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	stored := d.users.get("u1")
	if stored.ResetPasswordTokenHash != nil || stored.ResetPasswordExpiry != nil {
		t.Fatalf("reset slot must be cleared")
	}
	if stored.RefreshToken != nil {
		t.Fatalf("reset must not log the user in")
	}

	if _, err := svc.Login(ctx, "a@b.com", "old"); !domain.Is(err, "invalid_credentials") {
		t.Fatalf("old password must fail, got %v", err)
	}
	if _, err := svc.Login(ctx, "a@b.com", "new-password"); err != nil {
		t.Fatalf("new password should work: %v", err)
	}

	requireDomainCode(t, svc.ResetPassword(ctx, raw, "another-one"), "token_invalid_or_expired")
}

func TestResetPassword_ExpiresAfterTenMinutes(t *testing.T) {
	t.Parallel()

	svc, d := newSvcForTest(t)
	d.seedUser("u1", "a@b.com", "old", true)
	ctx := context.Background()

	if err := svc.ForgotPassword(ctx, "a@b.com"); err != nil {
		t.Fatalf("forgot: %v", err)
	}
	raw := tokenFromLink(t, d.notify.last(t).Link, resetBase)

	*d.now = d.now.Add(10*time.Minute + time.Second)
	requireDomainCode(t, svc.ResetPassword(ctx, raw, "new-password"), "token_invalid_or_expired")
	if d.users.get("u1").PasswordHash != "hash:old" {
		t.Fatalf("password must be unchanged")
	}
}

func TestResetPassword_VerifyTokenCannotReset(t *testing.T) {
	t.Parallel()

	svc, d := newSvcForTest(t)
	_, raw := registerForTest(t, svc, d)

	requireDomainCode(t, svc.ResetPassword(context.Background(), raw, "new-password"), "token_invalid_or_expired")
}

func TestResetPassword_EmptyPassword(t *testing.T) {
	t.Parallel()

	svc, _ := newSvcForTest(t)
	requireDomainCode(t, svc.ResetPassword(context.Background(), "x", ""), "missing_field")
}
