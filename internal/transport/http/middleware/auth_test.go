package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/baechuer/marketplace-auth/internal/domain"
)

// ---- fakes ----

type fakeAuthenticator struct {
	user   domain.PublicUser
	err    error
	calls  int
	gotTok string
}

func (f *fakeAuthenticator) Authenticate(_ context.Context, token string) (domain.PublicUser, error) {
	f.calls++
	f.gotTok = token
	return f.user, f.err
}

type writeErrRecorder struct {
	calls int
	last  error
}

func (w *writeErrRecorder) fn(rw http.ResponseWriter, _ *http.Request, err error) {
	w.calls++
	w.last = err
	rw.WriteHeader(http.StatusTeapot)
}

// next handler checks context injection
type nextRecorder struct {
	calls   int
	gotUID  string
	gotRole string
}

func (n *nextRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n.calls++
	n.gotUID, _ = UserIDFromContext(r.Context())
	n.gotRole, _ = RoleFromContext(r.Context())
	w.WriteHeader(http.StatusOK)
}

func runAuthMW(t *testing.T, authn Authenticator, req *http.Request) (*writeErrRecorder, *nextRecorder) {
	t.Helper()

	rr := httptest.NewRecorder()
	we := &writeErrRecorder{}
	nx := &nextRecorder{}

	Authenticate(authn, we.fn)(nx).ServeHTTP(rr, req)
	return we, nx
}

// ---- tests ----

func TestAuthenticate_NoCookieNoHeader_ReturnsTokenMissing(t *testing.T) {
	a := &fakeAuthenticator{}
	req := httptest.NewRequest(http.MethodGet, "/x", nil)

	we, nx := runAuthMW(t, a, req)

	if nx.calls != 0 {
		t.Fatalf("expected next not called")
	}
	if !domain.Is(we.last, "token_missing") {
		t.Fatalf("expected token_missing, got %v", we.last)
	}
	if a.calls != 0 {
		t.Fatalf("authenticator should not be called when no token")
	}
}

func TestAuthenticate_BadScheme_ReturnsTokenInvalid(t *testing.T) {
	a := &fakeAuthenticator{}
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Basic abc")

	we, nx := runAuthMW(t, a, req)

	if nx.calls != 0 || !domain.Is(we.last, "token_invalid") {
		t.Fatalf("expected token_invalid, got %v (next=%d)", we.last, nx.calls)
	}
}

func TestAuthenticate_BearerButEmptyToken_ReturnsTokenInvalid(t *testing.T) {
	a := &fakeAuthenticator{}
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer   ")

	we, _ := runAuthMW(t, a, req)

	if !domain.Is(we.last, "token_invalid") {
		t.Fatalf("expected token_invalid, got %v", we.last)
	}
	if a.calls != 0 {
		t.Fatalf("authenticator should not be called when raw token empty")
	}
}

func TestAuthenticate_CookieWinsOverHeader(t *testing.T) {
	a := &fakeAuthenticator{user: domain.PublicUser{ID: "u-1", Role: "buyer"}}
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "from-cookie"})
	req.Header.Set("Authorization", "Bearer from-header")

	we, nx := runAuthMW(t, a, req)

	if we.calls != 0 {
		t.Fatalf("unexpected error: %v", we.last)
	}
	if a.gotTok != "from-cookie" {
		t.Fatalf("expected cookie token, got %q", a.gotTok)
	}
	if nx.gotUID != "u-1" || nx.gotRole != "buyer" {
		t.Fatalf("expected ctx uid=u-1 role=buyer, got uid=%q role=%q", nx.gotUID, nx.gotRole)
	}
}

func TestAuthenticate_AuthenticatorError_Propagates(t *testing.T) {
	a := &fakeAuthenticator{err: domain.ErrTokenExpired()}
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer abc")

	we, nx := runAuthMW(t, a, req)

	if nx.calls != 0 {
		t.Fatalf("expected next not called")
	}
	if !domain.Is(we.last, "token_expired") {
		t.Fatalf("expected token_expired, got %v", we.last)
	}
	if a.gotTok != "abc" {
		t.Fatalf("expected token abc, got %q", a.gotTok)
	}
}

func TestAuthenticate_DeletedUser_Unauthenticated(t *testing.T) {
	a := &fakeAuthenticator{err: domain.ErrUnauthenticated()}
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "bearer abc")

	we, _ := runAuthMW(t, a, req)

	if !domain.Is(we.last, "unauthenticated") {
		t.Fatalf("expected unauthenticated, got %v", we.last)
	}
}
