package session

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
)

// fakeAuthServer accepts one access token on /protected and exchanges refreshToken for a new one.
type fakeAuthServer struct {
	mu           sync.Mutex
	validAccess  string
	refreshToken string
	newAccess    string

	// refreshStatus != 0 makes /auth/refresh-token fail with that status.
	refreshStatus int
	// gate, when set, blocks refresh until closed.
	gate chan struct{}
	// onProtected runs before /protected answers.
	onProtected func(auth string)
	// logoutStatus != 0 makes an authorized /auth/logout fail with that status.
	logoutStatus int

	refreshCalls   atomic.Int32
	protectedCalls atomic.Int32
	logoutCalls    atomic.Int32
	bodies         []string

	srv *httptest.Server
	tr  *http.Transport
}

func newFakeAuthServer(t *testing.T) *fakeAuthServer {
	t.Helper()
	f := &fakeAuthServer{
		validAccess:  "A2",
		refreshToken: "R1",
		newAccess:    "A2",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/refresh-token", f.refresh)
	mux.HandleFunc("/protected", f.protected)
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(r) {
			writeErr(w, http.StatusUnauthorized, "token_invalid")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data":    map[string]any{"id": "u1", "email": "a@x.com", "role": "buyer", "isEmailVerified": true},
		})
	})
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in["password"] != "secret1" {
			writeErr(w, http.StatusUnauthorized, "invalid_credentials")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":      true,
			"accessToken":  "A1",
			"refreshToken": "R1",
			"user":         map[string]any{"id": "u1", "email": in["email"], "role": "buyer"},
		})
	})
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(r) {
			writeErr(w, http.StatusUnauthorized, "token_expired")
			return
		}
		f.logoutCalls.Add(1)
		if f.logoutStatus != 0 {
			writeErr(w, f.logoutStatus, "internal_error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Logged out"})
	})
	mux.HandleFunc("POST /auth/register", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in["role"] != "buyer" && in["role"] != "seller" {
			writeErr(w, http.StatusBadRequest, "invalid_role")
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"success": true, "message": "User registered successfully."})
	})
	mux.HandleFunc("PUT /auth/reset-password/{token}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("token") != "a/b" {
			writeErr(w, http.StatusBadRequest, "token_invalid_or_expired")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "ok"})
	})

	f.srv = httptest.NewServer(mux)
	f.tr = &http.Transport{}
	t.Cleanup(func() {
		f.tr.CloseIdleConnections()
		f.srv.Close()
	})
	return f
}

func (f *fakeAuthServer) authorized(r *http.Request) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return r.Header.Get("Authorization") == "Bearer "+f.validAccess
}

func (f *fakeAuthServer) refresh(w http.ResponseWriter, r *http.Request) {
	f.refreshCalls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if f.refreshStatus != 0 {
		writeErr(w, f.refreshStatus, "refresh_token_invalid")
		return
	}

	var in struct {
		RefreshToken string `json:"refreshToken"`
	}
	_ = json.NewDecoder(r.Body).Decode(&in)
	if in.RefreshToken != f.refreshToken {
		writeErr(w, http.StatusUnauthorized, "refresh_token_invalid")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "accessToken": f.newAccess})
}

func (f *fakeAuthServer) protected(w http.ResponseWriter, r *http.Request) {
	f.protectedCalls.Add(1)
	if f.onProtected != nil {
		f.onProtected(r.Header.Get("Authorization"))
	}
	b, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.bodies = append(f.bodies, string(b))
	f.mu.Unlock()

	if !f.authorized(r) {
		writeErr(w, http.StatusUnauthorized, "token_expired")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]any{"error": map[string]any{"code": code, "message": code}})
}
