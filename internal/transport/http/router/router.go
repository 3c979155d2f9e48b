package router

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HealthHandler interface {
	Healthz(w http.ResponseWriter, r *http.Request)
	Readyz(w http.ResponseWriter, r *http.Request)
}

type AuthHandler interface {
	// Account lifecycle
	Register(w http.ResponseWriter, r *http.Request)
	VerifyEmail(w http.ResponseWriter, r *http.Request)
	ResendVerification(w http.ResponseWriter, r *http.Request)
	ForgotPassword(w http.ResponseWriter, r *http.Request)
	ResetPassword(w http.ResponseWriter, r *http.Request)

	// Session
	Login(w http.ResponseWriter, r *http.Request)
	Refresh(w http.ResponseWriter, r *http.Request)
	Logout(w http.ResponseWriter, r *http.Request)
	Me(w http.ResponseWriter, r *http.Request)
}

type DashboardHandler interface {
	Buyer(w http.ResponseWriter, r *http.Request)
	Seller(w http.ResponseWriter, r *http.Request)
}

type Middleware = func(http.Handler) http.Handler

type Deps struct {
	Health    HealthHandler
	Auth      AuthHandler
	Dashboard DashboardHandler

	// Global chain, applied in order. Typically request id, access log, metrics.
	Global []Middleware

	AuthMW Middleware
	CSRFMW Middleware
	// Guard resolves a named role guard (see middleware.RoleGuards).
	Guard func(key string) Middleware

	// Metrics exposes /metrics when true.
	Metrics bool
}

func New(deps Deps) (http.Handler, error) {
	if deps.Health == nil {
		return nil, fmt.Errorf("nil Health handler")
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("nil Auth handler")
	}
	if deps.Dashboard == nil {
		return nil, fmt.Errorf("nil Dashboard handler")
	}
	if deps.AuthMW == nil {
		return nil, fmt.Errorf("nil Auth middleware")
	}
	if deps.Guard == nil {
		return nil, fmt.Errorf("nil Guard")
	}
	csrf := deps.CSRFMW
	if csrf == nil {
		csrf = func(next http.Handler) http.Handler { return next }
	}

	r := chi.NewRouter()
	for _, mw := range deps.Global {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.Get("/healthz", deps.Health.Healthz)
	r.Get("/readyz", deps.Health.Readyz)
	if deps.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/auth", func(r chi.Router) {
		// --- Account lifecycle ---
		r.Post("/register", deps.Auth.Register)
		r.Post("/verify-email/resend", deps.Auth.ResendVerification)
		r.Get("/verify-email/{token}", deps.Auth.VerifyEmail)
		r.Post("/forgot-password", deps.Auth.ForgotPassword)
		r.Put("/reset-password/{token}", deps.Auth.ResetPassword)

		// --- Session ---
		r.Post("/login", deps.Auth.Login)
		r.With(csrf).Post("/refresh-token", deps.Auth.Refresh)
		r.With(deps.AuthMW).Get("/me", deps.Auth.Me)
		r.With(csrf, deps.AuthMW).Post("/logout", deps.Auth.Logout)
	})

	r.Route("/dashboard", func(r chi.Router) {
		r.Use(deps.AuthMW)
		r.With(deps.Guard("dashboard.buyer")).Get("/buyer", deps.Dashboard.Buyer)
		r.With(deps.Guard("dashboard.seller")).Get("/seller", deps.Dashboard.Seller)
	})

	return r, nil
}
