package http_handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/baechuer/marketplace-auth/internal/application/auth"
	"github.com/baechuer/marketplace-auth/internal/domain"
	"github.com/baechuer/marketplace-auth/internal/infrastructure/security"
	"github.com/baechuer/marketplace-auth/internal/logger"
	"github.com/baechuer/marketplace-auth/internal/transport/http/dto"
	"github.com/baechuer/marketplace-auth/internal/transport/http/middleware"
	"github.com/baechuer/marketplace-auth/internal/transport/http/response"
)

// AuthService is the slice of auth.Service the HTTP layer calls.
type AuthService interface {
	Register(ctx context.Context, in auth.RegisterInput) (domain.PublicUser, error)
	VerifyEmail(ctx context.Context, token string) (domain.PublicUser, error)
	ResendVerification(ctx context.Context, email string) error
	Login(ctx context.Context, email, password string) (auth.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, userID string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type AuthHandler struct {
	svc           AuthService
	refreshTTL    time.Duration
	secureCookies bool
}

func NewAuthHandler(svc AuthService, refreshTTL time.Duration, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		svc:           svc,
		refreshTTL:    refreshTTL,
		secureCookies: secureCookies,
	}
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	req.Normalize()
	if err := dto.Validate(&req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	u, err := h.svc.Register(r.Context(), auth.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	middleware.AccountFlowsTotal.WithLabelValues("register", middleware.Outcome(errCode(err))).Inc()
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info().
		Str("user_id", u.ID).
		Str("role", u.Role).
		Msg("user_registered")

	response.Message(w, http.StatusCreated, "User registered successfully. Please check your email to verify your account.")
}

// VerifyEmail handles GET /auth/verify-email/{token}
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(chi.URLParam(r, "token"))

	u, err := h.svc.VerifyEmail(r.Context(), token)
	middleware.AccountFlowsTotal.WithLabelValues("verify_email", middleware.Outcome(errCode(err))).Inc()
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info().Str("user_id", u.ID).Msg("email_verified")
	response.Message(w, http.StatusOK, "Email verified successfully. You can now log in.")
}

// ResendVerification handles POST /auth/verify-email/resend
func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req dto.EmailRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	req.Normalize()
	if err := dto.Validate(&req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.svc.ResendVerification(r.Context(), req.Email); err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.Message(w, http.StatusOK, "If the account exists and is not verified, a new verification email has been sent.")
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	req.Normalize()
	if err := dto.Validate(&req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.Login(r.Context(), req.Email, req.Password)
	middleware.LoginAttemptsTotal.WithLabelValues(middleware.Outcome(errCode(err))).Inc()
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info().
		Str("user_id", res.User.ID).
		Msg("user_logged_in")

	security.SetRefreshToken(w, res.RefreshToken, h.refreshTTL, h.secureCookies)

	response.WriteJSON(w, http.StatusOK, dto.LoginResponse{
		Success:      true,
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		User:         res.User,
	})
}

// Refresh handles POST /auth/refresh-token. The body wins over the cookie.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshRequest
	if err := response.DecodeOptionalJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	tok := strings.TrimSpace(req.RefreshToken)
	if tok == "" {
		tok, _ = security.ReadRefreshToken(r)
	}
	if tok == "" {
		countRefresh(r, domain.ErrRefreshTokenInvalid())
		response.WriteError(w, r, domain.ErrRefreshTokenInvalid())
		return
	}

	access, err := h.svc.Refresh(r.Context(), tok)
	countRefresh(r, err)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, dto.RefreshResponse{Success: true, AccessToken: access})
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	// Authenticate already resolved the user through the profile cache
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrUnauthenticated())
		return
	}

	response.OK(w, u)
}

// Logout handles POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrUnauthenticated())
		return
	}

	if err := h.svc.Logout(r.Context(), userID); err != nil {
		response.WriteError(w, r, err)
		return
	}

	security.ClearRefreshToken(w, h.secureCookies)

	logger.WithCtx(r.Context()).Info().Str("user_id", userID).Msg("user_logged_out")
	response.Message(w, http.StatusOK, "Logged out successfully")
}

// ForgotPassword handles POST /auth/forgot-password
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.EmailRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	req.Normalize()
	if err := dto.Validate(&req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	err := h.svc.ForgotPassword(r.Context(), req.Email)
	middleware.AccountFlowsTotal.WithLabelValues("forgot_password", middleware.Outcome(errCode(err))).Inc()
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.Message(w, http.StatusOK, "Password reset email sent")
}

// ResetPassword handles PUT /auth/reset-password/{token}
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(chi.URLParam(r, "token"))

	var req dto.ResetPasswordRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := dto.Validate(&req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	err := h.svc.ResetPassword(r.Context(), token, req.Password)
	middleware.AccountFlowsTotal.WithLabelValues("reset_password", middleware.Outcome(errCode(err))).Inc()
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info().Msg("password_reset")
	response.Message(w, http.StatusOK, "Password reset successful. Please login with your new password.")
}

func countRefresh(r *http.Request, err error) {
	code := errCode(err)
	middleware.TokenRefreshTotal.WithLabelValues(middleware.Outcome(code)).Inc()
	if err != nil {
		logger.WithCtx(r.Context()).Info().Str("code", code).Msg("refresh_rejected")
	}
}

func errCode(err error) string {
	if err == nil {
		return ""
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return de.Code
	}
	return "internal_error"
}
