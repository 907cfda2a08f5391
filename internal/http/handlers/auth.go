package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/clinicore/identity-service/internal/http/respond"
	"github.com/clinicore/identity-service/internal/models/dto"
	"github.com/clinicore/identity-service/internal/service"
	"github.com/clinicore/identity-service/internal/storage"
)

// Onboarding is the engine surface the HTTP layer depends on.
type Onboarding interface {
	SignupTenant(ctx context.Context, params service.SignupTenantParams) error
	SignIn(ctx context.Context, email, password string) (service.SignInResult, error)
	VerifyAccount(ctx context.Context, token, newPassword string) error
	ForgotPassword(ctx context.Context, email string) error
	ForgotPasswordMobile(ctx context.Context, mobile string) error
	RequestOTP(ctx context.Context, mobile, purpose string) error
	ResetPassword(ctx context.Context, mobile, code, newPassword string) error
	ResetPasswordByEmailToken(ctx context.Context, token, newPassword string) error
}

// AuthHandler owns the public onboarding and authentication endpoints.
type AuthHandler struct {
	svc      Onboarding
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(svc Onboarding, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		svc:      svc,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// Register attaches the public auth routes to the mux.
func (h *AuthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/public/auth/signup-super-admin", h.handleSignup)
	mux.HandleFunc("/api/public/auth/signin", h.handleSignIn)
	mux.HandleFunc("/api/public/auth/verify-account", h.handleVerifyAccount)
	mux.HandleFunc("/api/public/auth/forgot-password", h.handleForgotPassword)
	mux.HandleFunc("/api/public/auth/forgot-password-mobile", h.handleForgotPasswordMobile)
	mux.HandleFunc("/api/public/auth/request-otp", h.handleRequestOTP)
	mux.HandleFunc("/api/public/auth/reset-password", h.handleResetPassword)
	mux.HandleFunc("/api/public/auth/reset-password-email", h.handleResetPasswordEmail)
	mux.HandleFunc("/api/public/auth/logout", h.handleLogout)
}

func (h *AuthHandler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req dto.SignupRequest
	if !h.decode(w, r, &req) {
		return
	}
	err := h.svc.SignupTenant(r.Context(), service.SignupTenantParams{
		OrganizationName:    req.OrganizationName,
		HasMultipleBranches: req.HasMultipleBranches,
		InitialBranchName:   req.InitialBranchName,
		Email:               req.Email,
		MobileNumber:        req.MobileNumber,
		Address:             req.Address,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK,
		"Organization and super admin created. Please check email for verification.", nil)
}

func (h *AuthHandler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req dto.SignInRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.svc.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "sign-in successful", dto.SignInResponse{
		Token:         result.Token,
		UserID:        result.UserID,
		DisplayName:   result.DisplayName,
		Role:          result.Role,
		Organizations: result.Organizations,
	})
}

func (h *AuthHandler) handleVerifyAccount(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyAccountRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.VerifyAccount(r.Context(), req.VerificationToken, req.Password); err != nil {
		h.writeServiceError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK,
		"Your account has been successfully verified. You can now sign in.", nil)
}

func (h *AuthHandler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ForgotPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	// The response is the same whether or not the email is registered, and
	// even when the engine fails internally.
	if err := h.svc.ForgotPassword(r.Context(), req.Email); err != nil {
		h.logger.Error().Err(err).Msg("forgot-password failed")
	}
	respond.JSON(w, http.StatusOK,
		"If an account with that email exists, a password reset link has been sent.", nil)
}

func (h *AuthHandler) handleForgotPasswordMobile(w http.ResponseWriter, r *http.Request) {
	var req dto.ForgotPasswordMobileRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.ForgotPasswordMobile(r.Context(), req.Mobile); err != nil {
		h.logger.Error().Err(err).Msg("forgot-password-mobile failed")
	}
	respond.JSON(w, http.StatusOK,
		"If an account exists with this mobile number, an OTP will be sent for password reset.", nil)
}

func (h *AuthHandler) handleRequestOTP(w http.ResponseWriter, r *http.Request) {
	var req dto.OTPRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.RequestOTP(r.Context(), req.Mobile, req.Purpose); err != nil {
		h.writeServiceError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "OTP sent successfully", nil)
}

func (h *AuthHandler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ResetPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.ResetPassword(r.Context(), req.Mobile, req.OTP, req.Password); err != nil {
		h.writeServiceError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK,
		"Your password has been successfully reset. You can now sign in with your new password.", nil)
}

func (h *AuthHandler) handleResetPasswordEmail(w http.ResponseWriter, r *http.Request) {
	var req dto.ResetPasswordEmailRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.ResetPasswordByEmailToken(r.Context(), req.Token, req.Password); err != nil {
		h.writeServiceError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK,
		"Your password has been successfully reset. You can now sign in with your new password.", nil)
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	// Sessions are stateless; the client discards its token.
	respond.JSON(w, http.StatusOK, "logged out", map[string]bool{"success": true})
}

// decode reads a POST JSON body into req and validates it. It writes the
// error response itself and reports whether the handler should continue.
func (h *AuthHandler) decode(w http.ResponseWriter, r *http.Request, req any) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (h *AuthHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrEmailTaken), errors.Is(err, service.ErrOrganizationTaken):
		respond.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		respond.Error(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrExpiredToken),
		errors.Is(err, service.ErrInvalidOTP):
		respond.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUserNotFound), errors.Is(err, storage.ErrNotFound):
		respond.Error(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error().Err(err).Msg("request failed")
		respond.Error(w, http.StatusInternalServerError, "an internal error occurred")
	}
}
