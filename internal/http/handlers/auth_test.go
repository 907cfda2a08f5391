package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/identity-service/internal/http/respond"
	"github.com/clinicore/identity-service/internal/service"
)

// stubOnboarding returns canned errors per operation.
type stubOnboarding struct {
	signupErr     error
	signInErr     error
	signInResult  service.SignInResult
	verifyErr     error
	forgotErr     error
	forgotMobErr  error
	requestOTPErr error
	resetErr      error
	resetEmailErr error
}

func (s *stubOnboarding) SignupTenant(context.Context, service.SignupTenantParams) error {
	return s.signupErr
}

func (s *stubOnboarding) SignIn(context.Context, string, string) (service.SignInResult, error) {
	return s.signInResult, s.signInErr
}

func (s *stubOnboarding) VerifyAccount(context.Context, string, string) error { return s.verifyErr }

func (s *stubOnboarding) ForgotPassword(context.Context, string) error { return s.forgotErr }

func (s *stubOnboarding) ForgotPasswordMobile(context.Context, string) error {
	return s.forgotMobErr
}

func (s *stubOnboarding) RequestOTP(context.Context, string, string) error { return s.requestOTPErr }

func (s *stubOnboarding) ResetPassword(context.Context, string, string, string) error {
	return s.resetErr
}

func (s *stubOnboarding) ResetPasswordByEmailToken(context.Context, string, string) error {
	return s.resetEmailErr
}

func newTestMux(stub *stubOnboarding) *http.ServeMux {
	mux := http.NewServeMux()
	NewAuthHandler(stub, zerolog.Nop()).Register(mux)
	return mux
}

func doPost(t *testing.T, mux *http.ServeMux, path, body string) (*httptest.ResponseRecorder, respond.Envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var env respond.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

const validSignupBody = `{
	"organizationName": "Sunrise Clinic",
	"initialBranchName": "Main",
	"email": "owner@example.com",
	"mobileNumber": "9990001111"
}`

func TestSignupSuccess(t *testing.T) {
	mux := newTestMux(&stubOnboarding{})

	rec, env := doPost(t, mux, "/api/public/auth/signup-super-admin", validSignupBody)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, env.Message, "check email for verification")
}

func TestSignupConflicts(t *testing.T) {
	for _, stubErr := range []error{service.ErrEmailTaken, service.ErrOrganizationTaken} {
		mux := newTestMux(&stubOnboarding{signupErr: stubErr})

		rec, env := doPost(t, mux, "/api/public/auth/signup-super-admin", validSignupBody)
		require.Equal(t, http.StatusConflict, rec.Code)
		require.Equal(t, stubErr.Error(), env.Message)
	}
}

func TestSignupValidationFailure(t *testing.T) {
	mux := newTestMux(&stubOnboarding{})

	rec, _ := doPost(t, mux, "/api/public/auth/signup-super-admin", `{"email":"not-an-email"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignupMalformedJSON(t *testing.T) {
	mux := newTestMux(&stubOnboarding{})

	rec, env := doPost(t, mux, "/api/public/auth/signup-super-admin", `{"email":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid JSON payload", env.Message)
}

func TestSignupRejectsGet(t *testing.T) {
	mux := newTestMux(&stubOnboarding{})

	req := httptest.NewRequest(http.MethodGet, "/api/public/auth/signup-super-admin", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSignInSuccess(t *testing.T) {
	mux := newTestMux(&stubOnboarding{signInResult: service.SignInResult{
		Token:         "jwt-token",
		UserID:        "user_1",
		DisplayName:   "Owner",
		Role:          "ROLE_SUPER_ADMIN",
		Organizations: []string{"org_1"},
	}})

	rec, env := doPost(t, mux, "/api/public/auth/signin",
		`{"email":"owner@example.com","password":"s3cret-pass"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	data, ok := env.Data.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "jwt-token", data["token"])
	require.Equal(t, "user_1", data["userId"])
	require.Equal(t, "ROLE_SUPER_ADMIN", data["role"])
}

func TestSignInInvalidCredentials(t *testing.T) {
	mux := newTestMux(&stubOnboarding{signInErr: service.ErrInvalidCredentials})

	rec, env := doPost(t, mux, "/api/public/auth/signin",
		`{"email":"owner@example.com","password":"wrong"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, service.ErrInvalidCredentials.Error(), env.Message)
}

func TestSignInInternalError(t *testing.T) {
	mux := newTestMux(&stubOnboarding{signInErr: errors.New("store unavailable")})

	rec, env := doPost(t, mux, "/api/public/auth/signin",
		`{"email":"owner@example.com","password":"s3cret-pass"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	// Internal detail must not leak.
	require.NotContains(t, env.Message, "store unavailable")
}

func TestVerifyAccountErrorMapping(t *testing.T) {
	for _, stubErr := range []error{service.ErrInvalidToken, service.ErrExpiredToken} {
		mux := newTestMux(&stubOnboarding{verifyErr: stubErr})

		rec, env := doPost(t, mux, "/api/public/auth/verify-account",
			`{"verificationToken":"tok","password":"longenough"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, stubErr.Error(), env.Message)
	}
}

func TestVerifyAccountShortPasswordRejected(t *testing.T) {
	mux := newTestMux(&stubOnboarding{})

	rec, _ := doPost(t, mux, "/api/public/auth/verify-account",
		`{"verificationToken":"tok","password":"short"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestForgotPasswordAlwaysSucceeds(t *testing.T) {
	mux := newTestMux(&stubOnboarding{forgotErr: errors.New("store unavailable")})

	rec, env := doPost(t, mux, "/api/public/auth/forgot-password",
		`{"email":"anyone@example.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t,
		"If an account with that email exists, a password reset link has been sent.", env.Message)
}

func TestForgotPasswordMobileAlwaysSucceeds(t *testing.T) {
	mux := newTestMux(&stubOnboarding{forgotMobErr: errors.New("store unavailable")})

	rec, env := doPost(t, mux, "/api/public/auth/forgot-password-mobile",
		`{"mobile":"9990001111"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t,
		"If an account exists with this mobile number, an OTP will be sent for password reset.", env.Message)
}

func TestRequestOTPUnknownUser(t *testing.T) {
	mux := newTestMux(&stubOnboarding{requestOTPErr: service.ErrUserNotFound})

	rec, _ := doPost(t, mux, "/api/public/auth/request-otp",
		`{"mobile":"0000000000","purpose":"login"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestOTPRejectsUnknownPurpose(t *testing.T) {
	mux := newTestMux(&stubOnboarding{})

	rec, _ := doPost(t, mux, "/api/public/auth/request-otp",
		`{"mobile":"9990001111","purpose":"backdoor"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResetPasswordInvalidOTP(t *testing.T) {
	mux := newTestMux(&stubOnboarding{resetErr: service.ErrInvalidOTP})

	rec, env := doPost(t, mux, "/api/public/auth/reset-password",
		`{"mobile":"9990001111","otp":"123456","password":"longenough"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, service.ErrInvalidOTP.Error(), env.Message)
}

func TestResetPasswordRejectsNonNumericOTP(t *testing.T) {
	mux := newTestMux(&stubOnboarding{})

	rec, _ := doPost(t, mux, "/api/public/auth/reset-password",
		`{"mobile":"9990001111","otp":"abcdef","password":"longenough"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResetPasswordEmailInvalidToken(t *testing.T) {
	mux := newTestMux(&stubOnboarding{resetEmailErr: service.ErrInvalidToken})

	rec, _ := doPost(t, mux, "/api/public/auth/reset-password-email",
		`{"token":"tok","password":"longenough"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogout(t *testing.T) {
	mux := newTestMux(&stubOnboarding{})

	rec, env := doPost(t, mux, "/api/public/auth/logout", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "logged out", env.Message)
}
