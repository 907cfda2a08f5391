package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/clinicore/identity-service/internal/auth"
	"github.com/clinicore/identity-service/internal/models"
)

func TestAuthenticate(t *testing.T) {
	tokens := auth.NewTokenManager("test-secret", "identity-service", time.Hour)

	var gotUserID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := auth.UserID(r.Context())
		require.NoError(t, err)
		gotUserID = id
		w.WriteHeader(http.StatusOK)
	})
	handler := Authenticate(tokens, next)

	tokenStr, err := tokens.Generate(
		models.User{ID: "user_5", Email: "u@example.com"},
		models.Membership{OrganizationID: "org_2", Role: models.RoleUser},
	)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "user_5", gotUserID)
}

func TestAuthenticateRejectsMissingHeader(t *testing.T) {
	tokens := auth.NewTokenManager("test-secret", "identity-service", time.Hour)
	handler := Authenticate(tokens, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("next handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateRejectsBadToken(t *testing.T) {
	tokens := auth.NewTokenManager("test-secret", "identity-service", time.Hour)
	handler := Authenticate(tokens, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("next handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
