package middleware

import (
	"net/http"
	"strings"

	"github.com/clinicore/identity-service/internal/auth"
	"github.com/clinicore/identity-service/internal/http/respond"
)

// Authenticate validates the bearer token and stores its claims in the
// request context for the downstream claim readers.
func Authenticate(tokens *auth.TokenManager, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(tokenStr) == "" {
			respond.Error(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := tokens.Parse(strings.TrimSpace(tokenStr))
		if err != nil {
			respond.Error(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
	})
}
