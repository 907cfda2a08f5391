package auth

import (
	"context"
	"errors"
)

type claimsKey struct{}

// ErrNoPrincipal is returned by the context readers when no validated claims
// are present. Callers must treat it as a per-request authorization failure,
// not a business error.
var ErrNoPrincipal = errors.New("no authenticated principal in context")

// ErrClaimMissing is returned when the principal exists but the requested
// claim is absent.
var ErrClaimMissing = errors.New("required claim missing")

// WithClaims returns a context carrying validated session claims.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext retrieves the validated claims, if any.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*Claims)
	return claims, ok && claims != nil
}

// UserID returns the authenticated user id (the token subject).
func UserID(ctx context.Context) (string, error) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return "", ErrNoPrincipal
	}
	if claims.Subject == "" {
		return "", ErrClaimMissing
	}
	return claims.Subject, nil
}

// OrganizationID returns the tenant id of the authenticated session.
func OrganizationID(ctx context.Context) (string, error) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return "", ErrNoPrincipal
	}
	if claims.OrganizationID == "" {
		return "", ErrClaimMissing
	}
	return claims.OrganizationID, nil
}

// Role returns the role of the authenticated session within its tenant.
func Role(ctx context.Context) (string, error) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return "", ErrNoPrincipal
	}
	if claims.Role == "" {
		return "", ErrClaimMissing
	}
	return claims.Role, nil
}
