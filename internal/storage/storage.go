package storage

import (
	"context"
	"errors"
	"time"

	"github.com/clinicore/identity-service/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// TenantSignup bundles the five records provisioned together during tenant
// signup. The store persists them in one atomic batch.
type TenantSignup struct {
	User              models.User
	Organization      models.Organization
	Branch            models.Branch
	Membership        models.Membership
	VerificationToken models.VerificationToken
}

// Store captures persistence operations needed by the onboarding engine.
//
// The multi-entity methods (CreateTenantSignup, ActivateUser,
// ConsumePasswordResetToken) are atomic: either every write commits or none
// do. Callers perform no in-process locking for these; atomicity is the
// store's responsibility.
type Store interface {
	// CreateTenantSignup persists user, organization, branch, membership,
	// and verification token in a single batch.
	CreateTenantSignup(ctx context.Context, signup TenantSignup) error

	FindUserByID(ctx context.Context, id string) (models.User, error)
	// FindUserByEmail matches case-insensitively.
	FindUserByEmail(ctx context.Context, email string) (models.User, error)
	FindUserByMobile(ctx context.Context, mobile string) (models.User, error)
	FindOrganizationByNormalizedName(ctx context.Context, name string) (models.Organization, error)
	FindMembership(ctx context.Context, userID, orgID string) (models.Membership, error)

	UpdateUserPassword(ctx context.Context, userID, passwordHash string) error
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error

	FindVerificationToken(ctx context.Context, token string) (models.VerificationToken, error)
	// ActivateUser sets the password digest and ACTIVE status and deletes the
	// verification token; both effects are visible together or not at all.
	ActivateUser(ctx context.Context, userID, passwordHash, token string) error

	CreatePasswordResetToken(ctx context.Context, token models.PasswordResetToken) error
	FindPasswordResetToken(ctx context.Context, token string) (models.PasswordResetToken, error)
	// ConsumePasswordResetToken updates the password digest and deletes the
	// reset token atomically. Account status is left untouched.
	ConsumePasswordResetToken(ctx context.Context, userID, passwordHash, token string) error
}
