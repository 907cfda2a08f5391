// Package service implements the onboarding and authentication engine:
// tenant signup, sign-in, account verification, and password recovery over
// the email-token and mobile-OTP channels.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicore/identity-service/internal/auth"
	"github.com/clinicore/identity-service/internal/models"
	"github.com/clinicore/identity-service/internal/notify"
	"github.com/clinicore/identity-service/internal/otp"
	"github.com/clinicore/identity-service/internal/storage"
)

// Config carries the engine's token lifetimes and the base URL embedded in
// verification and reset links.
type Config struct {
	VerificationTokenTTL  time.Duration
	PasswordResetTokenTTL time.Duration
	FrontendBaseURL       string
}

// SignupTenantParams is the input for SignupTenant.
type SignupTenantParams struct {
	OrganizationName    string
	HasMultipleBranches bool
	InitialBranchName   string
	Email               string
	MobileNumber        string
	Address             string
}

// SignInResult is returned on successful authentication.
type SignInResult struct {
	Token         string
	UserID        string
	DisplayName   string
	Role          string
	Organizations []string
}

// OnboardingService orchestrates account provisioning and authentication
// against the store, the credential hasher, the OTP engine, and the claim
// signer. Notification dispatch is fire-and-forget.
type OnboardingService struct {
	store    storage.Store
	hasher   auth.Hasher
	tokens   *auth.TokenManager
	otp      *otp.Engine
	notifier notify.Notifier
	logger   zerolog.Logger
	cfg      Config

	now      func() time.Time
	dispatch func(func())
}

// NewOnboardingService wires the engine.
func NewOnboardingService(
	store storage.Store,
	hasher auth.Hasher,
	tokens *auth.TokenManager,
	otpEngine *otp.Engine,
	notifier notify.Notifier,
	logger zerolog.Logger,
	cfg Config,
) *OnboardingService {
	return &OnboardingService{
		store:    store,
		hasher:   hasher,
		tokens:   tokens,
		otp:      otpEngine,
		notifier: notifier,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
		dispatch: func(fn func()) { go fn() },
	}
}

// SignupTenant provisions a new organization with its first branch, its
// super-admin user, the linking membership, and a 24-hour verification
// token — all in one atomic store batch. The new account stays
// PENDING_VERIFICATION with an unusable random digest until the token is
// consumed. A verification email is dispatched after the batch commits.
func (s *OnboardingService) SignupTenant(ctx context.Context, params SignupTenantParams) error {
	email := normalizeEmail(params.Email)

	if _, err := s.store.FindUserByEmail(ctx, email); err == nil {
		return ErrEmailTaken
	} else if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("lookup user by email: %w", err)
	}

	normalized := strings.ToLower(strings.TrimSpace(params.OrganizationName))
	if _, err := s.store.FindOrganizationByNormalizedName(ctx, normalized); err == nil {
		return ErrOrganizationTaken
	} else if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("lookup organization by name: %w", err)
	}

	// The account cannot sign in before verification: no plaintext ever maps
	// to a digest of a random UUID.
	placeholder, err := s.hasher.Hash(uuid.NewString())
	if err != nil {
		return fmt.Errorf("hash placeholder password: %w", err)
	}

	now := s.now()
	userID := newID("user_")
	orgID := newID("org_")
	branchID := newID("branch_")

	signup := storage.TenantSignup{
		User: models.User{
			ID:            userID,
			Email:         email,
			MobileNumber:  params.MobileNumber,
			DisplayName:   displayNameFromEmail(email),
			PasswordHash:  placeholder,
			Status:        models.StatusPendingVerification,
			Organizations: []string{orgID},
			CreatedAt:     now,
		},
		Organization: models.Organization{
			ID:                  orgID,
			Name:                params.OrganizationName,
			NormalizedName:      normalized,
			Status:              models.OrganizationActive,
			HasMultipleBranches: params.HasMultipleBranches,
			CreatedAt:           now,
		},
		Branch: models.Branch{
			ID:             branchID,
			OrganizationID: orgID,
			Name:           params.InitialBranchName,
			Address:        params.Address,
		},
		Membership: models.Membership{
			UserID:         userID,
			OrganizationID: orgID,
			Role:           models.RoleSuperAdmin,
			AccessScope:    models.AccessOrgWide,
		},
		VerificationToken: models.VerificationToken{
			Token:     newTokenString(),
			UserID:    userID,
			Email:     email,
			ExpiresAt: now.Add(s.cfg.VerificationTokenTTL),
			CreatedAt: now,
		},
	}

	if err := s.store.CreateTenantSignup(ctx, signup); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return s.classifySignupConflict(ctx, email, normalized)
		}
		return fmt.Errorf("commit signup batch: %w", err)
	}

	token := signup.VerificationToken.Token
	s.dispatch(func() {
		s.sendEmail(email, "Verify your account",
			"Welcome! Please click the link below to verify your account and set your password:\n"+
				s.cfg.FrontendBaseURL+"/verify-account?token="+token)
	})

	return nil
}

// classifySignupConflict decides which uniqueness precondition lost a race
// once the signup batch itself reports a conflict: the prechecks passed, so a
// concurrent signup claimed the email or the organization name in between.
func (s *OnboardingService) classifySignupConflict(ctx context.Context, email, normalizedOrg string) error {
	if _, err := s.store.FindUserByEmail(ctx, email); err == nil {
		return ErrEmailTaken
	}
	if _, err := s.store.FindOrganizationByNormalizedName(ctx, normalizedOrg); err == nil {
		return ErrOrganizationTaken
	}
	return ErrEmailTaken
}

// SignIn authenticates by email and password and mints a session claim for
// the user's default organization. Every authentication failure — unknown
// email, inactive account, or wrong password — yields the same
// ErrInvalidCredentials. The last-login write happens off the request path
// and never affects the outcome.
func (s *OnboardingService) SignIn(ctx context.Context, email, password string) (SignInResult, error) {
	user, err := s.store.FindUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return SignInResult{}, ErrInvalidCredentials
		}
		return SignInResult{}, fmt.Errorf("lookup user by email: %w", err)
	}

	if user.Status != models.StatusActive {
		return SignInResult{}, ErrInvalidCredentials
	}
	if user.PasswordHash == "" || !s.hasher.Verify(password, user.PasswordHash) {
		return SignInResult{}, ErrInvalidCredentials
	}

	membership, err := s.resolveMembership(ctx, user)
	if err != nil {
		return SignInResult{}, err
	}

	token, err := s.tokens.Generate(user, membership)
	if err != nil {
		return SignInResult{}, fmt.Errorf("sign session claim: %w", err)
	}

	s.dispatch(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.store.UpdateLastLogin(ctx, user.ID, s.now()); err != nil {
			s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("last-login update failed")
		}
	})

	return SignInResult{
		Token:         token,
		UserID:        user.ID,
		DisplayName:   user.DisplayName,
		Role:          membership.Role,
		Organizations: user.Organizations,
	}, nil
}

// resolveMembership loads the membership for the user's default (first)
// organization. A user whose membership record is absent, and a user with no
// organizations at all, both still get to sign in: the former with a default
// role in their org, the latter with a tenant-less claim. Any other lookup
// failure aborts the sign-in; a claim must never be minted from a guessed
// role while the store is unhealthy.
func (s *OnboardingService) resolveMembership(ctx context.Context, user models.User) (models.Membership, error) {
	if len(user.Organizations) == 0 {
		return models.Membership{
			UserID:         user.ID,
			OrganizationID: models.NoOrganization,
			Role:           models.RoleUser,
		}, nil
	}

	orgID := user.Organizations[0]
	membership, err := s.store.FindMembership(ctx, user.ID, orgID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return models.Membership{}, fmt.Errorf("lookup membership: %w", err)
		}
		s.logger.Warn().Err(err).Str("user_id", user.ID).Str("org_id", orgID).
			Msg("membership record missing for default organization, using default role")
		return models.Membership{
			UserID:         user.ID,
			OrganizationID: orgID,
			Role:           models.RoleUser,
		}, nil
	}
	return membership, nil
}

// VerifyAccount consumes a verification token, setting the user's permanent
// password and activating the account in one atomic batch with the token
// deletion. An expired token fails without being deleted.
func (s *OnboardingService) VerifyAccount(ctx context.Context, token, newPassword string) error {
	vt, err := s.store.FindVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("lookup verification token: %w", err)
	}

	if s.now().After(vt.ExpiresAt) {
		return ErrExpiredToken
	}

	user, err := s.store.FindUserByID(ctx, vt.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup user for token: %w", err)
	}

	digest, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.store.ActivateUser(ctx, user.ID, digest, vt.Token); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Token was consumed between lookup and activation.
			return ErrInvalidToken
		}
		return fmt.Errorf("commit activation batch: %w", err)
	}
	return nil
}

// ForgotPassword starts the email recovery channel. It reports success
// whether or not the email is registered; an unknown address simply does
// nothing, so the endpoint cannot be used to enumerate accounts.
func (s *OnboardingService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.store.FindUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("lookup user by email: %w", err)
	}

	now := s.now()
	reset := models.PasswordResetToken{
		Token:     newTokenString(),
		UserID:    user.ID,
		Email:     user.Email,
		ExpiresAt: now.Add(s.cfg.PasswordResetTokenTTL),
		CreatedAt: now,
	}
	if err := s.store.CreatePasswordResetToken(ctx, reset); err != nil {
		return fmt.Errorf("persist reset token: %w", err)
	}

	s.dispatch(func() {
		s.sendEmail(user.Email, "Password reset request",
			"You requested a password reset. Please click the link below to set a new password:\n"+
				s.cfg.FrontendBaseURL+"/reset-password?token="+reset.Token)
	})

	return nil
}

// ForgotPasswordMobile starts the OTP recovery channel. The outcome is
// uniform whether or not the mobile number is registered.
func (s *OnboardingService) ForgotPasswordMobile(ctx context.Context, mobile string) error {
	if err := s.otp.Issue(ctx, mobile, otp.PurposeReset); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("issue reset otp: %w", err)
	}
	return nil
}

// RequestOTP issues a one-time passcode for the given purpose.
func (s *OnboardingService) RequestOTP(ctx context.Context, mobile, purpose string) error {
	if err := s.otp.Issue(ctx, mobile, purpose); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("issue otp: %w", err)
	}
	return nil
}

// ResetPassword completes the OTP recovery channel. Validating the code
// consumes it, so only one of any concurrent attempts with the same code can
// reach the password write.
func (s *OnboardingService) ResetPassword(ctx context.Context, mobile, code, newPassword string) error {
	if !s.otp.Validate(mobile, code, otp.PurposeReset) {
		return ErrInvalidOTP
	}

	user, err := s.store.FindUserByMobile(ctx, mobile)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup user by mobile: %w", err)
	}

	digest, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.store.UpdateUserPassword(ctx, user.ID, digest); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// ResetPasswordByEmailToken completes the email recovery channel. It shares
// VerifyAccount's token discipline but only replaces the password digest;
// account status is untouched. The token is destroyed atomically with the
// password write.
func (s *OnboardingService) ResetPasswordByEmailToken(ctx context.Context, token, newPassword string) error {
	rt, err := s.store.FindPasswordResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("lookup reset token: %w", err)
	}

	if s.now().After(rt.ExpiresAt) {
		return ErrExpiredToken
	}

	digest, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.store.ConsumePasswordResetToken(ctx, rt.UserID, digest, rt.Token); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("commit reset batch: %w", err)
	}
	return nil
}

func (s *OnboardingService) sendEmail(to, subject, body string) {
	if err := s.notifier.SendEmail(to, subject, body); err != nil {
		s.logger.Error().Err(err).Str("to", to).Str("subject", subject).Msg("email dispatch failed")
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// displayNameFromEmail derives a default display name from the local part of
// the address; the user can change it later.
func displayNameFromEmail(email string) string {
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}
