package service

import "errors"

// Business-rule failures surfaced to callers as typed sentinels. Anything
// the engine returns that is not in this set is an infrastructure fault
// (store or transport) and must not be shown to end users verbatim.
var (
	ErrEmailTaken        = errors.New("an account with this email already exists")
	ErrOrganizationTaken = errors.New("an organization with this name already exists")

	// ErrInvalidCredentials covers unknown email, inactive account, and bad
	// password alike; the uniform message prevents account enumeration.
	ErrInvalidCredentials = errors.New("invalid email or password")

	ErrInvalidToken = errors.New("invalid or unknown token")
	ErrExpiredToken = errors.New("token has expired")
	ErrInvalidOTP   = errors.New("invalid or expired OTP")
	ErrUserNotFound = errors.New("user not found")
)
