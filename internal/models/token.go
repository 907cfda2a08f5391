package models

import "time"

// VerificationToken proves ownership of a pending account. It is single-use:
// the consuming write deletes it in the same atomic batch that activates the
// user. Expired tokens stay in place until garbage-collected externally.
type VerificationToken struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// PasswordResetToken is the email-channel recovery token. Same shape and
// single-use discipline as VerificationToken, destroyed atomically with the
// password update.
type PasswordResetToken struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}
