package models

import "time"

// UserStatus is the lifecycle state of an account.
type UserStatus string

const (
	StatusPendingVerification UserStatus = "PENDING_VERIFICATION"
	StatusActive              UserStatus = "ACTIVE"
	StatusSuspended           UserStatus = "SUSPENDED"
)

// User captures the global identity shared across organizations. A user may
// hold memberships in several organizations; Organizations keeps them in
// join order and the first entry is the sign-in default.
type User struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	MobileNumber  string     `json:"mobileNumber"`
	DisplayName   string     `json:"displayName"`
	PasswordHash  string     `json:"-"`
	Status        UserStatus `json:"status"`
	Organizations []string   `json:"organizations"`
	LastLoginAt   *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}
