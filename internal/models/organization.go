package models

import "time"

// Organization is a tenant. NormalizedName (lower-cased, trimmed) backs the
// uniqueness check; Name preserves what the signup request carried.
type Organization struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	NormalizedName      string    `json:"-"`
	Status              string    `json:"status"`
	HasMultipleBranches bool      `json:"hasMultipleBranches"`
	CreatedAt           time.Time `json:"createdAt"`
}

// Branch is a physical location owned by exactly one organization. Every
// tenant gets an initial branch at signup.
type Branch struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organizationId"`
	Name           string `json:"name"`
	Address        string `json:"address"`
}

// Membership links one user to one organization with a role and an
// access-scope tag. At most one membership exists per (user, organization).
type Membership struct {
	UserID         string `json:"userId"`
	OrganizationID string `json:"organizationId"`
	Role           string `json:"role"`
	AccessScope    string `json:"accessScope"`
}
