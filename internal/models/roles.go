package models

const (
	RoleSuperAdmin = "ROLE_SUPER_ADMIN"
	RoleUser       = "USER"
)

const (
	AccessOrgWide = "ORG_WIDE"
	AccessBranch  = "BRANCH"
)

// NoOrganization marks a session claim minted for a user without any
// organization membership.
const NoOrganization = "NO_ORG"

// OrganizationActive is the status a tenant carries from the moment of
// signup; only the admin account starts out pending.
const OrganizationActive = "ACTIVE"
