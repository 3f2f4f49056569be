package model

import "strings"

// Role is the closed set of account roles. It is fixed at account creation.
type Role string

const (
	RoleMember     Role = "member"
	RoleTrainer    Role = "trainer"
	RoleGymOwner   Role = "gymOwner"
	RoleSuperAdmin Role = "superAdmin"
)

// roleAliases maps folded labels (lowercase, no separators) to roles.
var roleAliases = map[string]Role{
	"member":     RoleMember,
	"trainer":    RoleTrainer,
	"gymowner":   RoleGymOwner,
	"owner":      RoleGymOwner,
	"superadmin": RoleSuperAdmin,
	"admin":      RoleSuperAdmin,
}

// ParseRole normalizes a canonical value or a human readable label
// ("Gym Owner", "gym-owner", "super_admin") into a Role.
func ParseRole(raw string) (Role, bool) {
	folded := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '_', '\t':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(raw)))
	role, ok := roleAliases[folded]
	return role, ok
}

// Valid reports whether r is one of the canonical roles.
func (r Role) Valid() bool {
	switch r {
	case RoleMember, RoleTrainer, RoleGymOwner, RoleSuperAdmin:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// ApprovalStatus is the approval lifecycle state. Only gym owners move through
// it; every other role is created approved and stays there.
type ApprovalStatus string

const (
	StatusPending  ApprovalStatus = "pending"
	StatusApproved ApprovalStatus = "approved"
	StatusRejected ApprovalStatus = "rejected"
)

// ParseApprovalStatus validates a raw status value.
func ParseApprovalStatus(raw string) (ApprovalStatus, bool) {
	switch s := ApprovalStatus(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusPending, StatusApproved, StatusRejected:
		return s, true
	}
	return "", false
}

// InitialStatus returns the status a freshly registered account starts in.
func InitialStatus(role Role) ApprovalStatus {
	if role == RoleGymOwner {
		return StatusPending
	}
	return StatusApproved
}
