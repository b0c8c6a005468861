package auth

import (
	"strings"
	"unicode"
)

// Role represents a canonical authorisation tier in the cooperative.
//
// The backend describes roles with free-text display labels ("Super Admin",
// "Producer", ...). Those labels are an open string space; every consumer in
// this module works with the closed Role set below, mapped through
// RoleFromLabel/ResolveRole.
type Role string

const (
	// RoleSuperAdmin manages the cooperative itself: user accounts,
	// role assignment, and global configuration.
	RoleSuperAdmin Role = "superAdmin"

	// RoleAdmin manages day-to-day operations: records, prices, payments.
	RoleAdmin Role = "admin"

	// RoleProducer logs production, mortality, and feed for their own farm.
	RoleProducer Role = "producer"

	// RoleSeller records sales and views market prices.
	RoleSeller Role = "seller"
)

// DefaultRole is the least-privileged fallback used whenever a role cannot
// be recognised. An unknown label must never grant more access than a seller.
const DefaultRole = RoleSeller

// ValidRoles is the closed set of canonical roles.
var ValidRoles = []Role{RoleSuperAdmin, RoleAdmin, RoleProducer, RoleSeller}

// IsValidRole returns true if the role is one of the canonical roles.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// Label returns the display label the backend uses for a canonical role.
func (r Role) Label() string {
	switch r {
	case RoleSuperAdmin:
		return "Super Admin"
	case RoleAdmin:
		return "Admin"
	case RoleProducer:
		return "Producer"
	case RoleSeller:
		return "Seller"
	default:
		return string(r)
	}
}

// NormalizeLabel lower-cases a role label and strips all whitespace.
// This is the only equality rule for role-label comparison in the module;
// nothing may compare raw label strings directly.
func NormalizeLabel(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// labelRoles maps normalised label synonyms to canonical roles.
// Keys must already be in NormalizeLabel form.
var labelRoles = map[string]Role{
	"superadmin": RoleSuperAdmin,
	"admin":      RoleAdmin,
	"producer":   RoleProducer,
	"seller":     RoleSeller,
}

// RoleFromLabel maps a single server label to a canonical role.
// Comparison is case- and whitespace-insensitive. Returns false for
// unrecognised labels.
func RoleFromLabel(label string) (Role, bool) {
	r, ok := labelRoles[NormalizeLabel(label)]
	return r, ok
}

// ResolveRole derives the canonical role from a list of server role labels.
// The first recognised label wins, preserving the server's ordering.
// Empty or fully unrecognised lists resolve to DefaultRole.
func ResolveRole(labels []string) Role {
	for _, label := range labels {
		if r, ok := RoleFromLabel(label); ok {
			return r
		}
	}
	return DefaultRole
}

// ParseRole converts a stored canonical role string back to a Role.
// Unlike RoleFromLabel it also accepts the canonical identifiers themselves
// ("superAdmin", "admin", ...), which is what the override map persists.
func ParseRole(s string) (Role, bool) {
	if IsValidRole(Role(s)) {
		return Role(s), true
	}
	return RoleFromLabel(s)
}
