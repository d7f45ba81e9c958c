package enums

import "strings"

// UserRole scopes which ledger rows a user sees. Users can carry several
// roles at once, stored comma separated.
type UserRole string

const (
	UserRoleAdmin      UserRole = "admin"
	UserRoleSuperAdmin UserRole = "super_admin"
	UserRoleAccounting UserRole = "AA"
	UserRoleGeneral    UserRole = "A"
	UserRolePartsAdv   UserRole = "PRTADV"
	UserRoleGroupLead  UserRole = "EMB"
	UserRoleCounter    UserRole = "OTC"
	UserRoleAdvisor    UserRole = "B"
)

// RoleSet is a parsed comma separated role list.
type RoleSet []UserRole

// ParseRoleSet splits a stored role string into its roles.
func ParseRoleSet(value string) RoleSet {
	parts := strings.Split(value, ",")
	set := make(RoleSet, 0, len(parts))
	for _, part := range parts {
		role := UserRole(strings.TrimSpace(part))
		if role != "" {
			set = append(set, role)
		}
	}
	return set
}

// Has reports whether the set contains the given role.
func (s RoleSet) Has(role UserRole) bool {
	for _, candidate := range s {
		if candidate == role {
			return true
		}
	}
	return false
}

// HasAny reports whether the set contains at least one of the given roles.
func (s RoleSet) HasAny(roles ...UserRole) bool {
	for _, role := range roles {
		if s.Has(role) {
			return true
		}
	}
	return false
}
