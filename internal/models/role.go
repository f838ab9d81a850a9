package models

import "strings"

type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleHR       UserRole = "hr"
	RoleEmployee UserRole = "employee"
)

// IngestAllowedRoles is the default allow-list for bulk onboarding.
var IngestAllowedRoles = []UserRole{RoleHR, RoleAdmin}

func IsValidRole(role UserRole) bool {
	switch role {
	case RoleAdmin, RoleHR, RoleEmployee:
		return true
	default:
		return false
	}
}

func IsValidRoleList(roles []UserRole) bool {
	if len(roles) == 0 {
		return false
	}
	for _, role := range roles {
		if !IsValidRole(role) {
			return false
		}
	}
	return true
}

// NormalizeRoles lowercases, trims, and de-duplicates while keeping order.
func NormalizeRoles(roles []UserRole) []UserRole {
	seen := make(map[UserRole]struct{}, len(roles))
	normalized := make([]UserRole, 0, len(roles))
	for _, role := range roles {
		r := UserRole(strings.ToLower(strings.TrimSpace(string(role))))
		if r == "" {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		normalized = append(normalized, r)
	}
	return normalized
}

// EnsureDefaultRole guarantees every role list carries at least the employee role.
func EnsureDefaultRole(roles []UserRole) []UserRole {
	for _, role := range roles {
		if role == RoleEmployee {
			return roles
		}
	}
	return append(roles, RoleEmployee)
}

// HasAnyRole reports whether roles intersects the allowed set.
func HasAnyRole(roles []UserRole, allowed []UserRole) bool {
	for _, role := range roles {
		for _, a := range allowed {
			if role == a {
				return true
			}
		}
	}
	return false
}
