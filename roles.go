package auth

import "strings"

// UserRole is the user's role
type UserRole string

const (
	// RoleAdmin manages departments, programs and teacher accounts
	RoleAdmin UserRole = "ADMIN"
	// RoleTeacher owns courses once approved
	RoleTeacher UserRole = "TEACHER"
	// RoleStudent attends courses
	RoleStudent UserRole = "STUDENT"
)

// IsValid checks if the role is one of the predefined valid roles
func (r UserRole) IsValid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	default:
		return false
	}
}

func (r UserRole) String() string {
	return string(r)
}

// HomePath is where a client should land after login
func (r UserRole) HomePath() string {
	switch r {
	case RoleAdmin:
		return "/admin"
	case RoleTeacher:
		return "/teacher"
	case RoleStudent:
		return "/student"
	default:
		return "/"
	}
}

// In reports whether the role is part of roles
func (r UserRole) In(roles ...UserRole) bool {
	for _, role := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// GetAllRoles returns all predefined roles
func GetAllRoles() []UserRole {
	return []UserRole{
		RoleAdmin,
		RoleTeacher,
		RoleStudent,
	}
}

// ParseRole safely parses a string into a UserRole type. Matching is exact,
// "admin" is not a valid role.
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(strings.TrimSpace(roleStr))
	return role, role.IsValid()
}
