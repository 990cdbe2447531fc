package domain

import "fmt"

// Role is a capability tier. Routes declare an explicit allow-set of roles
// rather than relying on an ordering.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "profesor"
	RoleStudent Role = "estudiante"
)

// Roles lists every valid role.
func Roles() []Role {
	return []Role{RoleAdmin, RoleTeacher, RoleStudent}
}

// ParseRole accepts only the exact role names.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return r, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrValidation, s)
	}
}

func (r Role) String() string { return string(r) }
