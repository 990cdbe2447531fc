package domain

import (
	"slices"
	"time"
)

// Principal is the identity asserted by a verified session token. It is
// only built by the gate from decoded claims.
type Principal struct {
	UserID    int64
	Email     string
	Role      Role
	Name      string
	TokenID   string
	ExpiresAt time.Time
}

// HasRole reports whether the principal's role is in allowed.
func (p Principal) HasRole(allowed ...Role) bool {
	return slices.Contains(allowed, p.Role)
}
