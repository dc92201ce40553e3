package model

import "strings"

// Role is the authorization level carried by every user and token.
type Role string

const (
	RoleOwner Role = "owner"
	RoleStaff Role = "staff"
)

// DefaultRole is assigned at registration.
const DefaultRole = RoleStaff

// ParseRole normalizes a role string, reporting whether it is known.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

func (r Role) Valid() bool {
	return r == RoleOwner || r == RoleStaff
}

// Satisfies reports whether a holder of r may access something that requires the given role.
// Owners satisfy every role.
func (r Role) Satisfies(required Role) bool {
	if !r.Valid() {
		return false
	}
	if r == RoleOwner {
		return true
	}
	return r == required
}

func (r Role) String() string {
	return string(r)
}
