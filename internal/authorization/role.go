package authorization

import (
	"errors"
	"strings"
)

// Role identifies the privilege tier of an actor. Tiers are strictly
// ordered: visitor < individual < team_admin < sys_admin.
type Role string

const (
	RoleVisitor    Role = "visitor"
	RoleIndividual Role = "individual"
	RoleTeamAdmin  Role = "team_admin"
	RoleSysAdmin   Role = "sys_admin"
)

var (
	ErrInvalidRole      = errors.New("invalid role")
	ErrInsufficientRole = errors.New("insufficient role")
)

var rolePriority = map[Role]int{
	RoleVisitor:    0,
	RoleIndividual: 1,
	RoleTeamAdmin:  2,
	RoleSysAdmin:   3,
}

// Parse maps a stored role string to a Role. Unknown or empty values are
// rejected rather than coerced to a default tier.
func Parse(value string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := rolePriority[role]; !ok {
		return "", ErrInvalidRole
	}
	return role, nil
}

// Priority returns the ordinal rank of the role. Unknown roles rank below
// every valid tier.
func (r Role) Priority() int {
	priority, ok := rolePriority[r]
	if !ok {
		return -1
	}
	return priority
}

// Valid reports whether the role is a known tier.
func (r Role) Valid() bool {
	_, ok := rolePriority[r]
	return ok
}

// HasAtLeast reports whether the role meets or exceeds the required tier.
// An unknown role on either side never satisfies the check.
func (r Role) HasAtLeast(required Role) bool {
	if !r.Valid() || !required.Valid() {
		return false
	}
	return r.Priority() >= required.Priority()
}
