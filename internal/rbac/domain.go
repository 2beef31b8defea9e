package rbac

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Role is the closed set of privilege tiers a principal can hold.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleStaff   Role = "staff"
	RoleViewer  Role = "viewer"
)

// AllRoles lists every role in descending privilege order.
func AllRoles() []Role {
	return []Role{RoleAdmin, RoleManager, RoleStaff, RoleViewer}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleStaff, RoleViewer:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// ParseRole converts the stored or transmitted form of a role.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	if !role.Valid() {
		return "", fmt.Errorf("rbac: unknown role %q", raw)
	}
	return role, nil
}

// RoleSet is an explicit set of permitted roles. Membership is exact; the
// ordering of AllRoles carries no meaning for authorization.
type RoleSet map[Role]struct{}

// NewRoleSet builds a set from the given roles, ignoring unknown values.
func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		if r.Valid() {
			set[r] = struct{}{}
		}
	}
	return set
}

// Contains reports exact membership.
func (s RoleSet) Contains(r Role) bool {
	_, ok := s[r]
	return ok
}

// Roles returns the members sorted by name.
func (s RoleSet) Roles() []Role {
	roles := make([]Role, 0, len(s))
	for r := range s {
		roles = append(roles, r)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}

// Identity is the resolved caller attached to a request.
type Identity struct {
	PrincipalID int64
	Username    string
	Role        Role
	IssuedAt    time.Time
	ExpiresAt   time.Time
}
