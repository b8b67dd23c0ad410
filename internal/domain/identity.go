package domain

import "slices"

// Role is the client-selected role of the acting user.
type Role string

const (
	RoleReporter Role = "Reporter"
	RoleAdmin    Role = "Admin"
)

// ParseRole maps raw input onto the role enumeration.
func ParseRole(raw string) (Role, bool) {
	switch Role(raw) {
	case RoleReporter:
		return RoleReporter, true
	case RoleAdmin:
		return RoleAdmin, true
	default:
		return "", false
	}
}

// Identity is the acting user for a single request.
type Identity struct {
	Name string
	Role Role
}

func (i Identity) IsAdmin() bool    { return i.Role == RoleAdmin }
func (i Identity) IsReporter() bool { return i.Role == RoleReporter }

// Directory holds the fixed allow-lists of selectable users per role.
type Directory struct {
	Reporters []string
	Admins    []string
}

// DefaultDirectory returns the built-in users.
func DefaultDirectory() Directory {
	return Directory{
		Reporters: []string{"Alice", "Bob"},
		Admins:    []string{"Admin1", "Admin2"},
	}
}

// Members returns the allow-list for role.
func (d Directory) Members(role Role) []string {
	switch role {
	case RoleReporter:
		return d.Reporters
	case RoleAdmin:
		return d.Admins
	default:
		return nil
	}
}

// Contains reports whether name may act as role.
func (d Directory) Contains(role Role, name string) bool {
	return slices.Contains(d.Members(role), name)
}

// DefaultFor returns the canonical identity for role: the first listed member.
func (d Directory) DefaultFor(role Role) Identity {
	members := d.Members(role)
	if len(members) == 0 {
		return Identity{Role: role}
	}
	return Identity{Name: members[0], Role: role}
}

// DefaultIdentity is used when a request carries no identity.
func (d Directory) DefaultIdentity() Identity {
	return d.DefaultFor(RoleReporter)
}
