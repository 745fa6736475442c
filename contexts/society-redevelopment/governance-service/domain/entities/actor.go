package entities

import "strings"

type Role string

const (
	RoleOwner     Role = "owner"
	RoleDeveloper Role = "developer"
	RoleMember    Role = "member"
)

// Actor is the capability presented with every command. Role says what kind
// of caller this is; ownership of a project is always checked against the
// project's OwnerID, never derived from the role.
type Actor struct {
	UserID string
	Role   Role
}

func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleOwner:
		return RoleOwner, true
	case RoleDeveloper:
		return RoleDeveloper, true
	case RoleMember:
		return RoleMember, true
	default:
		return "", false
	}
}

func (a Actor) Valid() bool {
	_, ok := ParseRole(string(a.Role))
	return strings.TrimSpace(a.UserID) != "" && ok
}

func (a Actor) Is(role Role) bool {
	return a.Valid() && a.Role == role
}
