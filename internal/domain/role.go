package domain

type Role string

const (
	RoleOwner  Role = "owner"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
	RoleNone   Role = "none"
)

// RoleRemove is not a role: it is the share directive that deletes a
// membership instead of assigning one.
const RoleRemove = "remove"

// ValidMemberRole reports whether the role may appear in a member list.
func ValidMemberRole(role Role) bool {
	switch role {
	case RoleOwner, RoleEditor, RoleViewer:
		return true
	default:
		return false
	}
}
