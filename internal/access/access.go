// Package access is the single place where write/manage capability is
// decided. Pure functions, no I/O: callers evaluate once per mutation
// instead of scattering role checks.
package access

import "github.com/cwrk-planet/codeshare/internal/domain"

// EffectiveRole resolves what identity may do with room.
//
// Guest (ownerless) rooms are editable by anyone holding the id —
// security through obscurity, по задумке. For owned rooms the explicit
// membership wins; a public room stays editable for the first comer only
// until membership beyond the owner is established.
func EffectiveRole(room *domain.Room, identity string) domain.Role {
	if room == nil {
		return domain.RoleNone
	}
	if room.IsGuest() {
		return domain.RoleEditor
	}
	if identity != "" && identity == room.Owner {
		return domain.RoleOwner
	}
	if role, ok := room.MemberRole(identity); ok && identity != "" {
		return role
	}
	if room.Visibility == domain.VisibilityPublic && !hasOutsideMembers(room) {
		return domain.RoleEditor
	}
	return domain.RoleNone
}

// hasOutsideMembers reports whether anyone besides the owner was invited.
func hasOutsideMembers(room *domain.Room) bool {
	for _, m := range room.Members {
		if m.Email != room.Owner {
			return true
		}
	}
	return false
}

func CanWrite(role domain.Role) bool {
	return role == domain.RoleOwner || role == domain.RoleEditor
}

func CanManageSharing(role domain.Role) bool {
	return role == domain.RoleOwner
}
