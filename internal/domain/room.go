package domain

import "time"

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

const DefaultName = "Untitled"

type Member struct {
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Room — единица шаринга: кешируется локально (guest) или живёт за REST API.
type Room struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Content    string     `json:"content"`
	Language   string     `json:"language"`
	Theme      string     `json:"theme"`
	Visibility Visibility `json:"visibility,omitempty"`
	Owner      string     `json:"owner,omitempty"`
	Members    []Member   `json:"members,omitempty"`
	LastEdited time.Time  `json:"lastEdited"`
}

// IsGuest reports whether the room has no owner. Guest rooms live only in
// the local cache and are writable by anyone holding the id.
func (r *Room) IsGuest() bool { return r.Owner == "" }

// MemberRole returns the explicit membership role for email, if any.
func (r *Room) MemberRole(email string) (Role, bool) {
	for _, m := range r.Members {
		if m.Email == email {
			return m.Role, true
		}
	}
	return RoleNone, false
}

// Transient reports whether the room carries nothing worth keeping:
// empty content under the default name. Such records may be pruned from
// the local cache on the next full listing.
func (r *Room) Transient() bool {
	return r.Content == "" && (r.Name == "" || r.Name == DefaultName)
}

// Validate checks the ownership invariants.
func (r *Room) Validate() error {
	seen := make(map[string]struct{}, len(r.Members))
	owners := 0
	for _, m := range r.Members {
		if _, dup := seen[m.Email]; dup {
			return ErrDuplicateMember
		}
		seen[m.Email] = struct{}{}
		if m.Role == RoleOwner {
			owners++
			if m.Email != r.Owner {
				return ErrOwnerMismatch
			}
		}
	}
	if r.Owner != "" && owners != 1 {
		return ErrOwnerMismatch
	}
	if r.Visibility == VisibilityPrivate && r.Owner == "" {
		return ErrOwnerMismatch
	}
	return nil
}
