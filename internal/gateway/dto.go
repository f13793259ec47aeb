package gateway

import "github.com/cwrk-planet/codeshare/internal/domain"

// CreateRoomRequest seeds a server-allocated room. Missing fields get
// server-side defaults.
type CreateRoomRequest struct {
	Name       string            `json:"name,omitempty"`
	Content    string            `json:"content,omitempty"`
	Language   string            `json:"language,omitempty"`
	Theme      string            `json:"theme,omitempty"`
	Visibility domain.Visibility `json:"visibility,omitempty"`
}

// ShareRequest — idempotent upsert членства; Role == domain.RoleRemove
// удаляет членство.
type ShareRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type RoomList struct {
	Owned  []domain.Room `json:"owned"`
	Shared []domain.Room `json:"shared"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
