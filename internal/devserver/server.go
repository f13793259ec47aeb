// Package devserver is an in-memory stand-in for the room API and its
// realtime boundary: the same wire contract, no persistence. It backs
// local development and the end-to-end tests; the production servers
// live elsewhere.
package devserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/cwrk-planet/codeshare/internal/access"
	"github.com/cwrk-planet/codeshare/internal/domain"
)

type Server struct {
	mu    sync.Mutex
	rooms map[string]*domain.Room

	hub      *hub
	upgrader websocket.Upgrader

	now func() time.Time
}

func New() *Server {
	return &Server{
		rooms: make(map[string]*domain.Room),
		hub:   newHub(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		now: time.Now,
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middlewareChi.RequestID)
	r.Use(middlewareChi.RealIP)
	r.Use(middlewareChi.Recoverer)

	r.Get("/ws", s.handleWS)

	r.Route("/rooms", func(rm chi.Router) {
		rm.Post("/", s.createRoom)
		rm.Get("/", s.listRooms)

		rm.Route("/{id}", func(rr chi.Router) {
			rr.Get("/", s.getRoom)
			rr.Patch("/", s.patchRoom)
			rr.Patch("/share", s.shareRoom)
			rr.Delete("/", s.deleteRoom)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}

type createRoomRequest struct {
	Name       string            `json:"name"`
	Content    string            `json:"content"`
	Language   string            `json:"language"`
	Theme      string            `json:"theme"`
	Visibility domain.Visibility `json:"visibility"`
}

type shareRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type roomListResponse struct {
	Owned  []domain.Room `json:"owned"`
	Shared []domain.Room `json:"shared"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// identity — email из заголовка; без заголовков действует
// guest-семантика.
func identity(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-User-Email"))
}

// POST /rooms
func (s *Server) createRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}
	email := identity(r)

	room := &domain.Room{
		ID:         uuid.NewString(),
		Name:       req.Name,
		Content:    req.Content,
		Language:   domain.NormalizeLanguage(req.Language),
		Theme:      domain.NormalizeTheme(req.Theme),
		LastEdited: s.now(),
	}
	if room.Name == "" {
		room.Name = domain.DefaultName
	}
	if email != "" {
		room.Owner = email
		room.Members = []domain.Member{{Email: email, Role: domain.RoleOwner}}
		room.Visibility = req.Visibility
		if room.Visibility == "" {
			room.Visibility = domain.VisibilityPublic
		}
	}

	s.mu.Lock()
	s.rooms[room.ID] = room
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, room)
}

// GET /rooms/{id}
func (s *Server) getRoom(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[chi.URLParam(r, "id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "room not found"})
		return
	}
	writeJSON(w, http.StatusOK, room)
}

// PATCH /rooms/{id}
func (s *Server) patchRoom(w http.ResponseWriter, r *http.Request) {
	var patch domain.RoomPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[chi.URLParam(r, "id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "room not found"})
		return
	}
	if !access.CanWrite(access.EffectiveRole(room, identity(r))) {
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "write not permitted"})
		return
	}

	patch.Apply(room)
	room.LastEdited = s.now()
	writeJSON(w, http.StatusOK, room)
}

// PATCH /rooms/{id}/share
func (s *Server) shareRoom(w http.ResponseWriter, r *http.Request) {
	var req shareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid share request"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[chi.URLParam(r, "id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "room not found"})
		return
	}
	if !access.CanManageSharing(access.EffectiveRole(room, identity(r))) {
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "sharing is owner-only"})
		return
	}

	if req.Role == domain.RoleRemove {
		if req.Email == room.Owner {
			writeJSON(w, http.StatusConflict, errorResponse{Error: domain.ErrOwnerRemoval.Error()})
			return
		}
		kept := room.Members[:0]
		for _, m := range room.Members {
			if m.Email != req.Email {
				kept = append(kept, m)
			}
		}
		room.Members = kept
		writeJSON(w, http.StatusOK, room)
		return
	}

	role := domain.Role(req.Role)
	if !domain.ValidMemberRole(role) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown role"})
		return
	}
	if role == domain.RoleOwner && req.Email != room.Owner {
		writeJSON(w, http.StatusConflict, errorResponse{Error: domain.ErrOwnerMismatch.Error()})
		return
	}
	if req.Email == room.Owner && role != domain.RoleOwner {
		writeJSON(w, http.StatusConflict, errorResponse{Error: domain.ErrOwnerMismatch.Error()})
		return
	}

	// idempotent upsert, not append
	updated := false
	for i := range room.Members {
		if room.Members[i].Email == req.Email {
			room.Members[i].Role = role
			updated = true
			break
		}
	}
	if !updated {
		room.Members = append(room.Members, domain.Member{Email: req.Email, Role: role})
	}

	if err := room.Validate(); err != nil {
		slog.Error("share left the room invalid", "room", room.ID, "err", err)
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, room)
}

// GET /rooms
func (s *Server) listRooms(w http.ResponseWriter, r *http.Request) {
	email := identity(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	resp := roomListResponse{Owned: []domain.Room{}, Shared: []domain.Room{}}
	if email == "" {
		// guests keep their rooms client-side
		writeJSON(w, http.StatusOK, resp)
		return
	}
	for _, room := range s.rooms {
		switch {
		case room.Owner == email:
			resp.Owned = append(resp.Owned, *room)
		default:
			if _, ok := room.MemberRole(email); ok {
				resp.Shared = append(resp.Shared, *room)
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// DELETE /rooms/{id}
func (s *Server) deleteRoom(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := chi.URLParam(r, "id")
	room, ok := s.rooms[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "room not found"})
		return
	}
	// guest rooms: anyone holding the id; owned rooms: owner only
	if !room.IsGuest() && identity(r) != room.Owner {
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "owner only"})
		return
	}
	delete(s.rooms, id)
	w.WriteHeader(http.StatusNoContent)
}
