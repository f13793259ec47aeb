package devserver

import (
	"sync"

	"github.com/cwrk-planet/codeshare/internal/realtime"
)

type hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*wsConn]struct{} // roomID -> set of connections
}

func newHub() *hub {
	return &hub{rooms: make(map[string]map[*wsConn]struct{})}
}

// join подключает conn к комнате, отписывая от предыдущей: одна комната
// на соединение.
func (h *hub) join(c *wsConn, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeLocked(c)
	c.roomID = roomID
	rs, ok := h.rooms[roomID]
	if !ok {
		rs = make(map[*wsConn]struct{})
		h.rooms[roomID] = rs
	}
	rs[c] = struct{}{}
}

func (h *hub) remove(c *wsConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *hub) removeLocked(c *wsConn) {
	if c.roomID == "" {
		return
	}
	if rs, ok := h.rooms[c.roomID]; ok {
		delete(rs, c)
		if len(rs) == 0 {
			delete(h.rooms, c.roomID)
		}
	}
	c.roomID = ""
}

// broadcast delivers msg to everyone in the room except the sender.
func (h *hub) broadcast(roomID string, msg realtime.Message, except *wsConn) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if rs, ok := h.rooms[roomID]; ok {
		for c := range rs {
			if c == except {
				continue
			}
			_ = c.send(msg) // best-effort
		}
	}
}
