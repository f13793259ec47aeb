package devserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cwrk-planet/codeshare/internal/realtime"
)

// WS endpoint: GET /ws, identity via X-User-Email.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "err", err)
		return
	}

	c := &wsConn{conn: conn, identity: r.Header.Get("X-User-Email")}
	s.readLoop(c)
	s.hub.remove(c)
	_ = conn.Close()
}

func (s *Server) readLoop(c *wsConn) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg realtime.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case realtime.TypeJoin:
			var p realtime.JoinPayload
			if decode(msg.Payload, &p) == nil && p.RoomID != "" {
				s.hub.join(c, p.RoomID)
			}
		case realtime.TypeCodeChange:
			var p realtime.CodeChangePayload
			if decode(msg.Payload, &p) != nil {
				continue
			}
			if p.Sender == "" {
				p.Sender = c.identity
			}
			if p.RoomID == "" {
				p.RoomID = c.roomID
			}
			s.hub.broadcast(p.RoomID, realtime.Message{Type: realtime.TypeCodeChange, Payload: p}, c)
		default:
			// ignore
		}
	}
}

func decode(payload interface{}, dst interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return json.Unmarshal(b, dst)
}

type wsConn struct {
	conn     *websocket.Conn
	identity string
	roomID   string
	writeMu  sync.Mutex
}

func (c *wsConn) send(msg realtime.Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))

	return c.conn.WriteJSON(msg)
}
