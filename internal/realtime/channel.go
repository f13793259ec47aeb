// Package realtime is the client of the push boundary: one duplex
// websocket connection per process, one joined room at a time. It is the
// low-latency side channel, not the durability path.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// GuestSender identifies unauthenticated peers on the wire.
const GuestSender = "guest@anon.com"

type Channel struct {
	url    string
	dialer *websocket.Dialer

	mu       sync.Mutex
	conn     *websocket.Conn
	identity string
	roomID   string

	seq   atomic.Uint64
	edits chan Edit
}

func NewChannel(url string) *Channel {
	return &Channel{
		url: url,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		edits: make(chan Edit, 64),
	}
}

// Connect dials the realtime boundary. Idempotent: an existing connection
// is replaced, not stacked, and the current room is re-joined.
func (c *Channel) Connect(ctx context.Context, identity string) error {
	if identity == "" {
		identity = GuestSender
	}

	header := http.Header{}
	header.Set("X-User-Email", identity)
	conn, _, err := c.dialer.DialContext(ctx, c.url, header)
	if err != nil {
		return errors.New("realtime dial: " + err.Error())
	}

	c.mu.Lock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = conn
	c.identity = identity
	roomID := c.roomID
	c.mu.Unlock()

	go c.readLoop(conn)

	if roomID != "" {
		return c.Join(roomID)
	}
	return nil
}

// Join subscribes the connection to a room, detaching it from any
// previously joined one.
func (c *Channel) Join(roomID string) error {
	c.mu.Lock()
	c.roomID = roomID
	c.mu.Unlock()

	return c.send(Message{Type: TypeJoin, Payload: JoinPayload{RoomID: roomID}})
}

// SendEdit pushes the buffer to the other peers. Fire-and-forget:
// delivery failures are logged, never surfaced — durability belongs to
// the persist path.
func (c *Channel) SendEdit(content string) {
	c.mu.Lock()
	roomID, identity := c.roomID, c.identity
	c.mu.Unlock()

	msg := Message{
		Type: TypeCodeChange,
		Payload: CodeChangePayload{
			RoomID:  roomID,
			Content: content,
			Sender:  identity,
			Seq:     c.seq.Add(1),
		},
	}
	if err := c.send(msg); err != nil {
		slog.Debug("realtime send failed", "room", roomID, "err", err)
	}
}

// Edits is the stream of remote changes. The channel stays open across
// reconnects; slow consumers lose frames rather than block the reader.
func (c *Channel) Edits() <-chan Edit { return c.edits }

func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Channel) send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return errors.New("realtime: not connected")
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))

	return c.conn.WriteJSON(msg)
}

func (c *Channel) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case TypeCodeChange:
			var p CodeChangePayload
			if decode(msg.Payload, &p) != nil {
				continue
			}
			select {
			case c.edits <- Edit{Content: p.Content, Sender: p.Sender, Seq: p.Seq}:
			default:
				slog.Warn("realtime edit dropped: consumer too slow")
			}
		default:
			// ignore
		}
	}
}
