package realtime

import "encoding/json"

// Типы событий realtime-границы.
const (
	TypeJoin       = "room:join"   // client → server: подписка на комнату
	TypeCodeChange = "code:change" // bidirectional: содержимое буфера
)

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type JoinPayload struct {
	RoomID string `json:"room_id"`
}

// CodeChangePayload carries the full buffer, not a diff: document-level
// last-writer-wins. Seq is a monotonic per-sender counter; receivers drop
// anything not newer than the last applied value from that sender.
type CodeChangePayload struct {
	RoomID  string `json:"room_id,omitempty"`
	Content string `json:"content"`
	Sender  string `json:"sender,omitempty"`
	Seq     uint64 `json:"seq,omitempty"`
}

// Edit — входящее удалённое изменение, уже распакованное для движка.
type Edit struct {
	Content string
	Sender  string
	Seq     uint64
}

func decode(payload interface{}, dst interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return json.Unmarshal(b, dst)
}
