// Package protocol defines the JSON event frames exchanged between the sync
// server and its clients.
package protocol

import "encoding/json"

// Inbound event types. Join events are acknowledged; update events are a
// fire-and-forget stream where the next update self-corrects a dropped one.
const (
	EventDocJoin     = "doc:join"
	EventDocUpdate   = "doc:update"
	EventShareJoin   = "share:join"
	EventShareUpdate = "share:update"
)

// Outbound event types.
const (
	EventAck        = "ack"
	EventDocContent = "doc:content"
)

// Frame is the envelope of every message on the wire. ID correlates a join
// request with its acknowledgment and is absent on update events.
type Frame struct {
	Type string          `json:"type"`
	ID   int64           `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

type DocJoinPayload struct {
	DocumentID string `json:"documentId"`
}

type DocUpdatePayload struct {
	DocumentID string `json:"documentId"`
	Content    string `json:"content"`
}

type ShareJoinPayload struct {
	UUID         string `json:"uuid"`
	GuestName    string `json:"guestName"`
	EditPassword string `json:"editPassword,omitempty"`
}

type ShareUpdatePayload struct {
	UUID    string `json:"uuid"`
	Content string `json:"content"`
}

type AckPayload struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type DocContentPayload struct {
	DocumentID string `json:"documentId"`
	Content    string `json:"content"`
	Origin     string `json:"originConnectionId"`
}

// MarshalFrame packs payload into a Frame of the given type and encodes it.
func MarshalFrame(typ string, id int64, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Type: typ, ID: id, Data: data})
}
