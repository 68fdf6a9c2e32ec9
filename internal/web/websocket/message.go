// Package websocket pushes real-time notifications to connected users.
package websocket

import (
	"encoding/json"
	"fmt"
)

// Message types
const (
	TypeNotification = "notification"
	TypePing         = "ping"
	TypePong         = "pong"
	TypeError        = "error"
)

// Message is the envelope of every frame sent to or received from a client
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewMessage marshals data into a message of the given type
func NewMessage(typ string, data any) (*Message, error) {
	msg := &Message{Type: typ}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", typ, err)
		}
		msg.Data = raw
	}
	return msg, nil
}

// UserRoom names the room holding every connection of one user
func UserRoom(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}
