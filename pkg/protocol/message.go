// Package protocol defines the records exchanged with the chat server over the
// websocket channel and the HTTP history and unread endpoints.
package protocol

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// EventType is the value of the "type" field of a websocket record.
type EventType string

const (
	EventTypeConnect EventType = "connect"
	EventTypeMessage EventType = "message"
)

// String returns the string representation of EventType
func (et EventType) String() string {
	if et == "" {
		return "UNKNOWN"
	}
	return string(et)
}

// ChatMessage is a single chat message as delivered by the server, either
// live over the websocket or as part of a history listing.
type ChatMessage struct {
	ID          int       `json:"id,omitempty"`
	SenderID    int       `json:"sender_id"`
	RecipientID int       `json:"recipient_id"`
	Username    string    `json:"username,omitempty"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	IsSent      bool      `json:"is_sent,omitempty"`
	Type        EventType `json:"type,omitempty"`
}

// Event is a decoded inbound websocket record. Content carries the greeting
// text for connect events; Message is set for message events.
type Event struct {
	Type    EventType
	Content string
	Message *ChatMessage
}

// OutboundMessage is what the client sends to post a new message.
type OutboundMessage struct {
	Type        EventType `json:"type"`
	RecipientID int       `json:"recipient_id"`
	Content     string    `json:"content"`
}

// UnreadCount is the number of unread messages from one sender.
type UnreadCount struct {
	SenderID int `json:"sender_id"`
	Count    int `json:"count"`
}

// UnreadResponse is the body of the unread reconciliation endpoint. A nil
// UnreadCounts means the server had nothing to reconcile.
type UnreadResponse struct {
	UnreadCounts []UnreadCount `json:"unread_counts"`
}

// NewOutboundMessage builds a message envelope for recipientID.
func NewOutboundMessage(recipientID int, content string) OutboundMessage {
	return OutboundMessage{
		Type:        EventTypeMessage,
		RecipientID: recipientID,
		Content:     content,
	}
}

// Encode encodes the outbound message as a JSON text frame payload
func (m OutboundMessage) Encode() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode message")
	}
	return data, nil
}

// DecodeEvent decodes a raw websocket payload. Unknown types decode without
// error so callers can ignore them.
func DecodeEvent(data []byte) (Event, error) {
	var msg ChatMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return Event{}, errors.Wrap(err, "failed to decode event")
	}

	ev := Event{Type: msg.Type, Content: msg.Content}
	if ev.Type == EventTypeMessage {
		ev.Message = &msg
	}
	return ev, nil
}

// DecodeHistory decodes a history listing. A JSON null is an empty history.
func DecodeHistory(data []byte) ([]ChatMessage, error) {
	var msgs []ChatMessage
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, errors.Wrap(err, "failed to decode history")
	}
	if msgs == nil {
		msgs = []ChatMessage{}
	}
	return msgs, nil
}
