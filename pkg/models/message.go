package models

import "time"

// DeliveredStatus is a chat message's delivery/read state.
type DeliveredStatus string

const (
	MessageSent      DeliveredStatus = "sent"
	MessageDelivered DeliveredStatus = "delivered"
	MessageRead      DeliveredStatus = "read"
)

// MessageData carries broadcast read-tracking and any other loosely-typed
// per-message extras; the only place a broadcast's seen_by set lives.
type MessageData struct {
	SeenBy map[ParticipantCode]bool `json:"seen_by,omitempty"`
}

// Message is one in-session chat message. Recipient is nil for a broadcast.
type Message struct {
	MessageID       string          `json:"message_id"`
	SessionCode     SessionCode     `json:"session_code"`
	Sender          ParticipantCode `json:"sender"`
	Recipient       *ParticipantCode `json:"recipient,omitempty"`
	Content         string          `json:"content"`
	Timestamp       time.Time       `json:"timestamp"`
	Type            string          `json:"type"`
	DeliveredStatus DeliveredStatus `json:"delivered_status"`
	MessageData     MessageData     `json:"message_data"`
}

// IsBroadcast reports whether the message has no specific recipient.
func (m *Message) IsBroadcast() bool {
	return m.Recipient == nil
}
