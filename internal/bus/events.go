// Package bus provides the async message bus decoupling the webhook
// handler from the turn workers.
package bus

import "time"

// MessageKind classifies an inbound LINE message payload.
type MessageKind string

const (
	KindText  MessageKind = "text"
	KindImage MessageKind = "image"
	KindFile  MessageKind = "file"
)

// InboundMessage is one webhook message event queued for processing.
type InboundMessage struct {
	UserID     string      `json:"user_id"`
	ReplyToken string      `json:"reply_token"`
	Kind       MessageKind `json:"kind"`
	Text       string      `json:"text,omitempty"`
	MessageID  string      `json:"message_id,omitempty"` // blob reference for image/file
	FileName   string      `json:"file_name,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// OutboundMessage is a reply queued for delivery to LINE.
type OutboundMessage struct {
	UserID     string `json:"user_id"`
	ReplyToken string `json:"reply_token"`
	Text       string `json:"text"`
}
