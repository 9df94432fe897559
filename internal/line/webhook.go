package line

import (
	"encoding/json"
	"time"

	"github.com/worawit-m/lineagent/internal/bus"
)

// WebhookRequest is the payload LINE posts to the webhook endpoint.
type WebhookRequest struct {
	Destination string  `json:"destination"`
	Events      []Event `json:"events"`
}

// Event is one webhook event.
type Event struct {
	Type       string   `json:"type"`
	ReplyToken string   `json:"replyToken,omitempty"`
	Timestamp  int64    `json:"timestamp"` // milliseconds since epoch
	Source     *Source  `json:"source,omitempty"`
	Message    *Message `json:"message,omitempty"`
}

// Source identifies the sender of an event.
type Source struct {
	Type    string `json:"type"`
	UserID  string `json:"userId,omitempty"`
	GroupID string `json:"groupId,omitempty"`
	RoomID  string `json:"roomId,omitempty"`
}

// Message is the message content of a message event.
type Message struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	FileName string `json:"fileName,omitempty"`
	FileSize int64  `json:"fileSize,omitempty"`
}

// ParseWebhook decodes a webhook body.
func ParseWebhook(body []byte) (*WebhookRequest, error) {
	var req WebhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// ToInbound converts a webhook event to a bus message, or nil for event
// types this service does not handle (follow, unfollow, sticker, ...).
func ToInbound(ev Event) *bus.InboundMessage {
	if ev.Type != "message" || ev.Message == nil || ev.Source == nil || ev.Source.UserID == "" {
		return nil
	}

	msg := bus.InboundMessage{
		UserID:     ev.Source.UserID,
		ReplyToken: ev.ReplyToken,
		MessageID:  ev.Message.ID,
		Timestamp:  time.UnixMilli(ev.Timestamp),
	}

	switch ev.Message.Type {
	case "text":
		msg.Kind = bus.KindText
		msg.Text = ev.Message.Text
	case "image":
		msg.Kind = bus.KindImage
	case "file":
		msg.Kind = bus.KindFile
		msg.FileName = ev.Message.FileName
	default:
		return nil
	}
	return &msg
}
