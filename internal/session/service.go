// Package session implements the user→session registry and the durable
// session service backing conversation history.
package session

import (
	"context"
	"time"
)

// Session is one conversation context held by the agent runtime.
type Session struct {
	ID        string    `json:"id"`
	AppName   string    `json:"app_name"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is a single stored conversation message.
type Message struct {
	Role      string    `json:"role"` // "user" or "model"
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Service stores sessions and their message history.
type Service interface {
	// CreateSession creates a new session for a user.
	CreateSession(ctx context.Context, appName, userID string) (*Session, error)

	// ListSessions returns a user's sessions, most recently updated first.
	ListSessions(ctx context.Context, appName, userID string) ([]*Session, error)

	// AppendMessage records one message in a session's history.
	AppendMessage(ctx context.Context, sessionID, role, content string) error

	// History returns the last limit messages in chronological order.
	History(ctx context.Context, sessionID string, limit int) ([]Message, error)
}
