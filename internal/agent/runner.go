// Package agent drives one conversation turn against the Gemini-backed
// agent runtime: session resolution, event-stream consumption, answer
// extraction, timeout/retry handling, and the synchronous adapter used
// by the webhook workers.
package agent

import (
	"context"
	"iter"
	"strings"

	"google.golang.org/genai"
)

// Event is one unit of the stream produced by a Runner for a turn.
// It may carry intermediate content (partial text, tool activity) or be
// flagged Final to mark the terminal output of the turn.
type Event struct {
	ID      string
	Author  string
	Content *genai.Content
	Final   bool
}

// Runner produces the event stream for one submitted message.
type Runner interface {
	// AppName returns the application name sessions are scoped to.
	AppName() string

	// Run submits newMessage for a user's session and yields events
	// until the turn completes, the stream fails, or ctx is cancelled.
	Run(ctx context.Context, userID, sessionID string, newMessage *genai.Content) iter.Seq2[*Event, error]
}

// Extract returns the user-facing text carried by an event, if any.
// Tool invocations, generated code, and empty text segments yield no
// answer. The first non-empty text part wins.
func Extract(ev *Event) (string, bool) {
	if ev == nil || ev.Content == nil {
		return "", false
	}
	for _, part := range ev.Content.Parts {
		if part == nil {
			continue
		}
		if txt := strings.TrimSpace(part.Text); txt != "" {
			return txt, true
		}
	}
	return "", false
}
