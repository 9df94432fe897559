package agent

import (
	"context"
	"log"
	"time"

	"google.golang.org/genai"
)

type turnResult struct {
	text    string
	outcome Outcome
}

// RunTurnBlocking executes one turn to completion for a synchronous
// caller. The turn runs in its own goroutine with its own cancellable
// context; a hard ceiling above the turn's internal timeout guarantees
// the caller always gets a string back, and cancellation plus the
// buffered result channel guarantee the worker goroutine is released on
// every exit path.
func (t *TurnRunner) RunTurnBlocking(userID string, msg *genai.Content) (string, Outcome) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan turnResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[Turn] panic recovered for %s: %v", userID, r)
				done <- turnResult{FallbackError, OutcomeError}
			}
		}()
		text, outcome := t.RunTurn(ctx, userID, msg)
		done <- turnResult{text, outcome}
	}()

	timer := time.NewTimer(t.ceiling)
	defer timer.Stop()

	select {
	case r := <-done:
		return r.text, r.outcome
	case <-timer.C:
		// Should be unreachable when the internal timeout works; the
		// cancel discards whatever the turn is still doing.
		log.Printf("[Turn] safety-net ceiling %s exceeded for %s", t.ceiling, userID)
		return FallbackError, OutcomeError
	}
}
