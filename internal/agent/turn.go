package agent

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	"google.golang.org/genai"

	"github.com/worawit-m/lineagent/internal/session"
)

// Fixed user-facing fallbacks. Each failure class gets a distinct
// message so operators can tell them apart in the chat transcript; none
// of them leaks error detail.
const (
	FallbackError    = "ขออภัย เกิดข้อผิดพลาดในการประมวลผล กรุณาลองใหม่อีกครั้ง"
	FallbackNoAnswer = "ขออภัย ไม่พบคำตอบสำหรับข้อความนี้ กรุณาลองใหม่อีกครั้ง"
	FallbackTimeout  = "ขออภัย ระบบใช้เวลาประมวลผลนานเกินไป กรุณาลองใหม่อีกครั้ง"
)

// Outcome classifies how a turn ended.
type Outcome string

const (
	OutcomeAnswer   Outcome = "answer"
	OutcomeNoAnswer Outcome = "no_answer"
	OutcomeTimeout  Outcome = "timeout"
	OutcomeError    Outcome = "error"
)

var errTurnTimeout = errors.New("turn timed out")

// TurnConfig tunes the turn runner.
type TurnConfig struct {
	Timeout      time.Duration // wall-clock budget per turn (default 60s)
	MaxAttempts  int           // whole-turn attempts on stream failure (default 3)
	RetryBackoff time.Duration // fixed delay between attempts (default 2s)
	Ceiling      time.Duration // blocking-adapter safety net (default Timeout+30s)
}

// TurnRunner runs conversation turns: resolve the session, stream the
// agent's events, extract the final answer, and degrade to a fallback
// on exhaustion, timeout, or failure.
type TurnRunner struct {
	Runner   Runner
	Sessions *session.Registry

	timeout      time.Duration
	maxAttempts  int
	retryBackoff time.Duration
	ceiling      time.Duration
}

// NewTurnRunner creates a TurnRunner.
func NewTurnRunner(r Runner, sessions *session.Registry, cfg TurnConfig) *TurnRunner {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 2 * time.Second
	}
	if cfg.Ceiling <= 0 {
		cfg.Ceiling = cfg.Timeout + 30*time.Second
	}
	return &TurnRunner{
		Runner:       r,
		Sessions:     sessions,
		timeout:      cfg.Timeout,
		maxAttempts:  cfg.MaxAttempts,
		retryBackoff: cfg.RetryBackoff,
		ceiling:      cfg.Ceiling,
	}
}

// RunTurn executes one turn and always returns something sendable.
// It performs no chat-platform I/O; delivering the result is the
// caller's job.
func (t *TurnRunner) RunTurn(ctx context.Context, userID string, msg *genai.Content) (string, Outcome) {
	sessionID := t.Sessions.GetOrCreate(ctx, userID)
	log.Printf("[Turn] user=%s session=%s", userID, sessionID)

	runCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	var answer string
	var found bool

	operation := func() error {
		text, ok, err := t.consume(runCtx, userID, sessionID, msg)
		if err != nil {
			if runCtx.Err() != nil {
				// The budget elapsed (or the caller gave up);
				// retrying cannot help.
				return backoff.Permanent(errTurnTimeout)
			}
			log.Printf("[Turn] stream error for %s: %v", userID, err)
			return err
		}
		answer, found = text, ok
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(t.retryBackoff), uint64(t.maxAttempts-1)),
		runCtx)

	err := backoff.Retry(operation, policy)
	switch {
	case err != nil && (errors.Is(err, errTurnTimeout) || errors.Is(runCtx.Err(), context.DeadlineExceeded)):
		log.Printf("[Turn] timed out after %s for %s", t.timeout, userID)
		return FallbackTimeout, OutcomeTimeout
	case err != nil:
		log.Printf("[Turn] failed after %d attempts for %s: %v", t.maxAttempts, userID, err)
		return FallbackError, OutcomeError
	case found:
		return answer, OutcomeAnswer
	default:
		log.Printf("[Turn] stream exhausted with no answer for %s", userID)
		return FallbackNoAnswer, OutcomeNoAnswer
	}
}

// consume drains the event stream for one attempt.
//
// Answer policy: text from a final-flagged event wins and stops
// consumption immediately; if the stream ends without a final event,
// the last non-empty text segment seen is the answer.
func (t *TurnRunner) consume(ctx context.Context, userID, sessionID string, msg *genai.Content) (string, bool, error) {
	var lastText string
	events := 0

	for ev, err := range t.Runner.Run(ctx, userID, sessionID, msg) {
		if err != nil {
			return "", false, err
		}
		events++

		text, ok := Extract(ev)
		if ev.Final && ok {
			log.Printf("[Turn] final answer after %d events for %s", events, userID)
			return text, true, nil
		}
		if ok {
			lastText = text
		}
	}

	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	if lastText != "" {
		return lastText, true, nil
	}
	return "", false, nil
}
