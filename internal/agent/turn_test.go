package agent

import (
	"context"
	"errors"
	"iter"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/worawit-m/lineagent/internal/session"
)

// stubService satisfies session.Service with canned behavior.
type stubService struct {
	createErr error
}

func (s *stubService) CreateSession(ctx context.Context, appName, userID string) (*session.Session, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &session.Session{ID: "sess-" + userID, AppName: appName, UserID: userID}, nil
}

func (s *stubService) ListSessions(ctx context.Context, appName, userID string) ([]*session.Session, error) {
	return nil, nil
}

func (s *stubService) AppendMessage(ctx context.Context, sessionID, role, content string) error {
	return nil
}

func (s *stubService) History(ctx context.Context, sessionID string, limit int) ([]session.Message, error) {
	return nil, nil
}

// fakeRunner yields a scripted event sequence, counting attempts.
type fakeRunner struct {
	run      func(ctx context.Context, attempt int, yield func(*Event, error) bool)
	attempts int
}

func (f *fakeRunner) AppName() string { return "test_app" }

func (f *fakeRunner) Run(ctx context.Context, userID, sessionID string, msg *genai.Content) iter.Seq2[*Event, error] {
	f.attempts++
	attempt := f.attempts
	return func(yield func(*Event, error) bool) {
		f.run(ctx, attempt, yield)
	}
}

func textEvent(text string, final bool) *Event {
	return &Event{
		ID:     "ev",
		Author: "test_app",
		Final:  final,
		Content: &genai.Content{
			Role:  genai.RoleModel,
			Parts: []*genai.Part{{Text: text}},
		},
	}
}

func userMessage(text string) *genai.Content {
	return &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{{Text: text}}}
}

func newTestTurnRunner(r Runner, cfg TurnConfig) *TurnRunner {
	return NewTurnRunner(r, session.NewRegistry("test_app", &stubService{}), cfg)
}

func TestRunTurn_FinalEventWins(t *testing.T) {
	runner := &fakeRunner{run: func(ctx context.Context, attempt int, yield func(*Event, error) bool) {
		if !yield(textEvent("a", false), nil) {
			return
		}
		if !yield(textEvent("b", false), nil) {
			return
		}
		yield(textEvent("c", true), nil)
	}}

	tr := newTestTurnRunner(runner, TurnConfig{})
	text, outcome := tr.RunTurn(context.Background(), "U1", userMessage("hi"))
	assert.Equal(t, "c", text)
	assert.Equal(t, OutcomeAnswer, outcome)
	assert.Equal(t, 1, runner.attempts)
}

func TestRunTurn_FinalShortCircuits(t *testing.T) {
	yieldedAfterFinal := false
	runner := &fakeRunner{run: func(ctx context.Context, attempt int, yield func(*Event, error) bool) {
		if yield(textEvent("answer", true), nil) {
			yieldedAfterFinal = true
			yield(textEvent("trailing", false), nil)
		}
	}}

	tr := newTestTurnRunner(runner, TurnConfig{})
	text, outcome := tr.RunTurn(context.Background(), "U1", userMessage("hi"))
	assert.Equal(t, "answer", text)
	assert.Equal(t, OutcomeAnswer, outcome)
	assert.False(t, yieldedAfterFinal, "consumption must stop at the final event")
}

func TestRunTurn_LastTextWithoutFinal(t *testing.T) {
	runner := &fakeRunner{run: func(ctx context.Context, attempt int, yield func(*Event, error) bool) {
		if !yield(textEvent("a", false), nil) {
			return
		}
		yield(textEvent("b", false), nil)
	}}

	tr := newTestTurnRunner(runner, TurnConfig{})
	text, outcome := tr.RunTurn(context.Background(), "U1", userMessage("hi"))
	assert.Equal(t, "b", text)
	assert.Equal(t, OutcomeAnswer, outcome)
}

func TestRunTurn_EmptyStreamFallsBack(t *testing.T) {
	runner := &fakeRunner{run: func(ctx context.Context, attempt int, yield func(*Event, error) bool) {}}

	tr := newTestTurnRunner(runner, TurnConfig{})
	text, outcome := tr.RunTurn(context.Background(), "U1", userMessage("hi"))
	assert.Equal(t, FallbackNoAnswer, text)
	assert.Equal(t, OutcomeNoAnswer, outcome)
	assert.Equal(t, 1, runner.attempts, "an exhausted stream is not retried")
}

func TestRunTurn_ToolOnlyEventsFallBack(t *testing.T) {
	runner := &fakeRunner{run: func(ctx context.Context, attempt int, yield func(*Event, error) bool) {
		yield(&Event{ID: "ev", Content: &genai.Content{Parts: []*genai.Part{
			{FunctionCall: &genai.FunctionCall{Name: "generate_image"}},
		}}}, nil)
	}}

	tr := newTestTurnRunner(runner, TurnConfig{})
	text, outcome := tr.RunTurn(context.Background(), "U1", userMessage("hi"))
	assert.Equal(t, FallbackNoAnswer, text)
	assert.Equal(t, OutcomeNoAnswer, outcome)
}

func TestRunTurn_RetriesThenSucceeds(t *testing.T) {
	runner := &fakeRunner{run: func(ctx context.Context, attempt int, yield func(*Event, error) bool) {
		if attempt < 3 {
			yield(nil, errors.New("stream reset"))
			return
		}
		yield(textEvent("recovered", true), nil)
	}}

	tr := newTestTurnRunner(runner, TurnConfig{RetryBackoff: time.Millisecond})
	text, outcome := tr.RunTurn(context.Background(), "U1", userMessage("hi"))
	assert.Equal(t, "recovered", text)
	assert.Equal(t, OutcomeAnswer, outcome)
	assert.Equal(t, 3, runner.attempts)
}

func TestRunTurn_ErrorEveryAttempt(t *testing.T) {
	runner := &fakeRunner{run: func(ctx context.Context, attempt int, yield func(*Event, error) bool) {
		yield(nil, errors.New("stream reset"))
	}}

	tr := newTestTurnRunner(runner, TurnConfig{MaxAttempts: 3, RetryBackoff: time.Millisecond})
	text, outcome := tr.RunTurn(context.Background(), "U1", userMessage("hi"))
	assert.Equal(t, FallbackError, text)
	assert.Equal(t, OutcomeError, outcome)
	assert.Equal(t, 3, runner.attempts, "attempts are bounded")
}

func TestRunTurn_TimeoutFallback(t *testing.T) {
	runner := &fakeRunner{run: func(ctx context.Context, attempt int, yield func(*Event, error) bool) {
		<-ctx.Done()
		yield(nil, ctx.Err())
	}}

	tr := newTestTurnRunner(runner, TurnConfig{Timeout: 50 * time.Millisecond})
	start := time.Now()
	text, outcome := tr.RunTurn(context.Background(), "U1", userMessage("hi"))
	assert.Equal(t, FallbackTimeout, text)
	assert.Equal(t, OutcomeTimeout, outcome)
	assert.Equal(t, 1, runner.attempts, "a timed-out turn is not retried")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRunTurn_FallbackSessionStillRuns(t *testing.T) {
	// Session creation fails; the turn proceeds with the fallback id.
	reg := session.NewRegistry("test_app", &stubService{createErr: errors.New("db down")})
	var seenSession string
	runner := &fakeRunner{run: func(ctx context.Context, attempt int, yield func(*Event, error) bool) {
		yield(textEvent("ok", true), nil)
	}}
	tr := NewTurnRunner(runnerCapture{runner, &seenSession}, reg, TurnConfig{})

	text, outcome := tr.RunTurn(context.Background(), "U1", userMessage("hi"))
	require.Equal(t, OutcomeAnswer, outcome)
	assert.Equal(t, "ok", text)
	assert.Equal(t, session.FallbackID("U1"), seenSession)
}

// runnerCapture records the session id passed to Run.
type runnerCapture struct {
	inner *fakeRunner
	seen  *string
}

func (rc runnerCapture) AppName() string { return rc.inner.AppName() }

func (rc runnerCapture) Run(ctx context.Context, userID, sessionID string, msg *genai.Content) iter.Seq2[*Event, error] {
	*rc.seen = sessionID
	return rc.inner.Run(ctx, userID, sessionID, msg)
}
