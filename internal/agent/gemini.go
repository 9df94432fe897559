package agent

import (
	"context"
	"fmt"
	"iter"
	"log"
	"strings"

	"google.golang.org/genai"

	"github.com/worawit-m/lineagent/internal/session"
	"github.com/worawit-m/lineagent/internal/tools"
)

// GeminiConfig configures a GeminiRunner.
type GeminiConfig struct {
	AppName         string
	Model           string
	SystemPrompt    string
	MaxOutputTokens int
	Temperature     float64
	MaxToolTurns    int // bound on model↔tool round trips per turn
	HistoryWindow   int // stored messages sent as context
}

// GeminiRunner implements Runner on the Gemini API with function
// calling. Conversation history is loaded from and persisted to the
// session service so a session id always resumes its context.
type GeminiRunner struct {
	client *genai.Client
	svc    session.Service
	tools  *tools.Registry

	appName         string
	model           string
	systemPrompt    string
	maxOutputTokens int32
	temperature     float32
	maxToolTurns    int
	historyWindow   int
}

// NewGeminiRunner creates a GeminiRunner on an existing client.
func NewGeminiRunner(client *genai.Client, svc session.Service, reg *tools.Registry, cfg GeminiConfig) *GeminiRunner {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash-001"
	}
	if cfg.MaxToolTurns <= 0 {
		cfg.MaxToolTurns = 8
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = 50
	}
	return &GeminiRunner{
		client:          client,
		svc:             svc,
		tools:           reg,
		appName:         cfg.AppName,
		model:           cfg.Model,
		systemPrompt:    cfg.SystemPrompt,
		maxOutputTokens: int32(cfg.MaxOutputTokens),
		temperature:     float32(cfg.Temperature),
		maxToolTurns:    cfg.MaxToolTurns,
		historyWindow:   cfg.HistoryWindow,
	}
}

// AppName returns the application name sessions are scoped to.
func (r *GeminiRunner) AppName() string { return r.appName }

// Run submits newMessage and yields one event per streamed model part,
// a tool event per function call, and a final event carrying the
// assembled answer.
func (r *GeminiRunner) Run(ctx context.Context, userID, sessionID string, newMessage *genai.Content) iter.Seq2[*Event, error] {
	return func(yield func(*Event, error) bool) {
		contents := r.loadContext(ctx, sessionID)
		contents = append(contents, newMessage)
		config := r.generateConfig()

		seq := 0
		for turn := 0; turn < r.maxToolTurns; turn++ {
			var text strings.Builder
			var calls []*genai.FunctionCall

			for resp, err := range r.client.Models.GenerateContentStream(ctx, r.model, contents, config) {
				if err != nil {
					yield(nil, err)
					return
				}
				for _, cand := range resp.Candidates {
					if cand == nil || cand.Content == nil {
						continue
					}
					for _, part := range cand.Content.Parts {
						if part == nil {
							continue
						}
						if part.Text != "" {
							text.WriteString(part.Text)
							seq++
							if !yield(r.event(seq, part.Text, false), nil) {
								return
							}
						}
						if part.FunctionCall != nil {
							calls = append(calls, part.FunctionCall)
						}
					}
				}
			}

			if len(calls) == 0 {
				answer := strings.TrimSpace(text.String())
				r.persistExchange(ctx, sessionID, newMessage, answer)
				seq++
				yield(r.event(seq, answer, true), nil)
				return
			}

			// Feed tool results back and let the model continue.
			contents = append(contents, r.modelTurn(text.String(), calls))
			responses := make([]*genai.Part, 0, len(calls))
			for _, call := range calls {
				log.Printf("[Agent] tool call: %s", call.Name)
				responses = append(responses, &genai.Part{
					FunctionResponse: &genai.FunctionResponse{
						Name:     call.Name,
						Response: r.tools.Execute(ctx, call.Name, call.Args),
					},
				})
			}
			contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: responses})
		}

		// Tool-turn bound hit without a terminal answer; the stream
		// ends and the turn runner applies its no-answer policy.
		log.Printf("[Agent] max tool turns (%d) reached for session %s", r.maxToolTurns, sessionID)
	}
}

func (r *GeminiRunner) event(seq int, text string, final bool) *Event {
	return &Event{
		ID:     fmt.Sprintf("ev-%d", seq),
		Author: r.appName,
		Final:  final,
		Content: &genai.Content{
			Role:  genai.RoleModel,
			Parts: []*genai.Part{{Text: text}},
		},
	}
}

// loadContext converts stored history into model contents. A fallback
// session id has no stored rows, so the turn simply starts fresh.
func (r *GeminiRunner) loadContext(ctx context.Context, sessionID string) []*genai.Content {
	history, err := r.svc.History(ctx, sessionID, r.historyWindow)
	if err != nil {
		log.Printf("[Agent] history load failed for %s: %v", sessionID, err)
		return nil
	}
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, m := range history {
		role := genai.RoleUser
		if m.Role == string(genai.RoleModel) {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	return contents
}

func (r *GeminiRunner) generateConfig() *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(r.temperature),
	}
	if r.systemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: r.systemPrompt}},
		}
	}
	if r.maxOutputTokens > 0 {
		config.MaxOutputTokens = r.maxOutputTokens
	}
	if decls := r.tools.Declarations(); len(decls) > 0 {
		config.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}
	return config
}

func (r *GeminiRunner) modelTurn(text string, calls []*genai.FunctionCall) *genai.Content {
	parts := make([]*genai.Part, 0, len(calls)+1)
	if text != "" {
		parts = append(parts, &genai.Part{Text: text})
	}
	for _, call := range calls {
		parts = append(parts, &genai.Part{FunctionCall: call})
	}
	return &genai.Content{Role: genai.RoleModel, Parts: parts}
}

// persistExchange stores the user message and the answer, best-effort.
func (r *GeminiRunner) persistExchange(ctx context.Context, sessionID string, userMsg *genai.Content, answer string) {
	if err := r.svc.AppendMessage(ctx, sessionID, string(genai.RoleUser), contentText(userMsg)); err != nil {
		log.Printf("[Agent] persist user message failed for %s: %v", sessionID, err)
		return
	}
	if answer == "" {
		return
	}
	if err := r.svc.AppendMessage(ctx, sessionID, string(genai.RoleModel), answer); err != nil {
		log.Printf("[Agent] persist answer failed for %s: %v", sessionID, err)
	}
}

// contentText flattens the text parts of a message for storage.
func contentText(c *genai.Content) string {
	if c == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range c.Parts {
		if part == nil {
			continue
		}
		if part.Text != "" {
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(part.Text)
		}
		if part.InlineData != nil {
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString("[" + part.InlineData.MIMEType + " attachment]")
		}
	}
	return b.String()
}
