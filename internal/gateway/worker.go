package gateway

import (
	"context"
	"fmt"
	"log"
	"time"

	"google.golang.org/genai"

	"github.com/worawit-m/lineagent/internal/agent"
	"github.com/worawit-m/lineagent/internal/bus"
)

// Prompts attached to binary uploads. The model sees the blob plus an
// instruction telling it what the user expects done with it.
const (
	imagePrompt = "กรุณาวิเคราะห์รูปภาพนี้และสร้าง Campaign ตามรูปภาพ"
	filePrompt  = "กรุณาวิเคราะห์เอกสารนี้และสร้าง Campaign ตามเนื้อหา"
)

// runWorkers starts the turn worker pool. Each worker pulls inbound
// events, shows the typing indicator, and pushes the event through the
// user's lane so one user's turns never overlap.
func (s *Server) runWorkers(ctx context.Context, n int) {
	for i := 0; i < n; i++ {
		s.wg.Add(1)
		go func(id int) {
			defer s.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case msg := <-s.bus.Inbound:
					s.process(ctx, id, msg)
				}
			}
		}(i)
	}
}

func (s *Server) process(ctx context.Context, worker int, msg bus.InboundMessage) {
	log.Printf("[Gateway] worker %d: %s event from %s", worker, msg.Kind, msg.UserID)

	// Best-effort; a failed typing indicator never blocks the turn.
	if err := s.line.ShowLoadingAnimation(ctx, msg.UserID); err != nil {
		log.Printf("[Gateway] loading animation failed for %s: %v", msg.UserID, err)
	}

	start := time.Now()
	text, err := s.lanes.Submit(ctx, &msg)
	turnDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		log.Printf("[Gateway] lane submit failed for %s: %v", msg.UserID, err)
		return
	}

	if !s.bus.PublishOutbound(bus.OutboundMessage{
		UserID:     msg.UserID,
		ReplyToken: msg.ReplyToken,
		Text:       text,
	}) {
		repliesTotal.WithLabelValues("dropped").Inc()
		log.Printf("[Gateway] outbound queue full, dropping reply to %s", msg.UserID)
	}
}

// runTurn is the lane handler: build the model message and run it
// through the blocking turn adapter. Always returns sendable text.
func (s *Server) runTurn(ctx context.Context, msg *bus.InboundMessage) string {
	content, err := s.buildContent(ctx, msg)
	if err != nil {
		log.Printf("[Gateway] content build failed for %s: %v", msg.UserID, err)
		turnsTotal.WithLabelValues(string(agent.OutcomeError)).Inc()
		return agent.FallbackError
	}
	text, outcome := s.turns.RunTurnBlocking(msg.UserID, content)
	turnsTotal.WithLabelValues(string(outcome)).Inc()
	return text
}

// buildContent converts an inbound event to the model message. Binary
// kinds are fetched from the LINE blob endpoint and inlined.
func (s *Server) buildContent(ctx context.Context, msg *bus.InboundMessage) (*genai.Content, error) {
	switch msg.Kind {
	case bus.KindText:
		return &genai.Content{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: msg.Text}},
		}, nil

	case bus.KindImage:
		data, mimeType, err := s.line.GetMessageContent(ctx, msg.MessageID)
		if err != nil {
			return nil, fmt.Errorf("download image %s: %w", msg.MessageID, err)
		}
		if mimeType == "" {
			mimeType = "image/jpeg"
		}
		return &genai.Content{
			Role: genai.RoleUser,
			Parts: []*genai.Part{
				{InlineData: &genai.Blob{Data: data, MIMEType: mimeType}},
				{Text: imagePrompt},
			},
		}, nil

	case bus.KindFile:
		data, mimeType, err := s.line.GetMessageContent(ctx, msg.MessageID)
		if err != nil {
			return nil, fmt.Errorf("download file %s: %w", msg.MessageID, err)
		}
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		prompt := filePrompt
		if msg.FileName != "" {
			prompt = fmt.Sprintf("%s (ไฟล์: %s)", filePrompt, msg.FileName)
		}
		return &genai.Content{
			Role: genai.RoleUser,
			Parts: []*genai.Part{
				{InlineData: &genai.Blob{Data: data, MIMEType: mimeType}},
				{Text: prompt},
			},
		}, nil

	default:
		return nil, fmt.Errorf("unsupported message kind %q", msg.Kind)
	}
}

// deliver sends an outbound message: reply token first, push as the
// fallback once the token has expired or been consumed.
func (s *Server) deliver(msg bus.OutboundMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if msg.ReplyToken != "" {
		err := s.line.ReplyMessage(ctx, msg.ReplyToken, msg.Text)
		if err == nil {
			repliesTotal.WithLabelValues("reply").Inc()
			return
		}
		log.Printf("[Gateway] reply failed for %s, falling back to push: %v", msg.UserID, err)
	}

	if err := s.line.PushMessage(ctx, msg.UserID, msg.Text); err != nil {
		repliesTotal.WithLabelValues("failed").Inc()
		log.Printf("[Gateway] push failed for %s: %v", msg.UserID, err)
		return
	}
	repliesTotal.WithLabelValues("push").Inc()
}
