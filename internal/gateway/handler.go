package gateway

import (
	"io"
	"log"
	"net/http"

	"github.com/worawit-m/lineagent/internal/line"
)

// handleWebhook receives LINE webhook posts. Signature or payload
// problems get a 400; everything else is acknowledged with 200
// immediately, with the actual work queued for the turn workers. LINE
// retries non-2xx deliveries, so a slow turn must never hold this
// handler up.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		webhookRequests.WithLabelValues("bad_payload").Inc()
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}

	if !line.ValidateSignature(s.channelSecret, r.Header.Get("X-Line-Signature"), body) {
		webhookRequests.WithLabelValues("bad_signature").Inc()
		log.Printf("[Gateway] webhook signature rejected from %s", r.RemoteAddr)
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	req, err := line.ParseWebhook(body)
	if err != nil {
		webhookRequests.WithLabelValues("bad_payload").Inc()
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	for _, ev := range req.Events {
		msg := line.ToInbound(ev)
		if msg == nil {
			continue
		}
		if !s.allowed(msg.UserID) {
			log.Printf("[Gateway] dropping event from disallowed user %s", msg.UserID)
			continue
		}
		if !s.bus.PublishInbound(*msg) {
			eventsDropped.Inc()
			log.Printf("[Gateway] inbound queue full, dropping %s event from %s", msg.Kind, msg.UserID)
		}
	}

	webhookRequests.WithLabelValues("ok").Inc()
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// allowed reports whether a user may talk to the bot. An empty
// allowlist admits everyone.
func (s *Server) allowed(userID string) bool {
	if len(s.allowFrom) == 0 {
		return true
	}
	_, ok := s.allowFrom[userID]
	return ok
}
