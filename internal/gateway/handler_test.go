package gateway

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worawit-m/lineagent/internal/bus"
	"github.com/worawit-m/lineagent/internal/line"
)

const testSecret = "test-channel-secret"

func newTestServer(t *testing.T, allowFrom []string) (*Server, *bus.MessageBus) {
	t.Helper()
	msgBus := bus.NewMessageBus()
	s := NewServer(ServerConfig{
		Host:          "127.0.0.1",
		ChannelSecret: testSecret,
		AllowFrom:     allowFrom,
	}, msgBus, line.NewClient("token"), nil)
	t.Cleanup(s.lanes.Stop)
	return s, msgBus
}

func postWebhookPath(t *testing.T, s *Server, path string, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("X-Line-Signature", signature)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func postWebhook(t *testing.T, s *Server, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	return postWebhookPath(t, s, "/", body, signature)
}

const textEventBody = `{
	"destination": "U_bot",
	"events": [{
		"type": "message",
		"replyToken": "rt-1",
		"timestamp": 1700000000000,
		"source": {"type": "user", "userId": "U1"},
		"message": {"id": "m1", "type": "text", "text": "สวัสดี"}
	}]
}`

func TestWebhook_ValidEventQueued(t *testing.T) {
	s, msgBus := newTestServer(t, nil)
	body := []byte(textEventBody)

	rec := postWebhook(t, s, body, line.SignBody(testSecret, body))
	assert.Equal(t, http.StatusOK, rec.Code)

	require.Equal(t, 1, msgBus.InboundSize())
	msg := <-msgBus.Inbound
	assert.Equal(t, "U1", msg.UserID)
	assert.Equal(t, "rt-1", msg.ReplyToken)
	assert.Equal(t, bus.KindText, msg.Kind)
	assert.Equal(t, "สวัสดี", msg.Text)
}

func TestWebhook_AliasPathAccepted(t *testing.T) {
	s, msgBus := newTestServer(t, nil)
	body := []byte(textEventBody)

	rec := postWebhookPath(t, s, "/webhook", body, line.SignBody(testSecret, body))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, msgBus.InboundSize())
}

func TestWebhook_BadSignatureRejected(t *testing.T) {
	s, msgBus := newTestServer(t, nil)
	body := []byte(textEventBody)

	rec := postWebhook(t, s, body, line.SignBody("wrong-secret", body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, msgBus.InboundSize())
}

func TestWebhook_MissingSignatureRejected(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := postWebhook(t, s, []byte(textEventBody), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhook_MalformedBodyRejected(t *testing.T) {
	s, _ := newTestServer(t, nil)
	body := []byte(`{not json`)
	rec := postWebhook(t, s, body, line.SignBody(testSecret, body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhook_NonMessageEventsIgnored(t *testing.T) {
	s, msgBus := newTestServer(t, nil)
	body := []byte(`{"destination":"U_bot","events":[{"type":"follow","source":{"type":"user","userId":"U1"}}]}`)

	rec := postWebhook(t, s, body, line.SignBody(testSecret, body))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, msgBus.InboundSize())
}

func TestWebhook_AllowlistFilters(t *testing.T) {
	s, msgBus := newTestServer(t, []string{"U_allowed"})
	body := []byte(textEventBody) // from U1

	rec := postWebhook(t, s, body, line.SignBody(testSecret, body))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, msgBus.InboundSize())
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
