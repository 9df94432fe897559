package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worawit-m/lineagent/internal/bus"
	"github.com/worawit-m/lineagent/internal/line"
)

// lineStub fakes the LINE API surface the worker touches.
type lineStub struct {
	mu        sync.Mutex
	replies   []string
	pushes    []string
	replyFail bool
	blob      []byte
	blobType  string
}

func (l *lineStub) serve(t *testing.T) *line.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l.mu.Lock()
		defer l.mu.Unlock()
		switch r.URL.Path {
		case "/v2/bot/message/reply":
			if l.replyFail {
				http.Error(w, `{"message":"Invalid reply token"}`, http.StatusBadRequest)
				return
			}
			var body struct {
				Messages []struct {
					Text string `json:"text"`
				} `json:"messages"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			l.replies = append(l.replies, body.Messages[0].Text)
			w.WriteHeader(http.StatusOK)
		case "/v2/bot/message/push":
			var body struct {
				Messages []struct {
					Text string `json:"text"`
				} `json:"messages"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			l.pushes = append(l.pushes, body.Messages[0].Text)
			w.WriteHeader(http.StatusOK)
		case "/v2/bot/message/m1/content":
			w.Header().Set("Content-Type", l.blobType)
			w.Write(l.blob)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	t.Cleanup(srv.Close)

	client := line.NewClient("token")
	client.APIBase = srv.URL
	client.BlobBase = srv.URL
	return client
}

func newWorkerServer(t *testing.T, stub *lineStub) *Server {
	t.Helper()
	s := NewServer(ServerConfig{ChannelSecret: testSecret}, bus.NewMessageBus(), stub.serve(t), nil)
	t.Cleanup(s.lanes.Stop)
	return s
}

func TestDeliver_Reply(t *testing.T) {
	stub := &lineStub{}
	s := newWorkerServer(t, stub)

	s.deliver(bus.OutboundMessage{UserID: "U1", ReplyToken: "rt-1", Text: "คำตอบ"})

	stub.mu.Lock()
	defer stub.mu.Unlock()
	assert.Equal(t, []string{"คำตอบ"}, stub.replies)
	assert.Empty(t, stub.pushes)
}

func TestDeliver_PushFallbackOnReplyFailure(t *testing.T) {
	stub := &lineStub{replyFail: true}
	s := newWorkerServer(t, stub)

	s.deliver(bus.OutboundMessage{UserID: "U1", ReplyToken: "rt-expired", Text: "คำตอบ"})

	stub.mu.Lock()
	defer stub.mu.Unlock()
	assert.Empty(t, stub.replies)
	assert.Equal(t, []string{"คำตอบ"}, stub.pushes)
}

func TestDeliver_PushWithoutReplyToken(t *testing.T) {
	stub := &lineStub{}
	s := newWorkerServer(t, stub)

	s.deliver(bus.OutboundMessage{UserID: "U1", Text: "คำตอบ"})

	stub.mu.Lock()
	defer stub.mu.Unlock()
	assert.Equal(t, []string{"คำตอบ"}, stub.pushes)
}

func TestBuildContent_Text(t *testing.T) {
	s := newWorkerServer(t, &lineStub{})

	content, err := s.buildContent(context.Background(), &bus.InboundMessage{
		Kind: bus.KindText, Text: "สวัสดี",
	})
	require.NoError(t, err)
	require.Len(t, content.Parts, 1)
	assert.Equal(t, "สวัสดี", content.Parts[0].Text)
}

func TestBuildContent_ImageInlinesBlob(t *testing.T) {
	stub := &lineStub{blob: []byte{0xFF, 0xD8, 0xFF}, blobType: "image/jpeg"}
	s := newWorkerServer(t, stub)

	content, err := s.buildContent(context.Background(), &bus.InboundMessage{
		Kind: bus.KindImage, MessageID: "m1",
	})
	require.NoError(t, err)
	require.Len(t, content.Parts, 2)
	require.NotNil(t, content.Parts[0].InlineData)
	assert.Equal(t, "image/jpeg", content.Parts[0].InlineData.MIMEType)
	assert.Equal(t, stub.blob, content.Parts[0].InlineData.Data)
	assert.Equal(t, imagePrompt, content.Parts[1].Text)
}

func TestBuildContent_FileCarriesName(t *testing.T) {
	stub := &lineStub{blob: []byte("%PDF-1.4"), blobType: "application/pdf"}
	s := newWorkerServer(t, stub)

	content, err := s.buildContent(context.Background(), &bus.InboundMessage{
		Kind: bus.KindFile, MessageID: "m1", FileName: "brief.pdf",
	})
	require.NoError(t, err)
	require.Len(t, content.Parts, 2)
	assert.Equal(t, "application/pdf", content.Parts[0].InlineData.MIMEType)
	assert.Contains(t, content.Parts[1].Text, "brief.pdf")
}
