package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishInbound(t *testing.T) {
	b := NewMessageBus()
	ok := b.PublishInbound(InboundMessage{UserID: "U1", Kind: KindText, Text: "hi"})
	assert.True(t, ok)
	assert.Equal(t, 1, b.InboundSize())

	msg := <-b.Inbound
	assert.Equal(t, "U1", msg.UserID)
	assert.Equal(t, "hi", msg.Text)
}

func TestPublishInbound_FullQueueDrops(t *testing.T) {
	b := NewMessageBus()
	for i := 0; i < 100; i++ {
		require.True(t, b.PublishInbound(InboundMessage{UserID: "U"}))
	}
	assert.False(t, b.PublishInbound(InboundMessage{UserID: "overflow"}))
}

func TestPublishOutbound_FullQueueDrops(t *testing.T) {
	b := NewMessageBus()
	for i := 0; i < 100; i++ {
		require.True(t, b.PublishOutbound(OutboundMessage{UserID: "U"}))
	}
	// No dispatcher running: the next publish must drop, not block.
	assert.False(t, b.PublishOutbound(OutboundMessage{UserID: "overflow"}))
}

func TestDispatchOutbound_ConcurrentDispatchers(t *testing.T) {
	b := NewMessageBus()

	// First delivery blocks until released; with two dispatchers the
	// second message must still get through.
	release := make(chan struct{})
	delivered := make(chan string, 2)
	b.Subscribe(func(msg OutboundMessage) {
		if msg.UserID == "slow" {
			<-release
		}
		delivered <- msg.UserID
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.DispatchOutbound(ctx)
	go b.DispatchOutbound(ctx)

	require.True(t, b.PublishOutbound(OutboundMessage{UserID: "slow"}))
	require.True(t, b.PublishOutbound(OutboundMessage{UserID: "fast"}))

	select {
	case got := <-delivered:
		assert.Equal(t, "fast", got)
	case <-time.After(time.Second):
		t.Fatal("second dispatcher did not deliver while the first was blocked")
	}
	close(release)
	assert.Equal(t, "slow", <-delivered)
}

func TestDispatchOutbound(t *testing.T) {
	b := NewMessageBus()

	var mu sync.Mutex
	var got []OutboundMessage
	b.Subscribe(func(msg OutboundMessage) {
		mu.Lock()
		got = append(got, msg)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.DispatchOutbound(ctx)

	b.PublishOutbound(OutboundMessage{UserID: "U1", ReplyToken: "rt", Text: "answer"})

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1 && got[0].Text == "answer"
	}, time.Second, 10*time.Millisecond)
}
