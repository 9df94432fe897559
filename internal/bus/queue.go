package bus

import (
	"context"
	"sync"
)

// MessageBus routes webhook events to turn workers and replies back out.
// Uses buffered Go channels; the webhook handler never blocks on a slow
// turn as long as the buffer has room.
type MessageBus struct {
	Inbound  chan InboundMessage
	Outbound chan OutboundMessage

	mu          sync.RWMutex
	subscribers []func(OutboundMessage)
}

// NewMessageBus creates a new message bus with buffered channels.
func NewMessageBus() *MessageBus {
	return &MessageBus{
		Inbound:  make(chan InboundMessage, 100),
		Outbound: make(chan OutboundMessage, 100),
	}
}

// PublishInbound queues a webhook event for the workers.
// Returns false if the queue is full (the event is dropped, not blocked on).
func (b *MessageBus) PublishInbound(msg InboundMessage) bool {
	select {
	case b.Inbound <- msg:
		return true
	default:
		return false
	}
}

// PublishOutbound queues a reply for delivery.
// Returns false if the queue is full (the reply is dropped, not blocked
// on); a stalled delivery path must not back up into the turn workers.
func (b *MessageBus) PublishOutbound(msg OutboundMessage) bool {
	select {
	case b.Outbound <- msg:
		return true
	default:
		return false
	}
}

// Subscribe registers a callback for outbound messages.
func (b *MessageBus) Subscribe(callback func(OutboundMessage)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, callback)
}

// DispatchOutbound runs the outbound dispatch loop. Blocks until ctx is
// cancelled. Safe to run from several goroutines; each message goes to
// exactly one of them.
func (b *MessageBus) DispatchOutbound(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-b.Outbound:
			b.mu.RLock()
			subs := make([]func(OutboundMessage), len(b.subscribers))
			copy(subs, b.subscribers)
			b.mu.RUnlock()
			for _, cb := range subs {
				cb(msg)
			}
		}
	}
}

// InboundSize returns the number of pending inbound messages.
func (b *MessageBus) InboundSize() int {
	return len(b.Inbound)
}

// OutboundSize returns the number of pending outbound messages.
func (b *MessageBus) OutboundSize() int {
	return len(b.Outbound)
}
