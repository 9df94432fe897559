// Package lane serializes turns per user. LINE users sending
// rapid-fire messages would otherwise run concurrent turns against the
// same session and interleave history; each user gets a lane that
// processes their messages strictly in arrival order, while different
// users proceed in parallel.
package lane

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/worawit-m/lineagent/internal/bus"
)

// TurnHandler runs one turn and returns the text to deliver. It must
// always return a sendable string; failures surface as fallback text,
// not errors.
type TurnHandler func(ctx context.Context, msg *bus.InboundMessage) string

// ErrLaneLimit is returned when the manager refuses a new lane.
var ErrLaneLimit = errors.New("lane limit reached")

// ErrQueueFull is returned when a user's lane cannot take more work.
var ErrQueueFull = errors.New("lane queue full")

// errLaneClosed signals a submit that raced the reaper; the caller
// looks the lane up again and gets a fresh one.
var errLaneClosed = errors.New("lane closed")

type laneItem struct {
	msg  *bus.InboundMessage
	done chan string
}

// lane is one user's FIFO queue with a dedicated worker goroutine.
// The closed flag and the queue send are guarded by the same mutex so
// a send can never race the reaper's close.
type lane struct {
	userID string
	queue  chan laneItem

	mu         sync.Mutex
	closed     bool
	lastActive time.Time
}

func (l *lane) touch() {
	l.mu.Lock()
	l.lastActive = time.Now()
	l.mu.Unlock()
}

// enqueue queues an item, or reports why it cannot.
func (l *lane) enqueue(item laneItem) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return errLaneClosed
	}
	l.lastActive = time.Now()
	select {
	case l.queue <- item:
		return nil
	default:
		return ErrQueueFull
	}
}

// close marks the lane dead and releases its worker. Safe to call once;
// callers hold the manager lock, which orders reap against Stop.
func (l *lane) close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed {
		l.closed = true
		close(l.queue)
	}
}

func (l *lane) idleSince(cutoff time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastActive.Before(cutoff) && len(l.queue) == 0
}

// Manager owns the per-user lanes.
type Manager struct {
	handler   TurnHandler
	queueSize int
	maxLanes  int
	idleAfter time.Duration

	mu     sync.Mutex
	lanes  map[string]*lane
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// ManagerConfig tunes a Manager.
type ManagerConfig struct {
	Handler   TurnHandler
	QueueSize int           // pending messages per user (default 16)
	MaxLanes  int           // concurrent users (default 1000)
	IdleAfter time.Duration // drop a user's lane after this much quiet (default 30m)
}

// NewManager creates a manager and starts its idle-lane reaper.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if cfg.MaxLanes <= 0 {
		cfg.MaxLanes = 1000
	}
	if cfg.IdleAfter <= 0 {
		cfg.IdleAfter = 30 * time.Minute
	}
	m := &Manager{
		handler:   cfg.Handler,
		queueSize: cfg.QueueSize,
		maxLanes:  cfg.MaxLanes,
		idleAfter: cfg.IdleAfter,
		lanes:     make(map[string]*lane),
		stopCh:    make(chan struct{}),
	}
	m.wg.Add(1)
	go m.reap()
	return m
}

// Submit queues a message on its user's lane and blocks until the turn
// completes or ctx is cancelled. A lane reaped between lookup and
// enqueue is looked up again, which recreates it.
func (m *Manager) Submit(ctx context.Context, msg *bus.InboundMessage) (string, error) {
	item := laneItem{msg: msg, done: make(chan string, 1)}
	for {
		l, err := m.laneFor(msg.UserID)
		if err != nil {
			return "", err
		}
		err = l.enqueue(item)
		if err == nil {
			break
		}
		if err == errLaneClosed {
			continue
		}
		return "", err
	}

	select {
	case text := <-item.done:
		return text, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Len returns the number of live lanes.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lanes)
}

// Stop shuts down the reaper and all lane workers.
func (m *Manager) Stop() {
	close(m.stopCh)
	m.mu.Lock()
	for _, l := range m.lanes {
		l.close()
	}
	m.lanes = make(map[string]*lane)
	m.mu.Unlock()
	m.wg.Wait()
}

func (m *Manager) laneFor(userID string) (*lane, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.lanes[userID]; ok {
		return l, nil
	}
	if len(m.lanes) >= m.maxLanes {
		return nil, ErrLaneLimit
	}
	l := &lane{
		userID:     userID,
		queue:      make(chan laneItem, m.queueSize),
		lastActive: time.Now(),
	}
	m.lanes[userID] = l
	m.wg.Add(1)
	go m.work(l)
	return l, nil
}

// work drains one lane until its queue is closed.
func (m *Manager) work(l *lane) {
	defer m.wg.Done()
	for item := range l.queue {
		l.touch()
		item.done <- m.handler(context.Background(), item.msg)
		l.touch()
	}
}

// reap drops lanes that have been quiet past the idle cutoff.
func (m *Manager) reap() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.idleAfter / 2)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-m.idleAfter)
			m.mu.Lock()
			for userID, l := range m.lanes {
				if l.idleSince(cutoff) {
					log.Printf("[Lane] reaping idle lane for %s", userID)
					l.close()
					delete(m.lanes, userID)
				}
			}
			m.mu.Unlock()
		}
	}
}
