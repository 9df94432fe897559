package session

import (
	"context"
	"fmt"
	"hash/fnv"
	"log"
	"sync"
	"time"

	"github.com/worawit-m/lineagent/internal/redis"
)

// Registry maps a LINE user id to its conversation session id.
//
// Entries are created lazily and live for the process lifetime; the
// same user always resumes the same session. A lookup goes memory →
// redis cache → session service, and session-create failures degrade to
// a locally derived fallback id so the registry itself never fails.
type Registry struct {
	appName  string
	svc      Service
	cacheTTL time.Duration

	mu       sync.Mutex
	sessions map[string]string
}

// NewRegistry creates a registry backed by svc.
func NewRegistry(appName string, svc Service) *Registry {
	return &Registry{
		appName:  appName,
		svc:      svc,
		cacheTTL: 7 * 24 * time.Hour,
		sessions: make(map[string]string),
	}
}

// GetOrCreate returns the session id for a user, creating one if needed.
// It never fails: when the service cannot create a session, a fallback
// id is recorded and returned, and downstream turns degrade gracefully.
func (r *Registry) GetOrCreate(ctx context.Context, userID string) string {
	r.mu.Lock()
	if id, ok := r.sessions[userID]; ok {
		r.mu.Unlock()
		return id
	}
	r.mu.Unlock()

	id := r.resolve(ctx, userID)

	// Insert-if-absent: when two turns for the same user race here,
	// the first recorded id wins and both turns use it.
	r.mu.Lock()
	if existing, ok := r.sessions[userID]; ok {
		r.mu.Unlock()
		return existing
	}
	r.sessions[userID] = id
	r.mu.Unlock()

	redis.SessionSet(ctx, userID, id, r.cacheTTL)
	return id
}

// resolve finds or creates a session id outside the registry lock.
func (r *Registry) resolve(ctx context.Context, userID string) string {
	if cached := redis.SessionGet(ctx, userID); cached != "" {
		log.Printf("[Session] Using cached session for %s: %s", userID, cached)
		return cached
	}

	existing, err := r.svc.ListSessions(ctx, r.appName, userID)
	if err != nil {
		log.Printf("[Session] Error checking existing sessions: %v", err)
	} else if len(existing) > 0 {
		log.Printf("[Session] Found existing session for %s: %s", userID, existing[0].ID)
		return existing[0].ID
	}

	created, err := r.svc.CreateSession(ctx, r.appName, userID)
	if err != nil {
		fallback := FallbackID(userID)
		log.Printf("[Session] Error creating session for %s, using fallback %s: %v", userID, fallback, err)
		return fallback
	}
	log.Printf("[Session] Created new session for %s: %s", userID, created.ID)
	return created.ID
}

// Len returns the number of recorded users.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// FallbackID derives a deterministic degraded-mode session id for a
// user. The agent runtime will not recognize it; turns that use it are
// expected to fail gracefully rather than crash the registry.
func FallbackID(userID string) string {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return fmt.Sprintf("fallback_%s_%04d", userID, h.Sum32()%10000)
}
