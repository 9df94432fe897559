// Package redis provides an optional Redis client caching the
// user→session mapping across process restarts.
//
// Graceful fallback: if Redis is unavailable, operations silently return
// zero values instead of blocking the business logic.
package redis

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeySession prefixes user→session registry entries.
const KeySession = "lineagent:session:"

// Config holds Redis connection settings.
type Config struct {
	URL      string // redis://host:port
	Password string
	DB       int
}

var (
	client    *redis.Client
	connected bool
	mu        sync.RWMutex
)

// Init initializes the Redis connection. Returns true if connected.
func Init(cfg Config) bool {
	if cfg.URL == "" {
		log.Println("[Redis] URL not configured, skipping init")
		return false
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		log.Printf("[Redis] Invalid URL: %v", err)
		return false
	}

	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	opts.DB = cfg.DB
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.MaxRetries = 3

	c := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Ping(ctx).Err(); err != nil {
		log.Printf("[Redis] Connection failed: %v", err)
		return false
	}

	mu.Lock()
	client = c
	connected = true
	mu.Unlock()

	log.Println("[Redis] Connected")
	return true
}

// Close closes the Redis connection.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if client != nil {
		client.Close()
		client = nil
		connected = false
		log.Println("[Redis] Connection closed")
	}
}

// Client returns the Redis client. Returns nil if not available.
func Client() *redis.Client {
	mu.RLock()
	defer mu.RUnlock()
	if connected {
		return client
	}
	return nil
}

// IsAvailable checks if Redis is connected.
func IsAvailable() bool {
	mu.RLock()
	defer mu.RUnlock()
	return connected && client != nil
}

// SessionGet reads a cached session id for a user. Returns "" if
// unavailable or missing.
func SessionGet(ctx context.Context, userID string) string {
	c := Client()
	if c == nil {
		return ""
	}
	val, err := c.Get(ctx, KeySession+userID).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("[Redis] session get failed (%s): %v", userID, err)
		}
		return ""
	}
	return val
}

// SessionSet caches a session id for a user. Returns false on failure.
func SessionSet(ctx context.Context, userID, sessionID string, ttl time.Duration) bool {
	c := Client()
	if c == nil {
		return false
	}
	if err := c.Set(ctx, KeySession+userID, sessionID, ttl).Err(); err != nil {
		log.Printf("[Redis] session set failed (%s): %v", userID, err)
		return false
	}
	return true
}
