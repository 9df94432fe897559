// Package gateway is the webhook-facing HTTP server: it verifies and
// decodes LINE deliveries, fans the events out to the turn worker pool
// through the message bus, and delivers replies back to LINE.
package gateway

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/worawit-m/lineagent/internal/agent"
	"github.com/worawit-m/lineagent/internal/bus"
	"github.com/worawit-m/lineagent/internal/lane"
	"github.com/worawit-m/lineagent/internal/line"
)

// LINE webhook bodies are small; anything bigger is not LINE.
const maxWebhookBody = 1 << 20

// Concurrent reply deliveries.
const outboundDispatchers = 4

// Server wires the webhook handler, the message bus, the per-user
// lanes, and the turn runner together.
type Server struct {
	addr          string
	channelSecret string
	allowFrom     map[string]struct{}
	workers       int

	bus   *bus.MessageBus
	line  *line.Client
	turns *agent.TurnRunner
	lanes *lane.Manager

	httpServer *http.Server
	wg         sync.WaitGroup
}

// ServerConfig configures a Server.
type ServerConfig struct {
	Host          string
	Port          int
	ChannelSecret string
	AllowFrom     []string // empty admits everyone
	Workers       int      // turn worker pool size (default 8)
}

// NewServer creates a Server. The lane manager is owned by the server
// and stopped with it.
func NewServer(cfg ServerConfig, msgBus *bus.MessageBus, lineClient *line.Client, turns *agent.TurnRunner) *Server {
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	allow := make(map[string]struct{}, len(cfg.AllowFrom))
	for _, id := range cfg.AllowFrom {
		allow[id] = struct{}{}
	}

	s := &Server{
		addr:          fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		channelSecret: cfg.ChannelSecret,
		allowFrom:     allow,
		workers:       cfg.Workers,
		bus:           msgBus,
		line:          lineClient,
		turns:         turns,
	}
	s.lanes = lane.NewManager(lane.ManagerConfig{Handler: s.runTurn})
	return s
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// LINE posts to the path configured in the OA console; both the
	// bare root and /webhook are accepted so deployments can use either.
	r.Post("/", s.handleWebhook)
	r.Post("/webhook", s.handleWebhook)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Run starts the workers, the outbound dispatcher, and the HTTP
// listener, and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.bus.Subscribe(s.deliver)
	s.runWorkers(ctx, s.workers)
	// Several dispatchers so one slow LINE API call does not queue
	// every other user's reply behind it.
	for i := 0; i < outboundDispatchers; i++ {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.bus.DispatchOutbound(ctx)
		}()
	}

	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[Gateway] listening on %s", s.addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
		s.wg.Wait()
		s.lanes.Stop()
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}
}
