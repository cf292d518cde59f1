// Package server exposes the triage pipeline and the data gateway over HTTP.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/udahub/internal/checkpoint"
	"github.com/ziadkadry99/udahub/internal/pipeline"
	"github.com/ziadkadry99/udahub/internal/specialist"
)

// DefaultRequestTimeout bounds one API request. A ticket run makes three
// stage calls, so it is longer than a single stage timeout.
const DefaultRequestTimeout = 3 * time.Minute

// Config holds server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string
	AllowAll       bool // allow all CORS origins (dev mode)
	RequestTimeout time.Duration
}

// Runner runs tickets through the pipeline.
type Runner interface {
	RunTicket(ctx context.Context, t pipeline.Ticket, threadID string, observers ...pipeline.Observer) (*pipeline.Result, error)
}

// Server is the udahub HTTP API.
type Server struct {
	cfg         Config
	runner      Runner
	lookups     specialist.Lookups
	checkpoints checkpoint.Checkpointer
	router      chi.Router
	upgrader    websocket.Upgrader
	httpServer  *http.Server
}

// defaultOrigins are allowed when no origins are configured.
var defaultOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}

// New creates a server. checkpoints may be nil, in which case thread
// lookups report not found.
func New(cfg Config, runner Runner, lookups specialist.Lookups, checkpoints checkpoint.Checkpointer) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	s := &Server{
		cfg:         cfg,
		runner:      runner,
		lookups:     lookups,
		checkpoints: checkpoints,
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}

	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS
	corsOpts := cors.Options{
		AllowedOrigins: s.origins(),
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// The stage stream is long-lived and stays outside the request timeout.
	r.Get("/ws", s.handleStream)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(s.cfg.RequestTimeout))

		r.Post("/tickets", s.handleCreateTicket)
		r.Get("/threads/{threadID}", s.handleGetThread)
		r.Get("/threads/{threadID}/history", s.handleThreadHistory)

		r.Route("/tools", func(r chi.Router) {
			r.Get("/account", s.handleAccount)
			r.Get("/subscription", s.handleSubscription)
			r.Get("/reservations", s.handleReservations)
			r.Get("/knowledge", s.handleKnowledge)
		})
	})

	return r
}

// origins returns the configured CORS allow-list.
func (s *Server) origins() []string {
	if len(s.cfg.AllowedOrigins) == 0 {
		return defaultOrigins
	}
	return s.cfg.AllowedOrigins
}

// checkOrigin applies the CORS allow-list to WebSocket upgrades. Requests
// without an Origin header come from non-browser clients and are allowed.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || s.cfg.AllowAll {
		return true
	}
	return originAllowed(s.origins(), origin)
}

// originAllowed matches origin against patterns case-insensitively. A
// pattern may hold one "*" standing for any run of characters.
func originAllowed(patterns []string, origin string) bool {
	origin = strings.ToLower(origin)
	for _, p := range patterns {
		p = strings.ToLower(p)
		if p == "*" || p == origin {
			return true
		}
		prefix, suffix, ok := strings.Cut(p, "*")
		if ok && len(origin) >= len(prefix)+len(suffix) &&
			strings.HasPrefix(origin, prefix) && strings.HasSuffix(origin, suffix) {
			return true
		}
	}
	return false
}

// Router returns the chi router.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("udahub server listening on %s", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
