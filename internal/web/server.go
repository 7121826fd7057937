// Package web provides the HTTP trigger for load runs.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/shipload/internal/config"
	"github.com/JonMunkholm/shipload/internal/core"
	"github.com/JonMunkholm/shipload/internal/metrics"
	mw "github.com/JonMunkholm/shipload/internal/web/middleware"
)

// Runner executes one load run. *core.Coordinator implements it.
type Runner interface {
	Run(ctx context.Context, src core.Sources) (*core.RunResult, error)
}

// Health reports store reachability.
type Health interface {
	Engine() string
	Ping(ctx context.Context) error
}

// Server is the HTTP server for triggering and inspecting runs.
type Server struct {
	runner  Runner
	health  Health
	sources core.Sources
	timeout time.Duration
	cfg     config.ServerConfig
	log     *slog.Logger
	router  *chi.Mux
	server  *http.Server

	gate *core.RunGate

	mu     sync.RWMutex
	latest *core.RunResult
}

// NewServer creates a new Server instance.
func NewServer(runner Runner, health Health, cfg *config.Config, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		runner: runner,
		health: health,
		sources: core.Sources{
			Direct:      cfg.Sources.Direct,
			JoinedLeft:  cfg.Sources.JoinedLeft,
			JoinedRight: cfg.Sources.JoinedRight,
			JoinKey:     cfg.Sources.JoinKey,
		},
		timeout: cfg.Run.Timeout,
		cfg:     cfg.Server,
		log:     log,
		router:  chi.NewRouter(),
		gate:    core.NewRunGate(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.WithLogger(s.log))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)

	// Security hardening
	s.router.Use(securityHeaders)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", metrics.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/runs", s.handleRun)
		r.Get("/runs/latest", s.handleLatestRun)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	s.log.Info("server starting", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// WaitForRun blocks until no run is in flight or ctx is done.
func (s *Server) WaitForRun(ctx context.Context) error {
	st := s.gate.Status()
	if !st.Active {
		return nil
	}
	s.log.Info("waiting for active run to finish", "since", st.Since)
	return s.gate.WaitIdle(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Latest returns the result of the most recent run, or nil.
func (s *Server) Latest() *core.RunResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

func (s *Server) setLatest(res *core.RunResult) {
	s.mu.Lock()
	s.latest = res
	s.mu.Unlock()
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Prevent MIME type sniffing
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// JSON only; nothing here should ever be framed or load resources
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")

		w.Header().Set("Referrer-Policy", "no-referrer")

		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON with the given status.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		mw.LoggerFrom(r).Error("json encode error", "error", err)
	}
}
