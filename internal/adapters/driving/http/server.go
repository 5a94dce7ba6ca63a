// Package http exposes an operational API over the task queue and the
// ledgers, for driving a worker deployment remotely.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/storyforge-labs/storyforge-core/internal/core/ports/driven"
	"github.com/storyforge-labs/storyforge-core/internal/core/ports/driving"
)

// Pinger is a health check hook for a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server serves the operational HTTP API.
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string
	logger     *slog.Logger

	ledger driving.LedgerService
	queue  driven.TaskQueue

	// store and queueBackend are optional health check hooks.
	store        Pinger
	queueBackend Pinger
}

// Config holds server configuration.
type Config struct {
	Host    string
	Port    int
	Version string
	Logger  *slog.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Host:    "127.0.0.1",
		Port:    8080,
		Version: "dev",
	}
}

// NewServer creates the API server. queue may be nil when no queue backend
// is configured; the task endpoints then report 503.
func NewServer(cfg Config, ledger driving.LedgerService, queue driven.TaskQueue, store, queueBackend Pinger) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		router:       http.NewServeMux(),
		version:      cfg.Version,
		logger:       logger,
		ledger:       ledger,
		queue:        queue,
		store:        store,
		queueBackend: queueBackend,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      requestLogger(logger, s.router),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)

	s.router.HandleFunc("POST /api/v1/tasks/produce", s.handleEnqueueProduce)
	s.router.HandleFunc("GET /api/v1/tasks", s.handleListTasks)
	s.router.HandleFunc("GET /api/v1/tasks/stats", s.handleQueueStats)
	s.router.HandleFunc("GET /api/v1/tasks/{id}", s.handleGetTask)

	s.router.HandleFunc("GET /api/v1/ledger/produced", s.handleListProduced)
	s.router.HandleFunc("GET /api/v1/ledger/used", s.handleListUsed)
	s.router.HandleFunc("GET /api/v1/ledger/unsuitable", s.handleListUnsuitable)
	s.router.HandleFunc("POST /api/v1/ledger/unsuitable", s.handleMarkUnsuitable)
}

// Handler returns the routed handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until Stop is called. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	s.logger.Info("api server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
