// Package http implements the REST API of Dojo Community Hub: the coach
// session screen, student progress and the admin roster import workflow.
package http

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/dojo-hub/dojo-community-hub/internal/application/command"
	"github.com/dojo-hub/dojo-community-hub/internal/application/query"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/belt"
	"github.com/dojo-hub/dojo-community-hub/internal/domain/roster"
	"github.com/dojo-hub/dojo-community-hub/internal/interface/http/handlers"
	"github.com/dojo-hub/dojo-community-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	// Host - address to bind (default: "0.0.0.0").
	Host string

	// Port - port to listen on (default: 8080).
	Port int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// RequestTimeout bounds the user context of every request.
	RequestTimeout time.Duration

	// BodyLimit - maximum request body size, sized for roster uploads.
	BodyLimit int

	EnableCORS     bool
	AllowedOrigins []string

	// APIKeyHeader and APIKeys guard the import routes. No keys means open.
	APIKeyHeader string
	APIKeys      []string
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8080,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    60 * time.Second,
		RequestTimeout: 30 * time.Second,
		BodyLimit:      6 << 20,
		EnableCORS:     true,
		AllowedOrigins: []string{"*"},
		APIKeyHeader:   "X-API-Key",
	}
}

// Address returns the server address string.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Dependencies contains all handlers the routes call into.
type Dependencies struct {
	// Commands
	CommitSession  *command.CommitSessionHandler
	SetReadiness   *command.SetReadinessHandler
	PromoteStudent *command.PromoteStudentHandler
	PreviewImport  *command.PreviewImportHandler
	EditImportRow  *command.EditImportRowHandler
	CommitImport   *command.CommitImportHandler

	// Queries
	GetProgress *query.GetStudentProgressHandler
	GetRoster   *query.GetRosterHandler

	Ledger *belt.Ledger

	// Drafts backs GET /imports/:id.
	Drafts roster.DraftStore

	// Template renders the downloadable import template.
	Template func() ([]byte, error)

	HealthChecker handlers.HealthChecker
	Logger        *logger.Logger
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server wraps the fiber application.
type Server struct {
	config    Config
	deps      Dependencies
	app       *fiber.App
	validator *Validator
	log       *logger.Logger

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewServer creates a server and registers every route.
func NewServer(config Config, deps Dependencies) *Server {
	s := &Server{
		config:    config,
		deps:      deps,
		validator: NewValidator(),
		log:       deps.Logger,
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	s.log = s.log.With(logger.Component("http"))
	if s.deps.HealthChecker == nil {
		s.deps.HealthChecker = handlers.NewCompositeHealthChecker("")
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "dojo-community-hub",
		DisableStartupMessage: true,
		ReadTimeout:           config.ReadTimeout,
		WriteTimeout:          config.WriteTimeout,
		IdleTimeout:           config.IdleTimeout,
		BodyLimit:             config.BodyLimit,
		ErrorHandler:          s.handleError,
	})

	s.app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	s.app.Use(handlers.RequestIDMiddleware(s.log, config.RequestTimeout))
	s.app.Use(handlers.LoggingMiddleware(s.log))
	if config.EnableCORS {
		s.app.Use(cors.New(cors.Config{
			AllowOrigins: joinOrigins(config.AllowedOrigins),
			AllowHeaders: "Content-Type, Authorization, X-API-Key, X-Request-ID",
			AllowMethods: "GET, POST, PATCH, OPTIONS",
		}))
	}

	s.setupRoutes()
	return s
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) setupRoutes() {
	s.app.Get("/health", s.handleHealth)

	api := s.app.Group("/api/v1")

	// ─────────────────────────────────────────────────────────────────────────
	// Coach endpoints
	// ─────────────────────────────────────────────────────────────────────────
	api.Get("/belts", s.handleListBelts)
	api.Get("/students", s.handleGetRoster)
	api.Get("/students/:id/progress", s.handleGetStudentProgress)
	api.Post("/students/:id/readiness", s.handleSetReadiness)
	api.Post("/students/:id/promote", s.handlePromoteStudent)
	api.Post("/sessions/commit", s.handleCommitSession)

	// ─────────────────────────────────────────────────────────────────────────
	// Admin import endpoints
	// ─────────────────────────────────────────────────────────────────────────
	auth := handlers.NewAPIKeyAuth(s.config.APIKeyHeader, s.config.APIKeys)
	imports := api.Group("/imports", auth.Middleware())
	imports.Get("/template", s.handleImportTemplate)
	imports.Post("/", s.handlePreviewImport)
	imports.Get("/:id", s.handleGetImport)
	imports.Patch("/:id/rows/:row", s.handleEditImportRow)
	imports.Post("/:id/commit", s.handleCommitImport)
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// App exposes the fiber application, mostly for app.Test in tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.log.Info("starting HTTP server", logger.String("address", s.config.Address()))

	if err := s.app.Listen(s.config.Address()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// StartAsync starts the server in a goroutine. The channel receives the
// listen error, if any, and is closed when the server stops.
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.log.Info("shutting down HTTP server")
	return s.app.ShutdownWithContext(ctx)
}

// Uptime returns how long the server has been running.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}

func joinOrigins(origins []string) string {
	if len(origins) == 0 {
		return "*"
	}
	return strings.Join(origins, ", ")
}
