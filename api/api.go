package api

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/dossier/pkg/logger"
	"github.com/papercomputeco/dossier/pkg/storage"
)

// Server is the API server for querying the session archive.
type Server struct {
	config Config
	storer storage.Driver
	logger *slog.Logger
	app    *fiber.App
}

// NewServer creates a new API server over storer.
func NewServer(config Config, storer storage.Driver, log *slog.Logger) *Server {
	if config.ListenAddr == "" {
		config.ListenAddr = DefaultListenAddr
	}
	if log == nil {
		log = logger.Nop()
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		storer: storer,
		logger: log,
		app:    app,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/v1/stats", s.handleStats)
	app.Get("/v1/sessions", s.handleListSessions)
	app.Get("/v1/sessions/:id", s.handleGetSession)
	app.Get("/v1/sessions/:id/document", s.handleGetDocument)

	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server", "listen", s.config.ListenAddr)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
