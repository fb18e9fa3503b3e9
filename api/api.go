package api

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/lucidjournal/lucidd/pkg/eventstream"
	"github.com/lucidjournal/lucidd/pkg/journal"
	"github.com/lucidjournal/lucidd/pkg/journal/worker"
)

// Server is the API server for the dream journal.
type Server struct {
	config    Config
	journal   *journal.Journal
	pool      *worker.Pool
	publisher eventstream.Publisher
	logger    *zap.Logger
	app       *fiber.App
}

// NewServer creates a new API server. The pool and publisher are optional;
// without a pool the enrich endpoint reports unavailable, without a publisher
// no events are emitted.
func NewServer(config Config, j *journal.Journal, pool *worker.Pool, publisher eventstream.Publisher, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:    config,
		journal:   j,
		pool:      pool,
		publisher: publisher,
		logger:    logger,
		app:       app,
	}

	app.Get("/ping", s.handlePing)

	app.Post("/api/dreams", s.handleCreateDream)
	app.Get("/api/dreams", s.handleGetDreams)
	app.Get("/api/dreams/search", s.handleSearchDreams)
	app.Get("/api/dreams/:id", s.handleGetDream)
	app.Put("/api/dreams/:id", s.handleUpdateDream)
	app.Get("/api/dreams/:id/analysis", s.handleGetAnalysis)
	app.Get("/api/dreams/:id/image", s.handleGetImage)
	app.Post("/api/dreams/:id/enrich", s.handleEnrichDream)

	return s
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
