// Package httpapi exposes ingestion, query and health over HTTP.
package httpapi

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"docqa/internal/domain"
	"docqa/internal/progress"
)

// Ingester accepts uploaded documents.
type Ingester interface {
	Ingest(ctx context.Context, filename string, data []byte) (domain.IngestResult, error)
}

// Answerer answers questions against the index.
type Answerer interface {
	Answer(ctx context.Context, question string, k int) (domain.AnswerResponse, error)
}

// HealthChecker reports service health.
type HealthChecker interface {
	Check(ctx context.Context) domain.HealthStatus
}

// DocumentLister reads the document registry.
type DocumentLister interface {
	ListDocs() ([]domain.Document, error)
	GetDoc(id string) (domain.Document, error)
}

// Options configures the fiber app.
type Options struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	BodyLimitMB  int
	AllowOrigins []string
	AccessLog    bool
}

// Server is the HTTP front end.
type Server struct {
	app *fiber.App
}

func NewServer(
	opts Options,
	ingester Ingester,
	answerer Answerer,
	health HealthChecker,
	docs DocumentLister,
	tracker *progress.Tracker,
) *Server {
	cfg := fiber.Config{
		AppName:      "docqa",
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		ErrorHandler: errorHandler,
	}
	if opts.BodyLimitMB > 0 {
		cfg.BodyLimit = opts.BodyLimitMB * 1024 * 1024
	}
	app := fiber.New(cfg)

	app.Use(recover.New())
	if opts.AccessLog {
		app.Use(fiberlogger.New())
	}
	if len(opts.AllowOrigins) > 0 {
		app.Use(cors.New(cors.Config{
			AllowOrigins: opts.AllowOrigins,
			AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
		}))
	}

	NewIngestHandler(ingester, tracker).Register(app)
	NewQueryHandler(answerer, tracker).Register(app)
	NewStatusHandler(health, docs, tracker).Register(app)

	return &Server{app: app}
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves until Shutdown is called or the listener fails.
func (s *Server) Listen(addr string) error {
	slog.Info("http server listening", "addr", addr)
	return s.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
