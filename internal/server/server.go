// Package server exposes prompt conversion over HTTP.
//
// Routes:
//
//	GET  /health                        liveness and the list of providers
//	POST /v1/convert/:provider          convert the prompt record in the body
//	GET  /v1/prompts/:name              describe a registry prompt and its variables
//	GET  /v1/prompts/:name/:provider    convert a registry prompt; ?tag= selects the tag,
//	                                    other query parameters become variables
//
// A conversion that yields no parameters answers 422 with
// "prompt cannot be used with this provider".
package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"go.opentelemetry.io/otel/trace"

	"github.com/skosovsky/promptsdk"
)

const defaultBodyLimit = 1 << 20

// Server wires the conversion handlers into a fiber app.
type Server struct {
	app      *fiber.App
	registry promptsdk.PromptRegistry
	logger   *slog.Logger
	tracer   trace.TracerProvider
	limit    int
}

// Option configures a Server.
type Option func(*Server)

// WithRegistry enables the /v1/prompts routes backed by r.
func WithRegistry(r promptsdk.PromptRegistry) Option {
	return func(s *Server) { s.registry = r }
}

// WithLogger sets the logger for request and conversion logs. Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithTracerProvider sets the tracer provider for conversion spans. Default is the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Server) { s.tracer = tp }
}

// WithBodyLimit sets the maximum request body size in bytes. Default is 1 MiB.
func WithBodyLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.limit = n
		}
	}
}

// New builds the server and registers its routes.
func New(opts ...Option) *Server {
	s := &Server{limit: defaultBodyLimit}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.app = fiber.New(fiber.Config{
		AppName:         "promptconv",
		BodyLimit:       s.limit,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		ErrorHandler:    s.handleError,
		StructValidator: structValidator{v: validator.New(validator.WithRequiredStructEnabled())},
	})
	s.app.Use(requestid.New())
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			s.logger.Error("panic recovered", "path", c.Path(), "request_id", requestid.FromContext(c), "panic", e)
		},
	}))
	s.app.Use(s.logRequests)
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/health", s.health)
	v1 := s.app.Group("/v1")
	v1.Post("/convert/:provider", s.convertRecord)
	v1.Get("/prompts/:name", s.describePrompt)
	v1.Get("/prompts/:name/:provider", s.convertRegistryPrompt)
}

// App returns the underlying fiber app (for tests and embedding).
func (s *Server) App() *fiber.App { return s.app }

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
}

// Shutdown stops accepting connections and waits for in-flight requests until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) logRequests(c fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	status := c.Response().StatusCode()
	if fe, ok := err.(*fiber.Error); ok {
		status = fe.Code
	}
	s.logger.Info("request",
		"method", c.Method(),
		"path", c.Path(),
		"status", status,
		"duration", time.Since(start),
		"request_id", requestid.FromContext(c),
	)
	return err
}

// structValidator adapts validator/v10 to fiber's binder.
type structValidator struct {
	v *validator.Validate
}

func (sv structValidator) Validate(out any) error { return sv.v.Struct(out) }
