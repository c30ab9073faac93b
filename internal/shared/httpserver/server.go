package httpserver

import (
	"context"
	"time"

	"github.com/cristianortiz/vendorAuctions/internal/shared/logger"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// RouteRegistrar is implemented by every module that exposes HTTP routes
type RouteRegistrar interface {
	RegisterRoutes(r fiber.Router)
}

type Server struct {
	app *fiber.App
}

var log = logger.GetLogger()

// NewServer builds the fiber app with request logging, /health and the routes of every module.
// errorHandler renders errors returned by handlers, nil keeps fiber's default.
func NewServer(errorHandler fiber.ErrorHandler, modules ...RouteRegistrar) *Server {
	cfg := fiber.Config{
		AppName:      "vendor-auctions",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	if errorHandler != nil {
		cfg.ErrorHandler = errorHandler
	}
	app := fiber.New(cfg)

	// logging middleware
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		if err != nil {
			// let the error handler set the final status before logging it
			if hErr := app.ErrorHandler(c, err); hErr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}
		log.Info("HTTP request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("latency", time.Since(start)),
			zap.String("remote_addr", c.IP()),
		)
		return nil
	})

	// health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	})

	for _, m := range modules {
		m.RegisterRoutes(app)
	}

	return &Server{app: app}
}

// App exposes the fiber app, tests drive it through app.Test
func (s *Server) App() *fiber.App {
	return s.app
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context, addr string) error {
	go func() {
		<-ctx.Done()
		log.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown failed", zap.Error(err))
		}
	}()

	log.Info("HTTP server started", zap.String("addr", addr))
	return s.app.Listen(addr)
}
