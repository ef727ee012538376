package server

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Routes is a set of handlers mounted on the HTTP server
type Routes interface {
	Register(router fiber.Router)
}

// HTTPServer serves a set of routes on one listen address
type HTTPServer struct {
	app  *fiber.App
	addr string
}

// NewHTTPServer creates a new HTTP server listening on addr (host:port)
func NewHTTPServer(addr string, routes ...Routes) *HTTPServer {
	app := fiber.New(fiber.Config{
		AppName:               "lesson-tutor",
		DisableStartupMessage: true,
		// Messages outlive the request; strings must not alias fasthttp buffers
		Immutable:             true,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          15 * time.Second,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[HTTP] ${time} ${status} ${method} ${path} ${latency}\n",
	}))

	for _, r := range routes {
		r.Register(app)
	}

	return &HTTPServer{app: app, addr: addr}
}

// App returns the underlying fiber app
func (s *HTTPServer) App() *fiber.App {
	return s.app
}

// Start listens until Shutdown is called
func (s *HTTPServer) Start() error {
	fmt.Printf("[Server] Listening on %s\n", s.addr)
	return s.app.Listen(s.addr)
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
