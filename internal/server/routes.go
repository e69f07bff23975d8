package server

import (
	"github.com/bilgisen/staticd/internal/middleware"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// setupRoutes wires the middleware chain and the catch-all file route.
// app.Get also answers HEAD; every other method gets 405.
func (s *Server) setupRoutes() {
	handlers := NewHandlers(s.root, s.config.CacheMaxAge)

	s.app.Use(recover.New())
	s.app.Use(s.metrics.Middleware())
	s.app.Use(middleware.RequestLogger())

	s.app.Get("/*", handlers.ServeFile)
}
