package middleware

import (
	"net/http"

	"github.com/bilgisen/staticd/internal/logger"
	"github.com/gofiber/fiber/v2"
)

// ErrorHandler turns handler errors into minimal plain-text responses.
// Only 5xx responses are logged; 404s are a normal outcome for a file server.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := StatusCode(c, err)

	if code >= fiber.StatusInternalServerError {
		logger.Get().Error().
			Err(err).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", code).
			Msg("HTTP error")
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.Status(code).SendString(http.StatusText(code))
}
