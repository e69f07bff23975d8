package middleware

import (
	"errors"
	"time"

	"github.com/bilgisen/staticd/internal/logger"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// LoggerConfig defines the config for the logger middleware
type LoggerConfig struct {
	// Skip defines a function to skip middleware.
	// Optional. Default: nil
	Next func(c *fiber.Ctx) bool

	// Logger is the zerolog logger instance to use.
	// If not provided, the default logger will be used.
	Logger *zerolog.Logger

	// Level is the level access lines are written at.
	// Optional. Default: zerolog.DebugLevel
	Level zerolog.Level

	// Fields to include in the logs
	Fields []string
}

// DefaultLoggerConfig is the default config
var DefaultLoggerConfig = LoggerConfig{
	Next:   nil,
	Level:  zerolog.DebugLevel,
	Fields: []string{"latency", "status", "method", "path", "ip", "user_agent", "bytes"},
}

// NewLogger creates a new middleware handler
func NewLogger(config ...LoggerConfig) fiber.Handler {
	// Set default config
	cfg := DefaultLoggerConfig

	// Override config if provided
	if len(config) > 0 {
		cfg = config[0]

		if len(cfg.Fields) == 0 {
			cfg.Fields = DefaultLoggerConfig.Fields
		}
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.Get()
	}

	// Create a set of fields for quick lookup
	fields := make(map[string]bool)
	for _, f := range cfg.Fields {
		fields[f] = true
	}

	return func(c *fiber.Ctx) error {
		if cfg.Next != nil && cfg.Next(c) {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()
		latency := time.Since(start)

		event := cfg.Logger.WithLevel(cfg.Level)
		if event == nil {
			return err
		}

		if fields["method"] {
			event = event.Str("method", c.Method())
		}
		if fields["path"] {
			event = event.Str("path", c.Path())
		}
		if fields["status"] {
			event = event.Int("status", StatusCode(c, err))
		}
		if fields["ip"] {
			event = event.Str("ip", c.IP())
		}
		if fields["user_agent"] {
			event = event.Str("user_agent", c.Get(fiber.HeaderUserAgent))
		}
		if fields["bytes"] {
			event = event.Int("bytes", BodySize(c))
		}
		if fields["latency"] {
			event = event.Dur("latency", latency)
		}

		// Not-found is the normal outcome for a miss; keep it out of the error field.
		if err != nil && StatusCode(c, err) >= fiber.StatusInternalServerError {
			event = event.Err(err)
		}

		event.Msg("request")

		return err
	}
}

// RequestLogger is the access logger used by the server
func RequestLogger() fiber.Handler {
	return NewLogger(LoggerConfig{
		Level:  zerolog.DebugLevel,
		Fields: []string{"latency", "status", "method", "path", "ip", "bytes"},
	})
}

// StatusCode returns the status the response will carry once err, if any,
// has been through the error handler.
func StatusCode(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var e *fiber.Error
	if errors.As(err, &e) {
		return e.Code
	}
	return fiber.StatusInternalServerError
}

// BodySize returns the response body length without draining a body stream.
func BodySize(c *fiber.Ctx) int {
	resp := c.Response()
	if resp.IsBodyStream() {
		return max(resp.Header.ContentLength(), 0)
	}
	return len(resp.Body())
}
