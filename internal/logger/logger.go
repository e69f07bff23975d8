package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu     sync.RWMutex
	logger = zerolog.Nop()
)

// Config holds the configuration for the logger
type Config struct {
	Level  string
	Output string // "stdout", "stderr", or file path
	Pretty bool   // Enable pretty logging for development
}

// New builds a logger from cfg without touching the global one
func New(cfg Config) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	output, err := openOutput(cfg.Output)
	if err != nil {
		return zerolog.Nop(), err
	}

	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: "2006-01-02 15:04:05",
		}
	}

	return zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger(), nil
}

// Init builds the global logger. Until Init succeeds, Get returns a no-op logger.
func Init(cfg Config) error {
	l, err := New(cfg)
	if err != nil {
		return err
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano

	mu.Lock()
	logger = l
	mu.Unlock()

	zerolog.DefaultContextLogger = &l
	return nil
}

// Get returns the logger instance
func Get() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := logger
	return &l
}

func openOutput(output string) (io.Writer, error) {
	switch output {
	case "", "stderr":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	}

	dir := filepath.Dir(output)
	if dir != "." && dir != string(filepath.Separator) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	file, err := os.OpenFile(output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return file, nil
}
