package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/bilgisen/staticd/internal/config"
	"github.com/bilgisen/staticd/internal/logger"
	"github.com/bilgisen/staticd/internal/server"
)

func main() {
	// Interrupt or SIGTERM starts a graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Stderr)
	stop()
	os.Exit(code)
}

// run serves until ctx is cancelled and returns the process exit code:
// 0 after a requested shutdown, 1 when startup or serving fails.
func run(ctx context.Context, stderr io.Writer) int {
	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "staticd: %v\n", err)
		return 1
	}

	// Initialize logger
	if err := logger.Init(logger.Config{
		Level:  cfg.LogLevel,
		Output: cfg.LogOutput,
		Pretty: cfg.IsDevelopment(),
	}); err != nil {
		fmt.Fprintf(stderr, "staticd: %v\n", err)
		return 1
	}

	log := logger.Get()

	srv, err := server.New(cfg)
	if err != nil {
		log.Error().Err(err).Str("static_root", cfg.StaticRoot).Msg("Failed to initialize server")
		return 1
	}

	if err := srv.Start(); err != nil {
		log.Error().Err(err).Str("addr", cfg.Addr()).Msg("Failed to start server")
		return 1
	}

	exitCode := 0
	select {
	case <-ctx.Done():
		log.Debug().Msg("Shutting down server...")
	case err := <-srv.Err():
		log.Error().Err(err).Msg("Server error")
		exitCode = 1
	}

	// Create a deadline for graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Debug().Msg("Server exited properly")
	return exitCode
}
