// Package server runs the static file HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/bilgisen/staticd/internal/bundle"
	"github.com/bilgisen/staticd/internal/config"
	"github.com/bilgisen/staticd/internal/logger"
	"github.com/bilgisen/staticd/internal/metrics"
	"github.com/bilgisen/staticd/internal/middleware"
	"github.com/bilgisen/staticd/internal/static"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ErrClosed is returned by Start once the server has been stopped.
var ErrClosed = errors.New("server: closed")

// StartupError reports a failure that keeps the server from listening
type StartupError struct {
	Op  string
	Err error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("startup failed (%s): %v", e.Op, e.Err)
}

func (e *StartupError) Unwrap() error { return e.Err }

type state int

const (
	stateStopped state = iota
	stateListening
	stateClosed
)

// Server serves a single static root over HTTP
type Server struct {
	config   *config.Config
	app      *fiber.App
	root     *static.Root
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	mu            sync.Mutex
	state         state
	listener      net.Listener
	metricsServer *http.Server
	errCh         chan error
}

// New resolves the static root and builds the HTTP application. Nothing is
// bound until Start is called.
func New(cfg *config.Config) (*Server, error) {
	root, err := static.NewRoot(cfg.StaticRoot, static.Options{
		Index:    cfg.IndexFile,
		Dotfiles: cfg.ServeDotfiles,
	})
	if err != nil {
		return nil, &StartupError{Op: "root", Err: err}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &Server{
		config:   cfg,
		root:     root,
		registry: registry,
		metrics:  metrics.New(registry),
		app: fiber.New(fiber.Config{
			ReadTimeout:           cfg.HTTPTimeout,
			WriteTimeout:          cfg.HTTPTimeout,
			IdleTimeout:           120 * time.Second,
			ErrorHandler:          middleware.ErrorHandler,
			DisableStartupMessage: true,
		}),
	}
	s.setupRoutes()

	return s, nil
}

// Start binds the configured address and begins serving in the background.
// A bind failure is returned synchronously as a *StartupError.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case stateListening:
		return errors.New("server: already listening")
	case stateClosed:
		return ErrClosed
	}

	ln, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		return &StartupError{Op: "listen", Err: err}
	}

	var metricsLn net.Listener
	if s.config.MetricsPort > 0 {
		metricsLn, err = net.Listen("tcp", net.JoinHostPort(s.config.Host, fmt.Sprint(s.config.MetricsPort)))
		if err != nil {
			ln.Close()
			return &StartupError{Op: "metrics listen", Err: err}
		}
	}

	s.listener = ln
	s.errCh = make(chan error, 2)
	s.state = stateListening

	go func(errCh chan<- error) {
		if err := s.app.Listener(ln); err != nil {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}(s.errCh)

	if metricsLn != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
		s.metricsServer = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

		go func(srv *http.Server, errCh chan<- error) {
			if err := srv.Serve(metricsLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}(s.metricsServer, s.errCh)
	}

	port := ln.Addr().(*net.TCPAddr).Port
	log := logger.Get()
	log.Info().
		Str("static_root", s.root.Dir()).
		Int("port", port).
		Msgf("Listening on port %d", port)

	s.checkLayout()

	return nil
}

// checkLayout notes when the root does not look like the client bundle output
func (s *Server) checkLayout() {
	log := logger.Get()

	report, err := bundle.Verify(os.DirFS(s.root.Dir()), bundle.Client().Rebase("."))
	if err != nil {
		log.Warn().Err(err).Msg("Could not verify static root layout")
		return
	}
	if len(report.Missing) > 0 {
		log.Debug().Strs("missing", report.Missing).Msg("Static root is missing expected bundle output")
	}
	if len(report.Unexpected) > 0 {
		log.Debug().Strs("unexpected", report.Unexpected).Msg("Static root contains build inputs")
	}
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Err delivers errors from the background listeners after a successful Start.
func (s *Server) Err() <-chan error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errCh
}

// Stop gracefully shuts the server down, waiting for in-flight requests
// until ctx is done. It is safe to call more than once.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateListening {
		s.state = stateClosed
		return nil
	}
	s.state = stateClosed

	var errs []error
	if s.metricsServer != nil {
		if err := s.metricsServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server: %w", err))
		}
	}
	if err := s.app.ShutdownWithContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http server: %w", err))
	}

	return errors.Join(errs...)
}
