// Package server runs the HTTP listener serving the login and callback routes.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/brizzai/oauth-flow/internal/auth"
	"github.com/brizzai/oauth-flow/internal/config"
	"github.com/brizzai/oauth-flow/internal/logger"
	"github.com/brizzai/oauth-flow/internal/server/handler"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	// shutdownTimeout is the maximum time to wait for server shutdown
	shutdownTimeout = 5 * time.Second

	defaultReadHeaderTimeout = 10 * time.Second
)

// Server owns the HTTP listener
type Server struct {
	config  *config.Config
	handler *handler.Handler

	mu   sync.Mutex
	addr string
}

// NewServer creates a new server for the given auth service
func NewServer(cfg *config.Config, authService *auth.Service) *Server {
	return &Server{
		config:  cfg,
		handler: handler.NewHandler(authService),
	}
}

// Addr returns the bound address once Listen succeeded, the configured one before
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addr != "" {
		return s.addr
	}
	return s.config.Server.Addr()
}

// Listen binds the configured address
func (s *Server) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.config.Server.Addr())
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", s.config.Server.Addr(), err)
	}
	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.mu.Unlock()
	return ln, nil
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	readHeaderTimeout := s.config.Server.ReadHeaderTimeout
	if readHeaderTimeout <= 0 {
		readHeaderTimeout = defaultReadHeaderTimeout
	}
	server := &http.Server{
		Handler:           s.handler.CreateHTTPHandler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Channel for server errors
	errChan := make(chan error, 1)

	go func() {
		logger.Info("Starting server", zap.String("address", ln.Addr().String()))

		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down server", zap.Duration("timeout", shutdownTimeout))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil

	case err := <-errChan:
		return err
	}
}

// Start listens and serves until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	ln, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Module provides the server and ties it to the fx lifecycle
var Module = fx.Module("server",
	fx.Provide(
		NewServer,
	),
	fx.Invoke(registerLifecycle),
)

// registerLifecycle binds the listener on start, so a busy port fails startup,
// and drains in-flight requests on stop. A serve error shuts the app down.
func registerLifecycle(lc fx.Lifecycle, s *Server, shutdowner fx.Shutdowner) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := s.Listen()
			if err != nil {
				cancel()
				return err
			}
			go func() {
				defer close(done)
				if err := s.Serve(ctx, ln); err != nil {
					logger.Error("Server stopped", zap.Error(err))
					if err := shutdowner.Shutdown(fx.ExitCode(1)); err != nil {
						logger.Error("Failed to request shutdown", zap.Error(err))
					}
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}
