// Package handler assembles the HTTP handler tree served by the server.
package handler

import (
	"net/http"

	"github.com/brizzai/oauth-flow/internal/auth"
	"github.com/brizzai/oauth-flow/internal/logger"
	"go.uber.org/zap"
)

// HealthPath answers liveness probes without touching the identity provider
const HealthPath = "/healthz"

// Handler manages HTTP request handling and middleware configuration.
type Handler struct {
	auth *auth.Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(auth *auth.Service) *Handler {
	return &Handler{
		auth: auth,
	}
}

// CreateHTTPHandler registers the OAuth routes and the health check and wraps
// everything in the auth middleware stack.
func (h *Handler) CreateHTTPHandler() http.Handler {
	mux := http.NewServeMux()

	h.auth.RegisterRoutes(mux)
	mux.HandleFunc(HealthPath, handleHealth)
	logger.Info("Registered routes",
		zap.String("home", "/"),
		zap.String("callback", h.auth.CallbackPath()),
		zap.String("health", HealthPath),
	)

	return h.auth.WrapWithMiddleware(mux)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}
