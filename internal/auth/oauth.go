package auth

import (
	"net/http"

	"github.com/brizzai/oauth-flow/internal/auth/constants"
	"github.com/brizzai/oauth-flow/internal/auth/handlers"
	"github.com/brizzai/oauth-flow/internal/auth/middleware"
	"github.com/brizzai/oauth-flow/internal/config"
)

// Service exposes the login page and the OAuth callback over HTTP
type Service struct {
	config  *config.OAuthConfig
	handler *handlers.Handler
}

// NewService creates a new OAuth service
func NewService(cfg *config.OAuthConfig, handler *handlers.Handler) *Service {
	return &Service{
		config:  cfg,
		handler: handler,
	}
}

// CallbackPath is the route the provider redirects back to, taken from the callback URL
func (s *Service) CallbackPath() string {
	return s.config.CallbackPath()
}

// RegisterRoutes registers the login and callback routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	// "/{$}" matches the root only, anything else is a 404
	mux.HandleFunc(constants.HomePath+"{$}", s.handler.HandleHome)
	mux.HandleFunc(s.CallbackPath(), s.handler.HandleCallback)
}

// WrapWithMiddleware wraps the mux with logging, panic recovery and security headers
func (s *Service) WrapWithMiddleware(handler http.Handler) http.Handler {
	return middleware.Chain(handler,
		middleware.RequestLogger,
		middleware.Recover,
		middleware.SecureHeaders,
	)
}
