package auth

import (
	"github.com/brizzai/oauth-flow/internal/auth/flow"
	"github.com/brizzai/oauth-flow/internal/auth/handlers"
	"github.com/brizzai/oauth-flow/internal/auth/providers"
	"github.com/brizzai/oauth-flow/internal/config"
	"go.uber.org/fx"
)

// Module provides the OAuth flow dependencies, from the provider up to the Service
var Module = fx.Module("auth",
	fx.Provide(
		oauthConfig,
		fx.Annotate(
			newGoogleProvider,
			fx.As(new(providers.Provider)),
		),
		fx.Annotate(
			flow.NewController,
			fx.As(new(handlers.Flow)),
		),
		handlers.NewHandler,
		NewService,
	),
)

func oauthConfig(cfg *config.Config) *config.OAuthConfig {
	return &cfg.OAuth
}

func newGoogleProvider(cfg *config.OAuthConfig) (*providers.GoogleProvider, error) {
	return providers.NewGoogleProvider(cfg)
}
