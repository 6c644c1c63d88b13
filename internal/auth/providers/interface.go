package providers

import (
	"context"

	"github.com/brizzai/oauth-flow/internal/auth/models"
)

// Provider defines the network operations of the authorization code flow
type Provider interface {
	// AuthURL returns the authorization URL the user is sent to. It makes no network call.
	AuthURL() string

	// ExchangeCode exchanges an authorization code for an access token
	ExchangeCode(ctx context.Context, code string) (models.AccessToken, error)

	// FetchUserInfo calls the resource endpoint with the access token and
	// returns the profile with a Timestamp attached
	FetchUserInfo(ctx context.Context, token models.AccessToken) (models.UserInfoResult, error)
}
