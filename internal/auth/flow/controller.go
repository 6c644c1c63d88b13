// Package flow orchestrates the authorization code flow: build the consent
// URL, then on callback exchange the code and fetch the user profile.
package flow

import (
	"context"
	"errors"
	"net/url"

	"github.com/brizzai/oauth-flow/internal/auth/flowerr"
	"github.com/brizzai/oauth-flow/internal/auth/models"
	"github.com/brizzai/oauth-flow/internal/auth/providers"
	"github.com/brizzai/oauth-flow/internal/logger"
	"go.uber.org/zap"
)

// Controller holds no per-user state and is safe for concurrent use
type Controller struct {
	provider providers.Provider
}

// NewController creates a new Controller
func NewController(provider providers.Provider) *Controller {
	return &Controller{provider: provider}
}

// AuthorizationURL returns the provider consent URL
func (c *Controller) AuthorizationURL() string {
	return c.provider.AuthURL()
}

// HandleCallback turns the callback query into the user's profile. A provider
// error or a missing code fails before any outbound call; any failure is
// terminal for this request.
func (c *Controller) HandleCallback(ctx context.Context, query url.Values) (models.UserInfoResult, error) {
	cb := models.ParseCallback(query)

	if cb.Denied() {
		return nil, &flowerr.Error{
			Kind:   flowerr.AuthorizationDenied,
			Detail: cb.Error,
			Err:    errors.New("provider returned an error"),
		}
	}
	if cb.Code == "" {
		return nil, flowerr.New(flowerr.MissingAuthorizationCode, errors.New("callback has neither code nor error"))
	}

	token, err := c.provider.ExchangeCode(ctx, cb.Code)
	if err != nil {
		return nil, err
	}

	info, err := c.provider.FetchUserInfo(ctx, token)
	if err != nil {
		return nil, err
	}

	logger.Debug("Fetched user info", zap.Int("fields", len(info)))
	return info, nil
}
