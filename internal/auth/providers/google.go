package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/brizzai/oauth-flow/internal/auth/constants"
	"github.com/brizzai/oauth-flow/internal/auth/flowerr"
	"github.com/brizzai/oauth-flow/internal/auth/models"
	"github.com/brizzai/oauth-flow/internal/config"
	"github.com/brizzai/oauth-flow/internal/logger"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// maxProfileBytes caps how much of the resource response is decoded
const maxProfileBytes = 1 << 20

type GoogleProvider struct {
	oauth2Config *oauth2.Config
	resourceURL  string
	httpClient   *http.Client
	timeout      time.Duration
	stamper      *Stamper
}

// Option customizes a GoogleProvider
type Option func(*GoogleProvider)

// WithHTTPClient sets the client used for the token and resource calls
func WithHTTPClient(c *http.Client) Option {
	return func(p *GoogleProvider) {
		p.httpClient = c
	}
}

// WithClock overrides the time source of the Timestamp key
func WithClock(now func() time.Time) Option {
	return func(p *GoogleProvider) {
		p.stamper.Now = now
	}
}

func NewGoogleProvider(cfg *config.OAuthConfig, opts ...Option) (*GoogleProvider, error) {
	stamper, err := NewStamper(cfg.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("failed to load timestamp zone: %w", err)
	}

	p := &GoogleProvider{
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthorizeEndpoint,
				TokenURL: cfg.TokenEndpoint,
				// client_id and client_secret travel in the form body
				AuthStyle: oauth2.AuthStyleInParams,
			},
			RedirectURL: cfg.CallbackURL,
			Scopes:      cfg.Scopes(),
		},
		resourceURL: cfg.ResourceEndpoint,
		httpClient:  http.DefaultClient,
		timeout:     cfg.Timeout,
		stamper:     stamper,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// AuthURL builds the consent URL locally: client_id, redirect_uri, scope,
// response_type=code and access_type=offline appended to the authorize endpoint.
func (p *GoogleProvider) AuthURL() string {
	return p.oauth2Config.AuthCodeURL("", oauth2.AccessTypeOffline)
}

func (p *GoogleProvider) ExchangeCode(ctx context.Context, code string) (models.AccessToken, error) {
	ctx, cancel := p.callContext(ctx)
	defer cancel()

	token, err := p.oauth2Config.Exchange(ctx, code)
	if err != nil {
		status := 0
		var rErr *oauth2.RetrieveError
		if errors.As(err, &rErr) && rErr.Response != nil {
			status = rErr.Response.StatusCode
		}
		return "", flowerr.Upstream(flowerr.TokenExchangeFailed, status, fmt.Errorf("failed to exchange code: %w", err))
	}

	if token.AccessToken == "" {
		return "", flowerr.New(flowerr.TokenExchangeFailed, errors.New("token response has no access_token"))
	}

	logger.Debug("Exchanged authorization code",
		zap.String("token_type", token.Type()),
		zap.Bool("refresh_token", token.RefreshToken != ""),
	)
	return models.AccessToken(token.AccessToken), nil
}

func (p *GoogleProvider) FetchUserInfo(ctx context.Context, token models.AccessToken) (models.UserInfoResult, error) {
	ctx, cancel := p.callContext(ctx)
	defer cancel()

	// the transport sets Authorization: Bearer <token>, the token never goes in the URL
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: string(token),
		TokenType:   constants.TokenType,
	}))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.resourceURL, nil)
	if err != nil {
		return nil, flowerr.New(flowerr.ResourceFetchFailed, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, flowerr.Upstream(flowerr.ResourceFetchFailed, 0, fmt.Errorf("failed to call resource endpoint: %w", err))
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("Failed to close response body", zap.Error(err))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxProfileBytes))
		return nil, flowerr.WithStatus(flowerr.ResourceFetchFailed, resp.StatusCode,
			fmt.Errorf("resource request failed with status %d", resp.StatusCode))
	}

	var info models.UserInfoResult
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxProfileBytes)).Decode(&info); err != nil {
		return nil, flowerr.Upstream(flowerr.ResourceFetchFailed, resp.StatusCode, fmt.Errorf("failed to decode resource response: %w", err))
	}
	if info == nil {
		return nil, flowerr.WithStatus(flowerr.ResourceFetchFailed, resp.StatusCode, errors.New("resource response is not a JSON object"))
	}

	return p.stamper.Stamp(info), nil
}

// callContext bounds a single outbound call and routes it through the configured client
func (p *GoogleProvider) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient), cancel
}
