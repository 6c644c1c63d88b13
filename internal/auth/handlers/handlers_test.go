package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"html"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"testing"

	"github.com/brizzai/oauth-flow/internal/auth/flowerr"
	"github.com/brizzai/oauth-flow/internal/auth/models"
	"github.com/brizzai/oauth-flow/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const authURL = "https://accounts.google.com/o/oauth2/auth?access_type=offline&client_id=abc&redirect_uri=http%3A%2F%2Flocalhost%3A5000%2Foauth2callback&response_type=code&scope=email"

type fakeFlow struct {
	info  models.UserInfoResult
	err   error
	query url.Values
}

func (f *fakeFlow) AuthorizationURL() string { return authURL }

func (f *fakeFlow) HandleCallback(ctx context.Context, query url.Values) (models.UserInfoResult, error) {
	f.query = query
	return f.info, f.err
}

var hrefRe = regexp.MustCompile(`href="([^"]*)"`)

func hrefs(body string) []string {
	var out []string
	for _, m := range hrefRe.FindAllStringSubmatch(body, -1) {
		out = append(out, html.UnescapeString(m[1]))
	}
	return out
}

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	logger.SetLogger(zap.New(core))
	t.Cleanup(func() { logger.SetLogger(nil) })
	return logs
}

func TestHandleHome(t *testing.T) {
	h := NewHandler(&fakeFlow{})

	rec := httptest.NewRecorder()
	h.HandleHome(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Login with Google")
	assert.Equal(t, []string{authURL}, hrefs(rec.Body.String()))
}

func TestHandleHome_MethodNotAllowed(t *testing.T) {
	h := NewHandler(&fakeFlow{})
	rec := httptest.NewRecorder()
	h.HandleHome(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleCallback_Success(t *testing.T) {
	flow := &fakeFlow{info: models.UserInfoResult{
		"email":          "a@example.com",
		"verified_email": true,
		"name":           "<Alice>",
		"Timestamp":      "2024-01-02T03:04:05Z",
	}}
	h := NewHandler(flow)

	t.Run("html", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.HandleCallback(rec, httptest.NewRequest(http.MethodGet, "/oauth2callback?code=ABC123", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "Your Google info is:")
		assert.Contains(t, body, "<dt>email</dt><dd>a@example.com</dd>")
		assert.Contains(t, body, "<dt>verified_email</dt><dd>true</dd>")
		assert.Contains(t, body, "<dt>Timestamp</dt><dd>2024-01-02T03:04:05Z</dd>")
		assert.Contains(t, body, "&lt;Alice&gt;")
		assert.NotContains(t, body, "<Alice>")
		assert.Equal(t, "ABC123", flow.query.Get("code"))
	})

	t.Run("json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/oauth2callback?code=ABC123", nil)
		req.Header.Set("Accept", "application/json")
		rec := httptest.NewRecorder()
		h.HandleCallback(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var got map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "a@example.com", got["email"])
		assert.Equal(t, "2024-01-02T03:04:05Z", got["Timestamp"])
	})
}

func TestHandleCallback_Errors(t *testing.T) {
	secretish := errors.New("oauth2: cannot fetch token: 400 Bad Request Response: client_secret=shh")

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantFields map[string]interface{}
	}{
		{
			name:       "denied",
			err:        &flowerr.Error{Kind: flowerr.AuthorizationDenied, Detail: "access_denied"},
			wantStatus: http.StatusForbidden,
			wantCode:   "access_denied",
			wantFields: map[string]interface{}{"kind": "AuthorizationDenied", "provider_error": "access_denied"},
		},
		{
			name:       "missing code",
			err:        flowerr.New(flowerr.MissingAuthorizationCode, errors.New("no code")),
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_request",
			wantFields: map[string]interface{}{"kind": "MissingAuthorizationCode"},
		},
		{
			name:       "token exchange",
			err:        flowerr.WithStatus(flowerr.TokenExchangeFailed, 400, secretish),
			wantStatus: http.StatusBadGateway,
			wantCode:   "token_exchange_failed",
			wantFields: map[string]interface{}{"kind": "TokenExchangeFailed", "upstream_status": int64(400)},
		},
		{
			name:       "resource fetch",
			err:        flowerr.WithStatus(flowerr.ResourceFetchFailed, 401, errors.New("unauthorized")),
			wantStatus: http.StatusBadGateway,
			wantCode:   "resource_fetch_failed",
			wantFields: map[string]interface{}{"kind": "ResourceFetchFailed", "upstream_status": int64(401)},
		},
		{
			name:       "timeout",
			err:        flowerr.New(flowerr.UpstreamTimeout, context.DeadlineExceeded),
			wantStatus: http.StatusGatewayTimeout,
			wantCode:   "upstream_timeout",
			wantFields: map[string]interface{}{"kind": "UpstreamTimeout"},
		},
		{
			name:       "unclassified",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "server_error",
			wantFields: map[string]interface{}{"kind": "Unknown"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs := observeLogs(t)
			h := NewHandler(&fakeFlow{err: tt.err})

			rec := httptest.NewRecorder()
			h.HandleCallback(rec, httptest.NewRequest(http.MethodGet, "/oauth2callback?code=ABC123", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := rec.Body.String()
			assert.Contains(t, body, "Error:")
			assert.NotContains(t, body, "shh")
			assert.NotContains(t, body, "oauth2:")
			assert.Equal(t, []string{authURL}, hrefs(body), "error page links back to the login")

			entries := logs.FilterMessage("OAuth callback failed").All()
			require.Len(t, entries, 1)
			ctx := entries[0].ContextMap()
			for k, v := range tt.wantFields {
				assert.Equal(t, v, ctx[k], "log field %s", k)
			}

			req := httptest.NewRequest(http.MethodGet, "/oauth2callback?code=ABC123", nil)
			req.Header.Set("Accept", "application/json")
			rec = httptest.NewRecorder()
			h.HandleCallback(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var got map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.wantCode, got["error"])
			assert.NotContains(t, got["error_description"], "shh")
		})
	}
}

func TestHandleCallback_MethodNotAllowed(t *testing.T) {
	flow := &fakeFlow{}
	h := NewHandler(flow)
	rec := httptest.NewRecorder()
	h.HandleCallback(rec, httptest.NewRequest(http.MethodPost, "/oauth2callback?code=ABC123", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Nil(t, flow.query)
}

func TestDisplayValue(t *testing.T) {
	assert.Equal(t, "x", displayValue("x"))
	assert.Equal(t, "", displayValue(nil))
	assert.Equal(t, "42", displayValue(float64(42)))
	assert.Equal(t, `{"a":1}`, displayValue(map[string]interface{}{"a": 1}))
}
