package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/brizzai/oauth-flow/internal/auth/constants"
	"github.com/brizzai/oauth-flow/internal/auth/flowerr"
	"github.com/brizzai/oauth-flow/internal/auth/models"
	"github.com/brizzai/oauth-flow/internal/logger"
	"github.com/brizzai/oauth-flow/internal/utils"
	"go.uber.org/zap"
)

// Flow is the part of the flow controller the handlers need
type Flow interface {
	AuthorizationURL() string
	HandleCallback(ctx context.Context, query url.Values) (models.UserInfoResult, error)
}

var (
	homeTemplate = template.Must(template.New("home").Parse(
		`<a href="{{.LoginURL}}">{{.LinkText}}</a>`))

	userInfoTemplate = template.Must(template.New("userinfo").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Your Google info</title></head>
<body>
<p>Your Google info is:</p>
<dl>
{{- range .Fields}}
<dt>{{.Key}}</dt><dd>{{.Value}}</dd>
{{- end}}
</dl>
<p><a href="{{.HomePath}}">Start over</a></p>
</body>
</html>
`))

	errorTemplate = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Sign-in failed</title></head>
<body>
<p>Error: {{.Message}}</p>
<a href="{{.LoginURL}}">{{.LinkText}}</a>
</body>
</html>
`))
)

type errorView struct {
	status  int
	code    string
	message string
}

// Messages are shown to the user as-is, they must never contain upstream details
var errorViews = map[flowerr.Kind]errorView{
	flowerr.AuthorizationDenied:      {http.StatusForbidden, "access_denied", "Access was denied."},
	flowerr.MissingAuthorizationCode: {http.StatusBadRequest, "invalid_request", "The sign-in response did not include an authorization code."},
	flowerr.TokenExchangeFailed:      {http.StatusBadGateway, "token_exchange_failed", "Could not complete sign-in with Google."},
	flowerr.ResourceFetchFailed:      {http.StatusBadGateway, "resource_fetch_failed", "Could not fetch your Google profile."},
	flowerr.UpstreamTimeout:          {http.StatusGatewayTimeout, "upstream_timeout", "Google did not respond in time."},
}

var unknownErrorView = errorView{http.StatusInternalServerError, "server_error", "Something went wrong."}

// Handler handles the login page and the OAuth callback
type Handler struct {
	flow Flow
}

// NewHandler creates a new Handler instance
func NewHandler(flow Flow) *Handler {
	return &Handler{flow: flow}
}

// HandleHome serves an HTML fragment linking to the authorization URL
func (h *Handler) HandleHome(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	utils.WriteHTML(w, http.StatusOK, homeTemplate, map[string]string{
		"LoginURL": h.flow.AuthorizationURL(),
		"LinkText": constants.LoginLinkText,
	})
}

// HandleCallback receives the provider redirect and responds with the user's
// profile, as JSON when the client asks for it and HTML otherwise.
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	info, err := h.flow.HandleCallback(r.Context(), r.URL.Query())
	if err != nil {
		h.writeFlowError(w, r, err)
		return
	}

	if wantsJSON(r) {
		utils.WriteJSON(w, http.StatusOK, info)
		return
	}

	utils.WriteHTML(w, http.StatusOK, userInfoTemplate, map[string]interface{}{
		"Fields":   sortedFields(info),
		"HomePath": constants.HomePath,
	})
}

func (h *Handler) writeFlowError(w http.ResponseWriter, r *http.Request, err error) {
	kind := flowerr.KindOf(err)

	fields := []zap.Field{zap.String("kind", kind.String())}
	if status := flowerr.StatusOf(err); status != 0 {
		fields = append(fields, zap.Int("upstream_status", status))
	}
	var fe *flowerr.Error
	if errors.As(err, &fe) && fe.Detail != "" {
		fields = append(fields, zap.String("provider_error", fe.Detail))
	}
	fields = append(fields, zap.Error(err))
	logger.Error("OAuth callback failed", fields...)

	view, ok := errorViews[kind]
	if !ok {
		view = unknownErrorView
	}

	if wantsJSON(r) {
		utils.WriteError(w, view.code, view.message, view.status)
		return
	}

	utils.WriteHTML(w, view.status, errorTemplate, map[string]string{
		"Message":  view.message,
		"LoginURL": h.flow.AuthorizationURL(),
		"LinkText": constants.LoginLinkText,
	})
}

type field struct {
	Key   string
	Value string
}

func sortedFields(info models.UserInfoResult) []field {
	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]field, 0, len(keys))
	for _, k := range keys {
		out = append(out, field{Key: k, Value: displayValue(info[k])})
	}
	return out
}

func displayValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
