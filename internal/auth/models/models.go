package models

import (
	"net/url"

	"github.com/brizzai/oauth-flow/internal/auth/constants"
)

// CallbackResult is what the provider sent back to the redirect URI.
// Exactly one of Error and Code is normally set.
type CallbackResult struct {
	Error string
	Code  string
}

// ParseCallback extracts the error and code parameters from the callback query
func ParseCallback(query url.Values) CallbackResult {
	return CallbackResult{
		Error: query.Get(constants.QueryError),
		Code:  query.Get(constants.QueryCode),
	}
}

// Denied reports whether the provider returned an error instead of a code
func (c CallbackResult) Denied() bool {
	return c.Error != ""
}

// AccessToken is an opaque bearer credential. It is only held long enough to
// call the resource endpoint.
type AccessToken string

// String hides the token value from fmt and log output
func (t AccessToken) String() string {
	if t == "" {
		return ""
	}
	return "[redacted]"
}

// UserInfoResult is the provider's user profile plus the injected Timestamp
type UserInfoResult map[string]interface{}
