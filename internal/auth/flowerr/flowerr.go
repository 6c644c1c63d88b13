// Package flowerr defines the failure kinds of the authorization code flow.
package flowerr

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind classifies a flow failure
type Kind int

const (
	Unknown Kind = iota
	// AuthorizationDenied means the provider redirected back with an error parameter
	AuthorizationDenied
	// MissingAuthorizationCode means the callback carried neither code nor error
	MissingAuthorizationCode
	// TokenExchangeFailed covers non-2xx and malformed token endpoint responses
	TokenExchangeFailed
	// ResourceFetchFailed covers non-2xx and malformed resource endpoint responses
	ResourceFetchFailed
	// UpstreamTimeout means an outbound call exceeded its deadline
	UpstreamTimeout
)

var kindNames = map[Kind]string{
	Unknown:                  "Unknown",
	AuthorizationDenied:      "AuthorizationDenied",
	MissingAuthorizationCode: "MissingAuthorizationCode",
	TokenExchangeFailed:      "TokenExchangeFailed",
	ResourceFetchFailed:      "ResourceFetchFailed",
	UpstreamTimeout:          "UpstreamTimeout",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is a classified flow failure.
type Error struct {
	Kind Kind
	// Status is the upstream HTTP status, 0 when no response was received
	Status int
	// Detail is extra context for logs, e.g. the provider's error parameter
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Detail)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an Error of the given kind
func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// WithStatus returns an Error of the given kind carrying the upstream status
func WithStatus(kind Kind, status int, err error) *Error {
	return &Error{Kind: kind, Status: status, Err: err}
}

// Upstream classifies an error from an outbound call: deadline and network
// timeouts become UpstreamTimeout, everything else the given kind.
func Upstream(kind Kind, status int, err error) *Error {
	if IsTimeout(err) {
		kind = UpstreamTimeout
	}
	return WithStatus(kind, status, err)
}

// IsTimeout reports whether err was caused by an expired deadline
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// KindOf returns the Kind of the first *Error in err's chain, or Unknown
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// StatusOf returns the upstream status recorded in err's chain, or 0
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}
