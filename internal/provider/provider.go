// Package provider holds the infrastructure shared by the upstream
// catalog clients: provider identities, the error taxonomy, per-provider
// rate limiting, and credential storage.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Name uniquely identifies an upstream catalog provider.
type Name string

// Known provider names.
const (
	NameSpotify Name = "spotify"
	NameDiscogs Name = "discogs"
)

// AllNames returns all known provider names in display order.
func AllNames() []Name {
	return []Name{NameSpotify, NameDiscogs}
}

// DisplayName returns a human-readable name for the provider.
func (n Name) DisplayName() string {
	switch n {
	case NameSpotify:
		return "Spotify"
	case NameDiscogs:
		return "Discogs"
	default:
		return string(n)
	}
}

// maxErrorBody caps how much of an upstream error body is kept for
// diagnostics.
const maxErrorBody = 256

// ErrUnavailable indicates the upstream returned a non-2xx response
// outside the handled auth cases. It carries the upstream status code and
// a truncated copy of the response body.
type ErrUnavailable struct {
	Provider   Name
	StatusCode int
	Body       string
	Cause      error
}

func (e *ErrUnavailable) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s unavailable: HTTP %d: %s", e.Provider, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("provider %s unavailable: %v", e.Provider, e.Cause)
}

func (e *ErrUnavailable) Unwrap() error { return e.Cause }

// Unavailable builds an ErrUnavailable from an upstream status and body,
// truncating the body for diagnostics.
func Unavailable(name Name, status int, body []byte) *ErrUnavailable {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &ErrUnavailable{Provider: name, StatusCode: status, Body: string(body)}
}

// ErrTimeout indicates an upstream request exceeded its deadline.
type ErrTimeout struct {
	Provider Name
	Cause    error
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("provider %s: request timed out: %v", e.Provider, e.Cause)
}

func (e *ErrTimeout) Unwrap() error { return e.Cause }

// ErrAuthFailed indicates the credential exchange failed, or a retried
// request still came back unauthorized.
type ErrAuthFailed struct {
	Provider Name
	Cause    error
}

func (e *ErrAuthFailed) Error() string {
	return fmt.Sprintf("provider %s: authentication failed: %v", e.Provider, e.Cause)
}

func (e *ErrAuthFailed) Unwrap() error { return e.Cause }

// ErrAuthRequired indicates the provider needs credentials but none are
// configured.
type ErrAuthRequired struct {
	Provider Name
}

func (e *ErrAuthRequired) Error() string {
	return fmt.Sprintf("provider %s: credentials not configured", e.Provider)
}

// WrapTransportError classifies a transport-level failure from
// http.Client.Do into the taxonomy: deadline and network timeouts become
// ErrTimeout, everything else ErrUnavailable.
func WrapTransportError(name Name, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ErrTimeout{Provider: name, Cause: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &ErrTimeout{Provider: name, Cause: err}
	}
	return &ErrUnavailable{Provider: name, Cause: err}
}
