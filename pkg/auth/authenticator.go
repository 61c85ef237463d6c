// Package auth guards the scheduler's HTTP API with a pre-shared bearer
// token and provides the matching client transport.
package auth

import (
	"context"
	"net/http"
)

// Identity is the caller a request was authenticated as.
type Identity struct {
	Subject string
}

// Authenticator authenticates HTTP requests. Implementations must be safe
// for concurrent use.
//
// AuthenticateRequest returns (identity, true, nil) on success, (nil, false,
// nil) when the request carries no credentials, and (nil, false, err) when
// credentials are present but invalid.
type Authenticator interface {
	AuthenticateRequest(r *http.Request) (*Identity, bool, error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(r *http.Request) (*Identity, bool, error)

// AuthenticateRequest implements Authenticator.
func (f AuthenticatorFunc) AuthenticateRequest(r *http.Request) (*Identity, bool, error) {
	return f(r)
}

type contextKey int

const identityKey contextKey = iota

// IdentityFromContext returns the authenticated identity, or nil.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey).(*Identity)
	return id
}

// ContextWithIdentity attaches id to ctx.
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}
