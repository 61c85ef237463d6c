package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

var (
	// ErrInvalidToken is returned when a token is present but wrong.
	ErrInvalidToken = errors.New("invalid bearer token")

	// ErrMalformedAuthHeader is returned when the Authorization header is not "Bearer <token>".
	ErrMalformedAuthHeader = errors.New("malformed authorization header")
)

// BearerTokenAuthenticator checks requests against a static token.
type BearerTokenAuthenticator struct {
	token   []byte
	subject string
}

// NewBearerTokenAuthenticator creates an authenticator for token. An empty
// token authenticates nothing.
func NewBearerTokenAuthenticator(token, subject string) *BearerTokenAuthenticator {
	var b []byte
	if token != "" {
		b = []byte(token)
	}
	return &BearerTokenAuthenticator{token: b, subject: subject}
}

// Enabled reports whether a token is configured.
func (a *BearerTokenAuthenticator) Enabled() bool {
	return len(a.token) > 0
}

// AuthenticateRequest implements Authenticator.
func (a *BearerTokenAuthenticator) AuthenticateRequest(r *http.Request) (*Identity, bool, error) {
	if len(a.token) == 0 {
		return nil, false, nil
	}

	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, false, nil
	}
	provided, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || provided == "" {
		return nil, false, ErrMalformedAuthHeader
	}

	if subtle.ConstantTimeCompare([]byte(provided), a.token) != 1 {
		return nil, false, ErrInvalidToken
	}
	return &Identity{Subject: a.subject}, true, nil
}
