package auth

import (
	"log/slog"
	"net/http"
)

// DefaultExcludedPaths are served without authentication.
var DefaultExcludedPaths = []string{"/healthz", "/readyz", "/metrics"}

// Middleware rejects unauthenticated requests.
type Middleware struct {
	auth     Authenticator
	excluded map[string]bool
	logger   *slog.Logger
}

// Option configures a Middleware.
type Option func(*Middleware)

// WithExcludedPaths replaces the unauthenticated paths.
func WithExcludedPaths(paths ...string) Option {
	return func(m *Middleware) {
		m.excluded = make(map[string]bool, len(paths))
		for _, p := range paths {
			m.excluded[p] = true
		}
	}
}

// WithLogger sets the logger used for rejected requests.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Middleware) {
		m.logger = logger
	}
}

// NewMiddleware creates a middleware around auth.
func NewMiddleware(auth Authenticator, opts ...Option) *Middleware {
	m := &Middleware{auth: auth, logger: slog.Default()}
	WithExcludedPaths(DefaultExcludedPaths...)(m)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Wrap authenticates every request to next except the excluded paths.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.excluded[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		id, ok, err := m.auth.AuthenticateRequest(r)
		if err != nil {
			m.logger.Warn("authentication failed",
				slog.String("path", r.URL.Path),
				slog.String("remote", r.RemoteAddr),
				slog.String("error", err.Error()),
			)
			w.Header().Set("WWW-Authenticate", `Bearer realm="cass"`)
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		if !ok {
			w.Header().Set("WWW-Authenticate", `Bearer realm="cass"`)
			http.Error(w, "missing authorization header", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), id)))
	})
}

// Protect wraps next when token is set and returns it unchanged otherwise.
func Protect(token string, next http.Handler, opts ...Option) http.Handler {
	a := NewBearerTokenAuthenticator(token, "client:api")
	if !a.Enabled() {
		return next
	}
	return NewMiddleware(a, opts...).Wrap(next)
}
