// Package guard refuses entry to protected pages and commands when there is no
// authorized session. It is evaluated once per entry and never watches the store.
package guard

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/musickatta/katta-admin/internal/session"
	"github.com/musickatta/katta-admin/internal/telemetry"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrUnauthenticated = errors.New("please log in to continue")
	ErrForbidden       = errors.New("admin access is required")
)

type contextKey string

const sessionContextKey contextKey = "session"

// Check loads the session from store and applies the policy.
func Check(ctx context.Context, store session.Store, policy session.Policy) (session.Session, error) {
	s, err := store.Get(ctx)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("failed to read session")
		s = nil
	}

	switch {
	case s == nil || !s.LoggedIn():
		recordDenial(ctx, policy, "unauthenticated")
		return nil, ErrUnauthenticated
	case !session.Authorized(s, policy):
		recordDenial(ctx, policy, "forbidden")
		return nil, ErrForbidden
	}
	return s, nil
}

// ErrorCode is the error_code query value used on the login redirect.
func ErrorCode(err error) string {
	if errors.Is(err, ErrForbidden) {
		return "forbidden"
	}
	return "unauthenticated"
}

// StoreFunc binds a session store to a request.
type StoreFunc func(w http.ResponseWriter, r *http.Request) session.Store

// Guard protects web routes.
type Guard struct {
	stores   StoreFunc
	loginURL string
}

// New creates a guard redirecting refused requests to loginURL.
func New(stores StoreFunc, loginURL string) *Guard {
	return &Guard{stores: stores, loginURL: loginURL}
}

// Require is a middleware that runs the check for policy before next. On refusal it
// redirects to the login page with an error_code query parameter and writes nothing else.
// On success the session is added to the request context.
func (g *Guard) Require(policy session.Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := Check(r.Context(), g.stores(w, r), policy)
			if err != nil {
				code := ErrorCode(err)
				log.Ctx(r.Context()).Debug().
					Str("path", r.URL.Path).
					Str("policy", policy.String()).
					Str("error_code", code).
					Msg("Route guard refused entry, redirecting to login")

				http.Redirect(w, r, g.loginURL+"?"+url.Values{"error_code": {code}}.Encode(), http.StatusFound)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
		})
	}
}

// RequireFunc is Require for a handler function.
func (g *Guard) RequireFunc(policy session.Policy, next http.HandlerFunc) http.Handler {
	return g.Require(policy)(next)
}

// WithSession returns a context carrying s.
func WithSession(ctx context.Context, s session.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, s)
}

// SessionFromContext extracts the session stored by Require.
func SessionFromContext(ctx context.Context) (session.Session, bool) {
	s, ok := ctx.Value(sessionContextKey).(session.Session)
	return s, ok && s != nil
}

func recordDenial(ctx context.Context, policy session.Policy, reason string) {
	telemetry.GetMetrics().GuardDenialsTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("policy", policy.String()),
			attribute.String("reason", reason),
		))
}
