package rbac

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/airportops/assetapi/internal/observability"
	"github.com/airportops/assetapi/internal/platform/httpx"
)

// Middleware wires the Guard into HTTP handlers.
type Middleware struct {
	Guard   *Guard
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// Require enforces the permission table entry for action. Public actions
// resolve an optional identity.
func (m Middleware) Require(action Action) func(http.Handler) http.Handler {
	allowed, ok := Required(action)
	if !ok {
		m.logger().Error("rbac action missing from policy", slog.String("action", string(action)))
		return func(http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				m.deny(w, r, ErrForbidden)
			})
		}
	}
	if allowed == nil {
		return m.Optional()
	}
	return m.require(allowed)
}

// RequireRoles authenticates the caller and requires membership in roles.
func (m Middleware) RequireRoles(roles ...Role) func(http.Handler) http.Handler {
	return m.require(NewRoleSet(roles...))
}

func (m Middleware) require(allowed RoleSet) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := m.Guard.Authenticate(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				m.deny(w, r, err)
				return
			}
			if err := Authorize(id, allowed); err != nil {
				m.deny(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// Optional attaches an identity when a valid bearer token is present. A
// missing header is not an error; a present but invalid one is.
func (m Middleware) Optional() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := m.Guard.Authenticate(r.Context(), r.Header.Get("Authorization"))
			switch {
			case err == nil:
				next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
			case errors.Is(err, ErrNoCredentials):
				next.ServeHTTP(w, r)
			default:
				m.deny(w, r, err)
			}
		})
	}
}

func (m Middleware) deny(w http.ResponseWriter, r *http.Request, err error) {
	reason := failureReason(err)
	m.Metrics.AuthFailure(reason)
	if reason == "internal" {
		m.logger().Error("rbac authenticate", slog.Any("error", err), slog.String("path", r.URL.Path))
	} else {
		m.logger().Debug("rbac denied", slog.String("reason", reason), slog.String("path", r.URL.Path))
	}
	httpx.RespondError(w, err)
}

func (m Middleware) logger() *slog.Logger {
	if m.Logger == nil {
		return slog.Default()
	}
	return m.Logger
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNoCredentials):
		return "missing_token"
	case errors.Is(err, ErrMalformedHeader):
		return "malformed_header"
	case errors.Is(err, ErrUnknownIdentity):
		return "unknown_principal"
	case errors.Is(err, ErrUnauthenticated):
		return "invalid_token"
	default:
		return "internal"
	}
}
