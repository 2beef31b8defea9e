package limiter

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/httprate"

	"github.com/airportops/assetapi/internal/observability"
	"github.com/airportops/assetapi/internal/platform/httpx"
)

// Middleware applies a Limiter to HTTP routes. The client key is the
// request's remote address; chi's RealIP rewrites it when proxy headers are
// trusted.
type Middleware struct {
	Limiter Limiter
	Logger  *slog.Logger
	Metrics *observability.Metrics
	// KeyFunc overrides the client key derivation. Defaults to httprate.KeyByIP.
	KeyFunc httprate.KeyFunc
}

// Limit charges one request against endpoint's budget before next runs.
func (m Middleware) Limit(endpoint string) func(http.Handler) http.Handler {
	keyFunc := m.KeyFunc
	if keyFunc == nil {
		keyFunc = httprate.KeyByIP
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client, err := keyFunc(r)
			if err != nil {
				m.logger().Error("rate limit key", slog.Any("error", err))
				httpx.RespondError(w, err)
				return
			}
			decision, err := m.Limiter.Admit(r.Context(), client, endpoint)
			if errors.Is(err, ErrUnknownEndpoint) {
				m.logger().Warn("no rate limit rule", slog.String("endpoint", endpoint))
				next.ServeHTTP(w, r)
				return
			}
			if err != nil {
				m.logger().Error("rate limit admit", slog.Any("error", err), slog.String("endpoint", endpoint))
				httpx.RespondError(w, err)
				return
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			if !decision.Allowed {
				m.reject(w, endpoint, client, decision)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) reject(w http.ResponseWriter, endpoint, client string, d Decision) {
	m.Metrics.RateLimited(endpoint)
	m.logger().Info("rate limited",
		slog.String("endpoint", endpoint),
		slog.String("client", client),
		slog.Duration("retry_after", d.RetryAfter))
	secs := d.RetryAfterSeconds()
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	httpx.WriteProblem(w, httpx.ProblemDetail{
		Title:      "Too Many Requests",
		Status:     http.StatusTooManyRequests,
		Detail:     "rate limit exceeded for " + endpoint,
		RetryAfter: secs,
	})
}

func (m Middleware) logger() *slog.Logger {
	if m.Logger == nil {
		return slog.Default()
	}
	return m.Logger
}
