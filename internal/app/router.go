package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/airportops/assetapi/internal/assets"
	"github.com/airportops/assetapi/internal/auth"
	"github.com/airportops/assetapi/internal/observability"
	"github.com/airportops/assetapi/internal/platform/httpx"
	"github.com/airportops/assetapi/internal/rbac"
	"github.com/airportops/assetapi/internal/users"
	"github.com/airportops/assetapi/jobs"
)

// ServiceName is reported by the root endpoint.
const ServiceName = "airport-asset-api"

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	AuthHandler        *auth.Handler
	UsersHandler       *users.Handler
	AssetsHandler      *assets.Handler
	PermissionsHandler *rbac.PermissionsHandler
	JobHandler         *jobs.Handler
	RBACMiddleware     rbac.Middleware
	Metrics            *observability.Metrics
	HealthChecks       map[string]HealthCheck
}

// NewRouter constructs the chi.Router with API defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}
	if !InTestMode() {
		r.Use(chimw.Logger)
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		env := ""
		if params.Config != nil {
			env = params.Config.AppEnv
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"service": ServiceName, "env": env})
	})
	health := healthHandler(params.HealthChecks)
	r.Get("/health", health)
	r.Get("/healthz", health)

	r.Route("/auth", func(r chi.Router) {
		params.AuthHandler.MountRoutes(r)
		if params.UsersHandler != nil {
			params.UsersHandler.MountRoutes(r)
		}
		if params.PermissionsHandler != nil {
			r.Route("/permissions", params.PermissionsHandler.MountRoutes)
		}
	})
	r.Route("/assets", params.AssetsHandler.MountRoutes)
	if params.JobHandler != nil {
		r.Route("/jobs", func(r chi.Router) {
			r.Use(params.RBACMiddleware.Require(rbac.ActionViewJobs))
			params.JobHandler.MountRoutes(r)
		})
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		status := http.StatusOK
		report := map[string]string{"status": "ok"}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				report["status"] = "degraded"
				report[name] = err.Error()
				continue
			}
			report[name] = "ok"
		}
		httpx.JSON(w, status, report)
	}
}
