package users

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/airportops/assetapi/internal/auth"
	"github.com/airportops/assetapi/internal/limiter"
	"github.com/airportops/assetapi/internal/platform/httpx"
	"github.com/airportops/assetapi/internal/rbac"
)

// Handler manages user administration endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
	limits  limiter.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbacMW rbac.Middleware, limits limiter.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbacMW, limits: limits}
}

// MountRoutes registers user routes. Rate limits run before the guard so
// unauthenticated callers are charged too.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.limits.Limit(limiter.EndpointRegister), h.rbac.Require(rbac.ActionRegisterUser)).
		Post("/register", h.register)
	r.With(h.rbac.Require(rbac.ActionListUsers)).Get("/users", h.listUsers)
	r.With(h.limits.Limit(limiter.EndpointDeleteUser), h.rbac.Require(rbac.ActionDeleteUser)).
		Delete("/users/{id}", h.deleteUser)
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	actor, _ := rbac.IdentityFromContext(r.Context())
	var in RegisterInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	p, err := h.service.Register(r.Context(), actor, in)
	if err != nil {
		h.fail(w, "register user", err)
		return
	}
	h.logger.Info("user registered",
		slog.Int64("principal_id", p.ID),
		slog.String("role", p.Role.String()),
		slog.Int64("actor_id", actor.PrincipalID))
	httpx.JSON(w, http.StatusCreated, auth.NewPrincipalView(p))
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	principals, err := h.service.List(r.Context())
	if err != nil {
		h.fail(w, "list users", err)
		return
	}
	views := make([]auth.PrincipalView, 0, len(principals))
	for _, p := range principals {
		views = append(views, auth.NewPrincipalView(p))
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := rbac.IdentityFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid user id")
		return
	}
	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		h.fail(w, "delete user", err)
		return
	}
	h.logger.Info("user deleted", slog.Int64("principal_id", id), slog.Int64("actor_id", actor.PrincipalID))
	httpx.NoContent(w)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if httpx.StatusOf(err) >= http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
