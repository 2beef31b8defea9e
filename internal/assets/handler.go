package assets

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/airportops/assetapi/internal/limiter"
	"github.com/airportops/assetapi/internal/platform/httpx"
	"github.com/airportops/assetapi/internal/rbac"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
	limits  limiter.Middleware
}

func NewHandler(logger *slog.Logger, service *Service, rbacMW rbac.Middleware, limits limiter.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbacMW, limits: limits}
}

// MountRoutes registers asset routes. Every route is rate limited before
// the caller is authenticated.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.gate(limiter.EndpointListAssets, rbac.ActionListAssets)...).Get("/", h.List)
	r.With(h.gate(limiter.EndpointReadAsset, rbac.ActionReadAsset)...).Get("/{id}", h.Show)
	r.With(h.gate(limiter.EndpointCreateAsset, rbac.ActionCreateAsset)...).Post("/create", h.Create)
	r.With(h.gate(limiter.EndpointUpdateAsset, rbac.ActionUpdateAsset)...).Put("/update/{id}", h.Update)
	r.With(h.gate(limiter.EndpointDeleteAsset, rbac.ActionDeleteAsset)...).Delete("/delete/{id}", h.Delete)
}

func (h *Handler) gate(endpoint string, action rbac.Action) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{h.limits.Limit(endpoint), h.rbac.Require(action)}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := rbac.IdentityFromContext(r.Context())
	skip, err := queryInt(r, "skip")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "skip must be an integer")
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "limit must be an integer")
		return
	}
	assets, err := h.service.List(r.Context(), actor, Page{Skip: skip, Limit: limit})
	if err != nil {
		h.fail(w, "list assets", err)
		return
	}
	httpx.JSON(w, http.StatusOK, assets)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	actor, _ := rbac.IdentityFromContext(r.Context())
	asset, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		h.fail(w, "get asset", err)
		return
	}
	httpx.JSON(w, http.StatusOK, asset)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	actor, _ := rbac.IdentityFromContext(r.Context())
	asset, err := h.service.Create(r.Context(), actor, in)
	if err != nil {
		h.fail(w, "create asset", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, asset)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in UpdateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	actor, _ := rbac.IdentityFromContext(r.Context())
	asset, err := h.service.Update(r.Context(), actor, id, in)
	if err != nil {
		h.fail(w, "update asset", err)
		return
	}
	httpx.JSON(w, http.StatusOK, asset)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	actor, _ := rbac.IdentityFromContext(r.Context())
	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		h.fail(w, "delete asset", err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if httpx.StatusOf(err) >= http.StatusInternalServerError {
		h.logger.Error(op+" failed", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid asset id")
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
