package auth

import (
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/airportops/assetapi/internal/limiter"
	"github.com/airportops/assetapi/internal/observability"
	"github.com/airportops/assetapi/internal/platform/httpx"
	"github.com/airportops/assetapi/internal/rbac"
	"github.com/airportops/assetapi/internal/security"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	limits    limiter.Middleware
	metrics   *observability.Metrics
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbacMW rbac.Middleware, limits limiter.Middleware, metrics *observability.Metrics) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		rbac:      rbacMW,
		limits:    limits,
		metrics:   metrics,
		validator: validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.limits.Limit(limiter.EndpointLogin)).Post("/login", h.handleLogin)
	r.With(h.rbac.Require(rbac.ActionViewProfile)).Get("/me", h.handleMe)
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse is the body returned by a successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// PrincipalView is the public projection of a Principal.
type PrincipalView struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Role        rbac.Role  `json:"role"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewPrincipalView drops the password hash and returns the public fields.
func NewPrincipalView(p Principal) PrincipalView {
	return PrincipalView{
		ID:          p.ID,
		Username:    p.Username,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		Role:        p.Role,
		IsActive:    p.IsActive,
		LastLoginAt: p.LastLoginAt,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, err := decodeLogin(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "username and password are required")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "username and password are required")
		return
	}

	clientIP, _ := httprate.KeyByIP(r)
	token, p, err := h.service.Login(r.Context(), req.Username, req.Password, clientIP)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			h.metrics.Login("invalid")
			h.logger.Info("login rejected", slog.String("client", clientIP))
		} else {
			h.metrics.Login("error")
			h.logger.Error("login", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	h.metrics.Login("success")
	h.logger.Info("login", slog.Int64("principal_id", p.ID), slog.String("role", p.Role.String()))
	httpx.JSON(w, http.StatusOK, TokenResponse{
		AccessToken: token.AccessToken,
		TokenType:   security.TokenTypeBearer,
		ExpiresIn:   int64(h.service.tokens.TTL() / time.Second),
	})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := rbac.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, rbac.ErrNoCredentials)
		return
	}
	p, err := h.service.Profile(r.Context(), id)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			httpx.RespondError(w, rbac.ErrUnknownIdentity)
			return
		}
		h.logger.Error("load profile", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewPrincipalView(p))
}

// decodeLogin accepts a JSON body or the OAuth2 password form.
func decodeLogin(r *http.Request) (loginRequest, error) {
	var req loginRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		err := httpx.DecodeJSON(r, &req)
		return req, err
	}
	if err := r.ParseForm(); err != nil {
		return req, err
	}
	req.Username = r.PostFormValue("username")
	req.Password = r.PostFormValue("password")
	return req, nil
}
