package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airportops/assetapi/internal/assets"
	"github.com/airportops/assetapi/internal/auth"
	"github.com/airportops/assetapi/internal/auth/authtest"
	"github.com/airportops/assetapi/internal/limiter"
	"github.com/airportops/assetapi/internal/observability"
	"github.com/airportops/assetapi/internal/platform/httpx"
	"github.com/airportops/assetapi/internal/rbac"
	"github.com/airportops/assetapi/internal/security"
	"github.com/airportops/assetapi/internal/users"
	"github.com/airportops/assetapi/jobs"
)

type emptyAssets struct{}

func (emptyAssets) List(context.Context, assets.Page) ([]assets.Asset, error) { return nil, nil }
func (emptyAssets) Get(context.Context, int64) (assets.Asset, error) {
	return assets.Asset{}, httpx.ErrNotFound
}
func (emptyAssets) Create(_ context.Context, in assets.CreateInput) (assets.Asset, error) {
	return assets.Asset{ID: 1, Name: in.Name, Status: in.Status}, nil
}
func (emptyAssets) Update(context.Context, int64, assets.UpdateInput) (assets.Asset, error) {
	return assets.Asset{}, httpx.ErrNotFound
}
func (emptyAssets) Delete(context.Context, int64) error { return httpx.ErrNotFound }

type server struct {
	handler http.Handler
	repo    *authtest.Repository
	hasher  *security.Hasher
}

func newServer(t *testing.T, cfg *Config, checks map[string]HealthCheck) *server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hasher, err := security.NewHasher(4)
	require.NoError(t, err)
	tokens, err := security.NewTokenService(cfg.TokenConfig())
	require.NoError(t, err)
	store, err := limiter.NewMemoryLimiter(cfg.RateLimits)
	require.NoError(t, err)

	metrics := observability.NewMetrics()
	limits := limiter.Middleware{Limiter: store, Logger: logger, Metrics: metrics}
	repo := authtest.NewRepository()
	authService := auth.NewService(repo, hasher, tokens, auth.RepositoryRecorder{Repo: repo}, logger)
	rbacMW := rbac.Middleware{Guard: rbac.NewGuard(tokens, authService), Logger: logger, Metrics: metrics}

	handler := NewRouter(RouterParams{
		Logger:             logger,
		Config:             cfg,
		AuthHandler:        auth.NewHandler(logger, authService, rbacMW, limits, metrics),
		UsersHandler:       users.NewHandler(logger, users.NewService(repo, hasher), rbacMW, limits),
		AssetsHandler:      assets.NewHandler(logger, assets.NewService(emptyAssets{}, logger), rbacMW, limits),
		PermissionsHandler: rbac.NewPermissionsHandler(rbacMW),
		JobHandler:         jobs.NewHandler(nil, logger),
		RBACMiddleware:     rbacMW,
		Metrics:            metrics,
		HealthChecks:       checks,
	})
	return &server{handler: handler, repo: repo, hasher: hasher}
}

func testConfig() *Config {
	return &Config{
		AppEnv:          "test",
		JWTSecret:       "router-test-secret",
		JWTAlgorithm:    "HS256",
		JWTTTL:          30 * time.Minute,
		RateLimits:      limiter.DefaultRules(),
		GlobalRateLimit: 1000,
	}
}

func (s *server) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	req.RemoteAddr = "192.0.2.10:5000"
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *server) addPrincipal(t *testing.T, username, password string, role rbac.Role) {
	t.Helper()
	hash, err := s.hasher.Hash([]byte(password))
	require.NoError(t, err)
	s.repo.Put(auth.Principal{Username: username, PasswordHash: hash, Role: role, IsActive: true})
}

func (s *server) login(t *testing.T, username, password string) string {
	t.Helper()
	form := url.Values{"username": {username}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := s.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body auth.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.AccessToken
}

func TestRouterRootAndHealth(t *testing.T) {
	s := newServer(t, testConfig(), map[string]HealthCheck{
		"postgres": func(context.Context) error { return nil },
	})

	rec := s.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"service":"airport-asset-api","env":"test"}`, rec.Body.String())
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","postgres":"ok"}`, rec.Body.String())
}

func TestRouterHealthDegraded(t *testing.T) {
	s := newServer(t, testConfig(), map[string]HealthCheck{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	})

	rec := s.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"degraded","redis":"connection refused"}`, rec.Body.String())
}

func TestRouterAdminFlow(t *testing.T) {
	s := newServer(t, testConfig(), nil)
	s.addPrincipal(t, "admin", "admin123", rbac.RoleAdmin)
	s.addPrincipal(t, "ops", "ops-pass", rbac.RoleStaff)

	adminToken := s.login(t, "admin", "admin123")
	staffToken := s.login(t, "ops", "ops-pass")

	get := func(path, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		return s.do(t, req)
	}

	assert.Equal(t, http.StatusOK, get("/auth/users", adminToken).Code)
	assert.Equal(t, http.StatusForbidden, get("/auth/users", staffToken).Code)
	assert.Equal(t, http.StatusOK, get("/jobs/health", adminToken).Code)
	assert.Equal(t, http.StatusForbidden, get("/jobs/health", staffToken).Code)
	assert.Equal(t, http.StatusUnauthorized, get("/jobs/health", "").Code)
	assert.Equal(t, http.StatusOK, get("/assets/", "").Code)
	assert.Equal(t, http.StatusNotFound, get("/assets/9", staffToken).Code)

	p, err := s.repo.FindByUsername(context.Background(), "admin")
	require.NoError(t, err)
	assert.NotNil(t, p.LastLoginAt)
}

func TestRouterExposesMetrics(t *testing.T) {
	s := newServer(t, testConfig(), nil)
	s.do(t, httptest.NewRequest(http.MethodGet, "/auth/me", nil))

	rec := s.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "assetapi_http_requests_total")
	assert.Contains(t, rec.Body.String(), "assetapi_auth_failures_total")
}

func TestRouterGlobalCeiling(t *testing.T) {
	cfg := testConfig()
	cfg.GlobalRateLimit = 2
	s := newServer(t, cfg, nil)

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, s.do(t, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	}
	rec := s.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
