package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/airportops/assetapi/internal/app"
	"github.com/airportops/assetapi/internal/assets"
	"github.com/airportops/assetapi/internal/auth"
	"github.com/airportops/assetapi/internal/limiter"
	"github.com/airportops/assetapi/internal/observability"
	"github.com/airportops/assetapi/internal/platform/cache"
	"github.com/airportops/assetapi/internal/platform/db"
	"github.com/airportops/assetapi/internal/rbac"
	"github.com/airportops/assetapi/internal/security"
	"github.com/airportops/assetapi/internal/users"
	"github.com/airportops/assetapi/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("assetapi exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.PGAutoMigrate {
		if err := db.Migrate(ctx, pool); err != nil {
			return err
		}
		logger.Info("schema applied")
	}

	checks := map[string]app.HealthCheck{"postgres": db.HealthCheck(pool)}

	var redisClient *redis.Client
	if cfg.RateLimitBackend == app.RateLimitBackendRedis || cfg.LoginRecorder == app.LoginRecorderQueue {
		redisClient, err = cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		checks["redis"] = cache.HealthCheck(redisClient)
	}

	group, ctx := errgroup.WithContext(ctx)

	var store limiter.Limiter
	switch cfg.RateLimitBackend {
	case app.RateLimitBackendRedis:
		store, err = limiter.NewRedisLimiter(redisClient, cfg.RateLimits, "assetapi:ratelimit")
		if err != nil {
			return err
		}
	default:
		memory, err := limiter.NewMemoryLimiter(cfg.RateLimits)
		if err != nil {
			return err
		}
		group.Go(func() error {
			return memory.Run(ctx, cfg.RateLimitEvictInterval)
		})
		store = memory
	}
	logger.Info("rate limiter ready", slog.String("backend", cfg.RateLimitBackend), slog.String("rules", cfg.RateLimits.String()))

	metrics := observability.NewMetrics()
	limits := limiter.Middleware{Limiter: store, Logger: logger, Metrics: metrics}

	hasher, err := security.NewHasher(cfg.BcryptCost)
	if err != nil {
		return err
	}
	tokens, err := security.NewTokenService(cfg.TokenConfig())
	if err != nil {
		return err
	}

	authRepo := auth.NewRepository(pool)

	var recorder auth.LoginRecorder = auth.RepositoryRecorder{Repo: authRepo}
	var inspector jobs.QueueInspector
	if cfg.LoginRecorder == app.LoginRecorderQueue {
		redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
		client := jobs.NewClient(redisOpts)
		defer func() {
			if err := client.Close(); err != nil {
				logger.Warn("queue client close", slog.Any("error", err))
			}
		}()
		recorder = client

		queueInspector := asynq.NewInspector(redisOpts)
		defer func() {
			if err := queueInspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		inspector = queueInspector
	}

	authService := auth.NewService(authRepo, hasher, tokens, recorder, logger)

	var resolver rbac.PrincipalResolver
	if cfg.AuthResolvePrincipal {
		resolver = authService
	}
	rbacMW := rbac.Middleware{Guard: rbac.NewGuard(tokens, resolver), Logger: logger, Metrics: metrics}

	usersService := users.NewService(authRepo, hasher)
	assetsService := assets.NewService(assets.NewRepository(pool), logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		AuthHandler:        auth.NewHandler(logger, authService, rbacMW, limits, metrics),
		UsersHandler:       users.NewHandler(logger, usersService, rbacMW, limits),
		AssetsHandler:      assets.NewHandler(logger, assetsService, rbacMW, limits),
		PermissionsHandler: rbac.NewPermissionsHandler(rbacMW),
		JobHandler:         jobs.NewHandler(inspector, logger),
		RBACMiddleware:     rbacMW,
		Metrics:            metrics,
		HealthChecks:       checks,
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
