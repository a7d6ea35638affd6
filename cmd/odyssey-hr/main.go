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
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-hr/internal/app"
	"github.com/odyssey-erp/odyssey-hr/internal/audit"
	audithttp "github.com/odyssey-erp/odyssey-hr/internal/audit/http"
	"github.com/odyssey-erp/odyssey-hr/internal/auth"
	"github.com/odyssey-erp/odyssey-hr/internal/employees"
	"github.com/odyssey-erp/odyssey-hr/internal/observability"
	"github.com/odyssey-erp/odyssey-hr/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-hr/internal/platform/db"
	"github.com/odyssey-erp/odyssey-hr/internal/rbac"
	"github.com/odyssey-erp/odyssey-hr/internal/shared"
	"github.com/odyssey-erp/odyssey-hr/internal/token"
	"github.com/odyssey-erp/odyssey-hr/internal/users"
	"github.com/odyssey-erp/odyssey-hr/jobs"
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
		logger.Error("odyssey-hr stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisOptions())
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	registry := rbac.NewRegistry(rbac.BuiltinModels()...)
	if err := rbac.LoadProfiles(ctx, rbac.NewProfileStore(pool), registry, logger); err != nil {
		return err
	}
	enforcer := rbac.NewEnforcer(registry, logger, metrics)
	rbacMiddleware := rbac.Middleware{Enforcer: enforcer}

	codec, err := token.NewCodec(cfg.AuthTokenSecret, token.WithIssuer(cfg.AuthTokenIssuer))
	if err != nil {
		return err
	}
	fallback, err := cfg.DefaultPrincipal()
	if err != nil {
		return err
	}
	if !fallback.IsAnonymous() {
		logger.Warn("unauthenticated requests run with a non-anonymous default principal", slog.String("role", string(fallback.Role)))
	}
	resolver := auth.NewResolver(codec, fallback, logger)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		return err
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)

	authService := auth.NewService(auth.NewRepository(pool), codec, auth.ServiceConfig{
		TokenTTL:   cfg.AuthTokenTTL,
		BcryptCost: cfg.AuthBcryptCost,
		Throttle:   auth.NewRedisThrottle(redisClient, cfg.AuthLoginMaxFailures, cfg.AuthLoginFailureWindow),
		Notifier:   jobClient,
		Logger:     logger,
	})
	usersService := users.NewService(users.NewRepository(pool), enforcer, auditLogger, logger)
	employeesService := employees.NewService(employees.NewPGRepository(pool), enforcer, auditLogger, logger)
	auditService := audit.NewService(audit.NewRepository(pool), enforcer)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Resolver:           resolver,
		AuthHandler:        auth.NewHandler(logger, authService, rbacMiddleware, cfg.AuthRateLimit),
		UsersHandler:       users.NewHandler(logger, usersService),
		EmployeesHandler:   employees.NewHandler(logger, employeesService),
		PermissionsHandler: rbac.NewPermissionsHandler(registry, rbacMiddleware),
		AuditHandler:       audithttp.NewHandler(logger, auditService, rbacMiddleware),
		JobHandler:         jobs.NewHandler(inspector, logger, rbacMiddleware.RequireAuthenticated),
		Metrics:            metrics,
		Readiness: []app.ReadinessCheck{
			{Name: "postgres", Check: pool.Ping},
			{Name: "redis", Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
