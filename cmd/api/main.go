package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/dashboard-gate/internal/api/http"
	"github.com/spec-kit/dashboard-gate/internal/auth"
	"github.com/spec-kit/dashboard-gate/internal/config"
	"github.com/spec-kit/dashboard-gate/internal/events"
	"github.com/spec-kit/dashboard-gate/internal/observability"
	"github.com/spec-kit/dashboard-gate/internal/persistence"
	"github.com/spec-kit/dashboard-gate/internal/provision"
	"github.com/spec-kit/dashboard-gate/internal/repository"
	"github.com/spec-kit/dashboard-gate/internal/service"
	"github.com/spec-kit/dashboard-gate/internal/session"
	"github.com/spec-kit/dashboard-gate/internal/worker"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	if cfg.Auth.BypassAuth {
		logger.Warn("AUTH_BYPASS enabled; every session starts logged in", zap.String("env", cfg.App.Env))
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger, cfg.Audit))

	provisioner := provision.New(provision.Options{
		Endpoint:     cfg.Provision.Endpoint,
		ResourceKey:  cfg.Provision.ResourceID,
		ClaimRecheck: cfg.Provision.LockTTL(),
	}, provision.Dependencies{
		Transport:  provision.NewHTTPTransport(cfg.Provision.Timeout()),
		Guard:      provision.NewGuard(redis.ClientHandle(), cfg.Provision.LockTTL(), uuid.NewString()),
		Repo:       repository.NewProvisionRepository(pg.PoolHandle()),
		Dispatcher: dispatcher,
		Logger:     logger,
		Metrics:    metrics,
	})

	registry := session.NewRegistry(session.GateOptions{BypassAuth: cfg.Auth.BypassAuth}, cfg.Auth.SessionTTL())
	worker.StartSessionSweeper(ctx, registry, time.Minute, logger)

	sessions := auth.NewSessionMiddleware(
		auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL()),
		registry,
		auth.CookieConfig{Name: cfg.Auth.CookieName, Secure: cfg.Auth.CookieSecure},
		logger,
		metrics,
	)

	appService := service.NewAppService(service.AppDependencies{
		Provisioner: provisioner,
		Dispatcher:  dispatcher,
		Logger:      logger,
		Metrics:     metrics,
	})

	app, err := httptransport.NewServer(httptransport.ServerConfig{
		AppName:        cfg.App.Name,
		Version:        cfg.App.Version,
		RequestTimeout: cfg.App.RequestTimeout(),
		Logger:         logger,
		Metrics:        metrics,
		App:            appService,
		Sessions:       sessions,
		Postgres:       pg,
		Redis:          redis,
	})
	if err != nil {
		logger.Fatal("failed to build http server", zap.Error(err))
	}

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("provision_endpoint", cfg.Provision.Endpoint))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.ShutdownWithTimeout(shutdownTimeout)

	waitCtx, waitCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer waitCancel()
	if err := provisioner.Wait(waitCtx); err != nil {
		logger.Warn("provisioning request still in flight at shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
