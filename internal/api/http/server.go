package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/dashboard-gate/internal/api/http/handlers"
	"github.com/spec-kit/dashboard-gate/internal/api/http/views"
	"github.com/spec-kit/dashboard-gate/internal/auth"
	"github.com/spec-kit/dashboard-gate/internal/observability"
	"github.com/spec-kit/dashboard-gate/internal/persistence"
	"github.com/spec-kit/dashboard-gate/internal/service"
)

// ServerConfig bundles everything the HTTP surface depends on.
type ServerConfig struct {
	AppName        string
	Version        string
	RequestTimeout time.Duration
	Logger         *zap.Logger
	Metrics        *observability.Metrics
	App            *service.AppService
	Sessions       *auth.SessionMiddleware
	Postgres       *persistence.Postgres
	Redis          *persistence.Redis
}

// NewServer builds the fiber app with middlewares and routes registered.
func NewServer(cfg ServerConfig) (*fiber.App, error) {
	renderer, err := views.NewRenderer()
	if err != nil {
		return nil, err
	}

	app := fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		DisableStartupMessage: true,
	})
	RegisterMiddlewares(app, cfg.Logger, cfg.Metrics, cfg.RequestTimeout)

	RegisterRoutes(app, RouteConfig{
		Health:    handlers.NewHealthHandler(cfg.AppName, cfg.Version, cfg.Postgres, cfg.Redis, cfg.Metrics),
		App:       handlers.NewAppHandler(cfg.App, renderer, cfg.Sessions, cfg.AppName),
		Session:   handlers.NewSessionHandler(cfg.App),
		Provision: handlers.NewProvisionHandler(cfg.App),
		Sessions:  cfg.Sessions,
	})
	return app, nil
}
