package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/dashboard-gate/internal/api/http/handlers"
	"github.com/spec-kit/dashboard-gate/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health    *handlers.HealthHandler
	App       *handlers.AppHandler
	Session   *handlers.SessionHandler
	Provision *handlers.ProvisionHandler
	Sessions  *auth.SessionMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	app.Get("/", cfg.Sessions.Handle, cfg.App.Home)
	app.Post("/login", cfg.Sessions.Handle, cfg.App.Login)
	app.Post("/logout", cfg.Sessions.Handle, cfg.App.Logout)

	api := app.Group("/api")
	api.Get("/provision", cfg.Provision.Get)
	api.Post("/provision", cfg.Provision.Start)

	sessionAPI := api.Group("/session", cfg.Sessions.Handle, auth.RequireSession())
	sessionAPI.Get("", cfg.Session.Get)
	sessionAPI.Post("/login", cfg.Session.Login)
}
