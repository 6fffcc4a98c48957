package handlers

import (
	"bytes"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/dashboard-gate/internal/api/dto"
	"github.com/spec-kit/dashboard-gate/internal/api/http/views"
	"github.com/spec-kit/dashboard-gate/internal/auth"
	"github.com/spec-kit/dashboard-gate/internal/domain"
	"github.com/spec-kit/dashboard-gate/internal/service"
	apperrors "github.com/spec-kit/dashboard-gate/pkg/util"
)

// AppHandler serves the browser pages.
type AppHandler struct {
	app      *service.AppService
	views    *views.Renderer
	sessions *auth.SessionMiddleware
	appName  string
}

// NewAppHandler constructs handler.
func NewAppHandler(appService *service.AppService, renderer *views.Renderer, sessions *auth.SessionMiddleware, appName string) *AppHandler {
	return &AppHandler{app: appService, views: renderer, sessions: sessions, appName: appName}
}

// Home handles GET /. Every page load is an application mount.
func (h *AppHandler) Home(c *fiber.Ctx) error {
	sess, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("session required")
	}

	res := h.app.Mount(c.UserContext(), sess.Gate)
	if res.View == domain.ViewDashboard {
		return h.render(c, http.StatusOK, func(buf *bytes.Buffer) error {
			return h.views.Dashboard(buf, views.DashboardData{AppName: h.appName, Provision: res.Provision})
		})
	}
	return h.render(c, http.StatusOK, func(buf *bytes.Buffer) error {
		return h.views.Login(buf, views.LoginData{AppName: h.appName})
	})
}

// Login handles POST /login.
func (h *AppHandler) Login(c *fiber.Ctx) error {
	sess, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("session required")
	}

	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	result := h.app.Login(c.UserContext(), sess.ID, sess.Gate, req.Credentials())
	if !result.OK() {
		return h.render(c, http.StatusUnauthorized, func(buf *bytes.Buffer) error {
			return h.views.Login(buf, views.LoginData{AppName: h.appName, Username: req.Username, Error: result.Reason})
		})
	}
	return c.Redirect("/", http.StatusSeeOther)
}

// Logout handles POST /logout by unmounting the session.
func (h *AppHandler) Logout(c *fiber.Ctx) error {
	h.sessions.Close(c)
	return c.Redirect("/", http.StatusSeeOther)
}

func (h *AppHandler) render(c *fiber.Ctx, status int, fn func(*bytes.Buffer) error) error {
	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		return apperrors.NewInternalError(err)
	}
	c.Type("html", "utf-8")
	return c.Status(status).Send(buf.Bytes())
}
