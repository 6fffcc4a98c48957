package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/dashboard-gate/internal/api/dto"
	"github.com/spec-kit/dashboard-gate/internal/auth"
	"github.com/spec-kit/dashboard-gate/internal/service"
	apperrors "github.com/spec-kit/dashboard-gate/pkg/util"
)

// SessionHandler exposes the gate as JSON.
type SessionHandler struct {
	app *service.AppService
}

// NewSessionHandler constructs handler.
func NewSessionHandler(appService *service.AppService) *SessionHandler {
	return &SessionHandler{app: appService}
}

// Get handles GET /api/session.
func (h *SessionHandler) Get(c *fiber.Ctx) error {
	sess, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("session required")
	}
	return c.JSON(fiber.Map{"data": sessionResponse(sess)})
}

// Login handles POST /api/session/login.
func (h *SessionHandler) Login(c *fiber.Ctx) error {
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
		return apperrors.NewDomainError("LOGIN_REJECTED", result.Reason, http.StatusUnauthorized, nil)
	}
	return c.JSON(fiber.Map{"data": sessionResponse(sess)})
}

func sessionResponse(sess *auth.Session) dto.SessionResponse {
	return dto.SessionResponse{
		State:         sess.Gate.State(),
		View:          sess.Gate.CurrentView(),
		Authenticated: sess.Gate.Authenticated(),
	}
}
