package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/dashboard-gate/internal/api/dto"
	"github.com/spec-kit/dashboard-gate/internal/service"
	apperrors "github.com/spec-kit/dashboard-gate/pkg/util"
)

// ProvisionHandler exposes the backend start status.
type ProvisionHandler struct {
	app *service.AppService
}

// NewProvisionHandler constructs handler.
func NewProvisionHandler(appService *service.AppService) *ProvisionHandler {
	return &ProvisionHandler{app: appService}
}

// Get handles GET /api/provision. The persisted record is included as
// "stored" once one exists.
func (h *ProvisionHandler) Get(c *fiber.Ctx) error {
	body := fiber.Map{"data": dto.ProvisionFromRecord(h.app.ProvisionStatus())}
	stored, err := h.app.StoredProvision(c.UserContext())
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if stored != nil {
		body["stored"] = dto.ProvisionFromRecord(*stored)
	}
	return c.JSON(body)
}

// Start handles POST /api/provision. It answers 202 without waiting for the
// control plane.
func (h *ProvisionHandler) Start(c *fiber.Ctx) error {
	dispatched, record := h.app.RequestProvision(c.UserContext())
	return c.Status(http.StatusAccepted).JSON(fiber.Map{
		"data": fiber.Map{
			"dispatched": dispatched,
			"provision":  dto.ProvisionFromRecord(record),
		},
	})
}
