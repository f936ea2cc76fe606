package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fitcore/fitness-gatekeeper/internal/api/dto"
	"github.com/fitcore/fitness-gatekeeper/internal/service"
)

// StatusHandler serves gatekeeper reads.
type StatusHandler struct {
	gatekeeper *service.GatekeeperService
}

// NewStatusHandler constructs handler.
func NewStatusHandler(gatekeeper *service.GatekeeperService) *StatusHandler {
	return &StatusHandler{gatekeeper: gatekeeper}
}

// MyStatus GET /me/premium-status.
func (h *StatusHandler) MyStatus(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	return h.respond(c, p.UserID)
}

// UserStatus GET /admin/users/:id/premium-status.
func (h *StatusHandler) UserStatus(c *fiber.Ctx) error {
	userID, err := userIDParam(c)
	if err != nil {
		return err
	}
	return h.respond(c, userID)
}

// MyPlans GET /me/plans.
func (h *StatusHandler) MyPlans(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	diet, workout, err := h.gatekeeper.ActivePlans(c.UserContext(), p.UserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ActivePlansResponse{
		DietPlan:    dto.NewPlanResponse(diet),
		WorkoutPlan: dto.NewPlanResponse(workout),
	}})
}

func (h *StatusHandler) respond(c *fiber.Ctx, userID string) error {
	status, err := h.gatekeeper.GetPremiumStatus(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPremiumStatusResponse(status)})
}
