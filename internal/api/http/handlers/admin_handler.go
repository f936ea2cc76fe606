package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fitcore/fitness-gatekeeper/internal/api/dto"
	"github.com/fitcore/fitness-gatekeeper/internal/domain"
	"github.com/fitcore/fitness-gatekeeper/internal/service"
)

// AdminHandler exposes the test-state tool.
type AdminHandler struct {
	transitions *service.TransitionService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(transitions *service.TransitionService) *AdminHandler {
	return &AdminHandler{transitions: transitions}
}

// SetState POST /admin/users/:id/state.
func (h *AdminHandler) SetState(c *fiber.Ctx) error {
	userID, err := userIDParam(c)
	if err != nil {
		return err
	}
	var req dto.SetStateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	state, err := h.transitions.SetTestState(adminContext(c).UserContext(), userID, req.State, service.TestStateInput{
		Answers:     req.Answers,
		DietPlan:    req.DietPlan.ToDomain(domain.PlanKindDiet),
		WorkoutPlan: req.WorkoutPlan.ToDomain(domain.PlanKindWorkout),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TransitionResponse{UserID: userID, GatekeeperState: state}})
}
