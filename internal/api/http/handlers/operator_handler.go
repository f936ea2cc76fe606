package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/fitcore/fitness-gatekeeper/internal/api/dto"
	"github.com/fitcore/fitness-gatekeeper/internal/domain"
	"github.com/fitcore/fitness-gatekeeper/internal/service"
)

// OperatorHandler lets the plan-generation operator deliver plans.
type OperatorHandler struct {
	transitions *service.TransitionService
}

// NewOperatorHandler constructs handler.
func NewOperatorHandler(transitions *service.TransitionService) *OperatorHandler {
	return &OperatorHandler{transitions: transitions}
}

// Activate POST /operator/users/:id/activate.
func (h *OperatorHandler) Activate(c *fiber.Ctx) error {
	userID, err := userIDParam(c)
	if err != nil {
		return err
	}
	var req dto.ActivatePlanRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	state, err := h.transitions.ActivatePlan(operatorContext(c).UserContext(), userID,
		req.DietPlan.ToDomain(domain.PlanKindDiet),
		req.WorkoutPlan.ToDomain(domain.PlanKindWorkout))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TransitionResponse{UserID: userID, GatekeeperState: state}})
}

// CreatePlan POST /operator/users/:id/plans/:kind.
func (h *OperatorHandler) CreatePlan(c *fiber.Ctx) error {
	userID, err := userIDParam(c)
	if err != nil {
		return err
	}
	kind, err := planKindParam(c)
	if err != nil {
		return err
	}
	var req dto.PlanPayload
	if err := parseBody(c, &req); err != nil {
		return err
	}
	plan, err := h.transitions.CreatePlan(operatorContext(c).UserContext(), userID, kind, req.ToDomain(kind))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewPlanResponse(plan)})
}

// DeactivatePlans DELETE /operator/users/:id/plans/:kind.
func (h *OperatorHandler) DeactivatePlans(c *fiber.Ctx) error {
	userID, err := userIDParam(c)
	if err != nil {
		return err
	}
	kind, err := planKindParam(c)
	if err != nil {
		return err
	}
	n, err := h.transitions.DeactivatePlans(operatorContext(c).UserContext(), userID, kind)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.DeactivatePlansResponse{Kind: kind, Deactivated: n}})
}
