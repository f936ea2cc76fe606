package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/fitcore/fitness-gatekeeper/internal/api/dto"
	"github.com/fitcore/fitness-gatekeeper/internal/domain"
	"github.com/fitcore/fitness-gatekeeper/internal/service"
	apperrors "github.com/fitcore/fitness-gatekeeper/pkg/util/errorutil"
)

// AssessmentHandler serves the end-user assessment form.
type AssessmentHandler struct {
	assessments *service.AssessmentService
}

// NewAssessmentHandler constructs handler.
func NewAssessmentHandler(assessments *service.AssessmentService) *AssessmentHandler {
	return &AssessmentHandler{assessments: assessments}
}

// Questions GET /assessment/questions.
func (h *AssessmentHandler) Questions(c *fiber.Ctx) error {
	qs, err := h.assessments.Questions(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewQuestionList(qs)})
}

// Submit POST /me/assessment.
func (h *AssessmentHandler) Submit(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.SubmitAssessmentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Answers == nil {
		return apperrors.NewValidationError("answers required", nil)
	}
	assessment, err := h.assessments.SubmitAssessment(c.UserContext(), p.UserID, req.Answers)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.AssessmentResponse{
		ID:              assessment.ID,
		Status:          assessment.Status,
		GatekeeperState: domain.StatePending,
	}})
}
