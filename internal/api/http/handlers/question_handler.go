package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/fitcore/fitness-gatekeeper/internal/api/dto"
	"github.com/fitcore/fitness-gatekeeper/internal/service"
)

// QuestionHandler administers the question catalog.
type QuestionHandler struct {
	questions *service.QuestionService
}

// NewQuestionHandler constructs handler.
func NewQuestionHandler(questions *service.QuestionService) *QuestionHandler {
	return &QuestionHandler{questions: questions}
}

// List GET /admin/questions?active=true&section=...
func (h *QuestionHandler) List(c *fiber.Ctx) error {
	var section *string
	if s := strings.TrimSpace(c.Query("section")); s != "" {
		section = &s
	}
	qs, err := h.questions.List(c.UserContext(), c.QueryBool("active", false), section)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewQuestionList(qs)})
}

// Get GET /admin/questions/:id.
func (h *QuestionHandler) Get(c *fiber.Ctx) error {
	id, err := questionIDParam(c)
	if err != nil {
		return err
	}
	q, err := h.questions.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewQuestionResponse(q)})
}

// Create POST /admin/questions.
func (h *QuestionHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateQuestionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	q, err := h.questions.Create(c.UserContext(), service.QuestionCreateInput{
		FieldKey:  req.FieldKey,
		Label:     req.Label,
		Section:   req.Section,
		FieldType: req.FieldType,
		Options:   req.Options,
		Required:  req.Required,
		MinValue:  req.MinValue,
		MaxValue:  req.MaxValue,
		MaxLength: req.MaxLength,
		SortOrder: req.SortOrder,
		IsActive:  req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewQuestionResponse(q)})
}

// Update PATCH /admin/questions/:id.
func (h *QuestionHandler) Update(c *fiber.Ctx) error {
	id, err := questionIDParam(c)
	if err != nil {
		return err
	}
	var req dto.UpdateQuestionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	q, err := h.questions.Update(c.UserContext(), id, service.QuestionUpdateInput{
		FieldKey:  req.FieldKey,
		Label:     req.Label,
		Section:   req.Section,
		FieldType: req.FieldType,
		Options:   req.Options,
		Required:  req.Required,
		MinValue:  req.MinValue,
		MaxValue:  req.MaxValue,
		MaxLength: req.MaxLength,
		SortOrder: req.SortOrder,
		IsActive:  req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewQuestionResponse(q)})
}

// Deactivate POST /admin/questions/:id/deactivate.
func (h *QuestionHandler) Deactivate(c *fiber.Ctx) error {
	id, err := questionIDParam(c)
	if err != nil {
		return err
	}
	q, err := h.questions.Deactivate(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewQuestionResponse(q)})
}

// Delete DELETE /admin/questions/:id.
func (h *QuestionHandler) Delete(c *fiber.Ctx) error {
	id, err := questionIDParam(c)
	if err != nil {
		return err
	}
	if err := h.questions.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
