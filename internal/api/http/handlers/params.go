package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/fitcore/fitness-gatekeeper/internal/auth"
	"github.com/fitcore/fitness-gatekeeper/internal/domain"
	"github.com/fitcore/fitness-gatekeeper/internal/events"
	"github.com/fitcore/fitness-gatekeeper/internal/service"
	apperrors "github.com/fitcore/fitness-gatekeeper/pkg/util/errorutil"
)

func userIDParam(c *fiber.Ctx) (string, error) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", apperrors.NewValidationError("user id must be a uuid", map[string]any{"id": id})
	}
	return id, nil
}

func planKindParam(c *fiber.Ctx) (domain.PlanKind, error) {
	kind := domain.PlanKind(c.Params("kind"))
	if !kind.Valid() {
		return "", apperrors.NewValidationError("plan kind must be diet or workout", map[string]any{"kind": kind})
	}
	return kind, nil
}

func principal(c *fiber.Ctx) (*auth.Principal, error) {
	p, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("user required")
	}
	return p, nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}

func adminContext(c *fiber.Ctx) *fiber.Ctx {
	actor := events.Actor{Type: events.ActorAdmin}
	if p, ok := auth.PrincipalFromContext(c); ok {
		actor.UserID = &p.UserID
	}
	c.SetUserContext(service.WithActor(c.UserContext(), actor))
	return c
}

func operatorContext(c *fiber.Ctx) *fiber.Ctx {
	c.SetUserContext(service.WithActor(c.UserContext(), events.Actor{Type: events.ActorOperator}))
	return c
}

func questionIDParam(c *fiber.Ctx) (string, error) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", apperrors.NewNotFound("question", map[string]any{"id": id})
	}
	return id, nil
}
