package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fitcore/fitness-gatekeeper/internal/api/http/handlers"
	"github.com/fitcore/fitness-gatekeeper/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health          *handlers.HealthHandler
	Status          *handlers.StatusHandler
	Assessments     *handlers.AssessmentHandler
	Questions       *handlers.QuestionHandler
	Admin           *handlers.AdminHandler
	Operator        *handlers.OperatorHandler
	Webhooks        *handlers.WebhookHandler
	AuthMiddleware  *auth.AuthMiddleware
	OperatorKeyHash string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/webhooks/billing", cfg.Webhooks.Billing)

	me := app.Group("/me", cfg.AuthMiddleware.Handle, auth.RequireUser())
	me.Get("/premium-status", cfg.Status.MyStatus)
	me.Get("/plans", cfg.Status.MyPlans)
	me.Post("/assessment", cfg.Assessments.Submit)

	app.Get("/assessment/questions", cfg.AuthMiddleware.Handle, auth.RequireUser(), cfg.Assessments.Questions)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireAdmin())
	admin.Get("/questions", cfg.Questions.List)
	admin.Post("/questions", cfg.Questions.Create)
	admin.Get("/questions/:id", cfg.Questions.Get)
	admin.Patch("/questions/:id", cfg.Questions.Update)
	admin.Delete("/questions/:id", cfg.Questions.Delete)
	admin.Post("/questions/:id/deactivate", cfg.Questions.Deactivate)
	admin.Post("/users/:id/state", cfg.Admin.SetState)
	admin.Get("/users/:id/premium-status", cfg.Status.UserStatus)

	operator := app.Group("/operator", auth.RequireOperatorKey(cfg.OperatorKeyHash))
	operator.Post("/users/:id/activate", cfg.Operator.Activate)
	operator.Post("/users/:id/plans/:kind", cfg.Operator.CreatePlan)
	operator.Delete("/users/:id/plans/:kind", cfg.Operator.DeactivatePlans)
	operator.Get("/metrics", cfg.Health.Metrics)
}
