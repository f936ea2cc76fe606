package dto

import (
	"time"

	"github.com/fitcore/fitness-gatekeeper/internal/domain"
)

// PremiumStatusResponse is the gatekeeper view returned to clients.
type PremiumStatusResponse struct {
	GatekeeperState      domain.GatekeeperState   `json:"gatekeeper_state"`
	SubscriptionTier     domain.SubscriptionTier  `json:"subscription_tier"`
	AssessmentStatus     *domain.AssessmentStatus `json:"assessment_status"`
	HasActiveDietPlan    bool                     `json:"has_active_diet_plan"`
	HasActiveWorkoutPlan bool                     `json:"has_active_workout_plan"`
}

// NewPremiumStatusResponse maps the domain view.
func NewPremiumStatusResponse(s *domain.PremiumStatus) PremiumStatusResponse {
	return PremiumStatusResponse{
		GatekeeperState:      s.State,
		SubscriptionTier:     s.SubscriptionTier,
		AssessmentStatus:     s.AssessmentStatus,
		HasActiveDietPlan:    s.HasActiveDietPlan,
		HasActiveWorkoutPlan: s.HasActiveWorkoutPlan,
	}
}

// PlanPayload is a diet or workout plan supplied by an operator or admin.
type PlanPayload struct {
	Title string            `json:"title"`
	Weeks []domain.PlanWeek `json:"weeks"`
}

// ToDomain converts the payload; nil stays nil.
func (p *PlanPayload) ToDomain(kind domain.PlanKind) *domain.Plan {
	if p == nil {
		return nil
	}
	return &domain.Plan{Kind: kind, Title: p.Title, Weeks: p.Weeks}
}

// PlanResponse describes a stored plan.
type PlanResponse struct {
	ID        string            `json:"id"`
	Kind      domain.PlanKind   `json:"kind"`
	Title     string            `json:"title"`
	Weeks     []domain.PlanWeek `json:"weeks"`
	IsActive  bool              `json:"is_active"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewPlanResponse maps a plan; nil stays nil.
func NewPlanResponse(p *domain.Plan) *PlanResponse {
	if p == nil {
		return nil
	}
	weeks := p.Weeks
	if weeks == nil {
		weeks = []domain.PlanWeek{}
	}
	return &PlanResponse{
		ID:        p.ID,
		Kind:      p.Kind,
		Title:     p.Title,
		Weeks:     weeks,
		IsActive:  p.IsActive,
		CreatedAt: p.CreatedAt,
	}
}

// ActivePlansResponse holds the caller's active plans.
type ActivePlansResponse struct {
	DietPlan    *PlanResponse `json:"diet_plan"`
	WorkoutPlan *PlanResponse `json:"workout_plan"`
}

// ActivatePlanRequest attaches plans to a pending assessment.
type ActivatePlanRequest struct {
	DietPlan    *PlanPayload `json:"diet_plan"`
	WorkoutPlan *PlanPayload `json:"workout_plan"`
}

// SetStateRequest drives the admin test-state tool.
type SetStateRequest struct {
	State       domain.GatekeeperState `json:"state"`
	Answers     map[string]any         `json:"answers"`
	DietPlan    *PlanPayload           `json:"diet_plan"`
	WorkoutPlan *PlanPayload           `json:"workout_plan"`
}

// TransitionResponse reports the state a transition produced.
type TransitionResponse struct {
	UserID          string                 `json:"user_id"`
	GatekeeperState domain.GatekeeperState `json:"gatekeeper_state"`
}

// DeactivatePlansResponse reports how many plans were switched off.
type DeactivatePlansResponse struct {
	Kind        domain.PlanKind `json:"kind"`
	Deactivated int64           `json:"deactivated"`
}

// WebhookAck acknowledges a billing delivery.
type WebhookAck struct {
	Received  bool   `json:"received"`
	EventID   string `json:"event_id,omitempty"`
	Applied   bool   `json:"applied"`
	Duplicate bool   `json:"duplicate"`
}
