package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/fitcore/fitness-gatekeeper/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventGatekeeperStateChanged EventType = "gatekeeper_state_changed"
	EventAssessmentSubmitted    EventType = "assessment_submitted"
	EventPlanActivated          EventType = "plan_activated"
	EventTierChanged            EventType = "tier_changed"
	EventPlanReplaced           EventType = "plan_replaced"
)

// ActorType says who triggered a transition.
type ActorType string

const (
	ActorUser     ActorType = "user"
	ActorAdmin    ActorType = "admin"
	ActorOperator ActorType = "operator"
	ActorBilling  ActorType = "billing"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type   ActorType `json:"type"`
	UserID *string   `json:"user_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	UserID    string    `json:"user_id"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(eventType EventType, userID string, actor Actor, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// StateChangedPayload payload.
type StateChangedPayload struct {
	Operation string                 `json:"operation"`
	NewState  domain.GatekeeperState `json:"new_state"`
}

// AssessmentSubmittedPayload payload.
type AssessmentSubmittedPayload struct {
	AssessmentID string   `json:"assessment_id"`
	CustomKeys   []string `json:"custom_keys,omitempty"`
}

// PlanActivatedPayload payload.
type PlanActivatedPayload struct {
	AssessmentID  string `json:"assessment_id"`
	DietPlanID    string `json:"diet_plan_id"`
	WorkoutPlanID string `json:"workout_plan_id"`
}

// TierChangedPayload payload.
type TierChangedPayload struct {
	OldTier domain.SubscriptionTier `json:"old_tier"`
	NewTier domain.SubscriptionTier `json:"new_tier"`
	Source  string                  `json:"source,omitempty"`
}

// PlanReplacedPayload payload.
type PlanReplacedPayload struct {
	Kind        domain.PlanKind `json:"kind"`
	PlanID      string          `json:"plan_id,omitempty"`
	Deactivated int64           `json:"deactivated"`
}
