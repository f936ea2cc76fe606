package domain

import "fmt"

// GatekeeperState selects which top-level experience a user sees.
type GatekeeperState string

const (
	StateUpsell          GatekeeperState = "upsell"
	StateNeedsAssessment GatekeeperState = "needs_assessment"
	StatePending         GatekeeperState = "pending"
	StateActive          GatekeeperState = "active"
)

// Valid reports whether s is one of the four gatekeeper states.
func (s GatekeeperState) Valid() bool {
	switch s {
	case StateUpsell, StateNeedsAssessment, StatePending, StateActive:
		return true
	}
	return false
}

// PremiumStatus is the derived view returned to clients.
type PremiumStatus struct {
	State                GatekeeperState
	SubscriptionTier     SubscriptionTier
	AssessmentStatus     *AssessmentStatus
	HasActiveDietPlan    bool
	HasActiveWorkoutPlan bool
}

// DeriveGatekeeperState classifies the stored facts. The tier check wins over
// any assessment row that may still exist for a downgraded user. current is
// the user's current assessment status, nil when none exists.
func DeriveGatekeeperState(tier SubscriptionTier, current *AssessmentStatus) (GatekeeperState, error) {
	if tier != TierPremium {
		return StateUpsell, nil
	}
	if current == nil {
		return StateNeedsAssessment, nil
	}
	switch *current {
	case AssessmentPending:
		return StatePending, nil
	case AssessmentActive:
		return StateActive, nil
	default:
		return "", fmt.Errorf("unrecognized assessment status %q", *current)
	}
}
