package domain

import "time"

// AssessmentStatus tracks whether a submitted questionnaire has been turned into plans.
type AssessmentStatus string

const (
	AssessmentPending AssessmentStatus = "pending"
	AssessmentActive  AssessmentStatus = "active"
)

// CurrentAssessmentStatuses are the statuses that make an assessment "current".
var CurrentAssessmentStatuses = []AssessmentStatus{AssessmentActive, AssessmentPending}

// Assessment is the user's onboarding questionnaire submission.
type Assessment struct {
	ID     string
	UserID string
	Status AssessmentStatus

	LegacyAnswers

	MedicalConditions    *string
	SleepHours           *float64
	PreferredWorkoutTime *string

	CustomAnswers map[string]any
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// LegacyAnswers are the ten answers accepted positionally by the
// submit_assessment procedure.
type LegacyAnswers struct {
	PrimaryGoals        *string
	Age                 *int
	Gender              *string
	HeightCM            *float64
	WeightKG            *float64
	ActivityLevel       *string
	FitnessExperience   *string
	DietaryRestrictions []string
	WorkoutDaysPerWeek  *int
	Injuries            *string
}
