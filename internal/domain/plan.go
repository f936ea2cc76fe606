package domain

import "time"

// PlanKind distinguishes the two plan tables.
type PlanKind string

const (
	PlanKindDiet    PlanKind = "diet"
	PlanKindWorkout PlanKind = "workout"
)

// Valid reports whether k is a known plan kind.
func (k PlanKind) Valid() bool {
	return k == PlanKindDiet || k == PlanKindWorkout
}

// Plan is a diet or workout programme laid out week by week.
type Plan struct {
	ID        string
	UserID    string
	Kind      PlanKind
	Title     string
	Weeks     []PlanWeek
	IsActive  bool
	CreatedAt time.Time
}

// PlanWeek groups the days of one programme week.
type PlanWeek struct {
	Week int       `json:"week"`
	Days []PlanDay `json:"days"`
}

// PlanDay lists the meals or exercises for one day.
type PlanDay struct {
	Day   string     `json:"day"`
	Focus string     `json:"focus,omitempty"`
	Items []PlanItem `json:"items"`
}

// PlanItem is a meal in a diet plan or an exercise in a workout plan.
type PlanItem struct {
	Name     string `json:"name"`
	Details  string `json:"details,omitempty"`
	Calories *int   `json:"calories,omitempty"`
	Sets     *int   `json:"sets,omitempty"`
	Reps     string `json:"reps,omitempty"`
}
