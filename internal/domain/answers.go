package domain

import "math"

// Legacy field keys. The first ten are the positional parameters of the
// submit_assessment procedure; the column keys map to plain columns on the
// assessments table.
const (
	KeyPrimaryGoals        = "primary_goals"
	KeyAge                 = "age"
	KeyGender              = "gender"
	KeyHeightCM            = "height_cm"
	KeyWeightKG            = "weight_kg"
	KeyActivityLevel       = "activity_level"
	KeyFitnessExperience   = "fitness_experience"
	KeyDietaryRestrictions = "dietary_restrictions"
	KeyWorkoutDaysPerWeek  = "workout_days_per_week"
	KeyInjuries            = "injuries"

	KeyMedicalConditions    = "medical_conditions"
	KeySleepHours           = "sleep_hours"
	KeyPreferredWorkoutTime = "preferred_workout_time"
)

// PrimaryGoalsMinLength is the minimum length of a provided primary goals answer.
const PrimaryGoalsMinLength = 10

var legacyProcedureKeys = map[string]struct{}{
	KeyPrimaryGoals:        {},
	KeyAge:                 {},
	KeyGender:              {},
	KeyHeightCM:            {},
	KeyWeightKG:            {},
	KeyActivityLevel:       {},
	KeyFitnessExperience:   {},
	KeyDietaryRestrictions: {},
	KeyWorkoutDaysPerWeek:  {},
	KeyInjuries:            {},
}

var legacyColumnKeys = map[string]struct{}{
	KeyMedicalConditions:    {},
	KeySleepHours:           {},
	KeyPreferredWorkoutTime: {},
}

// IsLegacyProcedureKey reports whether key is one of the ten procedure parameters.
func IsLegacyProcedureKey(key string) bool {
	_, ok := legacyProcedureKeys[key]
	return ok
}

// IsLegacyColumnKey reports whether key is a legacy answer stored in its own column.
func IsLegacyColumnKey(key string) bool {
	_, ok := legacyColumnKeys[key]
	return ok
}

// AnswerPartition splits validated answers by where they are persisted.
type AnswerPartition struct {
	Procedure LegacyAnswers
	Columns   map[string]any
	Custom    map[string]any
}

// PartitionAnswers routes normalized answers. Procedure keys always go to the
// procedure; other answers to legacy questions go to their column when one
// exists; everything else lands in the custom bundle.
func PartitionAnswers(answers map[string]any, catalog map[string]Question) AnswerPartition {
	part := AnswerPartition{
		Columns: map[string]any{},
		Custom:  map[string]any{},
	}
	for key, value := range answers {
		switch {
		case IsLegacyProcedureKey(key):
			part.Procedure.set(key, value)
		case catalog[key].IsLegacy && IsLegacyColumnKey(key):
			part.Columns[key] = value
		default:
			part.Custom[key] = value
		}
	}
	return part
}

// Apply copies the partition onto an assessment row.
func (p AnswerPartition) Apply(a *Assessment) {
	a.LegacyAnswers = p.Procedure
	for key, value := range p.Columns {
		switch key {
		case KeyMedicalConditions:
			a.MedicalConditions = stringPtr(value)
		case KeySleepHours:
			a.SleepHours = floatPtr(value)
		case KeyPreferredWorkoutTime:
			a.PreferredWorkoutTime = stringPtr(value)
		}
	}
	if len(p.Custom) > 0 {
		a.CustomAnswers = make(map[string]any, len(p.Custom))
		for key, value := range p.Custom {
			a.CustomAnswers[key] = value
		}
	}
}

func (l *LegacyAnswers) set(key string, value any) {
	switch key {
	case KeyPrimaryGoals:
		l.PrimaryGoals = stringPtr(value)
	case KeyAge:
		l.Age = intPtr(value)
	case KeyGender:
		l.Gender = stringPtr(value)
	case KeyHeightCM:
		l.HeightCM = floatPtr(value)
	case KeyWeightKG:
		l.WeightKG = floatPtr(value)
	case KeyActivityLevel:
		l.ActivityLevel = stringPtr(value)
	case KeyFitnessExperience:
		l.FitnessExperience = stringPtr(value)
	case KeyDietaryRestrictions:
		l.DietaryRestrictions = stringSlice(value)
	case KeyWorkoutDaysPerWeek:
		l.WorkoutDaysPerWeek = intPtr(value)
	case KeyInjuries:
		l.Injuries = stringPtr(value)
	}
}

func stringPtr(v any) *string {
	switch val := v.(type) {
	case string:
		return &val
	case []string:
		if len(val) == 0 {
			return nil
		}
		s := val[0]
		return &s
	}
	return nil
}

func floatPtr(v any) *float64 {
	if f, ok := v.(float64); ok {
		return &f
	}
	return nil
}

func intPtr(v any) *int {
	if f, ok := v.(float64); ok {
		i := int(math.Round(f))
		return &i
	}
	return nil
}

func stringSlice(v any) []string {
	switch val := v.(type) {
	case []string:
		return append([]string(nil), val...)
	case string:
		return []string{val}
	}
	return nil
}
