package domain

// LegacyQuestions returns the catalog entries that predate the dynamic
// question catalog. The 0004 migration seeds the same rows.
func LegacyQuestions() []Question {
	return []Question{
		{FieldKey: KeyPrimaryGoals, Label: "What are your primary fitness goals?", Section: "goals", FieldType: FieldTextarea, Required: true, MaxLength: intRef(1000), SortOrder: 10},
		{FieldKey: KeyAge, Label: "Age", Section: "about_you", FieldType: FieldNumber, Required: true, MinValue: floatRef(13), MaxValue: floatRef(100), SortOrder: 20},
		{FieldKey: KeyGender, Label: "Gender", Section: "about_you", FieldType: FieldSelect, Required: true, SortOrder: 30, Options: []QuestionOption{
			{Value: "male", Label: "Male"},
			{Value: "female", Label: "Female"},
			{Value: "other", Label: "Other"},
			{Value: "prefer_not_to_say", Label: "Prefer not to say"},
		}},
		{FieldKey: KeyHeightCM, Label: "Height (cm)", Section: "about_you", FieldType: FieldNumber, Required: true, MinValue: floatRef(100), MaxValue: floatRef(250), SortOrder: 40},
		{FieldKey: KeyWeightKG, Label: "Weight (kg)", Section: "about_you", FieldType: FieldNumber, Required: true, MinValue: floatRef(30), MaxValue: floatRef(300), SortOrder: 50},
		{FieldKey: KeyActivityLevel, Label: "Activity level", Section: "lifestyle", FieldType: FieldSelect, Required: true, SortOrder: 60, Options: []QuestionOption{
			{Value: "sedentary", Label: "Sedentary"},
			{Value: "lightly_active", Label: "Lightly active"},
			{Value: "moderately_active", Label: "Moderately active"},
			{Value: "very_active", Label: "Very active"},
		}},
		{FieldKey: KeyFitnessExperience, Label: "Training experience", Section: "lifestyle", FieldType: FieldSelect, Required: true, SortOrder: 70, Options: []QuestionOption{
			{Value: "beginner", Label: "Beginner"},
			{Value: "intermediate", Label: "Intermediate"},
			{Value: "advanced", Label: "Advanced"},
		}},
		{FieldKey: KeyDietaryRestrictions, Label: "Dietary restrictions", Section: "nutrition", FieldType: FieldMultiSelect, SortOrder: 80, Options: []QuestionOption{
			{Value: "none", Label: "None"},
			{Value: "vegetarian", Label: "Vegetarian"},
			{Value: "vegan", Label: "Vegan"},
			{Value: "gluten_free", Label: "Gluten free"},
			{Value: "dairy_free", Label: "Dairy free"},
			{Value: "halal", Label: "Halal"},
			{Value: "kosher", Label: "Kosher"},
		}},
		{FieldKey: KeyWorkoutDaysPerWeek, Label: "Workout days per week", Section: "training", FieldType: FieldNumber, Required: true, MinValue: floatRef(1), MaxValue: floatRef(7), SortOrder: 90},
		{FieldKey: KeyInjuries, Label: "Injuries or limitations", Section: "health", FieldType: FieldTextarea, MaxLength: intRef(500), SortOrder: 100},
		{FieldKey: KeyMedicalConditions, Label: "Medical conditions", Section: "health", FieldType: FieldTextarea, MaxLength: intRef(500), SortOrder: 110},
		{FieldKey: KeySleepHours, Label: "Average hours of sleep", Section: "lifestyle", FieldType: FieldNumber, MinValue: floatRef(0), MaxValue: floatRef(24), SortOrder: 120},
		{FieldKey: KeyPreferredWorkoutTime, Label: "Preferred workout time", Section: "training", FieldType: FieldSelect, SortOrder: 130, Options: []QuestionOption{
			{Value: "morning", Label: "Morning"},
			{Value: "afternoon", Label: "Afternoon"},
			{Value: "evening", Label: "Evening"},
		}},
	}
}

// SampleAnswers satisfies every required legacy question. The admin test-state
// tool falls back to it when no answers are supplied.
func SampleAnswers() map[string]any {
	return map[string]any{
		KeyPrimaryGoals:       "Lose fat while keeping strength",
		KeyAge:                float64(32),
		KeyGender:             "prefer_not_to_say",
		KeyHeightCM:           float64(175),
		KeyWeightKG:           float64(80),
		KeyActivityLevel:      "moderately_active",
		KeyFitnessExperience:  "intermediate",
		KeyWorkoutDaysPerWeek: float64(4),
	}
}

// SamplePlan builds a one-week placeholder plan of the given kind.
func SamplePlan(kind PlanKind) Plan {
	if kind == PlanKindDiet {
		return Plan{
			Kind:  PlanKindDiet,
			Title: "Starter nutrition plan",
			Weeks: []PlanWeek{{Week: 1, Days: []PlanDay{
				{Day: "monday", Items: []PlanItem{
					{Name: "Oats with berries", Calories: intRef(450)},
					{Name: "Chicken salad", Calories: intRef(600)},
					{Name: "Salmon with rice", Calories: intRef(700)},
				}},
			}}},
		}
	}
	return Plan{
		Kind:  PlanKindWorkout,
		Title: "Starter training plan",
		Weeks: []PlanWeek{{Week: 1, Days: []PlanDay{
			{Day: "monday", Focus: "full body", Items: []PlanItem{
				{Name: "Goblet squat", Sets: intRef(3), Reps: "10"},
				{Name: "Push-up", Sets: intRef(3), Reps: "12"},
				{Name: "Dumbbell row", Sets: intRef(3), Reps: "10"},
			}},
		}}},
	}
}

func intRef(v int) *int { return &v }

func floatRef(v float64) *float64 { return &v }
