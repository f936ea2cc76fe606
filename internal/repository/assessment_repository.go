package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/fitcore/fitness-gatekeeper/internal/domain"
)

// AssessmentRepository encapsulates assessment persistence.
type AssessmentRepository interface {
	// Current returns the user's current assessment, preferring active over
	// pending and then the newest row. pgx.ErrNoRows when none exists.
	Current(ctx context.Context, userID string) (*domain.Assessment, error)
	Create(ctx context.Context, assessment *domain.Assessment) error
	// SubmitLegacy calls the submit_assessment procedure with the ten legacy
	// answers and returns the id of the pending row it inserted.
	SubmitLegacy(ctx context.Context, userID string, answers domain.LegacyAnswers) (string, error)
	UpdateLegacyColumns(ctx context.Context, id string, columns map[string]any) error
	MergeCustomAnswers(ctx context.Context, id string, answers map[string]any) error
	SetStatus(ctx context.Context, id string, status domain.AssessmentStatus) error
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}

type assessmentRepository struct {
	db DBTX
}

// NewAssessmentRepository instantiates repository.
func NewAssessmentRepository(db DBTX) AssessmentRepository {
	return &assessmentRepository{db: db}
}

const assessmentColumns = `id, user_id, status, primary_goals, age, gender, height_cm, weight_kg,
               activity_level, fitness_experience, dietary_restrictions, workout_days_per_week, injuries,
               medical_conditions, sleep_hours, preferred_workout_time, custom_answers, created_at, updated_at`

// legacyColumnNames maps legacy column answer keys to their columns.
var legacyColumnNames = map[string]string{
	domain.KeyMedicalConditions:    "medical_conditions",
	domain.KeySleepHours:           "sleep_hours",
	domain.KeyPreferredWorkoutTime: "preferred_workout_time",
}

func (r *assessmentRepository) Current(ctx context.Context, userID string) (*domain.Assessment, error) {
	const query = `
        SELECT ` + assessmentColumns + `
        FROM assessments
        WHERE user_id=$1 AND status = ANY($2)
        ORDER BY CASE status WHEN 'active' THEN 0 ELSE 1 END, created_at DESC
        LIMIT 1`

	statuses := make([]string, 0, len(domain.CurrentAssessmentStatuses))
	for _, s := range domain.CurrentAssessmentStatuses {
		statuses = append(statuses, string(s))
	}

	var a domain.Assessment
	var custom map[string]any
	if err := r.db.QueryRow(ctx, query, userID, statuses).Scan(
		&a.ID,
		&a.UserID,
		&a.Status,
		&a.PrimaryGoals,
		&a.Age,
		&a.Gender,
		&a.HeightCM,
		&a.WeightKG,
		&a.ActivityLevel,
		&a.FitnessExperience,
		&a.DietaryRestrictions,
		&a.WorkoutDaysPerWeek,
		&a.Injuries,
		&a.MedicalConditions,
		&a.SleepHours,
		&a.PreferredWorkoutTime,
		&custom,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	a.CustomAnswers = custom
	return &a, nil
}

func (r *assessmentRepository) Create(ctx context.Context, a *domain.Assessment) error {
	const query = `
        INSERT INTO assessments (user_id, status, primary_goals, age, gender, height_cm, weight_kg,
            activity_level, fitness_experience, dietary_restrictions, workout_days_per_week, injuries,
            medical_conditions, sleep_hours, preferred_workout_time, custom_answers)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16::jsonb)
        RETURNING id, created_at, updated_at`

	custom, err := marshalAnswers(a.CustomAnswers)
	if err != nil {
		return err
	}
	err = r.db.QueryRow(ctx, query,
		a.UserID,
		a.Status,
		a.PrimaryGoals,
		a.Age,
		a.Gender,
		a.HeightCM,
		a.WeightKG,
		a.ActivityLevel,
		a.FitnessExperience,
		a.DietaryRestrictions,
		a.WorkoutDaysPerWeek,
		a.Injuries,
		a.MedicalConditions,
		a.SleepHours,
		a.PreferredWorkoutTime,
		custom,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	return translateAssessmentError(err)
}

func (r *assessmentRepository) SubmitLegacy(ctx context.Context, userID string, l domain.LegacyAnswers) (string, error) {
	const query = `SELECT submit_assessment($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`

	var id string
	err := r.db.QueryRow(ctx, query,
		userID,
		l.PrimaryGoals,
		l.Age,
		l.Gender,
		l.HeightCM,
		l.WeightKG,
		l.ActivityLevel,
		l.FitnessExperience,
		l.DietaryRestrictions,
		l.WorkoutDaysPerWeek,
		l.Injuries,
	).Scan(&id)
	if err != nil {
		return "", translateAssessmentError(err)
	}
	return id, nil
}

func (r *assessmentRepository) UpdateLegacyColumns(ctx context.Context, id string, columns map[string]any) error {
	if len(columns) == 0 {
		return nil
	}
	sets := make([]string, 0, len(columns))
	args := make([]any, 0, len(columns)+1)
	for key, value := range columns {
		column, ok := legacyColumnNames[key]
		if !ok {
			return fmt.Errorf("unknown legacy column %q", key)
		}
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE assessments SET %s, updated_at=NOW() WHERE id=$%d`,
		strings.Join(sets, ", "), len(args))

	cmd, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return translateAssessmentError(err)
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *assessmentRepository) MergeCustomAnswers(ctx context.Context, id string, answers map[string]any) error {
	if len(answers) == 0 {
		return nil
	}
	const query = `
        UPDATE assessments SET custom_answers = custom_answers || $1::jsonb, updated_at=NOW()
        WHERE id=$2`

	payload, err := marshalAnswers(answers)
	if err != nil {
		return err
	}
	cmd, err := r.db.Exec(ctx, query, payload, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *assessmentRepository) SetStatus(ctx context.Context, id string, status domain.AssessmentStatus) error {
	const query = `UPDATE assessments SET status=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.db.Exec(ctx, query, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *assessmentRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	cmd, err := r.db.Exec(ctx, `DELETE FROM assessments WHERE user_id=$1`, userID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func marshalAnswers(answers map[string]any) (string, error) {
	if len(answers) == 0 {
		return "{}", nil
	}
	payload, err := json.Marshal(answers)
	if err != nil {
		return "", fmt.Errorf("marshal custom answers: %w", err)
	}
	return string(payload), nil
}

func translateAssessmentError(err error) error {
	switch code, _ := pgErrorCode(err); code {
	case pgUniqueViolation:
		return ErrCurrentAssessmentExists
	case pgCheckViolation:
		return fmt.Errorf("%w: %v", ErrCheckViolation, err)
	}
	return err
}
