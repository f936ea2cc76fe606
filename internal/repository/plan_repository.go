package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fitcore/fitness-gatekeeper/internal/domain"
)

// PlanRepository persists one kind of plan. Creating an active plan does not
// deactivate earlier ones; callers deactivate first.
type PlanRepository interface {
	Create(ctx context.Context, plan *domain.Plan) error
	GetActive(ctx context.Context, userID string) (*domain.Plan, error)
	HasActive(ctx context.Context, userID string) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Plan, error)
	DeactivateByUser(ctx context.Context, userID string) (int64, error)
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}

type planRepository struct {
	db    DBTX
	kind  domain.PlanKind
	table string
}

// NewPlanRepository returns the repository for the diet_plans or workout_plans table.
func NewPlanRepository(db DBTX, kind domain.PlanKind) PlanRepository {
	table := "workout_plans"
	if kind == domain.PlanKindDiet {
		table = "diet_plans"
	}
	return &planRepository{db: db, kind: kind, table: table}
}

func (r *planRepository) Create(ctx context.Context, plan *domain.Plan) error {
	weeks, err := json.Marshal(plan.Weeks)
	if err != nil {
		return fmt.Errorf("marshal plan weeks: %w", err)
	}
	query := fmt.Sprintf(`
        INSERT INTO %s (user_id, title, weeks, is_active)
        VALUES ($1,$2,$3::jsonb,$4)
        RETURNING id, created_at`, r.table)

	err = r.db.QueryRow(ctx, query, plan.UserID, plan.Title, string(weeks), plan.IsActive).
		Scan(&plan.ID, &plan.CreatedAt)
	if code, _ := pgErrorCode(err); code == pgUniqueViolation {
		return ErrActivePlanExists
	}
	plan.Kind = r.kind
	return err
}

func (r *planRepository) GetActive(ctx context.Context, userID string) (*domain.Plan, error) {
	query := fmt.Sprintf(`
        SELECT id, user_id, title, weeks, is_active, created_at
        FROM %s WHERE user_id=$1 AND is_active
        ORDER BY created_at DESC LIMIT 1`, r.table)

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	plans, err := r.scanPlans(rows)
	if err != nil {
		return nil, err
	}
	if len(plans) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &plans[0], nil
}

func (r *planRepository) HasActive(ctx context.Context, userID string) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE user_id=$1 AND is_active)`, r.table)
	var exists bool
	if err := r.db.QueryRow(ctx, query, userID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *planRepository) ListByUser(ctx context.Context, userID string) ([]domain.Plan, error) {
	query := fmt.Sprintf(`
        SELECT id, user_id, title, weeks, is_active, created_at
        FROM %s WHERE user_id=$1 ORDER BY created_at DESC`, r.table)

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanPlans(rows)
}

func (r *planRepository) DeactivateByUser(ctx context.Context, userID string) (int64, error) {
	query := fmt.Sprintf(`UPDATE %s SET is_active=FALSE WHERE user_id=$1 AND is_active`, r.table)
	cmd, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *planRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE user_id=$1`, r.table)
	cmd, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *planRepository) scanPlans(rows pgx.Rows) ([]domain.Plan, error) {
	var result []domain.Plan
	for rows.Next() {
		var plan domain.Plan
		var weeks []byte
		if err := rows.Scan(
			&plan.ID,
			&plan.UserID,
			&plan.Title,
			&weeks,
			&plan.IsActive,
			&plan.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(weeks) > 0 {
			if err := json.Unmarshal(weeks, &plan.Weeks); err != nil {
				return nil, fmt.Errorf("decode plan weeks: %w", err)
			}
		}
		plan.Kind = r.kind
		result = append(result, plan)
	}
	return result, rows.Err()
}
