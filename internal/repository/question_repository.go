package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fitcore/fitness-gatekeeper/internal/domain"
)

// QuestionFilter narrows catalog listings.
type QuestionFilter struct {
	ActiveOnly bool
	Section    *string
}

// QuestionRepository persists the assessment question catalog.
type QuestionRepository interface {
	List(ctx context.Context, filter QuestionFilter) ([]domain.Question, error)
	GetByID(ctx context.Context, id string) (*domain.Question, error)
	Create(ctx context.Context, q *domain.Question) error
	Update(ctx context.Context, q *domain.Question) error
	Delete(ctx context.Context, id string) error
}

type questionRepository struct {
	db DBTX
}

// NewQuestionRepository builds repository.
func NewQuestionRepository(db DBTX) QuestionRepository {
	return &questionRepository{db: db}
}

const questionColumns = `id, field_key, label, section, field_type, options, required, min_value, max_value,
               max_length, sort_order, is_active, is_legacy, created_at, updated_at`

func (r *questionRepository) List(ctx context.Context, filter QuestionFilter) ([]domain.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM assessment_questions WHERE 1=1`
	args := []any{}
	if filter.ActiveOnly {
		query += ` AND is_active`
	}
	if filter.Section != nil {
		args = append(args, *filter.Section)
		query += fmt.Sprintf(` AND section=$%d`, len(args))
	}
	query += ` ORDER BY sort_order ASC, field_key ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *q)
	}
	return result, rows.Err()
}

func (r *questionRepository) GetByID(ctx context.Context, id string) (*domain.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM assessment_questions WHERE id=$1`
	return scanQuestion(r.db.QueryRow(ctx, query, id))
}

func (r *questionRepository) Create(ctx context.Context, q *domain.Question) error {
	const query = `
        INSERT INTO assessment_questions (field_key, label, section, field_type, options, required,
            min_value, max_value, max_length, sort_order, is_active, is_legacy)
        VALUES ($1,$2,$3,$4,$5::jsonb,$6,$7,$8,$9,$10,$11,$12)
        RETURNING id, created_at, updated_at`

	options, err := marshalOptions(q.Options)
	if err != nil {
		return err
	}
	err = r.db.QueryRow(ctx, query,
		q.FieldKey,
		q.Label,
		q.Section,
		q.FieldType,
		options,
		q.Required,
		q.MinValue,
		q.MaxValue,
		q.MaxLength,
		q.SortOrder,
		q.IsActive,
		q.IsLegacy,
	).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
	return translateQuestionError(err)
}

func (r *questionRepository) Update(ctx context.Context, q *domain.Question) error {
	const query = `
        UPDATE assessment_questions SET field_key=$1, label=$2, section=$3, field_type=$4, options=$5::jsonb,
            required=$6, min_value=$7, max_value=$8, max_length=$9, sort_order=$10, is_active=$11, updated_at=NOW()
        WHERE id=$12
        RETURNING updated_at`

	options, err := marshalOptions(q.Options)
	if err != nil {
		return err
	}
	err = r.db.QueryRow(ctx, query,
		q.FieldKey,
		q.Label,
		q.Section,
		q.FieldType,
		options,
		q.Required,
		q.MinValue,
		q.MaxValue,
		q.MaxLength,
		q.SortOrder,
		q.IsActive,
		q.ID,
	).Scan(&q.UpdatedAt)
	return translateQuestionError(err)
}

func (r *questionRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM assessment_questions WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanQuestion(row pgx.Row) (*domain.Question, error) {
	var q domain.Question
	var options []byte
	if err := row.Scan(
		&q.ID,
		&q.FieldKey,
		&q.Label,
		&q.Section,
		&q.FieldType,
		&options,
		&q.Required,
		&q.MinValue,
		&q.MaxValue,
		&q.MaxLength,
		&q.SortOrder,
		&q.IsActive,
		&q.IsLegacy,
		&q.CreatedAt,
		&q.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(options) > 0 {
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return nil, fmt.Errorf("decode question options: %w", err)
		}
	}
	return &q, nil
}

func marshalOptions(options []domain.QuestionOption) (string, error) {
	if options == nil {
		options = []domain.QuestionOption{}
	}
	payload, err := json.Marshal(options)
	if err != nil {
		return "", fmt.Errorf("marshal question options: %w", err)
	}
	return string(payload), nil
}

func translateQuestionError(err error) error {
	if code, _ := pgErrorCode(err); code == pgUniqueViolation {
		return ErrDuplicateFieldKey
	}
	return err
}
