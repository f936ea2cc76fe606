package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/fitcore/fitness-gatekeeper/internal/domain"
	"github.com/fitcore/fitness-gatekeeper/internal/repository"
	"github.com/fitcore/fitness-gatekeeper/pkg/util/errorutil"
)

// QuestionService administers the assessment question catalog.
type QuestionService struct {
	store  repository.Store
	logger *zap.Logger
}

// NewQuestionService constructs the service.
func NewQuestionService(store repository.Store, logger *zap.Logger) *QuestionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuestionService{store: store, logger: logger}
}

// QuestionCreateInput describes a new catalog entry.
type QuestionCreateInput struct {
	FieldKey  string
	Label     string
	Section   string
	FieldType domain.FieldType
	Options   []domain.QuestionOption
	Required  bool
	MinValue  *float64
	MaxValue  *float64
	MaxLength *int
	SortOrder int
	IsActive  *bool
}

// QuestionUpdateInput is a partial update; nil fields are left unchanged.
type QuestionUpdateInput struct {
	FieldKey  *string
	Label     *string
	Section   *string
	FieldType *domain.FieldType
	Options   *[]domain.QuestionOption
	Required  *bool
	MinValue  *float64
	MaxValue  *float64
	MaxLength *int
	SortOrder *int
	IsActive  *bool
}

// List returns catalog entries ordered for display.
func (s *QuestionService) List(ctx context.Context, activeOnly bool, section *string) ([]domain.Question, error) {
	return s.store.Repositories().Questions.List(ctx, repository.QuestionFilter{ActiveOnly: activeOnly, Section: section})
}

// Get returns one catalog entry.
func (s *QuestionService) Get(ctx context.Context, id string) (*domain.Question, error) {
	q, err := s.store.Repositories().Questions.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errorutil.NewNotFound("question", map[string]any{"id": id})
	}
	return q, err
}

// Create adds a non-legacy question.
func (s *QuestionService) Create(ctx context.Context, input QuestionCreateInput) (*domain.Question, error) {
	q := &domain.Question{
		FieldKey:  strings.TrimSpace(input.FieldKey),
		Label:     strings.TrimSpace(input.Label),
		Section:   strings.TrimSpace(input.Section),
		FieldType: input.FieldType,
		Options:   input.Options,
		Required:  input.Required,
		MinValue:  input.MinValue,
		MaxValue:  input.MaxValue,
		MaxLength: input.MaxLength,
		SortOrder: input.SortOrder,
		IsActive:  true,
	}
	if input.IsActive != nil {
		q.IsActive = *input.IsActive
	}
	if err := validateQuestion(q); err != nil {
		return nil, err
	}
	if err := s.store.Repositories().Questions.Create(ctx, q); err != nil {
		return nil, translateStoreError(err)
	}
	s.logger.Info("question created", zap.String("question_id", q.ID), zap.String("field_key", q.FieldKey))
	return q, nil
}

// Update applies a partial update. On legacy questions any attempt to set
// field_key or field_type is rejected.
func (s *QuestionService) Update(ctx context.Context, id string, input QuestionUpdateInput) (*domain.Question, error) {
	var updated *domain.Question
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		q, err := repos.Questions.GetByID(ctx, id)
		if errors.Is(err, pgx.ErrNoRows) {
			return errorutil.NewNotFound("question", map[string]any{"id": id})
		}
		if err != nil {
			return err
		}
		if q.IsLegacy {
			if err := legacyImmutable(input); err != nil {
				return err
			}
		}
		applyQuestionUpdate(q, input)
		if err := validateQuestion(q); err != nil {
			return err
		}
		if err := repos.Questions.Update(ctx, q); err != nil {
			return translateStoreError(err)
		}
		updated = q
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("question updated", zap.String("question_id", id))
	return updated, nil
}

// Deactivate hides a question from the form without deleting it.
func (s *QuestionService) Deactivate(ctx context.Context, id string) (*domain.Question, error) {
	inactive := false
	return s.Update(ctx, id, QuestionUpdateInput{IsActive: &inactive})
}

// Delete removes a non-legacy question.
func (s *QuestionService) Delete(ctx context.Context, id string) error {
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		q, err := repos.Questions.GetByID(ctx, id)
		if errors.Is(err, pgx.ErrNoRows) {
			return errorutil.NewNotFound("question", map[string]any{"id": id})
		}
		if err != nil {
			return err
		}
		if q.IsLegacy {
			return errorutil.NewFieldValidationError(errorutil.CodeLegacyFieldUndeletable,
				"legacy questions cannot be deleted; deactivate them instead",
				map[string]any{"field_key": q.FieldKey})
		}
		return repos.Questions.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.logger.Info("question deleted", zap.String("question_id", id))
	return nil
}

func legacyImmutable(input QuestionUpdateInput) error {
	var fields []string
	if input.FieldKey != nil {
		fields = append(fields, "field_key")
	}
	if input.FieldType != nil {
		fields = append(fields, "field_type")
	}
	if len(fields) == 0 {
		return nil
	}
	return errorutil.NewFieldValidationError(errorutil.CodeLegacyFieldImmutable,
		"field_key and field_type of a legacy question cannot be changed",
		map[string]any{"fields": fields})
}

func applyQuestionUpdate(q *domain.Question, input QuestionUpdateInput) {
	if input.FieldKey != nil {
		q.FieldKey = strings.TrimSpace(*input.FieldKey)
	}
	if input.Label != nil {
		q.Label = strings.TrimSpace(*input.Label)
	}
	if input.Section != nil {
		q.Section = strings.TrimSpace(*input.Section)
	}
	if input.FieldType != nil {
		q.FieldType = *input.FieldType
	}
	if input.Options != nil {
		q.Options = *input.Options
	}
	if input.Required != nil {
		q.Required = *input.Required
	}
	if input.MinValue != nil {
		q.MinValue = input.MinValue
	}
	if input.MaxValue != nil {
		q.MaxValue = input.MaxValue
	}
	if input.MaxLength != nil {
		q.MaxLength = input.MaxLength
	}
	if input.SortOrder != nil {
		q.SortOrder = *input.SortOrder
	}
	if input.IsActive != nil {
		q.IsActive = *input.IsActive
	}
}

// validateQuestion rejects malformed definitions before they reach storage.
func validateQuestion(q *domain.Question) error {
	if !domain.ValidFieldKey(q.FieldKey) {
		return errorutil.NewFieldValidationError(errorutil.CodeFieldKeyFormat,
			"field_key must be lowercase snake_case",
			map[string]any{"field_key": q.FieldKey})
	}
	problems := FieldErrors{}
	if q.Label == "" {
		problems.add("label", ReasonRequired)
	}
	if !q.FieldType.Valid() {
		problems.add("field_type", ReasonInvalidOption)
	}
	if q.FieldType.HasOptions() && len(q.Options) == 0 {
		problems.add("options", ReasonRequired)
	}
	for _, opt := range q.Options {
		if strings.TrimSpace(opt.Value) == "" {
			problems.add("options", ReasonRequired)
		}
	}
	if q.MinValue != nil && q.MaxValue != nil && *q.MinValue > *q.MaxValue {
		problems.add("min_value", ReasonAboveMaximum)
	}
	if q.MaxLength != nil && *q.MaxLength < 0 {
		problems.add("max_length", ReasonBelowMinimum)
	}
	return problems.err("question definition is invalid")
}
