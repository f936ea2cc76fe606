package dto

import (
	"time"

	"github.com/fitcore/fitness-gatekeeper/internal/domain"
)

// SubmitAssessmentRequest carries answers keyed by question field key.
type SubmitAssessmentRequest struct {
	Answers map[string]any `json:"answers"`
}

// AssessmentResponse acknowledges a submitted assessment.
type AssessmentResponse struct {
	ID              string                  `json:"id"`
	Status          domain.AssessmentStatus `json:"status"`
	GatekeeperState domain.GatekeeperState  `json:"gatekeeper_state"`
}

// QuestionResponse describes a catalog entry.
type QuestionResponse struct {
	ID        string                  `json:"id"`
	FieldKey  string                  `json:"field_key"`
	Label     string                  `json:"label"`
	Section   string                  `json:"section"`
	FieldType domain.FieldType        `json:"field_type"`
	Options   []domain.QuestionOption `json:"options"`
	Required  bool                    `json:"required"`
	MinValue  *float64                `json:"min_value"`
	MaxValue  *float64                `json:"max_value"`
	MaxLength *int                    `json:"max_length"`
	SortOrder int                     `json:"sort_order"`
	IsActive  bool                    `json:"is_active"`
	IsLegacy  bool                    `json:"is_legacy"`
	CreatedAt time.Time               `json:"created_at"`
	UpdatedAt time.Time               `json:"updated_at"`
}

// NewQuestionResponse maps a question.
func NewQuestionResponse(q *domain.Question) QuestionResponse {
	options := q.Options
	if options == nil {
		options = []domain.QuestionOption{}
	}
	return QuestionResponse{
		ID:        q.ID,
		FieldKey:  q.FieldKey,
		Label:     q.Label,
		Section:   q.Section,
		FieldType: q.FieldType,
		Options:   options,
		Required:  q.Required,
		MinValue:  q.MinValue,
		MaxValue:  q.MaxValue,
		MaxLength: q.MaxLength,
		SortOrder: q.SortOrder,
		IsActive:  q.IsActive,
		IsLegacy:  q.IsLegacy,
		CreatedAt: q.CreatedAt,
		UpdatedAt: q.UpdatedAt,
	}
}

// NewQuestionList maps a slice of questions.
func NewQuestionList(qs []domain.Question) []QuestionResponse {
	out := make([]QuestionResponse, 0, len(qs))
	for i := range qs {
		out = append(out, NewQuestionResponse(&qs[i]))
	}
	return out
}

// CreateQuestionRequest payload.
type CreateQuestionRequest struct {
	FieldKey  string                  `json:"field_key"`
	Label     string                  `json:"label"`
	Section   string                  `json:"section"`
	FieldType domain.FieldType        `json:"field_type"`
	Options   []domain.QuestionOption `json:"options"`
	Required  bool                    `json:"required"`
	MinValue  *float64                `json:"min_value"`
	MaxValue  *float64                `json:"max_value"`
	MaxLength *int                    `json:"max_length"`
	SortOrder int                     `json:"sort_order"`
	IsActive  *bool                   `json:"is_active"`
}

// UpdateQuestionRequest is a partial update; omitted fields are unchanged.
type UpdateQuestionRequest struct {
	FieldKey  *string                  `json:"field_key"`
	Label     *string                  `json:"label"`
	Section   *string                  `json:"section"`
	FieldType *domain.FieldType        `json:"field_type"`
	Options   *[]domain.QuestionOption `json:"options"`
	Required  *bool                    `json:"required"`
	MinValue  *float64                 `json:"min_value"`
	MaxValue  *float64                 `json:"max_value"`
	MaxLength *int                     `json:"max_length"`
	SortOrder *int                     `json:"sort_order"`
	IsActive  *bool                    `json:"is_active"`
}
