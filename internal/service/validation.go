package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/fitcore/fitness-gatekeeper/internal/domain"
	"github.com/fitcore/fitness-gatekeeper/internal/repository"
	"github.com/fitcore/fitness-gatekeeper/pkg/util/errorutil"
)

// Reasons reported per field in a validation error.
const (
	ReasonRequired      = "required"
	ReasonUnknownField  = "unknown_field"
	ReasonWrongType     = "wrong_type"
	ReasonTooLong       = "too_long"
	ReasonTooShort      = "too_short"
	ReasonBelowMinimum  = "below_minimum"
	ReasonAboveMaximum  = "above_maximum"
	ReasonInvalidOption = "invalid_option"
)

// FieldErrors maps a field key to the reason it was rejected.
type FieldErrors map[string]string

func (f FieldErrors) add(key, reason string) {
	if _, exists := f[key]; !exists {
		f[key] = reason
	}
}

func (f FieldErrors) err(message string) error {
	if len(f) == 0 {
		return nil
	}
	fields := make(map[string]any, len(f))
	for k, v := range f {
		fields[k] = v
	}
	return errorutil.NewValidationError(message, map[string]any{"fields": fields})
}

// ValidateAnswers checks answers against the active catalog and returns them
// normalized to string, float64, []string or bool. Every violation is
// collected before returning.
func ValidateAnswers(answers map[string]any, catalog []domain.Question) (map[string]any, error) {
	byKey := catalogByKey(catalog)
	problems := FieldErrors{}
	normalized := make(map[string]any, len(answers))

	for key := range answers {
		if _, ok := byKey[key]; !ok {
			problems.add(key, ReasonUnknownField)
		}
	}

	for _, q := range catalog {
		raw, present := answers[q.FieldKey]
		if !present || isEmptyAnswer(raw) {
			if q.Required {
				problems.add(q.FieldKey, ReasonRequired)
			}
			continue
		}
		value, reason := normalizeAnswer(q, raw)
		if reason != "" {
			problems.add(q.FieldKey, reason)
			continue
		}
		normalized[q.FieldKey] = value
	}

	if err := problems.err("assessment answers are invalid"); err != nil {
		return nil, err
	}
	return normalized, nil
}

func normalizeAnswer(q domain.Question, raw any) (any, string) {
	switch q.FieldType {
	case domain.FieldText, domain.FieldTextarea:
		s, ok := raw.(string)
		if !ok {
			return nil, ReasonWrongType
		}
		s = strings.TrimSpace(s)
		if q.MaxLength != nil && utf8.RuneCountInString(s) > *q.MaxLength {
			return nil, ReasonTooLong
		}
		if q.FieldKey == domain.KeyPrimaryGoals && utf8.RuneCountInString(s) < domain.PrimaryGoalsMinLength {
			return nil, ReasonTooShort
		}
		return s, ""
	case domain.FieldNumber:
		n, ok := toFloat(raw)
		if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, ReasonWrongType
		}
		if q.MinValue != nil && n < *q.MinValue {
			return nil, ReasonBelowMinimum
		}
		if q.MaxValue != nil && n > *q.MaxValue {
			return nil, ReasonAboveMaximum
		}
		return n, ""
	case domain.FieldSelect:
		s, ok := raw.(string)
		if !ok {
			return nil, ReasonWrongType
		}
		if !q.HasOption(s) {
			return nil, ReasonInvalidOption
		}
		return s, ""
	case domain.FieldMultiSelect:
		values, ok := toStrings(raw)
		if !ok {
			return nil, ReasonWrongType
		}
		for _, v := range values {
			if !q.HasOption(v) {
				return nil, ReasonInvalidOption
			}
		}
		return values, ""
	case domain.FieldBoolean:
		b, ok := raw.(bool)
		if !ok {
			return nil, ReasonWrongType
		}
		return b, ""
	}
	return nil, ReasonWrongType
}

func isEmptyAnswer(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []any:
		return len(val) == 0
	case []string:
		return len(val) == 0
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	}
	return 0, false
}

func toStrings(v any) ([]string, bool) {
	switch val := v.(type) {
	case []string:
		return append([]string(nil), val...), true
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

func catalogByKey(catalog []domain.Question) map[string]domain.Question {
	out := make(map[string]domain.Question, len(catalog))
	for _, q := range catalog {
		out[q.FieldKey] = q
	}
	return out
}

func activeCatalog(ctx context.Context, questions repository.QuestionRepository) ([]domain.Question, error) {
	catalog, err := questions.List(ctx, repository.QuestionFilter{ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("load question catalog: %w", err)
	}
	return catalog, nil
}

// validatePlan checks the parts of a plan the stores rely on.
func validatePlan(field string, plan *domain.Plan) FieldErrors {
	problems := FieldErrors{}
	if plan == nil {
		problems.add(field, ReasonRequired)
		return problems
	}
	if strings.TrimSpace(plan.Title) == "" {
		problems.add(field+".title", ReasonRequired)
	}
	for i, week := range plan.Weeks {
		if week.Week < 1 {
			problems.add(fmt.Sprintf("%s.weeks[%d].week", field, i), ReasonBelowMinimum)
		}
	}
	return problems
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
