package domain

import (
	"regexp"
	"time"
)

// FieldType controls how a question is rendered and validated.
type FieldType string

const (
	FieldText        FieldType = "text"
	FieldTextarea    FieldType = "textarea"
	FieldNumber      FieldType = "number"
	FieldSelect      FieldType = "select"
	FieldMultiSelect FieldType = "multiselect"
	FieldBoolean     FieldType = "boolean"
)

// Valid reports whether f is a supported field type.
func (f FieldType) Valid() bool {
	switch f {
	case FieldText, FieldTextarea, FieldNumber, FieldSelect, FieldMultiSelect, FieldBoolean:
		return true
	}
	return false
}

// HasOptions reports whether answers must come from the option list.
func (f FieldType) HasOptions() bool {
	return f == FieldSelect || f == FieldMultiSelect
}

var fieldKeyPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ValidFieldKey reports whether key is lowercase snake_case.
func ValidFieldKey(key string) bool {
	return fieldKeyPattern.MatchString(key)
}

// QuestionOption is one allowed answer for select questions.
type QuestionOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Question is an entry in the assessment question catalog.
type Question struct {
	ID        string
	FieldKey  string
	Label     string
	Section   string
	FieldType FieldType
	Options   []QuestionOption
	Required  bool
	MinValue  *float64
	MaxValue  *float64
	MaxLength *int
	SortOrder int
	IsActive  bool
	IsLegacy  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasOption reports whether value is one of the configured option values.
func (q Question) HasOption(value string) bool {
	for _, opt := range q.Options {
		if opt.Value == value {
			return true
		}
	}
	return false
}
