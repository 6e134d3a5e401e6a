package common

import (
	"fmt"
	"strings"
	"time"
)

// Problem is one rejected configuration value.
type Problem struct {
	Field   string
	Value   any
	Message string
}

func (p Problem) String() string {
	return fmt.Sprintf("%s=%q %s", p.Field, fmt.Sprint(p.Value), p.Message)
}

// Rule returns a message when value is unacceptable, "" otherwise.
type Rule func(value any) string

// Validator collects every problem instead of stopping at the first one.
type Validator struct {
	problems []Problem
}

func NewValidator() *Validator {
	return &Validator{}
}

// Field applies rules to value in order, recording each failure.
func (v *Validator) Field(name string, value any, rules ...Rule) *Validator {
	for _, rule := range rules {
		if msg := rule(value); msg != "" {
			v.problems = append(v.problems, Problem{Field: name, Value: value, Message: msg})
		}
	}
	return v
}

func (v *Validator) Problems() []Problem {
	return v.problems
}

// Err folds the problems into one AppError with the given code, or nil.
func (v *Validator) Err(code string) error {
	if len(v.problems) == 0 {
		return nil
	}
	parts := make([]string, len(v.problems))
	for i, p := range v.problems {
		parts[i] = p.String()
	}
	return NewAppError(code, "invalid configuration: "+strings.Join(parts, "; "), ErrValidation)
}

func Required(value any) string {
	if s, ok := value.(string); ok && strings.TrimSpace(s) != "" {
		return ""
	}
	return "is required"
}

// Positive rejects zero or negative numbers and durations.
func Positive(value any) string {
	if sign(value) <= 0 {
		return "must be positive"
	}
	return ""
}

func NonNegative(value any) string {
	if sign(value) < 0 {
		return "must not be negative"
	}
	return ""
}

// OneOf accepts only the listed strings.
func OneOf(allowed ...string) Rule {
	return func(value any) string {
		s, _ := value.(string)
		for _, a := range allowed {
			if s == a {
				return ""
			}
		}
		return "must be one of " + strings.Join(allowed, ", ")
	}
}

// sign reports -1, 0 or 1 for the supported numeric kinds; anything else is 0.
func sign(value any) int {
	var f float64
	switch v := value.(type) {
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case float64:
		f = v
	case time.Duration:
		f = float64(v)
	}
	switch {
	case f < 0:
		return -1
	case f > 0:
		return 1
	}
	return 0
}
