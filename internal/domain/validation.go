package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ValidationError describes one failed field check
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Rule    string `json:"rule,omitempty"`
}

func (ve ValidationError) Error() string {
	return fmt.Sprintf("%s %s", ve.Field, ve.Message)
}

// ValidationErrors is the full list of problems found in one exercise
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	if len(ve) == 1 {
		return fmt.Sprintf("validation failed: %s", ve[0].Error())
	}
	msgs := make([]string, len(ve))
	for i, e := range ve {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(msgs, "; "))
}

// Unwrap lets errors.Is(err, ErrValidation) match
func (ve ValidationErrors) Unwrap() error {
	return ErrValidation
}

var (
	structValidator     *validator.Validate
	structValidatorOnce sync.Once
)

func getValidator() *validator.Validate {
	structValidatorOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		structValidator = v
	})
	return structValidator
}

// Validate checks the shape required before an exercise may be saved:
// a type, at least one question, at least one answer and a (possibly empty)
// dictionary.
func (e *Exercise) Validate() error {
	err := getValidator().Struct(e)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Message: validationMessage(fe),
			Rule:    fe.Tag(),
		})
	}
	return out
}

// ValidateKey checks the dictionary of a matching exercise: every question
// slot has exactly one entry and every referenced id is in range.
func (e *Exercise) ValidateKey() error {
	if !e.Type.IsMatching() {
		return nil
	}

	var errs ValidationErrors
	seen := make(map[int]bool, len(e.Dictionary))
	for i, entry := range e.Dictionary {
		field := fmt.Sprintf("dictionary[%d]", i)
		if entry.Question < 0 || entry.Question >= len(e.Questions) {
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("question %d out of range", entry.Question), Rule: "range"})
			continue
		}
		if entry.Answer < 0 || entry.Answer >= len(e.Answers) {
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("answer %d out of range", entry.Answer), Rule: "range"})
		}
		if seen[entry.Question] {
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("duplicate entry for question %d", entry.Question), Rule: "unique"})
		}
		seen[entry.Question] = true
	}
	for q := range e.Questions {
		if !seen[q] {
			errs = append(errs, ValidationError{Field: "dictionary", Message: fmt.Sprintf("no entry for question %d", q), Rule: "required"})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must not be empty"
	default:
		return fmt.Sprintf("failed rule '%s'", fe.Tag())
	}
}
