package core

import (
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

// validateAnswers type-checks the assembled answer map against the form's
// question types. Completeness is checked before this runs, so a nil answer
// here is only legal for optional questions.
func validateAnswers(form Form, answers map[string]any) []goerrors.FieldError {
	fieldErrors := make([]goerrors.FieldError, 0)
	for _, question := range form.Questions {
		value, ok := answers[question.ID]
		if !ok {
			continue
		}
		if value == nil {
			if question.Required {
				fieldErrors = append(fieldErrors, goerrors.FieldError{
					Field:   question.ID,
					Message: "required question answered with null",
				})
			}
			continue
		}
		if message := checkAnswerType(question, value); message != "" {
			fieldErrors = append(fieldErrors, goerrors.FieldError{
				Field:   question.ID,
				Message: message,
			})
		}
	}
	if len(fieldErrors) == 0 {
		return nil
	}
	return fieldErrors
}

func checkAnswerType(question Question, value any) string {
	switch question.Type {
	case "checkbox":
		if _, ok := value.(bool); !ok {
			return fmt.Sprintf("expected boolean answer, got %T", value)
		}
	case "number", "range":
		switch value.(type) {
		case float64, int, int64:
		default:
			return fmt.Sprintf("expected numeric answer, got %T", value)
		}
	case "select", "radio":
		text, ok := value.(string)
		if !ok {
			return fmt.Sprintf("expected string answer, got %T", value)
		}
		if !optionAllowed(question, text) {
			return fmt.Sprintf("answer %q is not one of the question options", text)
		}
	case "text", "textarea", "short_text", "code":
		if _, ok := value.(string); !ok {
			return fmt.Sprintf("expected string answer, got %T", value)
		}
	}
	return ""
}

func optionAllowed(question Question, answer string) bool {
	raw, ok := question.Data["options"]
	if !ok {
		return true
	}
	options, ok := raw.([]any)
	if !ok {
		return true
	}
	for _, option := range options {
		if text, ok := option.(string); ok && text == answer {
			return true
		}
	}
	return false
}
