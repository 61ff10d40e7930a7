package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Wire-level error codes returned to submitting callers. These are part of
// the inbound API contract, not internal labels.
const (
	SubmissionErrorNotFound           = "not_found"
	SubmissionErrorMissingDiscordData = "missing_discord_data"
	SubmissionErrorEmailRequired      = "email_required"
	SubmissionErrorMissingFields      = "missing_fields"
	SubmissionErrorValidationFailed   = "validation_failed"
	SubmissionErrorFailedTests        = "failed_tests"
	SubmissionErrorInternal           = "internal"
	SubmissionErrorExternal           = "external_failure"
	SubmissionErrorMisconfigured      = "notification_misconfigured"
)

// MetadataKeyFields carries the ordered ids of missing required questions.
const MetadataKeyFields = "fields"

// MetadataKeyTestResults carries the failing grading results.
const MetadataKeyTestResults = "test_results"

func NotFoundError(message string) *goerrors.Error {
	return goerrors.New(message, goerrors.CategoryNotFound).
		WithCode(http.StatusNotFound).
		WithTextCode(SubmissionErrorNotFound)
}

func BadRequestError(message string, textCode string) *goerrors.Error {
	return goerrors.New(message, goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(textCode)
}

func MissingFieldsError(fields []string) *goerrors.Error {
	return BadRequestError("core: submission is missing required fields", SubmissionErrorMissingFields).
		WithMetadata(map[string]any{
			MetadataKeyFields: append([]string(nil), fields...),
		})
}

func ValidationError(fieldErrors ...goerrors.FieldError) *goerrors.Error {
	return goerrors.NewValidation("core: response failed schema validation", fieldErrors...).
		WithCode(http.StatusUnprocessableEntity).
		WithTextCode(SubmissionErrorValidationFailed).
		WithSeverity(goerrors.SeverityError)
}

// FailedTestsError takes the full grading result slice. The severity is
// decided across every result, passing ones included, because the reserved
// return code can ride on a result the runner still marked as passed. Only
// the failing results are reported back to the caller.
func FailedTestsError(results []TestResult) *goerrors.Error {
	category := goerrors.CategoryAuthz
	code := http.StatusForbidden
	if HasInfraFailure(results) {
		category = goerrors.CategoryInternal
		code = http.StatusInternalServerError
	}
	return goerrors.New("core: submission failed grading", category).
		WithCode(code).
		WithTextCode(SubmissionErrorFailedTests).
		WithMetadata(map[string]any{
			MetadataKeyTestResults: FailingResults(results),
		})
}

func InternalError(source error, message string) *goerrors.Error {
	if source == nil {
		return goerrors.New(message, goerrors.CategoryInternal).
			WithCode(http.StatusInternalServerError).
			WithTextCode(SubmissionErrorInternal)
	}
	return goerrors.Wrap(source, goerrors.CategoryInternal, message).
		WithCode(http.StatusInternalServerError).
		WithTextCode(SubmissionErrorInternal)
}

func ConfigurationError(message string) *goerrors.Error {
	return goerrors.New(message, goerrors.CategoryOperation).
		WithCode(http.StatusInternalServerError).
		WithTextCode(SubmissionErrorMisconfigured)
}

func submissionErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureSubmissionErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "not found"):
		return ensureSubmissionErrorEnvelope(
			goerrors.New(err.Error(), goerrors.CategoryNotFound).
				WithTextCode(SubmissionErrorNotFound),
		)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return ensureSubmissionErrorEnvelope(
			goerrors.New(err.Error(), goerrors.CategoryBadInput).
				WithTextCode(SubmissionErrorMissingFields),
		)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureSubmissionErrorEnvelope(mapped)
}

func ensureSubmissionErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = submissionHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultSubmissionTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultSubmissionTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput:
		return SubmissionErrorMissingFields
	case goerrors.CategoryValidation:
		return SubmissionErrorValidationFailed
	case goerrors.CategoryNotFound:
		return SubmissionErrorNotFound
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return SubmissionErrorFailedTests
	case goerrors.CategoryExternal:
		return SubmissionErrorExternal
	case goerrors.CategoryOperation:
		return SubmissionErrorMisconfigured
	default:
		return SubmissionErrorInternal
	}
}

func submissionHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput:
		return http.StatusBadRequest
	case goerrors.CategoryValidation:
		return http.StatusUnprocessableEntity
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
