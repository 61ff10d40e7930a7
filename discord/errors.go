package discord

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-forms/core"
)

const metadataKeyStatusCode = "status_code"
const metadataKeyBody = "body"

func apiError(
	message string,
	category goerrors.Category,
	code int,
	metadata map[string]any,
) error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(apiTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func apiWrapError(
	source error,
	category goerrors.Category,
	message string,
	code int,
	metadata map[string]any,
) error {
	if source == nil {
		return apiError(message, category, code, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(apiTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// statusError preserves the upstream status and body so callers can narrow
// on specific codes without reissuing the request.
func statusError(method string, target string, res Response) error {
	return apiError(
		"discord: api call returned a non-success status",
		goerrors.CategoryExternal,
		res.StatusCode,
		map[string]any{
			"method":              method,
			"url":                 target,
			metadataKeyStatusCode: res.StatusCode,
			metadataKeyBody:       string(res.Body),
		},
	)
}

func apiTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput:
		return core.SubmissionErrorMissingFields
	case goerrors.CategoryExternal:
		return core.SubmissionErrorExternal
	default:
		return core.SubmissionErrorInternal
	}
}

// StatusCode extracts the upstream HTTP status from an API error. Zero means
// the error carries no status (transport failure before a response arrived).
func StatusCode(err error) int {
	if err == nil {
		return 0
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return 0
	}
	if richErr.Metadata != nil {
		if status, ok := richErr.Metadata[metadataKeyStatusCode].(int); ok {
			return status
		}
	}
	if richErr.Category == goerrors.CategoryExternal && richErr.Code >= http.StatusBadRequest {
		return richErr.Code
	}
	return 0
}

// IsStatus reports whether err is an API error with the given upstream status.
func IsStatus(err error, status int) bool {
	return err != nil && StatusCode(err) == status
}
