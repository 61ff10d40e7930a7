// Package grading submits graded questions to an external unittest runner
// and collects per-question results.
package grading

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-forms/core"
)

const defaultTimeout = 60 * time.Second
const defaultResponseBodyLimit int64 = 4 << 20

const gradePath = "grade"

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Runner implements core.Grader over an HTTP grading service. One request per
// submission, one result per graded question.
type Runner struct {
	httpClient HTTPDoer
	baseURL    *url.URL
}

type RunnerOption func(*Runner)

func WithHTTPClient(doer HTTPDoer) RunnerOption {
	return func(r *Runner) {
		if doer != nil {
			r.httpClient = doer
		}
	}
}

func NewRunner(cfg core.GradingConfig, options ...RunnerOption) (*Runner, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, fmt.Errorf("grading: base url is required")
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("grading: base url is invalid: %w", err)
	}
	runner := &Runner{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    parsed,
	}
	for _, option := range options {
		if option != nil {
			option(runner)
		}
	}
	return runner, nil
}

type gradedQuestion struct {
	QuestionID string `json:"question_id"`
	Suite      string `json:"suite"`
	Answer     any    `json:"answer"`
}

type gradeRequest struct {
	FormID     string           `json:"form_id"`
	ResponseID string           `json:"response_id"`
	Questions  []gradedQuestion `json:"questions"`
}

// Grade sends the graded questions of a validated response to the runner and
// returns one result per graded question. Questions without grading metadata
// are excluded; when no question carries it, no request is made and Grade
// returns nil results with a nil error.
func (r *Runner) Grade(
	ctx context.Context,
	form core.Form,
	response core.FormResponse,
) ([]core.TestResult, error) {
	if r == nil || r.httpClient == nil {
		return nil, fmt.Errorf("grading: runner is not configured")
	}

	payload := gradeRequest{
		FormID:     form.ID,
		ResponseID: response.ID,
	}
	for _, question := range form.Questions {
		if !question.Graded() {
			continue
		}
		suite, _ := question.Data["unittests"].(string)
		payload.Questions = append(payload.Questions, gradedQuestion{
			QuestionID: question.ID,
			Suite:      suite,
			Answer:     response.Answers[question.ID],
		})
	}
	if len(payload.Questions) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("grading: encode request: %w", err)
	}

	target := r.baseURL.ResolveReference(&url.URL{Path: gradePath})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("grading: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := r.httpClient.Do(req)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "grading: runner call failed").
			WithTextCode(core.SubmissionErrorInternal)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, defaultResponseBodyLimit))
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "grading: read runner response").
			WithTextCode(core.SubmissionErrorInternal)
	}
	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return nil, goerrors.New("grading: runner returned a non-success status", goerrors.CategoryInternal).
			WithCode(http.StatusInternalServerError).
			WithTextCode(core.SubmissionErrorInternal).
			WithMetadata(map[string]any{
				"status_code": res.StatusCode,
				"body":        string(raw),
			})
	}

	var results []core.TestResult
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "grading: decode runner response").
			WithTextCode(core.SubmissionErrorInternal)
	}
	return results, nil
}

var _ core.Grader = (*Runner)(nil)
