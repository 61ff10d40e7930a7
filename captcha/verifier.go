// Package captcha verifies client challenge tokens against an hCaptcha
// compatible verification endpoint.
package captcha

import (
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

const defaultTimeout = 15 * time.Second
const defaultResponseBodyLimit int64 = 1 << 20

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Verifier implements core.CaptchaVerifier over a form-encoded verification
// endpoint. Transport failures propagate to the caller; only a well-formed
// response produces a verdict.
type Verifier struct {
	httpClient HTTPDoer
	verifyURL  string
	secret     string
}

type VerifierOption func(*Verifier)

func WithHTTPClient(doer HTTPDoer) VerifierOption {
	return func(v *Verifier) {
		if doer != nil {
			v.httpClient = doer
		}
	}
}

func NewVerifier(cfg core.CaptchaConfig, options ...VerifierOption) (*Verifier, error) {
	verifyURL := strings.TrimSpace(cfg.VerifyURL)
	if verifyURL == "" {
		return nil, fmt.Errorf("captcha: verify url is required")
	}
	if _, err := url.Parse(verifyURL); err != nil {
		return nil, fmt.Errorf("captcha: verify url is invalid: %w", err)
	}
	verifier := &Verifier{
		httpClient: &http.Client{Timeout: defaultTimeout},
		verifyURL:  verifyURL,
		secret:     cfg.Secret,
	}
	for _, option := range options {
		if option != nil {
			option(verifier)
		}
	}
	return verifier, nil
}

type verdict struct {
	Success bool `json:"success"`
}

// Verify posts the client token to the verification endpoint and returns the
// service's boolean verdict.
func (v *Verifier) Verify(ctx context.Context, token string) (bool, error) {
	if v == nil || v.httpClient == nil {
		return false, fmt.Errorf("captcha: verifier is not configured")
	}

	payload := url.Values{}
	payload.Set("secret", v.secret)
	payload.Set("response", token)

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		v.verifyURL,
		strings.NewReader(payload.Encode()),
	)
	if err != nil {
		return false, fmt.Errorf("captcha: build verification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := v.httpClient.Do(req)
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryExternal, "captcha: verification call failed").
			WithTextCode(core.SubmissionErrorExternal)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, defaultResponseBodyLimit))
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryExternal, "captcha: read verification response").
			WithTextCode(core.SubmissionErrorExternal)
	}
	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return false, goerrors.New("captcha: verification service returned a non-success status", goerrors.CategoryExternal).
			WithCode(res.StatusCode).
			WithTextCode(core.SubmissionErrorExternal).
			WithMetadata(map[string]any{
				"status_code": res.StatusCode,
				"body":        string(body),
			})
	}

	var result verdict
	if err := json.Unmarshal(body, &result); err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryExternal, "captcha: decode verification response").
			WithTextCode(core.SubmissionErrorExternal)
	}
	return result.Success, nil
}

var _ core.CaptchaVerifier = (*Verifier)(nil)
