package core

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrFormNotFound     = errors.New("core: open form not found")
	ErrInvalidFeature   = errors.New("core: invalid form feature")
	ErrMissingWebhook   = errors.New("core: form has no webhook configured")
	ErrMissingRole      = errors.New("core: form has no role configured")
	ErrMissingDMMessage = errors.New("core: form has no dm message configured")
)

type FormFeature string

const (
	FeatureOpen            FormFeature = "OPEN"
	FeatureRequiresLogin   FormFeature = "REQUIRES_LOGIN"
	FeatureCollectEmail    FormFeature = "COLLECT_EMAIL"
	FeatureDisableAntispam FormFeature = "DISABLE_ANTISPAM"
	FeatureWebhookEnabled  FormFeature = "WEBHOOK_ENABLED"
	FeatureAssignRole      FormFeature = "ASSIGN_ROLE"
)

func ParseFormFeature(value string) (FormFeature, error) {
	feature := FormFeature(strings.TrimSpace(strings.ToUpper(value)))
	switch feature {
	case FeatureOpen,
		FeatureRequiresLogin,
		FeatureCollectEmail,
		FeatureDisableAntispam,
		FeatureWebhookEnabled,
		FeatureAssignRole:
		return feature, nil
	}
	return "", ErrInvalidFeature
}

type FeatureSet []FormFeature

func (s FeatureSet) Has(feature FormFeature) bool {
	for _, candidate := range s {
		if candidate == feature {
			return true
		}
	}
	return false
}

type Question struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Type     string         `json:"type"`
	Required bool           `json:"required"`
	Data     map[string]any `json:"data,omitempty"`
}

// Graded reports whether the question embeds grading metadata.
func (q Question) Graded() bool {
	if len(q.Data) == 0 {
		return false
	}
	_, ok := q.Data["unittests"]
	return ok
}

type WebhookConfig struct {
	URL     string `json:"url"`
	Message string `json:"message,omitempty"`
}

type Form struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Features    FeatureSet     `json:"features"`
	Questions   []Question     `json:"questions"`
	Webhook     *WebhookConfig `json:"webhook,omitempty"`
	DiscordRole string         `json:"discord_role,omitempty"`
	DMMessage   string         `json:"dm_message,omitempty"`
}

func (f Form) Open() bool {
	return f.Features.Has(FeatureOpen)
}

func (f Form) AntispamEnabled() bool {
	return !f.Features.Has(FeatureDisableAntispam)
}

func (f Form) Graded() bool {
	for _, question := range f.Questions {
		if question.Graded() {
			return true
		}
	}
	return false
}

// Redacted strips admin-only configuration before the form is returned to a
// submitting caller.
func (f Form) Redacted() Form {
	redacted := f
	redacted.Webhook = nil
	redacted.DiscordRole = ""
	redacted.Questions = make([]Question, 0, len(f.Questions))
	for _, question := range f.Questions {
		public := question
		public.Data = nil
		redacted.Questions = append(redacted.Questions, public)
	}
	return redacted
}

// ActingUser is the principal behind a submission. The zero value is the
// anonymous variant.
type ActingUser struct {
	Authenticated bool
	ID            string
	DisplayName   string
	Mention       string
	Avatar        string
	Claims        map[string]any
}

const fallbackMention = "User"

// MentionOrFallback never fails: anonymous users and authenticated users
// without a resolvable mention both render as the fixed fallback label.
func (u ActingUser) MentionOrFallback() string {
	if !u.Authenticated {
		return fallbackMention
	}
	if mention := strings.TrimSpace(u.Mention); mention != "" {
		return mention
	}
	return fallbackMention
}

func (u ActingUser) HasEmail() bool {
	if len(u.Claims) == 0 {
		return false
	}
	_, ok := u.Claims["email"]
	return ok
}

type AntispamRecord struct {
	IPHash        string `json:"ip_hash"`
	UserAgentHash string `json:"user_agent_hash"`
	CaptchaPass   bool   `json:"captcha_pass"`
}

type FormResponse struct {
	ID        string          `json:"id"`
	FormID    string          `json:"form_id"`
	Timestamp time.Time       `json:"timestamp"`
	Answers   map[string]any  `json:"response"`
	User      map[string]any  `json:"user,omitempty"`
	Antispam  *AntispamRecord `json:"antispam,omitempty"`
}

// GradingInfraFailureCode is the reserved return code signalling that the
// grading runner itself failed, as opposed to a legitimately failing answer.
const GradingInfraFailureCode = 99

type TestResult struct {
	QuestionID string `json:"question_id"`
	Passed     bool   `json:"passed"`
	ReturnCode int    `json:"return_code"`
	Result     string `json:"result,omitempty"`
}

func (r TestResult) InfraFailure() bool {
	return r.ReturnCode == GradingInfraFailureCode
}

// HasInfraFailure reports whether any result, passing or not, carries the
// reserved return code.
func HasInfraFailure(results []TestResult) bool {
	for _, result := range results {
		if result.InfraFailure() {
			return true
		}
	}
	return false
}

// FailingResults filters to the results reported back to callers.
func FailingResults(results []TestResult) []TestResult {
	failing := make([]TestResult, 0, len(results))
	for _, result := range results {
		if !result.Passed {
			failing = append(failing, result)
		}
	}
	return failing
}
