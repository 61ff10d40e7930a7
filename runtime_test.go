package forms

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/goliatone/go-forms/core"
	"github.com/goliatone/go-forms/discord"
)

func runtimeTestConfig() Config {
	cfg := DefaultConfig()
	cfg.FrontendURL = "https://forms.test"
	cfg.Discord.BotToken = "bot-token"
	cfg.Discord.GuildID = "guild-1"
	return cfg
}

func TestNewRuntime_SubmitsAndDeliversWebhook(t *testing.T) {
	form := Form{
		ID:       "form_1",
		Name:     "Ban Appeals",
		Features: core.FeatureSet{core.FeatureOpen, core.FeatureDisableAntispam, core.FeatureWebhookEnabled},
		Webhook:  &core.WebhookConfig{URL: "https://hooks.test/1"},
	}
	forms := &runtimeFormStore{form: form}
	responses := &runtimeResponseStore{}
	doer := &runtimeDoer{status: http.StatusNoContent}

	runtime, err := NewRuntime(runtimeTestConfig(),
		WithRuntimeServiceOptions(WithFormStore(forms), WithResponseStore(responses)),
		WithRuntimeDiscordOptions(discord.WithHTTPClient(doer)),
	)
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	defer runtime.Close()

	result, err := runtime.Service().Submit(context.Background(), SubmitRequest{FormID: "form_1"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if responses.inserts != 1 {
		t.Fatalf("expected response persisted, got %d", responses.inserts)
	}
	if len(result.Scheduled) != 1 || result.Scheduled[0] != core.NotificationWebhook {
		t.Fatalf("expected webhook scheduled, got %v", result.Scheduled)
	}

	runtime.Scheduler().Wait()
	requests := doer.snapshot()
	if len(requests) != 1 {
		t.Fatalf("expected one webhook delivery, got %d", len(requests))
	}
	if requests[0].url != "https://hooks.test/1" {
		t.Fatalf("expected delivery to webhook url, got %q", requests[0].url)
	}
	if !strings.Contains(requests[0].body, "New Form Response") {
		t.Fatalf("expected embed payload, got %q", requests[0].body)
	}
}

func TestNewRuntime_FailedWebhookIsReplayedFromQueue(t *testing.T) {
	form := Form{
		ID:       "form_1",
		Name:     "Ban Appeals",
		Features: core.FeatureSet{core.FeatureOpen, core.FeatureDisableAntispam, core.FeatureWebhookEnabled},
		Webhook:  &core.WebhookConfig{URL: "https://hooks.test/1"},
	}
	doer := &runtimeDoer{status: http.StatusInternalServerError}
	queue := &runtimeJobQueue{}

	runtime, err := NewRuntime(runtimeTestConfig(),
		WithRuntimeServiceOptions(WithFormStore(&runtimeFormStore{form: form}), WithResponseStore(&runtimeResponseStore{})),
		WithRuntimeDiscordOptions(discord.WithHTTPClient(doer)),
		WithRuntimeRedeliveryQueue(queue, queue),
	)
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	defer runtime.Close()

	if _, err := runtime.Service().Submit(context.Background(), SubmitRequest{FormID: "form_1"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	runtime.Scheduler().Wait()

	if len(doer.snapshot()) != 1 {
		t.Fatalf("expected one failed delivery attempt, got %d", len(doer.snapshot()))
	}

	doer.setStatus(http.StatusNoContent)
	processed, err := runtime.Redelivery().Drain(context.Background())
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if processed != 1 {
		t.Fatalf("expected one replayed job, got %d", processed)
	}
	requests := doer.snapshot()
	if len(requests) != 2 || requests[1].url != "https://hooks.test/1" {
		t.Fatalf("expected redelivered webhook, got %#v", requests)
	}
	if !strings.Contains(requests[1].body, "New Form Response") {
		t.Fatalf("expected embed payload on redelivery, got %q", requests[1].body)
	}
}

func TestNewRuntime_OptionalClientsFollowConfiguration(t *testing.T) {
	cfg := runtimeTestConfig()
	cfg.Captcha.VerifyURL = ""
	cfg.Grading.BaseURL = ""

	runtime, err := NewRuntime(cfg,
		WithRuntimeServiceOptions(WithFormStore(&runtimeFormStore{}), WithResponseStore(&runtimeResponseStore{})),
		WithRuntimeDiscordOptions(discord.WithHTTPClient(&runtimeDoer{status: http.StatusNoContent})),
	)
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	defer runtime.Close()

	deps := runtime.Service().Dependencies()
	if deps.CaptchaVerifier != nil {
		t.Fatalf("expected no captcha verifier without a verify url")
	}
	if deps.Grader != nil {
		t.Fatalf("expected no grader without a grading endpoint")
	}
	if deps.Scheduler == nil {
		t.Fatalf("expected scheduler wired")
	}
}

type runtimeFormStore struct {
	form Form
}

func (s *runtimeFormStore) FindOpen(_ context.Context, id string) (Form, error) {
	if s.form.ID == "" || s.form.ID != id {
		return Form{}, core.ErrFormNotFound
	}
	return s.form, nil
}

type runtimeResponseStore struct {
	inserts int
}

func (s *runtimeResponseStore) Insert(context.Context, FormResponse) error {
	s.inserts++
	return nil
}

type recordedRequest struct {
	url  string
	body string
}

type runtimeDoer struct {
	mu       sync.Mutex
	status   int
	requests []recordedRequest
}

func (d *runtimeDoer) Do(req *http.Request) (*http.Response, error) {
	body := ""
	if req.Body != nil {
		raw, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		body = string(raw)
	}
	d.mu.Lock()
	d.requests = append(d.requests, recordedRequest{url: req.URL.String(), body: body})
	status := d.status
	d.mu.Unlock()
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader("")),
	}, nil
}

func (d *runtimeDoer) setStatus(status int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.status = status
}

func (d *runtimeDoer) snapshot() []recordedRequest {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]recordedRequest(nil), d.requests...)
}

type runtimeJobQueue struct {
	mu   sync.Mutex
	jobs []*core.JobExecutionMessage
}

func (q *runtimeJobQueue) Enqueue(_ context.Context, msg *core.JobExecutionMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, msg)
	return nil
}

func (q *runtimeJobQueue) Dequeue(context.Context) (core.JobDelivery, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return nil, nil
	}
	next := q.jobs[0]
	q.jobs = q.jobs[1:]
	return &runtimeJobDelivery{msg: next}, nil
}

type runtimeJobDelivery struct {
	msg *core.JobExecutionMessage
}

func (d *runtimeJobDelivery) Message() *core.JobExecutionMessage { return d.msg }

func (d *runtimeJobDelivery) Ack(context.Context) error { return nil }

func (d *runtimeJobDelivery) Nack(context.Context, core.JobNackOptions) error { return nil }
