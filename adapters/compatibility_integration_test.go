package adapters_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-command"
	"github.com/goliatone/go-forms/adapters/gocommand"
	"github.com/goliatone/go-forms/adapters/gojob"
	"github.com/goliatone/go-forms/adapters/gologger"
	formscommand "github.com/goliatone/go-forms/command"
	"github.com/goliatone/go-forms/core"
	job "github.com/goliatone/go-job"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
	glog "github.com/goliatone/go-logger/glog"
)

func TestRuntimeCompatibility_GoJobGoCommandGoLogger(t *testing.T) {
	ctx := context.Background()

	logger := &compatLogger{}
	provider := &compatProvider{logger: logger}

	_, _, jobProvider, jobLogger := gologger.ResolveForJob("forms", provider, nil)
	if jobProvider == nil || jobLogger == nil {
		t.Fatalf("expected go-job logger bridges")
	}

	enqueueRecorder := &compatEnqueuer{}
	enqueueAdapter := gojob.NewEnqueuerAdapter(enqueueRecorder)
	if err := enqueueAdapter.Enqueue(ctx, &core.JobExecutionMessage{
		JobID:          gojob.JobIDNotifyWebhook,
		Parameters:     map[string]any{"response_id": "resp_1"},
		IdempotencyKey: "idem_1",
		DedupPolicy:    "drop",
	}); err != nil {
		t.Fatalf("enqueue via gojob adapter: %v", err)
	}
	if enqueueRecorder.last == nil || enqueueRecorder.last.JobID != gojob.JobIDNotifyWebhook {
		t.Fatalf("expected go-job message mapping through enqueuer adapter")
	}

	queueRegistry := jobqueuecommand.NewRegistry()
	commandAdapter := gocommand.NewRegistryAdapter(command.NewRegistry())
	if err := commandAdapter.AddQueueResolver("queue", queueRegistry); err != nil {
		t.Fatalf("add queue resolver: %v", err)
	}
	if err := commandAdapter.RegisterCommand(command.CommandFunc[compatMessage](func(context.Context, compatMessage) error {
		return nil
	})); err != nil {
		t.Fatalf("register command: %v", err)
	}
	if err := commandAdapter.Initialize(); err != nil {
		t.Fatalf("initialize command registry: %v", err)
	}
	if _, ok := queueRegistry.Get("forms.compat.command"); !ok {
		t.Fatalf("expected command resolver hook to mirror command into go-job queue registry")
	}
}

func TestRuntimeCompatibility_NotificationDispatchThroughWrappers(t *testing.T) {
	notifier := &compatNotifier{}
	adapter := gocommand.NewRegistryAdapter(command.NewRegistry())

	webhookSub, err := gocommand.RegisterAndSubscribe(adapter, formscommand.NewSendWebhookCommand(notifier))
	if err != nil {
		t.Fatalf("register webhook wrapper: %v", err)
	}
	defer webhookSub.Unsubscribe()

	roleSub, err := gocommand.RegisterAndSubscribe(adapter, formscommand.NewAssignRoleCommand(notifier))
	if err != nil {
		t.Fatalf("register role wrapper: %v", err)
	}
	defer roleSub.Unsubscribe()

	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize adapter: %v", err)
	}

	form := core.Form{ID: "form_1", Name: "Ban Appeals"}
	response := core.FormResponse{ID: "resp_1", FormID: "form_1"}
	user := core.ActingUser{ID: "user_1", Authenticated: true}

	if err := gocommand.Dispatch(context.Background(), formscommand.SendWebhookMessage{
		Form:     form,
		Response: response,
		User:     user,
	}); err != nil {
		t.Fatalf("dispatch webhook message: %v", err)
	}
	if notifier.webhookCalls != 1 || notifier.lastFormID != "form_1" {
		t.Fatalf("expected webhook wrapper invocation through dispatch")
	}

	if err := gocommand.Dispatch(context.Background(), formscommand.AssignRoleMessage{
		Form: form,
		User: user,
	}); err != nil {
		t.Fatalf("dispatch role message: %v", err)
	}
	if notifier.roleCalls != 1 || notifier.lastUserID != "user_1" {
		t.Fatalf("expected role wrapper invocation through dispatch")
	}
}

type compatMessage struct{}

func (compatMessage) Type() string { return "forms.compat.command" }

type compatEnqueuer struct {
	last *job.ExecutionMessage
}

func (e *compatEnqueuer) Enqueue(_ context.Context, msg *job.ExecutionMessage) error {
	e.last = msg
	return nil
}

type compatProvider struct {
	logger glog.Logger
}

func (p *compatProvider) GetLogger(string) glog.Logger {
	if p == nil || p.logger == nil {
		return glog.Nop()
	}
	return p.logger
}

type compatLogger struct{}

func (compatLogger) Trace(string, ...any)                    {}
func (compatLogger) Debug(string, ...any)                    {}
func (compatLogger) Info(string, ...any)                     {}
func (compatLogger) Warn(string, ...any)                     {}
func (compatLogger) Error(string, ...any)                    {}
func (compatLogger) Fatal(string, ...any)                    {}
func (compatLogger) WithContext(context.Context) glog.Logger { return compatLogger{} }

type compatNotifier struct {
	webhookCalls int
	roleCalls    int
	lastFormID   string
	lastUserID   string
}

func (n *compatNotifier) SendSubmissionWebhook(_ context.Context, form core.Form, _ core.FormResponse, _ core.ActingUser) error {
	n.webhookCalls++
	n.lastFormID = form.ID
	return nil
}

func (n *compatNotifier) SendDirectMessage(context.Context, core.Form, core.FormResponse, core.ActingUser) error {
	return nil
}

func (n *compatNotifier) AssignRole(_ context.Context, form core.Form, user core.ActingUser) error {
	n.roleCalls++
	n.lastUserID = user.ID
	return nil
}
