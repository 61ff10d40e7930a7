package command

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/goliatone/go-forms/adapters/gojob"
	"github.com/goliatone/go-forms/core"
)

type recordingEnqueuer struct {
	mu   sync.Mutex
	jobs []*core.JobExecutionMessage
	err  error
}

func (e *recordingEnqueuer) Enqueue(_ context.Context, msg *core.JobExecutionMessage) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.jobs = append(e.jobs, msg)
	return e.err
}

func (e *recordingEnqueuer) all() []*core.JobExecutionMessage {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*core.JobExecutionMessage(nil), e.jobs...)
}

type memoryLedger struct {
	mu     sync.Mutex
	next   int
	sent   []string
	failed map[string]string
}

func (l *memoryLedger) Record(_ context.Context, _ core.NotificationKind, _ string, _ string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next++
	return fmt.Sprintf("disp_%d", l.next), nil
}

func (l *memoryLedger) MarkSent(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sent = append(l.sent, id)
	return nil
}

func (l *memoryLedger) MarkFailed(_ context.Context, id string, deliveryErr string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failed == nil {
		l.failed = map[string]string{}
	}
	l.failed[id] = deliveryErr
	return nil
}

func (l *memoryLedger) ListByResponse(context.Context, string) ([]core.NotificationDispatch, error) {
	return nil, nil
}

type scriptedDequeuer struct {
	deliveries []core.JobDelivery
	err        error
}

func (d *scriptedDequeuer) Dequeue(context.Context) (core.JobDelivery, error) {
	if d.err != nil {
		return nil, d.err
	}
	if len(d.deliveries) == 0 {
		return nil, nil
	}
	next := d.deliveries[0]
	d.deliveries = d.deliveries[1:]
	return next, nil
}

type scriptedDelivery struct {
	msg    *core.JobExecutionMessage
	acked  bool
	nacked *core.JobNackOptions
}

func (d *scriptedDelivery) Message() *core.JobExecutionMessage { return d.msg }

func (d *scriptedDelivery) Ack(context.Context) error {
	d.acked = true
	return nil
}

func (d *scriptedDelivery) Nack(_ context.Context, opts core.JobNackOptions) error {
	d.nacked = &opts
	return nil
}

func TestJobIDForKindMapping(t *testing.T) {
	cases := map[core.NotificationKind]string{
		core.NotificationWebhook:       gojob.JobIDNotifyWebhook,
		core.NotificationDirectMessage: gojob.JobIDNotifyDirectMessage,
		core.NotificationRoleAssign:    gojob.JobIDNotifyRoleAssign,
	}
	for kind, want := range cases {
		got, err := jobIDForKind(kind)
		if err != nil {
			t.Fatalf("job id for %q: %v", kind, err)
		}
		if got != want {
			t.Fatalf("expected %q for %q, got %q", want, kind, got)
		}
	}
	if _, err := jobIDForKind(core.NotificationKind("carrier_pigeon")); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestSchedulerRequeuesFailedDeliveries(t *testing.T) {
	recorder := &recordingDispatch{err: errors.New("webhook down")}
	enqueuer := &recordingEnqueuer{}
	ledger := &memoryLedger{}
	scheduler := NewScheduler(
		WithDispatchFunc(recorder.dispatch),
		WithDispatchLedger(ledger),
		WithRedeliveryQueue(enqueuer),
	)

	form := core.Form{ID: "f-1"}
	response := core.FormResponse{ID: "r-1"}
	scheduler.Schedule(context.Background(), core.NotificationWebhook, form, response, core.ActingUser{ID: "u-1"})
	scheduler.Wait()

	jobs := enqueuer.all()
	if len(jobs) != 1 {
		t.Fatalf("expected one queued redelivery, got %d", len(jobs))
	}
	job := jobs[0]
	if job.JobID != gojob.JobIDNotifyWebhook {
		t.Fatalf("expected webhook job id, got %q", job.JobID)
	}
	if job.Parameters[jobParamDispatchID] != "disp_1" {
		t.Fatalf("expected dispatch id parameter, got %#v", job.Parameters[jobParamDispatchID])
	}
	if job.Parameters[jobParamFormID] != "f-1" || job.Parameters[jobParamResponseID] != "r-1" {
		t.Fatalf("expected form and response parameters, got %#v", job.Parameters)
	}
	if job.IdempotencyKey != "disp_1" {
		t.Fatalf("expected idempotency key pinned to the ledger row, got %q", job.IdempotencyKey)
	}
	if _, ok := job.Parameters[jobParamMessage].(SendWebhookMessage); !ok {
		t.Fatalf("expected embedded webhook message, got %T", job.Parameters[jobParamMessage])
	}
}

func TestSchedulerDoesNotRequeueSuccessfulDeliveries(t *testing.T) {
	recorder := &recordingDispatch{}
	enqueuer := &recordingEnqueuer{}
	scheduler := NewScheduler(WithDispatchFunc(recorder.dispatch), WithRedeliveryQueue(enqueuer))

	scheduler.Schedule(context.Background(), core.NotificationWebhook, core.Form{ID: "f-1"}, core.FormResponse{ID: "r-1"}, core.ActingUser{})
	scheduler.Wait()

	if len(enqueuer.all()) != 0 {
		t.Fatalf("expected no queued redeliveries after success")
	}
}

func TestRedeliveryWorkerReplaysQueuedNotification(t *testing.T) {
	job, err := buildRedeliveryJob(
		core.NotificationWebhook,
		SendWebhookMessage{Form: core.Form{ID: "f-1"}, Response: core.FormResponse{ID: "r-1"}},
		"disp_7", "f-1", "r-1",
	)
	if err != nil {
		t.Fatalf("build job: %v", err)
	}
	delivery := &scriptedDelivery{msg: job}
	recorder := &recordingDispatch{}
	ledger := &memoryLedger{}
	worker, err := NewRedeliveryWorker(
		&scriptedDequeuer{deliveries: []core.JobDelivery{delivery}},
		WithRedeliveryDispatchFunc(recorder.dispatch),
		WithRedeliveryLedger(ledger),
	)
	if err != nil {
		t.Fatalf("new worker: %v", err)
	}

	processed, err := worker.Drain(context.Background())
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if processed != 1 {
		t.Fatalf("expected one processed job, got %d", processed)
	}
	messages := recorder.all()
	if len(messages) != 1 {
		t.Fatalf("expected one replayed message, got %d", len(messages))
	}
	if msg, ok := messages[0].(SendWebhookMessage); !ok || msg.Response.ID != "r-1" {
		t.Fatalf("unexpected replayed message %#v", messages[0])
	}
	if !delivery.acked {
		t.Fatalf("expected delivery to be acked")
	}
	if len(ledger.sent) != 1 || ledger.sent[0] != "disp_7" {
		t.Fatalf("expected dispatch row marked sent, got %v", ledger.sent)
	}
}

func TestRedeliveryWorkerDeadLettersFailedReplay(t *testing.T) {
	job, err := buildRedeliveryJob(
		core.NotificationDirectMessage,
		SendDirectMessageMessage{Form: core.Form{ID: "f-1"}, Response: core.FormResponse{ID: "r-1"}, User: core.ActingUser{ID: "u-1"}},
		"disp_9", "f-1", "r-1",
	)
	if err != nil {
		t.Fatalf("build job: %v", err)
	}
	delivery := &scriptedDelivery{msg: job}
	recorder := &recordingDispatch{err: errors.New("dm still down")}
	ledger := &memoryLedger{}
	worker, err := NewRedeliveryWorker(
		&scriptedDequeuer{deliveries: []core.JobDelivery{delivery}},
		WithRedeliveryDispatchFunc(recorder.dispatch),
		WithRedeliveryLedger(ledger),
	)
	if err != nil {
		t.Fatalf("new worker: %v", err)
	}

	handled, err := worker.ProcessOne(context.Background())
	if !handled {
		t.Fatalf("expected the job to be handled")
	}
	if err == nil {
		t.Fatalf("expected replay error to surface")
	}
	if delivery.acked {
		t.Fatalf("expected no ack on failed replay")
	}
	if delivery.nacked == nil || !delivery.nacked.DeadLetter {
		t.Fatalf("expected dead-letter nack, got %#v", delivery.nacked)
	}
	if ledger.failed["disp_9"] == "" {
		t.Fatalf("expected dispatch row marked failed, got %v", ledger.failed)
	}
}

func TestRedeliveryWorkerStopsOnEmptyQueue(t *testing.T) {
	worker, err := NewRedeliveryWorker(&scriptedDequeuer{})
	if err != nil {
		t.Fatalf("new worker: %v", err)
	}
	processed, err := worker.Drain(context.Background())
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if processed != 0 {
		t.Fatalf("expected empty drain, got %d", processed)
	}
}

func TestLedgerWorkerHookFinalizesDispatchRows(t *testing.T) {
	ledger := &memoryLedger{}
	hook := NewLedgerWorkerHook(ledger, nil)

	sentEvent := core.JobWorkerEvent{Message: &core.JobExecutionMessage{
		JobID:      gojob.JobIDNotifyRoleAssign,
		Parameters: map[string]any{jobParamDispatchID: "disp_3"},
	}}
	hook.OnSuccess(context.Background(), sentEvent)

	failedEvent := core.JobWorkerEvent{
		Message: &core.JobExecutionMessage{
			JobID:      gojob.JobIDNotifyRoleAssign,
			Parameters: map[string]any{jobParamDispatchID: "disp_4"},
		},
		Err: errors.New("role assignment rejected"),
	}
	hook.OnFailure(context.Background(), failedEvent)

	if len(ledger.sent) != 1 || ledger.sent[0] != "disp_3" {
		t.Fatalf("expected disp_3 marked sent, got %v", ledger.sent)
	}
	if ledger.failed["disp_4"] != "role assignment rejected" {
		t.Fatalf("expected disp_4 marked failed, got %v", ledger.failed)
	}
}
