package command

import (
	"context"
	"fmt"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-forms/adapters/gojob"
	"github.com/goliatone/go-forms/core"
)

// Parameter keys for queued notification jobs.
const (
	jobParamKind       = "kind"
	jobParamMessage    = "message"
	jobParamDispatchID = "dispatch_id"
	jobParamFormID     = "form_id"
	jobParamResponseID = "response_id"
)

func jobIDForKind(kind core.NotificationKind) (string, error) {
	switch kind {
	case core.NotificationWebhook:
		return gojob.JobIDNotifyWebhook, nil
	case core.NotificationDirectMessage:
		return gojob.JobIDNotifyDirectMessage, nil
	case core.NotificationRoleAssign:
		return gojob.JobIDNotifyRoleAssign, nil
	default:
		return "", commandInvalidInputError(fmt.Sprintf("command: no job id for notification kind %q", kind))
	}
}

// buildRedeliveryJob wraps a failed notification message for the queue. The
// idempotency key pins one redelivery per ledger row so a crashed enqueue
// retried by the caller cannot fan out into duplicate deliveries.
func buildRedeliveryJob(
	kind core.NotificationKind,
	msg any,
	dispatchID string,
	formID string,
	responseID string,
) (*core.JobExecutionMessage, error) {
	jobID, err := jobIDForKind(kind)
	if err != nil {
		return nil, err
	}
	idempotencyKey := dispatchID
	if idempotencyKey == "" {
		idempotencyKey = jobID + ":" + formID + ":" + responseID
	}
	return &core.JobExecutionMessage{
		JobID: jobID,
		Parameters: map[string]any{
			jobParamKind:       string(kind),
			jobParamMessage:    msg,
			jobParamDispatchID: dispatchID,
			jobParamFormID:     formID,
			jobParamResponseID: responseID,
		},
		IdempotencyKey: idempotencyKey,
	}, nil
}

// RedeliveryWorker drains queued notification jobs and replays them on the
// command bus. Each job gets one replay attempt; the outcome is written back
// to the dispatch ledger and the delivery is acked or dead-lettered.
type RedeliveryWorker struct {
	logger   core.Logger
	dequeuer core.JobDequeuer
	dispatch func(ctx context.Context, msg any) error
	ledger   core.NotificationDispatchLedger
}

type RedeliveryWorkerOption func(*RedeliveryWorker)

func WithRedeliveryLogger(logger core.Logger) RedeliveryWorkerOption {
	return func(w *RedeliveryWorker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithRedeliveryDispatchFunc overrides how replayed messages reach the
// command bus.
func WithRedeliveryDispatchFunc(dispatch func(ctx context.Context, msg any) error) RedeliveryWorkerOption {
	return func(w *RedeliveryWorker) {
		if dispatch != nil {
			w.dispatch = dispatch
		}
	}
}

// WithRedeliveryLedger finalizes the dispatch row a replay belongs to.
func WithRedeliveryLedger(ledger core.NotificationDispatchLedger) RedeliveryWorkerOption {
	return func(w *RedeliveryWorker) {
		if ledger != nil {
			w.ledger = ledger
		}
	}
}

func NewRedeliveryWorker(dequeuer core.JobDequeuer, options ...RedeliveryWorkerOption) (*RedeliveryWorker, error) {
	if dequeuer == nil {
		return nil, fmt.Errorf("command: redelivery dequeuer is required")
	}
	worker := &RedeliveryWorker{
		logger:   glog.Nop(),
		dequeuer: dequeuer,
		dispatch: dispatchMessage,
	}
	for _, option := range options {
		if option != nil {
			option(worker)
		}
	}
	return worker, nil
}

// ProcessOne replays a single queued notification. It reports false when the
// queue had nothing to deliver.
func (w *RedeliveryWorker) ProcessOne(ctx context.Context) (bool, error) {
	if w == nil || w.dequeuer == nil {
		return false, fmt.Errorf("command: redelivery worker is not configured")
	}

	delivery, err := w.dequeuer.Dequeue(ctx)
	if err != nil {
		return false, err
	}
	if delivery == nil {
		return false, nil
	}

	job := delivery.Message()
	if job == nil {
		return true, delivery.Nack(ctx, core.JobNackOptions{
			DeadLetter: true,
			Reason:     "command: queued delivery carries no message",
		})
	}

	msg := job.Parameters[jobParamMessage]
	dispatchID, _ := job.Parameters[jobParamDispatchID].(string)
	if err := w.dispatch(ctx, msg); err != nil {
		w.finalize(ctx, dispatchID, err)
		w.logger.Error("notification redelivery failed",
			"job_id", job.JobID, "dispatch_id", dispatchID, "error", err)
		nackErr := delivery.Nack(ctx, core.JobNackOptions{
			DeadLetter: true,
			Reason:     err.Error(),
		})
		if nackErr != nil {
			return true, nackErr
		}
		return true, err
	}

	w.finalize(ctx, dispatchID, nil)
	w.logger.Info("notification redelivered",
		"job_id", job.JobID, "dispatch_id", dispatchID)
	return true, delivery.Ack(ctx)
}

// Drain replays queued notifications until the queue is empty or the first
// dequeue error, returning how many jobs were processed.
func (w *RedeliveryWorker) Drain(ctx context.Context) (int, error) {
	processed := 0
	for {
		handled, err := w.ProcessOne(ctx)
		if err != nil {
			return processed, err
		}
		if !handled {
			return processed, nil
		}
		processed++
	}
}

// LedgerWorkerHook finalizes dispatch ledger rows from queue worker events,
// for deployments that run redeliveries on a go-job worker instead of the
// in-process RedeliveryWorker. Bridge it with gojob.NewWorkerHookAdapter.
type LedgerWorkerHook struct {
	logger core.Logger
	ledger core.NotificationDispatchLedger
}

func NewLedgerWorkerHook(ledger core.NotificationDispatchLedger, logger core.Logger) *LedgerWorkerHook {
	if logger == nil {
		logger = glog.Nop()
	}
	return &LedgerWorkerHook{logger: logger, ledger: ledger}
}

func (h *LedgerWorkerHook) OnStart(context.Context, core.JobWorkerEvent) {}

func (h *LedgerWorkerHook) OnRetry(context.Context, core.JobWorkerEvent) {}

func (h *LedgerWorkerHook) OnSuccess(ctx context.Context, event core.JobWorkerEvent) {
	h.mark(ctx, event, nil)
}

func (h *LedgerWorkerHook) OnFailure(ctx context.Context, event core.JobWorkerEvent) {
	err := event.Err
	if err == nil {
		err = fmt.Errorf("command: redelivery worker reported failure")
	}
	h.mark(ctx, event, err)
}

func (h *LedgerWorkerHook) mark(ctx context.Context, event core.JobWorkerEvent, deliveryErr error) {
	if h == nil || h.ledger == nil || event.Message == nil {
		return
	}
	dispatchID, _ := event.Message.Parameters[jobParamDispatchID].(string)
	if dispatchID == "" {
		return
	}
	var err error
	if deliveryErr != nil {
		err = h.ledger.MarkFailed(ctx, dispatchID, deliveryErr.Error())
	} else {
		err = h.ledger.MarkSent(ctx, dispatchID)
	}
	if err != nil {
		h.logger.Error("redelivery ledger update failed", "dispatch_id", dispatchID, "error", err)
	}
}

func (w *RedeliveryWorker) finalize(ctx context.Context, dispatchID string, deliveryErr error) {
	if w.ledger == nil || dispatchID == "" {
		return
	}
	var err error
	if deliveryErr != nil {
		err = w.ledger.MarkFailed(ctx, dispatchID, deliveryErr.Error())
	} else {
		err = w.ledger.MarkSent(ctx, dispatchID)
	}
	if err != nil {
		w.logger.Error("redelivery ledger update failed", "dispatch_id", dispatchID, "error", err)
	}
}
