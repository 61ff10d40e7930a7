package command

import (
	"context"
	"fmt"
	"sync"
	"time"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-forms/adapters/gocommand"
	"github.com/goliatone/go-forms/core"
)

const defaultDeliveryTimeout = 30 * time.Second

// Scheduler implements core.NotificationScheduler by dispatching notification
// commands on a detached context after the submission response is finalized.
// Delivery failures are logged and discarded; at-most-once is the guarantee.
type Scheduler struct {
	logger   core.Logger
	dispatch func(ctx context.Context, msg any) error
	ledger   core.NotificationDispatchLedger
	queue    core.JobEnqueuer
	timeout  time.Duration
	wg       sync.WaitGroup
}

type SchedulerOption func(*Scheduler)

func WithSchedulerLogger(logger core.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDispatchFunc overrides how built messages reach the command bus.
func WithDispatchFunc(dispatch func(ctx context.Context, msg any) error) SchedulerOption {
	return func(s *Scheduler) {
		if dispatch != nil {
			s.dispatch = dispatch
		}
	}
}

// WithDispatchLedger records every delivery attempt and its terminal status.
func WithDispatchLedger(ledger core.NotificationDispatchLedger) SchedulerOption {
	return func(s *Scheduler) {
		if ledger != nil {
			s.ledger = ledger
		}
	}
}

// WithRedeliveryQueue hands failed deliveries to a supervised queue instead
// of discarding them. Each failed dispatch is enqueued once under its
// notification job id; a RedeliveryWorker replays it on the command bus.
func WithRedeliveryQueue(enqueuer core.JobEnqueuer) SchedulerOption {
	return func(s *Scheduler) {
		if enqueuer != nil {
			s.queue = enqueuer
		}
	}
}

func WithDeliveryTimeout(timeout time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

func NewScheduler(options ...SchedulerOption) *Scheduler {
	scheduler := &Scheduler{
		logger:   glog.Nop(),
		dispatch: dispatchMessage,
		timeout:  defaultDeliveryTimeout,
	}
	for _, option := range options {
		if option != nil {
			option(scheduler)
		}
	}
	return scheduler
}

// Schedule hands one notification to the command bus without blocking the
// caller. The request context's values survive but its cancellation does
// not: delivery outlives the HTTP response.
func (s *Scheduler) Schedule(
	ctx context.Context,
	kind core.NotificationKind,
	form core.Form,
	response core.FormResponse,
	user core.ActingUser,
) {
	if s == nil || s.dispatch == nil {
		return
	}

	msg, err := buildNotificationMessage(kind, form, response, user)
	if err != nil {
		s.logger.Error("notification message rejected",
			"kind", string(kind), "form_id", form.ID, "response_id", response.ID, "error", err)
		return
	}

	detached := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		runCtx, cancel := context.WithTimeout(detached, s.timeout)
		defer cancel()

		dispatchID := s.recordAttempt(runCtx, kind, form.ID, response.ID)
		if err := s.dispatch(runCtx, msg); err != nil {
			s.finalizeAttempt(runCtx, dispatchID, err)
			s.logger.Error("notification delivery failed",
				"kind", string(kind), "form_id", form.ID, "response_id", response.ID, "error", err)
			s.requeueFailed(runCtx, kind, msg, dispatchID, form.ID, response.ID)
			return
		}
		s.finalizeAttempt(runCtx, dispatchID, nil)
		s.logger.Debug("notification delivered",
			"kind", string(kind), "form_id", form.ID, "response_id", response.ID)
	}()
}

// Wait blocks until every scheduled delivery attempt has finished. Intended
// for shutdown paths and tests.
func (s *Scheduler) Wait() {
	if s == nil {
		return
	}
	s.wg.Wait()
}

func (s *Scheduler) recordAttempt(ctx context.Context, kind core.NotificationKind, formID string, responseID string) string {
	if s.ledger == nil {
		return ""
	}
	dispatchID, err := s.ledger.Record(ctx, kind, formID, responseID)
	if err != nil {
		s.logger.Error("notification ledger record failed",
			"kind", string(kind), "form_id", formID, "response_id", responseID, "error", err)
		return ""
	}
	return dispatchID
}

func (s *Scheduler) finalizeAttempt(ctx context.Context, dispatchID string, deliveryErr error) {
	if s.ledger == nil || dispatchID == "" {
		return
	}
	var err error
	if deliveryErr != nil {
		err = s.ledger.MarkFailed(ctx, dispatchID, deliveryErr.Error())
	} else {
		err = s.ledger.MarkSent(ctx, dispatchID)
	}
	if err != nil {
		s.logger.Error("notification ledger update failed", "dispatch_id", dispatchID, "error", err)
	}
}

func (s *Scheduler) requeueFailed(
	ctx context.Context,
	kind core.NotificationKind,
	msg any,
	dispatchID string,
	formID string,
	responseID string,
) {
	if s.queue == nil {
		return
	}
	job, err := buildRedeliveryJob(kind, msg, dispatchID, formID, responseID)
	if err != nil {
		s.logger.Error("notification redelivery job rejected",
			"kind", string(kind), "form_id", formID, "response_id", responseID, "error", err)
		return
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		s.logger.Error("notification redelivery enqueue failed",
			"job_id", job.JobID, "form_id", formID, "response_id", responseID, "error", err)
		return
	}
	s.logger.Info("notification queued for redelivery",
		"job_id", job.JobID, "dispatch_id", dispatchID, "form_id", formID, "response_id", responseID)
}

func buildNotificationMessage(
	kind core.NotificationKind,
	form core.Form,
	response core.FormResponse,
	user core.ActingUser,
) (any, error) {
	switch kind {
	case core.NotificationWebhook:
		msg := SendWebhookMessage{Form: form, Response: response, User: user}
		return msg, msg.Validate()
	case core.NotificationDirectMessage:
		msg := SendDirectMessageMessage{Form: form, Response: response, User: user}
		return msg, msg.Validate()
	case core.NotificationRoleAssign:
		msg := AssignRoleMessage{Form: form, User: user}
		return msg, msg.Validate()
	default:
		return nil, commandInvalidInputError(fmt.Sprintf("command: unknown notification kind %q", kind))
	}
}

func dispatchMessage(ctx context.Context, msg any) error {
	switch m := msg.(type) {
	case SendWebhookMessage:
		return gocommand.Dispatch(ctx, m)
	case SendDirectMessageMessage:
		return gocommand.Dispatch(ctx, m)
	case AssignRoleMessage:
		return gocommand.Dispatch(ctx, m)
	default:
		return commandInvalidInputError("command: unsupported notification message")
	}
}
