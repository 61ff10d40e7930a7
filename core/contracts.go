package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// SubmitRequest is the parsed, caller-supplied submission. The surrounding
// web layer is responsible for body parsing and header extraction; the
// pipeline treats every field as untrusted input.
type SubmitRequest struct {
	FormID       string
	Answers      map[string]any
	CaptchaToken string
	RemoteIP     string
	UserAgent    string
	User         ActingUser
}

type SubmitResult struct {
	Form     Form
	Response FormResponse
	// Scheduled lists the notification kinds handed to the background
	// scheduler for this submission.
	Scheduled []NotificationKind
}

type FormStore interface {
	// FindOpen resolves a form by id, constrained to forms carrying the
	// OPEN feature. Missing or closed forms yield ErrFormNotFound.
	FindOpen(ctx context.Context, id string) (Form, error)
}

type ResponseStore interface {
	Insert(ctx context.Context, response FormResponse) error
}

type StoreProvider interface {
	FormStore() FormStore
	ResponseStore() ResponseStore
}

type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any) (StoreProvider, error)
}

// CaptchaVerifier returns the external verification verdict for a client
// token. Transport failures propagate; they are never folded into a verdict.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token string) (bool, error)
}

// Grader evaluates the graded questions of a validated response, returning
// one result per graded question.
type Grader interface {
	Grade(ctx context.Context, form Form, response FormResponse) ([]TestResult, error)
}

type NotificationKind string

const (
	NotificationWebhook       NotificationKind = "webhook"
	NotificationDirectMessage NotificationKind = "direct_message"
	NotificationRoleAssign    NotificationKind = "role_assign"
)

// Notifier delivers a single notification. Implementations make exactly one
// attempt; retry policy is deliberately absent (at-most-once delivery).
type Notifier interface {
	SendSubmissionWebhook(ctx context.Context, form Form, response FormResponse, user ActingUser) error
	SendDirectMessage(ctx context.Context, form Form, response FormResponse, user ActingUser) error
	AssignRole(ctx context.Context, form Form, user ActingUser) error
}

// NotificationDispatch is one ledger entry for a scheduled notification.
type NotificationDispatch struct {
	ID         string
	FormID     string
	ResponseID string
	Kind       NotificationKind
	Status     string
	Error      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NotificationDispatchLedger records delivery attempts. One row per scheduled
// notification; Record creates it pending, MarkSent/MarkFailed finalize it.
type NotificationDispatchLedger interface {
	Record(ctx context.Context, kind NotificationKind, formID string, responseID string) (string, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, deliveryErr string) error
	ListByResponse(ctx context.Context, responseID string) ([]NotificationDispatch, error)
}

// NotificationScheduler decouples notification delivery from the submission
// request cycle. Schedule must not block and must never surface delivery
// failures to the caller.
type NotificationScheduler interface {
	Schedule(ctx context.Context, kind NotificationKind, form Form, response FormResponse, user ActingUser)
}

// SubmissionService is the operation surface commands are built over.
type SubmissionService interface {
	Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger
