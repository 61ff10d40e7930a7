package forms

import "github.com/goliatone/go-forms/core"

type Config = core.Config

type DiscordConfig = core.DiscordConfig
type CaptchaConfig = core.CaptchaConfig
type GradingConfig = core.GradingConfig

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies

type Form = core.Form
type FormResponse = core.FormResponse
type ActingUser = core.ActingUser
type SubmitRequest = core.SubmitRequest
type SubmitResult = core.SubmitResult
type TestResult = core.TestResult
type NotificationKind = core.NotificationKind
type NotificationDispatch = core.NotificationDispatch

type FormStore = core.FormStore
type ResponseStore = core.ResponseStore
type CaptchaVerifier = core.CaptchaVerifier
type Grader = core.Grader
type Notifier = core.Notifier
type NotificationScheduler = core.NotificationScheduler
type NotificationDispatchLedger = core.NotificationDispatchLedger
type SubmissionService = core.SubmissionService

var (
	WithLogger                = core.WithLogger
	WithLoggerProvider        = core.WithLoggerProvider
	WithMetricsRecorder       = core.WithMetricsRecorder
	WithErrorMapper           = core.WithErrorMapper
	WithConfigProvider        = core.WithConfigProvider
	WithOptionsResolver       = core.WithOptionsResolver
	WithPersistenceClient     = core.WithPersistenceClient
	WithRepositoryFactory     = core.WithRepositoryFactory
	WithFormStore             = core.WithFormStore
	WithResponseStore         = core.WithResponseStore
	WithCaptchaVerifier       = core.WithCaptchaVerifier
	WithGrader                = core.WithGrader
	WithNotificationScheduler = core.WithNotificationScheduler
	WithIDGenerator           = core.WithIDGenerator
	WithClock                 = core.WithClock
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return core.Setup(cfg, opts...)
}
