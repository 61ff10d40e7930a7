package core

import (
	"context"
	"errors"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"
)

// Service runs the submission pipeline: lookup, anti-spam enrichment, auth
// gating, completeness and schema checks, conditional grading, persistence
// and background notification scheduling. Stages run strictly in order and
// the first failure is terminal.
type Service struct {
	config          Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorMapper     ErrorMapper
	formStore       FormStore
	responseStore   ResponseStore
	captchaVerifier CaptchaVerifier
	grader          Grader
	scheduler       NotificationScheduler
	idGenerator     func() string
	now             func() time.Time
}

type ServiceDependencies struct {
	Logger          Logger
	LoggerProvider  LoggerProvider
	MetricsRecorder MetricsRecorder
	ErrorMapper     ErrorMapper
	FormStore       FormStore
	ResponseStore   ResponseStore
	CaptchaVerifier CaptchaVerifier
	Grader          Grader
	Scheduler       NotificationScheduler
}

func NewService(cfg Config, options ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("forms", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("forms"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.idGenerator == nil {
		builder.idGenerator = uuid.NewString
	}
	if builder.now == nil {
		builder.now = func() time.Time { return time.Now().UTC() }
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if (builder.formStore == nil || builder.responseStore == nil) && builder.repositoryFactory != nil {
		if storeFactory, ok := builder.repositoryFactory.(RepositoryStoreFactory); ok {
			provider, buildErr := storeFactory.BuildStores(builder.persistenceClient)
			if buildErr != nil {
				return nil, mapBuildError(builder.errorMapper, buildErr)
			}
			if provider != nil {
				if builder.formStore == nil {
					builder.formStore = provider.FormStore()
				}
				if builder.responseStore == nil {
					builder.responseStore = provider.ResponseStore()
				}
			}
		} else if provider, ok := builder.repositoryFactory.(StoreProvider); ok {
			if builder.formStore == nil {
				builder.formStore = provider.FormStore()
			}
			if builder.responseStore == nil {
				builder.responseStore = provider.ResponseStore()
			}
		}
	}

	return &Service{
		config:          finalConfig,
		logger:          logger,
		loggerProvider:  provider,
		metricsRecorder: builder.metricsRecorder,
		errorMapper:     builder.errorMapper,
		formStore:       builder.formStore,
		responseStore:   builder.responseStore,
		captchaVerifier: builder.captchaVerifier,
		grader:          builder.grader,
		scheduler:       builder.scheduler,
		idGenerator:     builder.idGenerator,
		now:             builder.now,
	}, nil
}

func Setup(cfg Config, options ...Option) (*Service, error) {
	return NewService(cfg, options...)
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:          s.logger,
		LoggerProvider:  s.loggerProvider,
		MetricsRecorder: s.metricsRecorder,
		ErrorMapper:     s.errorMapper,
		FormStore:       s.formStore,
		ResponseStore:   s.responseStore,
		CaptchaVerifier: s.captchaVerifier,
		Grader:          s.grader,
		Scheduler:       s.scheduler,
	}
}

func (s *Service) Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	if s == nil {
		return SubmitResult{}, InternalError(nil, "core: service is not configured")
	}
	startedAt := s.clock()
	result, err := s.submit(ctx, req)
	s.observeOperation(ctx, startedAt, "submit", err, map[string]any{
		"form_id": req.FormID,
	})
	if err != nil {
		return SubmitResult{}, s.mapError(err)
	}
	return result, nil
}

func (s *Service) submit(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	if s.formStore == nil || s.responseStore == nil {
		return SubmitResult{}, InternalError(nil, "core: form and response stores are required")
	}

	form, err := s.formStore.FindOpen(ctx, req.FormID)
	if err != nil {
		if errors.Is(err, ErrFormNotFound) {
			return SubmitResult{}, NotFoundError("Open form not found")
		}
		return SubmitResult{}, InternalError(err, "core: form lookup failed")
	}

	// The shell owns identity and timing. Nothing client-supplied survives
	// into either field.
	response := FormResponse{
		ID:        s.idGenerator(),
		FormID:    form.ID,
		Timestamp: s.clock(),
		Answers:   cloneAnswers(req.Answers),
	}

	if form.AntispamEnabled() {
		record, antispamErr := s.enrichAntispam(ctx, req)
		if antispamErr != nil {
			return SubmitResult{}, antispamErr
		}
		response.Antispam = &record
	}

	if form.Features.Has(FeatureRequiresLogin) {
		if !req.User.Authenticated {
			return SubmitResult{}, BadRequestError(
				"core: submission requires an authenticated user",
				SubmissionErrorMissingDiscordData,
			)
		}
		response.User = cloneAnswers(req.User.Claims)
		if form.Features.Has(FeatureCollectEmail) && !req.User.HasEmail() {
			return SubmitResult{}, BadRequestError(
				"core: form collects email but identity claims carry none",
				SubmissionErrorEmailRequired,
			)
		}
	}

	missing := make([]string, 0)
	for _, question := range form.Questions {
		if _, ok := response.Answers[question.ID]; ok {
			continue
		}
		if question.Required {
			missing = append(missing, question.ID)
			continue
		}
		response.Answers[question.ID] = nil
	}
	if len(missing) > 0 {
		return SubmitResult{}, MissingFieldsError(missing)
	}

	if fieldErrors := validateAnswers(form, response.Answers); len(fieldErrors) > 0 {
		return SubmitResult{}, ValidationError(fieldErrors...)
	}

	if form.Graded() {
		if s.grader == nil {
			return SubmitResult{}, ConfigurationError("core: form requires grading but no grader is configured")
		}
		results, gradeErr := s.grader.Grade(ctx, form, response)
		if gradeErr != nil {
			return SubmitResult{}, InternalError(gradeErr, "core: grading runner failed")
		}
		if len(FailingResults(results)) > 0 || HasInfraFailure(results) {
			return SubmitResult{}, FailedTestsError(results)
		}
	}

	if err := s.responseStore.Insert(ctx, response); err != nil {
		return SubmitResult{}, InternalError(err, "core: response persistence failed")
	}

	scheduled := s.scheduleNotifications(ctx, form, response, req.User)

	return SubmitResult{
		Form:      form.Redacted(),
		Response:  response,
		Scheduled: scheduled,
	}, nil
}

func (s *Service) scheduleNotifications(
	ctx context.Context,
	form Form,
	response FormResponse,
	user ActingUser,
) []NotificationKind {
	if s.scheduler == nil {
		return nil
	}
	scheduled := make([]NotificationKind, 0, 3)
	if form.Features.Has(FeatureWebhookEnabled) {
		s.scheduler.Schedule(ctx, NotificationWebhook, form, response, user)
		scheduled = append(scheduled, NotificationWebhook)
	}
	if form.DMMessage != "" && user.Authenticated {
		s.scheduler.Schedule(ctx, NotificationDirectMessage, form, response, user)
		scheduled = append(scheduled, NotificationDirectMessage)
	}
	if form.Features.Has(FeatureAssignRole) && form.DiscordRole != "" && user.Authenticated {
		s.scheduler.Schedule(ctx, NotificationRoleAssign, form, response, user)
		scheduled = append(scheduled, NotificationRoleAssign)
	}
	if len(scheduled) == 0 {
		return nil
	}
	return scheduled
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) clock() time.Time {
	if s != nil && s.now != nil {
		return s.now().UTC()
	}
	return time.Now().UTC()
}

func cloneAnswers(input map[string]any) map[string]any {
	output := make(map[string]any, len(input))
	for key, value := range input {
		output[key] = value
	}
	return output
}
