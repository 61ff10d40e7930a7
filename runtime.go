package forms

import (
	"fmt"

	gocmd "github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"

	"github.com/goliatone/go-forms/adapters/gocommand"
	"github.com/goliatone/go-forms/adapters/gologger"
	"github.com/goliatone/go-forms/captcha"
	formscommand "github.com/goliatone/go-forms/command"
	"github.com/goliatone/go-forms/core"
	"github.com/goliatone/go-forms/discord"
	"github.com/goliatone/go-forms/grading"
	"github.com/goliatone/go-forms/notify"
)

func NewDiscordClient(cfg core.DiscordConfig, options ...discord.ClientOption) (*discord.Client, error) {
	return discord.NewClient(cfg, options...)
}

func NewNotifier(api notify.API, cfg core.Config, options ...notify.DispatcherOption) (*notify.Dispatcher, error) {
	return notify.NewDispatcher(api, cfg, options...)
}

func NewCaptchaVerifier(cfg core.CaptchaConfig, options ...captcha.VerifierOption) (*captcha.Verifier, error) {
	return captcha.NewVerifier(cfg, options...)
}

func NewGradingRunner(cfg core.GradingConfig, options ...grading.RunnerOption) (*grading.Runner, error) {
	return grading.NewRunner(cfg, options...)
}

func NewNotificationScheduler(options ...formscommand.SchedulerOption) *formscommand.Scheduler {
	return formscommand.NewScheduler(options...)
}

// Runtime is the composed submission stack: Discord transport, notification
// dispatcher, background scheduler, pipeline service, and the command facade
// subscribed on the process dispatcher.
type Runtime struct {
	service       *core.Service
	facade        *Facade
	notifier      *notify.Dispatcher
	scheduler     *formscommand.Scheduler
	redelivery    *formscommand.RedeliveryWorker
	adapter       *gocommand.RegistryAdapter
	subscriptions []commanddispatcher.Subscription
}

type RuntimeOption func(*runtimeBuilder)

type runtimeBuilder struct {
	logger           core.Logger
	ledger           core.NotificationDispatchLedger
	enqueuer         core.JobEnqueuer
	dequeuer         core.JobDequeuer
	serviceOptions   []Option
	schedulerOptions []formscommand.SchedulerOption
	discordOptions   []discord.ClientOption
	registry         *gocmd.Registry
}

func WithRuntimeLogger(logger core.Logger) RuntimeOption {
	return func(b *runtimeBuilder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithRuntimeDispatchLedger records every notification delivery attempt.
func WithRuntimeDispatchLedger(ledger core.NotificationDispatchLedger) RuntimeOption {
	return func(b *runtimeBuilder) {
		b.ledger = ledger
	}
}

// WithRuntimeRedeliveryQueue routes failed notification deliveries onto a
// supervised queue. The enqueuer receives them from the scheduler; when a
// dequeuer is also given, the runtime builds a RedeliveryWorker to drain it.
func WithRuntimeRedeliveryQueue(enqueuer core.JobEnqueuer, dequeuer core.JobDequeuer) RuntimeOption {
	return func(b *runtimeBuilder) {
		b.enqueuer = enqueuer
		b.dequeuer = dequeuer
	}
}

func WithRuntimeServiceOptions(options ...Option) RuntimeOption {
	return func(b *runtimeBuilder) {
		b.serviceOptions = append(b.serviceOptions, options...)
	}
}

func WithRuntimeSchedulerOptions(options ...formscommand.SchedulerOption) RuntimeOption {
	return func(b *runtimeBuilder) {
		b.schedulerOptions = append(b.schedulerOptions, options...)
	}
}

func WithRuntimeDiscordOptions(options ...discord.ClientOption) RuntimeOption {
	return func(b *runtimeBuilder) {
		b.discordOptions = append(b.discordOptions, options...)
	}
}

func WithRuntimeRegistry(registry *gocmd.Registry) RuntimeOption {
	return func(b *runtimeBuilder) {
		b.registry = registry
	}
}

// NewRuntime wires the full stack from configuration. Captcha and grading
// clients are only built when their endpoints are configured; forms that
// need them still fail with a configuration error at submit time.
func NewRuntime(cfg Config, options ...RuntimeOption) (*Runtime, error) {
	builder := runtimeBuilder{}
	for _, option := range options {
		if option != nil {
			option(&builder)
		}
	}
	builder.logger = gologger.Ensure(cfg.ServiceName, builder.logger)

	client, err := NewDiscordClient(cfg.Discord, builder.discordOptions...)
	if err != nil {
		return nil, fmt.Errorf("forms: discord client: %w", err)
	}
	notifier, err := NewNotifier(client, cfg, notify.WithLogger(builder.logger))
	if err != nil {
		return nil, fmt.Errorf("forms: notifier: %w", err)
	}

	schedulerOptions := []formscommand.SchedulerOption{
		formscommand.WithSchedulerLogger(builder.logger),
	}
	if builder.ledger != nil {
		schedulerOptions = append(schedulerOptions, formscommand.WithDispatchLedger(builder.ledger))
	}
	if builder.enqueuer != nil {
		schedulerOptions = append(schedulerOptions, formscommand.WithRedeliveryQueue(builder.enqueuer))
	}
	schedulerOptions = append(schedulerOptions, builder.schedulerOptions...)
	scheduler := NewNotificationScheduler(schedulerOptions...)

	var redelivery *formscommand.RedeliveryWorker
	if builder.dequeuer != nil {
		workerOptions := []formscommand.RedeliveryWorkerOption{
			formscommand.WithRedeliveryLogger(builder.logger),
		}
		if builder.ledger != nil {
			workerOptions = append(workerOptions, formscommand.WithRedeliveryLedger(builder.ledger))
		}
		redelivery, err = formscommand.NewRedeliveryWorker(builder.dequeuer, workerOptions...)
		if err != nil {
			return nil, fmt.Errorf("forms: redelivery worker: %w", err)
		}
	}

	serviceOptions := []Option{
		WithLogger(builder.logger),
		WithNotificationScheduler(scheduler),
	}
	if cfg.Captcha.VerifyURL != "" {
		verifier, verifierErr := NewCaptchaVerifier(cfg.Captcha)
		if verifierErr != nil {
			return nil, fmt.Errorf("forms: captcha verifier: %w", verifierErr)
		}
		serviceOptions = append(serviceOptions, WithCaptchaVerifier(verifier))
	}
	if cfg.Grading.BaseURL != "" {
		runner, runnerErr := NewGradingRunner(cfg.Grading)
		if runnerErr != nil {
			return nil, fmt.Errorf("forms: grading runner: %w", runnerErr)
		}
		serviceOptions = append(serviceOptions, WithGrader(runner))
	}
	serviceOptions = append(serviceOptions, builder.serviceOptions...)

	service, err := NewService(cfg, serviceOptions...)
	if err != nil {
		return nil, err
	}
	facade, err := NewFacade(service, notifier)
	if err != nil {
		return nil, err
	}

	adapter := gocommand.NewRegistryAdapter(builder.registry)
	subscriptions, err := facade.RegisterCommands(adapter)
	if err != nil {
		return nil, err
	}
	if err := adapter.Initialize(); err != nil {
		for _, subscription := range subscriptions {
			if subscription != nil {
				subscription.Unsubscribe()
			}
		}
		return nil, err
	}

	return &Runtime{
		service:       service,
		facade:        facade,
		notifier:      notifier,
		scheduler:     scheduler,
		redelivery:    redelivery,
		adapter:       adapter,
		subscriptions: subscriptions,
	}, nil
}

func (r *Runtime) Service() *core.Service {
	if r == nil {
		return nil
	}
	return r.service
}

func (r *Runtime) Facade() *Facade {
	if r == nil {
		return nil
	}
	return r.facade
}

func (r *Runtime) Notifier() *notify.Dispatcher {
	if r == nil {
		return nil
	}
	return r.notifier
}

func (r *Runtime) Scheduler() *formscommand.Scheduler {
	if r == nil {
		return nil
	}
	return r.scheduler
}

// Redelivery returns the queue worker, or nil when no dequeuer was
// configured.
func (r *Runtime) Redelivery() *formscommand.RedeliveryWorker {
	if r == nil {
		return nil
	}
	return r.redelivery
}

func (r *Runtime) Adapter() *gocommand.RegistryAdapter {
	if r == nil {
		return nil
	}
	return r.adapter
}

// Close releases the dispatcher subscriptions and waits for in-flight
// notification deliveries to finish.
func (r *Runtime) Close() {
	if r == nil {
		return
	}
	for _, subscription := range r.subscriptions {
		if subscription != nil {
			subscription.Unsubscribe()
		}
	}
	if r.scheduler != nil {
		r.scheduler.Wait()
	}
}
