package forms

import (
	"fmt"

	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-forms/adapters/gocommand"
	formscommand "github.com/goliatone/go-forms/command"
	"github.com/goliatone/go-forms/core"
)

// Commands exposes the message-driven wrappers over the submission pipeline
// and the notification dispatcher.
type Commands struct {
	SubmitResponse    *formscommand.SubmitResponseCommand
	SendWebhook       *formscommand.SendWebhookCommand
	SendDirectMessage *formscommand.SendDirectMessageCommand
	AssignRole        *formscommand.AssignRoleCommand
}

type Facade struct {
	service  core.SubmissionService
	notifier core.Notifier
	commands Commands
}

func NewFacade(service core.SubmissionService, notifier core.Notifier) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("forms: submission service is required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("forms: notifier is required")
	}

	facade := &Facade{service: service, notifier: notifier}
	facade.commands = Commands{
		SubmitResponse:    formscommand.NewSubmitResponseCommand(service),
		SendWebhook:       formscommand.NewSendWebhookCommand(notifier),
		SendDirectMessage: formscommand.NewSendDirectMessageCommand(notifier),
		AssignRole:        formscommand.NewAssignRoleCommand(notifier),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Service() core.SubmissionService {
	if f == nil {
		return nil
	}
	return f.service
}

func (f *Facade) Notifier() core.Notifier {
	if f == nil {
		return nil
	}
	return f.notifier
}

// RegisterCommands subscribes every facade command on the process dispatcher
// and registers it with the adapter so queue resolvers can mirror it. On
// failure, subscriptions made so far are released.
func (f *Facade) RegisterCommands(adapter *gocommand.RegistryAdapter) ([]commanddispatcher.Subscription, error) {
	if f == nil {
		return nil, fmt.Errorf("forms: facade is not configured")
	}
	if adapter == nil {
		return nil, fmt.Errorf("forms: registry adapter is required")
	}

	subscriptions := make([]commanddispatcher.Subscription, 0, 4)
	release := func() {
		for _, subscription := range subscriptions {
			if subscription != nil {
				subscription.Unsubscribe()
			}
		}
	}

	submitSub, err := gocommand.RegisterAndSubscribe(adapter, f.commands.SubmitResponse)
	if err != nil {
		release()
		return nil, err
	}
	subscriptions = append(subscriptions, submitSub)

	webhookSub, err := gocommand.RegisterAndSubscribe(adapter, f.commands.SendWebhook)
	if err != nil {
		release()
		return nil, err
	}
	subscriptions = append(subscriptions, webhookSub)

	dmSub, err := gocommand.RegisterAndSubscribe(adapter, f.commands.SendDirectMessage)
	if err != nil {
		release()
		return nil, err
	}
	subscriptions = append(subscriptions, dmSub)

	roleSub, err := gocommand.RegisterAndSubscribe(adapter, f.commands.AssignRole)
	if err != nil {
		release()
		return nil, err
	}
	subscriptions = append(subscriptions, roleSub)

	return subscriptions, nil
}
