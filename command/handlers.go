package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-forms/core"
)

type SubmitResponseCommand struct {
	service core.SubmissionService
}

func NewSubmitResponseCommand(service core.SubmissionService) *SubmitResponseCommand {
	return &SubmitResponseCommand{service: service}
}

func (c *SubmitResponseCommand) Execute(ctx context.Context, msg SubmitResponseMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: submission service is required")
	}
	out, err := c.service.Submit(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type SendWebhookCommand struct {
	notifier core.Notifier
}

func NewSendWebhookCommand(notifier core.Notifier) *SendWebhookCommand {
	return &SendWebhookCommand{notifier: notifier}
}

func (c *SendWebhookCommand) Execute(ctx context.Context, msg SendWebhookMessage) error {
	if c == nil || c.notifier == nil {
		return commandDependencyError("command: notifier is required")
	}
	return c.notifier.SendSubmissionWebhook(ctx, msg.Form, msg.Response, msg.User)
}

type SendDirectMessageCommand struct {
	notifier core.Notifier
}

func NewSendDirectMessageCommand(notifier core.Notifier) *SendDirectMessageCommand {
	return &SendDirectMessageCommand{notifier: notifier}
}

func (c *SendDirectMessageCommand) Execute(ctx context.Context, msg SendDirectMessageMessage) error {
	if c == nil || c.notifier == nil {
		return commandDependencyError("command: notifier is required")
	}
	return c.notifier.SendDirectMessage(ctx, msg.Form, msg.Response, msg.User)
}

type AssignRoleCommand struct {
	notifier core.Notifier
}

func NewAssignRoleCommand(notifier core.Notifier) *AssignRoleCommand {
	return &AssignRoleCommand{notifier: notifier}
}

func (c *AssignRoleCommand) Execute(ctx context.Context, msg AssignRoleMessage) error {
	if c == nil || c.notifier == nil {
		return commandDependencyError("command: notifier is required")
	}
	return c.notifier.AssignRole(ctx, msg.Form, msg.User)
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
