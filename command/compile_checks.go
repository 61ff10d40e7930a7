package command

import (
	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-forms/core"
)

var (
	_ gocmd.Commander[SubmitResponseMessage]    = (*SubmitResponseCommand)(nil)
	_ gocmd.Commander[SendWebhookMessage]       = (*SendWebhookCommand)(nil)
	_ gocmd.Commander[SendDirectMessageMessage] = (*SendDirectMessageCommand)(nil)
	_ gocmd.Commander[AssignRoleMessage]        = (*AssignRoleCommand)(nil)

	_ core.NotificationScheduler = (*Scheduler)(nil)
	_ core.JobWorkerHook         = (*LedgerWorkerHook)(nil)

	_ gocmd.Message = SubmitResponseMessage{}
	_ gocmd.Message = SendWebhookMessage{}
	_ gocmd.Message = SendDirectMessageMessage{}
	_ gocmd.Message = AssignRoleMessage{}
)
