package command

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-forms/core"
)

const (
	TypeSubmitResponse    = "forms.command.response.submit"
	TypeSendWebhook       = "forms.command.notification.webhook"
	TypeSendDirectMessage = "forms.command.notification.direct_message"
	TypeAssignRole        = "forms.command.notification.role_assign"
)

type SubmitResponseMessage struct {
	Request core.SubmitRequest
}

func (SubmitResponseMessage) Type() string { return TypeSubmitResponse }

func (m SubmitResponseMessage) Validate() error {
	if strings.TrimSpace(m.Request.FormID) == "" {
		return fmt.Errorf("command: form id is required")
	}
	return nil
}

type SendWebhookMessage struct {
	Form     core.Form
	Response core.FormResponse
	User     core.ActingUser
}

func (SendWebhookMessage) Type() string { return TypeSendWebhook }

func (m SendWebhookMessage) Validate() error {
	if strings.TrimSpace(m.Form.ID) == "" {
		return fmt.Errorf("command: form id is required")
	}
	if strings.TrimSpace(m.Response.ID) == "" {
		return fmt.Errorf("command: response id is required")
	}
	return nil
}

type SendDirectMessageMessage struct {
	Form     core.Form
	Response core.FormResponse
	User     core.ActingUser
}

func (SendDirectMessageMessage) Type() string { return TypeSendDirectMessage }

func (m SendDirectMessageMessage) Validate() error {
	if strings.TrimSpace(m.Form.ID) == "" {
		return fmt.Errorf("command: form id is required")
	}
	if strings.TrimSpace(m.User.ID) == "" {
		return fmt.Errorf("command: user id is required")
	}
	return nil
}

type AssignRoleMessage struct {
	Form core.Form
	User core.ActingUser
}

func (AssignRoleMessage) Type() string { return TypeAssignRole }

func (m AssignRoleMessage) Validate() error {
	if strings.TrimSpace(m.Form.ID) == "" {
		return fmt.Errorf("command: form id is required")
	}
	if strings.TrimSpace(m.User.ID) == "" {
		return fmt.Errorf("command: user id is required")
	}
	return nil
}
