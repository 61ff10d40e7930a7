package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-forms/core"
	"github.com/goliatone/go-forms/discord"
)

const defaultWebhookUsername = "Forms"

// API is the Discord surface the dispatcher delivers through. *discord.Client
// satisfies it.
type API interface {
	OpenDirectMessageChannel(ctx context.Context, userID string) (string, error)
	CreateMessage(ctx context.Context, channelID string, content string) error
	AddGuildMemberRole(ctx context.Context, guildID string, userID string, roleID string) error
	ExecuteWebhook(ctx context.Context, webhookURL string, payload any) error
}

// Dispatcher implements core.Notifier over the Discord API. Each method makes
// exactly one delivery attempt; "recipient unavailable" statuses on the
// direct message path are treated as silent no-ops.
type Dispatcher struct {
	api      API
	logger   core.Logger
	frontend string
	cdnBase  string
	guildID  string
	username string
}

type DispatcherOption func(*Dispatcher)

func WithLogger(logger core.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithWebhookUsername overrides the username used when a form has no name.
func WithWebhookUsername(username string) DispatcherOption {
	return func(d *Dispatcher) {
		if trimmed := strings.TrimSpace(username); trimmed != "" {
			d.username = trimmed
		}
	}
}

func NewDispatcher(api API, cfg core.Config, options ...DispatcherOption) (*Dispatcher, error) {
	if api == nil {
		return nil, fmt.Errorf("notify: api client is required")
	}
	dispatcher := &Dispatcher{
		api:      api,
		logger:   glog.Nop(),
		frontend: strings.TrimRight(strings.TrimSpace(cfg.FrontendURL), "/"),
		cdnBase:  strings.TrimRight(strings.TrimSpace(cfg.Discord.CDNBaseURL), "/"),
		guildID:  strings.TrimSpace(cfg.Discord.GuildID),
		username: defaultWebhookUsername,
	}
	for _, option := range options {
		if option != nil {
			option(dispatcher)
		}
	}
	return dispatcher, nil
}

// SendSubmissionWebhook posts the submission embed to the form's webhook.
// A form without a webhook is a wiring defect upstream of delivery, reported
// as a configuration error.
func (d *Dispatcher) SendSubmissionWebhook(
	ctx context.Context,
	form core.Form,
	response core.FormResponse,
	user core.ActingUser,
) error {
	if d == nil || d.api == nil {
		return core.ConfigurationError("notification dispatcher is not configured")
	}
	if form.Webhook == nil || strings.TrimSpace(form.Webhook.URL) == "" {
		return core.ConfigurationError("form has no webhook configured")
	}

	templateCtx := BuildContext(form, response, user)

	embed := Embed{
		Title:       embedTitle,
		Description: fmt.Sprintf("%s submitted a response to `%s`.", user.MentionOrFallback(), form.Name),
		URL:         d.responseURL(response.ID),
		Timestamp:   response.Timestamp.UTC().Format(time.RFC3339),
		Color:       embedColor,
	}
	if user.Authenticated {
		author := &EmbedAuthor{Name: user.DisplayName}
		if user.ID != "" && user.Avatar != "" {
			author.IconURL = fmt.Sprintf("%s/avatars/%s/%s.png", d.cdnBase, user.ID, user.Avatar)
		}
		embed.Author = author
	}

	payload := WebhookPayload{
		Embeds:          []Embed{embed},
		AllowedMentions: AllowedMentions{Parse: []string{"users", "roles"}},
		Username:        d.webhookUsername(form),
	}
	if form.Webhook.Message != "" {
		payload.Content = Format(form.Webhook.Message, templateCtx)
	}

	return d.api.ExecuteWebhook(ctx, form.Webhook.URL, payload)
}

// SendDirectMessage renders the form's DM template and posts it to the acting
// user. A 400 on channel lookup means the recipient cannot receive DMs
// through us; a 403 on send means their DMs are closed. Both end delivery
// without an error.
func (d *Dispatcher) SendDirectMessage(
	ctx context.Context,
	form core.Form,
	response core.FormResponse,
	user core.ActingUser,
) error {
	if d == nil || d.api == nil {
		return core.ConfigurationError("notification dispatcher is not configured")
	}
	if strings.TrimSpace(form.DMMessage) == "" {
		return core.ConfigurationError("form has no direct message configured")
	}

	channelID, err := d.api.OpenDirectMessageChannel(ctx, user.ID)
	if err != nil {
		if discord.IsStatus(err, http.StatusBadRequest) {
			d.logger.Debug("direct message channel unavailable", "user_id", user.ID, "form_id", form.ID)
			return nil
		}
		return err
	}
	if channelID == "" {
		return nil
	}

	content := Format(form.DMMessage, BuildContext(form, response, user))
	if err := d.api.CreateMessage(ctx, channelID, content); err != nil {
		if discord.IsStatus(err, http.StatusForbidden) {
			d.logger.Debug("direct message recipient has closed dms", "user_id", user.ID, "form_id", form.ID)
			return nil
		}
		return err
	}
	return nil
}

// AssignRole grants the form's configured guild role to the acting user.
func (d *Dispatcher) AssignRole(ctx context.Context, form core.Form, user core.ActingUser) error {
	if d == nil || d.api == nil {
		return core.ConfigurationError("notification dispatcher is not configured")
	}
	if strings.TrimSpace(form.DiscordRole) == "" {
		return core.ConfigurationError("form has no role configured")
	}
	if d.guildID == "" {
		return core.ConfigurationError("discord guild id is not configured")
	}
	return d.api.AddGuildMemberRole(ctx, d.guildID, user.ID, form.DiscordRole)
}

func (d *Dispatcher) responseURL(responseID string) string {
	if d.frontend == "" {
		return ""
	}
	return fmt.Sprintf("%s/responses/%s", d.frontend, responseID)
}

func (d *Dispatcher) webhookUsername(form core.Form) string {
	if name := strings.TrimSpace(form.Name); name != "" {
		return name
	}
	return d.username
}
