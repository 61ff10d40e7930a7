package notify

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-forms/core"
)

type fakeAPI struct {
	openChannelID  string
	openErr        error
	createErr      error
	webhookErr     error
	roleErr        error
	openedFor      []string
	sentMessages   []string
	sentChannels   []string
	webhookURLs    []string
	webhookBodies  []WebhookPayload
	assignedRoles  []string
	assignedGuilds []string
	assignedUsers  []string
}

func (f *fakeAPI) OpenDirectMessageChannel(_ context.Context, userID string) (string, error) {
	f.openedFor = append(f.openedFor, userID)
	if f.openErr != nil {
		return "", f.openErr
	}
	return f.openChannelID, nil
}

func (f *fakeAPI) CreateMessage(_ context.Context, channelID string, content string) error {
	f.sentChannels = append(f.sentChannels, channelID)
	f.sentMessages = append(f.sentMessages, content)
	return f.createErr
}

func (f *fakeAPI) AddGuildMemberRole(_ context.Context, guildID string, userID string, roleID string) error {
	f.assignedGuilds = append(f.assignedGuilds, guildID)
	f.assignedUsers = append(f.assignedUsers, userID)
	f.assignedRoles = append(f.assignedRoles, roleID)
	return f.roleErr
}

func (f *fakeAPI) ExecuteWebhook(_ context.Context, webhookURL string, payload any) error {
	f.webhookURLs = append(f.webhookURLs, webhookURL)
	if body, ok := payload.(WebhookPayload); ok {
		f.webhookBodies = append(f.webhookBodies, body)
	}
	return f.webhookErr
}

func statusErrorWithCode(status int) error {
	return goerrors.New("discord: api call returned a non-success status", goerrors.CategoryExternal).
		WithCode(status).
		WithMetadata(map[string]any{"status_code": status})
}

func testConfig() core.Config {
	cfg := core.DefaultConfig()
	cfg.FrontendURL = "https://forms.test"
	cfg.Discord.GuildID = "guild-1"
	return cfg
}

func testForm() core.Form {
	return core.Form{
		ID:   "f-1",
		Name: "Ban Appeals",
		Webhook: &core.WebhookConfig{
			URL:     "https://hooks.test/abc",
			Message: "{user} responded to {form}",
		},
		DiscordRole: "role-9",
		DMMessage:   "Thanks {user}, see {response_id}",
	}
}

func testResponse() core.FormResponse {
	return core.FormResponse{
		ID:        "r-1",
		FormID:    "f-1",
		Timestamp: time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC),
	}
}

func authenticatedUser() core.ActingUser {
	return core.ActingUser{
		Authenticated: true,
		ID:            "u-1",
		DisplayName:   "Ada",
		Mention:       "<@u-1>",
		Avatar:        "abc123",
	}
}

func TestSendSubmissionWebhookBuildsEmbed(t *testing.T) {
	api := &fakeAPI{}
	dispatcher, err := NewDispatcher(api, testConfig())
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}

	if err := dispatcher.SendSubmissionWebhook(context.Background(), testForm(), testResponse(), authenticatedUser()); err != nil {
		t.Fatalf("send webhook: %v", err)
	}

	if len(api.webhookURLs) != 1 || api.webhookURLs[0] != "https://hooks.test/abc" {
		t.Fatalf("unexpected webhook urls %v", api.webhookURLs)
	}
	payload := api.webhookBodies[0]
	if len(payload.Embeds) != 1 {
		t.Fatalf("expected one embed, got %d", len(payload.Embeds))
	}
	embed := payload.Embeds[0]
	if embed.Title != "New Form Response" {
		t.Fatalf("unexpected title %q", embed.Title)
	}
	if embed.Description != "<@u-1> submitted a response to `Ban Appeals`." {
		t.Fatalf("unexpected description %q", embed.Description)
	}
	if embed.URL != "https://forms.test/responses/r-1" {
		t.Fatalf("unexpected url %q", embed.URL)
	}
	if embed.Color != 7506394 {
		t.Fatalf("unexpected color %d", embed.Color)
	}
	if embed.Timestamp != "2024-03-01T12:30:00Z" {
		t.Fatalf("unexpected timestamp %q", embed.Timestamp)
	}
	if embed.Author == nil || embed.Author.Name != "Ada" {
		t.Fatalf("expected author block, got %#v", embed.Author)
	}
	if !strings.HasSuffix(embed.Author.IconURL, "/avatars/u-1/abc123.png") {
		t.Fatalf("unexpected icon url %q", embed.Author.IconURL)
	}
	if payload.Username != "Ban Appeals" {
		t.Fatalf("unexpected username %q", payload.Username)
	}
	if payload.Content != "<@u-1> responded to Ban Appeals" {
		t.Fatalf("unexpected content %q", payload.Content)
	}
	if len(payload.AllowedMentions.Parse) != 2 {
		t.Fatalf("unexpected allowed mentions %v", payload.AllowedMentions.Parse)
	}
}

func TestSendSubmissionWebhookOmitsAuthorForAnonymousUsers(t *testing.T) {
	api := &fakeAPI{}
	dispatcher, _ := NewDispatcher(api, testConfig())

	if err := dispatcher.SendSubmissionWebhook(context.Background(), testForm(), testResponse(), core.ActingUser{}); err != nil {
		t.Fatalf("send webhook: %v", err)
	}
	embed := api.webhookBodies[0].Embeds[0]
	if embed.Author != nil {
		t.Fatalf("expected no author block, got %#v", embed.Author)
	}
	if !strings.HasPrefix(embed.Description, "User submitted") {
		t.Fatalf("expected fallback mention, got %q", embed.Description)
	}
}

func TestSendSubmissionWebhookFailsWithoutWebhookConfig(t *testing.T) {
	api := &fakeAPI{}
	dispatcher, _ := NewDispatcher(api, testConfig())

	form := testForm()
	form.Webhook = nil
	err := dispatcher.SendSubmissionWebhook(context.Background(), form, testResponse(), authenticatedUser())
	if err == nil {
		t.Fatalf("expected configuration error")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr.Category != goerrors.CategoryOperation {
		t.Fatalf("expected operation category, got %v", err)
	}
	if len(api.webhookURLs) != 0 {
		t.Fatalf("expected no delivery attempt")
	}
}

func TestSendSubmissionWebhookFallsBackUsername(t *testing.T) {
	api := &fakeAPI{}
	dispatcher, _ := NewDispatcher(api, testConfig())

	form := testForm()
	form.Name = ""
	if err := dispatcher.SendSubmissionWebhook(context.Background(), form, testResponse(), authenticatedUser()); err != nil {
		t.Fatalf("send webhook: %v", err)
	}
	if got := api.webhookBodies[0].Username; got != "Forms" {
		t.Fatalf("unexpected fallback username %q", got)
	}
}

func TestSendDirectMessageDeliversRenderedTemplate(t *testing.T) {
	api := &fakeAPI{openChannelID: "c-7"}
	dispatcher, _ := NewDispatcher(api, testConfig())

	if err := dispatcher.SendDirectMessage(context.Background(), testForm(), testResponse(), authenticatedUser()); err != nil {
		t.Fatalf("send dm: %v", err)
	}
	if len(api.sentChannels) != 1 || api.sentChannels[0] != "c-7" {
		t.Fatalf("unexpected channels %v", api.sentChannels)
	}
	if api.sentMessages[0] != "Thanks <@u-1>, see r-1" {
		t.Fatalf("unexpected message %q", api.sentMessages[0])
	}
}

func TestSendDirectMessageSwallowsBadRequestOnChannelOpen(t *testing.T) {
	api := &fakeAPI{openErr: statusErrorWithCode(http.StatusBadRequest)}
	dispatcher, _ := NewDispatcher(api, testConfig())

	if err := dispatcher.SendDirectMessage(context.Background(), testForm(), testResponse(), authenticatedUser()); err != nil {
		t.Fatalf("expected silent no-op, got %v", err)
	}
	if len(api.sentMessages) != 0 {
		t.Fatalf("expected no message sent")
	}
}

func TestSendDirectMessageSwallowsForbiddenOnSend(t *testing.T) {
	api := &fakeAPI{openChannelID: "c-7", createErr: statusErrorWithCode(http.StatusForbidden)}
	dispatcher, _ := NewDispatcher(api, testConfig())

	if err := dispatcher.SendDirectMessage(context.Background(), testForm(), testResponse(), authenticatedUser()); err != nil {
		t.Fatalf("expected silent no-op, got %v", err)
	}
}

func TestSendDirectMessagePropagatesOtherFailures(t *testing.T) {
	api := &fakeAPI{openErr: statusErrorWithCode(http.StatusInternalServerError)}
	dispatcher, _ := NewDispatcher(api, testConfig())

	if err := dispatcher.SendDirectMessage(context.Background(), testForm(), testResponse(), authenticatedUser()); err == nil {
		t.Fatalf("expected error to propagate")
	}

	api = &fakeAPI{openChannelID: "c-7", createErr: statusErrorWithCode(http.StatusNotFound)}
	dispatcher, _ = NewDispatcher(api, testConfig())
	if err := dispatcher.SendDirectMessage(context.Background(), testForm(), testResponse(), authenticatedUser()); err == nil {
		t.Fatalf("expected send error to propagate")
	}
}

func TestSendDirectMessageRequiresTemplate(t *testing.T) {
	api := &fakeAPI{openChannelID: "c-7"}
	dispatcher, _ := NewDispatcher(api, testConfig())

	form := testForm()
	form.DMMessage = ""
	if err := dispatcher.SendDirectMessage(context.Background(), form, testResponse(), authenticatedUser()); err == nil {
		t.Fatalf("expected configuration error")
	}
	if len(api.openedFor) != 0 {
		t.Fatalf("expected no channel lookup")
	}
}

func TestAssignRoleUsesConfiguredGuild(t *testing.T) {
	api := &fakeAPI{}
	dispatcher, _ := NewDispatcher(api, testConfig())

	if err := dispatcher.AssignRole(context.Background(), testForm(), authenticatedUser()); err != nil {
		t.Fatalf("assign role: %v", err)
	}
	if api.assignedGuilds[0] != "guild-1" || api.assignedUsers[0] != "u-1" || api.assignedRoles[0] != "role-9" {
		t.Fatalf("unexpected role assignment %v %v %v", api.assignedGuilds, api.assignedUsers, api.assignedRoles)
	}
}

func TestAssignRoleRequiresRoleAndGuild(t *testing.T) {
	api := &fakeAPI{}
	dispatcher, _ := NewDispatcher(api, testConfig())

	form := testForm()
	form.DiscordRole = ""
	if err := dispatcher.AssignRole(context.Background(), form, authenticatedUser()); err == nil {
		t.Fatalf("expected configuration error for missing role")
	}

	cfg := testConfig()
	cfg.Discord.GuildID = ""
	dispatcher, _ = NewDispatcher(api, cfg)
	if err := dispatcher.AssignRole(context.Background(), testForm(), authenticatedUser()); err == nil {
		t.Fatalf("expected configuration error for missing guild")
	}
}
