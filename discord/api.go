package discord

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

type User struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	Avatar        string `json:"avatar"`
}

type channelPayload struct {
	ID string `json:"id"`
}

// CurrentUser fetches the bot's own identity.
func (c *Client) CurrentUser(ctx context.Context) (User, error) {
	res, err := c.Call(ctx, http.MethodGet, "users/@me", nil, nil)
	if err != nil {
		return User{}, err
	}
	var user User
	if err := res.JSON(&user); err != nil {
		return User{}, fmt.Errorf("discord: decode current user: %w", err)
	}
	return user, nil
}

// OpenDirectMessageChannel resolves (or lazily opens) the DM channel for a
// user and returns its id. Errors carry the upstream status; callers that
// treat a 400-class response as "no channel available" narrow via IsStatus.
func (c *Client) OpenDirectMessageChannel(ctx context.Context, userID string) (string, error) {
	res, err := c.Call(ctx, http.MethodPost, "users/@me/channels", map[string]any{
		"recipient_id": strings.TrimSpace(userID),
	}, nil)
	if err != nil {
		return "", err
	}
	var channel channelPayload
	if err := res.JSON(&channel); err != nil {
		return "", fmt.Errorf("discord: decode dm channel: %w", err)
	}
	return channel.ID, nil
}

// CreateMessage posts plain content to a channel.
func (c *Client) CreateMessage(ctx context.Context, channelID string, content string) error {
	path := fmt.Sprintf("channels/%s/messages", url.PathEscape(strings.TrimSpace(channelID)))
	_, err := c.Call(ctx, http.MethodPost, path, map[string]any{"content": content}, nil)
	return err
}

// AddGuildMemberRole assigns a role to a guild member.
func (c *Client) AddGuildMemberRole(ctx context.Context, guildID string, userID string, roleID string) error {
	path := fmt.Sprintf(
		"guilds/%s/members/%s/roles/%s",
		url.PathEscape(strings.TrimSpace(guildID)),
		url.PathEscape(strings.TrimSpace(userID)),
		url.PathEscape(strings.TrimSpace(roleID)),
	)
	_, err := c.Call(ctx, http.MethodPut, path, nil, nil)
	return err
}

// ExecuteWebhook posts a payload to an externally configured webhook URL.
// The URL is absolute and bypasses base-URL resolution.
func (c *Client) ExecuteWebhook(ctx context.Context, webhookURL string, payload any) error {
	_, err := c.Call(ctx, http.MethodPost, webhookURL, payload, nil)
	return err
}
