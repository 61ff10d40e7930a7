package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type formRecord struct {
	bun.BaseModel `bun:"table:forms,alias:f"`

	ID             string           `bun:"id,pk"`
	Name           string           `bun:"name,notnull"`
	Features       []string         `bun:"features,type:jsonb,notnull"`
	Questions      []map[string]any `bun:"questions,type:jsonb,notnull"`
	WebhookURL     string           `bun:"webhook_url"`
	WebhookMessage string           `bun:"webhook_message"`
	DiscordRole    string           `bun:"discord_role"`
	DMMessage      string           `bun:"dm_message"`
	CreatedAt      time.Time        `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt      time.Time        `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
	DeletedAt      *time.Time       `bun:"deleted_at,soft_delete"`
}

type formResponseRecord struct {
	bun.BaseModel `bun:"table:form_responses,alias:fr"`

	ID            string         `bun:"id,pk"`
	FormID        string         `bun:"form_id,notnull"`
	Timestamp     time.Time      `bun:"timestamp,nullzero,notnull"`
	Answers       map[string]any `bun:"answers,type:jsonb,notnull"`
	UserClaims    map[string]any `bun:"user_claims,type:jsonb"`
	IPHash        *string        `bun:"ip_hash"`
	UserAgentHash *string        `bun:"user_agent_hash"`
	CaptchaPass   *bool          `bun:"captcha_pass"`
	CreatedAt     time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type notificationDispatchRecord struct {
	bun.BaseModel `bun:"table:form_notification_dispatches,alias:fnd"`

	ID         string    `bun:"id,pk"`
	FormID     string    `bun:"form_id,notnull"`
	ResponseID string    `bun:"response_id,notnull"`
	Kind       string    `bun:"kind,notnull"`
	Status     string    `bun:"status,notnull"`
	Error      string    `bun:"error"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt  time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
