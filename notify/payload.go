package notify

// Discord embed color used on submission notifications.
const embedColor = 7506394

const embedTitle = "New Form Response"

type EmbedAuthor struct {
	Name    string `json:"name"`
	IconURL string `json:"icon_url,omitempty"`
}

type Embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	URL         string       `json:"url,omitempty"`
	Timestamp   string       `json:"timestamp"`
	Color       int          `json:"color"`
	Author      *EmbedAuthor `json:"author,omitempty"`
}

type AllowedMentions struct {
	Parse []string `json:"parse"`
}

// WebhookPayload is the body posted to the form's webhook URL.
type WebhookPayload struct {
	Embeds          []Embed         `json:"embeds"`
	AllowedMentions AllowedMentions `json:"allowed_mentions"`
	Username        string          `json:"username"`
	Content         string          `json:"content,omitempty"`
}
