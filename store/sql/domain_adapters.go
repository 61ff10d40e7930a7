package sqlstore

import (
	"time"

	"github.com/goliatone/go-forms/core"
)

func (r *formRecord) toDomain() core.Form {
	if r == nil {
		return core.Form{}
	}
	form := core.Form{
		ID:          r.ID,
		Name:        r.Name,
		DiscordRole: r.DiscordRole,
		DMMessage:   r.DMMessage,
	}
	for _, raw := range r.Features {
		feature, err := core.ParseFormFeature(raw)
		if err != nil {
			continue
		}
		form.Features = append(form.Features, feature)
	}
	for _, raw := range r.Questions {
		form.Questions = append(form.Questions, questionFromMap(raw))
	}
	if r.WebhookURL != "" {
		form.Webhook = &core.WebhookConfig{
			URL:     r.WebhookURL,
			Message: r.WebhookMessage,
		}
	}
	return form
}

func newFormRecord(form core.Form, now time.Time) *formRecord {
	record := &formRecord{
		ID:          form.ID,
		Name:        form.Name,
		Features:    []string{},
		Questions:   []map[string]any{},
		DiscordRole: form.DiscordRole,
		DMMessage:   form.DMMessage,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, feature := range form.Features {
		record.Features = append(record.Features, string(feature))
	}
	for _, question := range form.Questions {
		record.Questions = append(record.Questions, questionToMap(question))
	}
	if form.Webhook != nil {
		record.WebhookURL = form.Webhook.URL
		record.WebhookMessage = form.Webhook.Message
	}
	return record
}

func questionFromMap(raw map[string]any) core.Question {
	question := core.Question{}
	if id, ok := raw["id"].(string); ok {
		question.ID = id
	}
	if name, ok := raw["name"].(string); ok {
		question.Name = name
	}
	if qType, ok := raw["type"].(string); ok {
		question.Type = qType
	}
	if required, ok := raw["required"].(bool); ok {
		question.Required = required
	}
	if data, ok := raw["data"].(map[string]any); ok {
		question.Data = copyAnyMap(data)
	}
	return question
}

func questionToMap(question core.Question) map[string]any {
	raw := map[string]any{
		"id":       question.ID,
		"name":     question.Name,
		"type":     question.Type,
		"required": question.Required,
	}
	if len(question.Data) > 0 {
		raw["data"] = copyAnyMap(question.Data)
	}
	return raw
}

func newResponseRecord(response core.FormResponse, now time.Time) *formResponseRecord {
	record := &formResponseRecord{
		ID:         response.ID,
		FormID:     response.FormID,
		Timestamp:  response.Timestamp.UTC(),
		Answers:    copyAnyMap(response.Answers),
		UserClaims: copyAnyMap(response.User),
		CreatedAt:  now,
	}
	if record.Answers == nil {
		record.Answers = map[string]any{}
	}
	if response.Antispam != nil {
		ipHash := response.Antispam.IPHash
		userAgentHash := response.Antispam.UserAgentHash
		captchaPass := response.Antispam.CaptchaPass
		record.IPHash = &ipHash
		record.UserAgentHash = &userAgentHash
		record.CaptchaPass = &captchaPass
	}
	return record
}

func (r *formResponseRecord) toDomain() core.FormResponse {
	if r == nil {
		return core.FormResponse{}
	}
	response := core.FormResponse{
		ID:        r.ID,
		FormID:    r.FormID,
		Timestamp: r.Timestamp,
		Answers:   copyAnyMap(r.Answers),
		User:      copyAnyMap(r.UserClaims),
	}
	if r.IPHash != nil || r.UserAgentHash != nil || r.CaptchaPass != nil {
		antispam := &core.AntispamRecord{}
		if r.IPHash != nil {
			antispam.IPHash = *r.IPHash
		}
		if r.UserAgentHash != nil {
			antispam.UserAgentHash = *r.UserAgentHash
		}
		if r.CaptchaPass != nil {
			antispam.CaptchaPass = *r.CaptchaPass
		}
		response.Antispam = antispam
	}
	return response
}

func copyAnyMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}
