package notify

import (
	"strings"
	"time"

	"github.com/goliatone/go-forms/core"
)

// TemplateContext holds the substitution variables available to webhook and
// direct message templates.
type TemplateContext map[string]string

// BuildContext assembles the template variables for a submission. It never
// fails: an acting user without a mention handle resolves to the fixed
// fallback label.
func BuildContext(form core.Form, response core.FormResponse, user core.ActingUser) TemplateContext {
	return TemplateContext{
		"user":        user.MentionOrFallback(),
		"response_id": response.ID,
		"form":        form.Name,
		"form_id":     form.ID,
		"time":        response.Timestamp.UTC().Format(time.RFC3339),
	}
}

// Format replaces every `{key}` occurrence in template with the context
// value for key. Substitution is a single left-to-right pass over the
// template, so substituted values are never re-scanned for placeholders.
// Unrecognized placeholders and stray braces pass through unchanged.
func Format(template string, ctx TemplateContext) string {
	if len(ctx) == 0 || !strings.Contains(template, "{") {
		return template
	}

	var out strings.Builder
	out.Grow(len(template))

	rest := template
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			out.WriteString(rest)
			return out.String()
		}
		close := strings.IndexByte(rest[open:], '}')
		if close < 0 {
			out.WriteString(rest)
			return out.String()
		}
		close += open

		key := rest[open+1 : close]
		value, ok := ctx[key]
		if !ok {
			out.WriteString(rest[:open+1])
			rest = rest[open+1:]
			continue
		}
		out.WriteString(rest[:open])
		out.WriteString(value)
		rest = rest[close+1:]
	}
}
